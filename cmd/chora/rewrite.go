package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Avis-Rio/Chora/internal/archive"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <folder> [folders...]",
	Short: "Re-run the AI rewrite for archive folder(s)",
	Long: `Rewrite re-runs the rewrite stage for the given archive folders. Each
folder must contain a transcript; the existing rewritten article, if any, is
replaced and the metadata document is reconciled (operator fields are never
overwritten).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().String("prompt", defaultPromptPath, "rewrite prompt template")

	rootCmd.AddCommand(rewriteCmd)
}

func runRewrite(cmd *cobra.Command, args []string) error {
	promptPath, _ := cmd.Flags().GetString("prompt")
	cfg, err := geminiConfig("rewrite")
	if err != nil {
		return err
	}
	rew := newRewriter(cfg, promptPath)

	failed := 0
	for _, dir := range args {
		if !archive.HasArtifact(dir, archive.TranscriptFile) {
			fmt.Fprintf(os.Stdout, "failed: %s: no transcript\n", dir)
			failed++
			continue
		}
		err := rew.Rewrite(context.Background(),
			filepath.Join(dir, archive.TranscriptFile),
			filepath.Join(dir, archive.MetadataFile),
			filepath.Join(dir, archive.RewrittenFile))
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed: %s: %v\n", dir, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "rewrote %s\n", dir)
	}

	if failed > 0 {
		return fmt.Errorf("%d folder(s) failed rewrite", failed)
	}
	return nil
}

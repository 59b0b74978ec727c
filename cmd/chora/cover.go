package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Avis-Rio/Chora/internal/archive"
)

var coverCmd = &cobra.Command{
	Use:   "cover",
	Short: "Generate cover images for archive folders",
}

var coverGenerateCmd = &cobra.Command{
	Use:   "generate <folder>",
	Short: "Generate a cover for one archive folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoverGenerate,
}

var coverRegenerateCmd = &cobra.Command{
	Use:   "regenerate-missing",
	Short: "Generate covers for every podcast folder lacking one",
	RunE:  runCoverRegenerate,
}

func init() {
	coverGenerateCmd.Flags().Bool("force", false, "regenerate even when a cover exists")
	addArchiveRootFlag(coverRegenerateCmd)

	coverCmd.AddCommand(coverGenerateCmd, coverRegenerateCmd)
	rootCmd.AddCommand(coverCmd)
}

func runCoverGenerate(cmd *cobra.Command, args []string) error {
	dir := args[0]
	force, _ := cmd.Flags().GetBool("force")

	if !force && archive.FindCover(dir) != "" {
		fmt.Printf("cover exists in %s, use --force to regenerate\n", dir)
		return nil
	}

	data, err := os.ReadFile(filepath.Join(dir, archive.MetadataFile))
	if err != nil {
		return fmt.Errorf("reading metadata: %w", err)
	}
	doc := archive.ParseMetadataDoc(string(data))
	if doc.Title == "" {
		return fmt.Errorf("no title in %s", filepath.Join(dir, archive.MetadataFile))
	}

	cfg, err := geminiConfig("cover")
	if err != nil {
		return err
	}
	return newCoverGenerator(cfg).Generate(context.Background(), doc.Title, doc.Source, "",
		filepath.Join(dir, "cover.png"))
}

func runCoverRegenerate(cmd *cobra.Command, args []string) error {
	cfg, err := geminiConfig("cover")
	if err != nil {
		return err
	}

	regenerated, failed := newCoverGenerator(cfg).RegenerateMissing(context.Background(), archiveRootFlag(cmd))
	fmt.Printf("regenerated %d cover(s)\n", len(regenerated))
	if len(failed) > 0 {
		return fmt.Errorf("%d cover(s) failed generation", len(failed))
	}
	return nil
}

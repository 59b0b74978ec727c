package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Avis-Rio/Chora/internal/pipeline"
	"github.com/Avis-Rio/Chora/internal/state"
)

var processCmd = &cobra.Command{
	Use:   "process <url-or-id>",
	Short: "Run the full pipeline for a single video or episode",
	Long: `Process accepts a YouTube URL, a bare YouTube video ID, or a Xiaoyuzhou
episode URL and runs the full stage pipeline: metadata, transcript (with
transcription for podcasts), rewrite, and cover. Stages whose artifacts
already exist are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().String("state", defaultStatePath, "processed-ID state file")
	processCmd.Flags().String("prompt", defaultPromptPath, "rewrite prompt template")
	addArchiveRootFlag(processCmd)

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	item, err := pipeline.ItemFromURL(args[0])
	if err != nil {
		return err
	}

	statePath, _ := cmd.Flags().GetString("state")
	promptPath, _ := cmd.Flags().GetString("prompt")

	store := state.Load(statePath)
	processor, err := newProcessor(archiveRootFlag(cmd), promptPath, store)
	if err != nil {
		return err
	}
	return processor.ProcessItem(context.Background(), item)
}

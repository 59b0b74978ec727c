package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Avis-Rio/Chora/internal/feedscan"
	"github.com/Avis-Rio/Chora/internal/state"
	"github.com/Avis-Rio/Chora/internal/ytdlp"
	"github.com/Avis-Rio/Chora/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan subscribed feeds for new content",
	Long: `Scan checks every configured YouTube channel and Xiaoyuzhou podcast for
episodes published inside the discovery window, filtering out items already
processed, too old, too short, or not matching the keyword allow-list.

With --process, every discovered item is run through the full pipeline.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Int("days", 7, "discovery window in days")
	scanCmd.Flags().Float64("min-duration", 30, "minimum item duration in minutes")
	scanCmd.Flags().String("state", defaultStatePath, "processed-ID state file")
	scanCmd.Flags().String("prompt", defaultPromptPath, "rewrite prompt template (used with --process)")
	scanCmd.Flags().Bool("process", false, "run the pipeline over discovered items")
	addArchiveRootFlag(scanCmd)

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	sources, err := loadSources()
	if err != nil {
		return err
	}

	days, _ := cmd.Flags().GetInt("days")
	minDuration, _ := cmd.Flags().GetFloat64("min-duration")
	statePath, _ := cmd.Flags().GetString("state")
	process, _ := cmd.Flags().GetBool("process")
	promptPath, _ := cmd.Flags().GetString("prompt")
	root := archiveRootFlag(cmd)

	store := state.Load(statePath)
	scanner := feedscan.New(pageClient(), ytdlp.New(), os.Stdout)
	items := scanner.Scan(context.Background(), sources, feedscan.Options{
		ScanConfig: types.ScanConfig{
			HTTPConfig:         httpConfig(),
			ArchiveRoot:        root,
			DateRangeDays:      days,
			MinDurationMinutes: minDuration,
		},
	}, store)

	fmt.Printf("found %d new item(s)\n", len(items))
	for _, item := range items {
		fmt.Printf("  [%s] %s - %s (%s)\n", item.Platform, item.Channel, item.Title, item.Date)
	}

	if !process || len(items) == 0 {
		return nil
	}

	processor, err := newProcessor(root, promptPath, store)
	if err != nil {
		return err
	}
	processed := processor.ProcessAll(context.Background(), items)
	fmt.Printf("processed %d/%d item(s)\n", processed, len(items))
	if processed < len(items) {
		return fmt.Errorf("%d item(s) failed processing", len(items)-processed)
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Avis-Rio/Chora/internal/tags"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Maintain the tag lines of rewritten articles",
}

var tagsNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Rewrite tag lines to the standardized English taxonomy",
	Long: `Normalize maps every article's tags onto the standardized English
taxonomy (Chinese tags are translated, synonyms are merged, channel and
region names are dropped), then writes the line back sorted and
deduplicated.`,
	RunE: runTagsNormalize,
}

var tagsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Strip blacklisted tags, keeping the original language",
	RunE:  runTagsClean,
}

func init() {
	tagsCmd.PersistentFlags().String("archive-root", defaultArchiveRoot, "base directory of the content archive")

	tagsCmd.AddCommand(tagsNormalizeCmd, tagsCleanCmd)
	rootCmd.AddCommand(tagsCmd)
}

func runTagsNormalize(cmd *cobra.Command, args []string) error {
	updated, err := tags.NormalizeArchive(archiveRootFlag(cmd), os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("normalized tags in %d file(s)\n", updated)
	return nil
}

func runTagsClean(cmd *cobra.Command, args []string) error {
	updated, err := tags.CleanArchive(archiveRootFlag(cmd), os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("cleaned tags in %d file(s)\n", updated)
	return nil
}

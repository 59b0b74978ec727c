package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Avis-Rio/Chora/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [folder]",
	Short: "Flatten archive folders into the export document",
	Long: `Export walks the content archive and flattens every completed folder into
content_export.json, newest first. With a folder argument, only that folder
is exported and the record is printed to stdout instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Bool("all", false, "export the whole archive")
	exportCmd.Flags().String("output", defaultExportPath, "export document path")
	addArchiveRootFlag(exportCmd)

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	output, _ := cmd.Flags().GetString("output")

	exporter := export.New(os.Stdout)

	if len(args) == 1 && !all {
		record, err := exporter.ExportFolder(args[0])
		if err != nil {
			return err
		}
		encoded, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	_, err := exporter.ExportAll(archiveRootFlag(cmd), output)
	return err
}

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Avis-Rio/Chora/internal/frontend"
	"github.com/Avis-Rio/Chora/pkg/types"
)

var frontendCmd = &cobra.Command{
	Use:   "frontend",
	Short: "Publish covers and data files for the static frontend",
	Long: `Frontend copies every archive cover into the public covers directory,
writes the public cover URLs back into the export document, and generates
content.json and summary.json for the web frontend.`,
	RunE: runFrontend,
}

func init() {
	frontendCmd.Flags().String("covers-dir", "frontend/public/covers", "public covers directory")
	frontendCmd.Flags().String("data-dir", "frontend/public/data", "frontend data directory")
	frontendCmd.Flags().String("export", defaultExportPath, "export document path")
	frontendCmd.Flags().String("base-url", "", "public base URL for cover links (default: frontend.base_url)")
	addArchiveRootFlag(frontendCmd)

	rootCmd.AddCommand(frontendCmd)
}

func runFrontend(cmd *cobra.Command, args []string) error {
	exportPath, _ := cmd.Flags().GetString("export")

	cfg := types.FrontendConfig{}
	cfg.CoversDir, _ = cmd.Flags().GetString("covers-dir")
	cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	cfg.BaseURL, _ = cmd.Flags().GetString("base-url")
	if cfg.BaseURL == "" {
		cfg.BaseURL = viper.GetString("frontend.base_url")
	}

	return frontend.New(os.Stdout).Build(archiveRootFlag(cmd), exportPath, cfg)
}

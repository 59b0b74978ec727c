// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the chora CLI: feed scanning,
// the per-item content pipeline, export, Bitable sync and the static
// frontend outputs.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Avis-Rio/Chora/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the chora CLI.
var rootCmd = &cobra.Command{
	Use:   "chora",
	Short: "Acquire podcast and video content and republish it as articles",
	Long: `chora scans subscribed YouTube channels and Xiaoyuzhou podcasts, archives
each episode on disk, fetches or transcribes its transcript, rewrites it into a
Chinese article, generates a cover, and publishes the result to a Feishu
Bitable and a static frontend.

Each stage is a subcommand: scan, process, rewrite, export, sync, cover,
tags, and frontend. Every stage is resumable; artifacts already on disk are
never redone.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./chora.yaml or ~/.config/chora/chora.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("chora")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "chora"))
		}
	}

	viper.SetEnvPrefix("CHORA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

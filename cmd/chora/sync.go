package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Avis-Rio/Chora/internal/feishu"
	"github.com/Avis-Rio/Chora/pkg/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push the export document to the Feishu Bitable",
	Long: `Sync diffs every export record against the Bitable: complete remote
records are skipped, incomplete ones receive only their missing fields (so
manual edits survive), and unseen items are created in full. --force rewrites
every matched record.`,
	RunE: runSync,
}

var syncListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the records currently in the table",
	RunE:  runSyncList,
}

var syncCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report per-item completeness without writing anything",
	RunE:  runSyncCheck,
}

var syncTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify credentials and table access",
	RunE:  runSyncTest,
}

func init() {
	syncCmd.Flags().Bool("force", false, "update matched records even when complete")
	syncCmd.PersistentFlags().String("export", defaultExportPath, "export document path")

	syncCmd.AddCommand(syncListCmd, syncCheckCmd, syncTestCmd)
	rootCmd.AddCommand(syncCmd)
}

func loadExport(cmd *cobra.Command) ([]types.ExportRecord, error) {
	path, _ := cmd.Flags().GetString("export")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading export document (run `chora export --all` first): %w", err)
	}
	var items []types.ExportRecord
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return items, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	items, err := loadExport(cmd)
	if err != nil {
		return err
	}
	client, err := newFeishuClient()
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	result := feishu.NewSyncer(client, os.Stdout).Sync(context.Background(), items, force)
	if result.HasFailures() {
		return fmt.Errorf("%d item(s) failed sync", result.Failed)
	}
	return nil
}

func runSyncList(cmd *cobra.Command, args []string) error {
	client, err := newFeishuClient()
	if err != nil {
		return err
	}

	records, err := client.ListRecords(context.Background(), 500)
	if err != nil {
		return err
	}
	fmt.Printf("%d record(s) in table\n", len(records))
	for _, rec := range records {
		fmt.Printf("  %s  %s\n", feishu.FieldString(rec, "记录ID"), feishu.FieldString(rec, "标题"))
	}
	return nil
}

func runSyncCheck(cmd *cobra.Command, args []string) error {
	items, err := loadExport(cmd)
	if err != nil {
		return err
	}
	client, err := newFeishuClient()
	if err != nil {
		return err
	}

	records, err := client.ListRecords(context.Background(), 500)
	if err != nil {
		return err
	}
	byID := make(map[string]feishu.Record)
	for _, rec := range records {
		if id := feishu.FieldString(rec, "记录ID"); id != "" {
			byID[id] = rec
		}
	}

	for _, item := range items {
		rec, ok := byID[item.ID]
		if !ok {
			fmt.Printf("missing: %s (%s)\n", item.Title, item.ID)
			continue
		}
		if complete, missing := feishu.IsComplete(rec); !complete {
			fmt.Printf("incomplete (%s): %s\n", strings.Join(missing, ", "), item.Title)
		} else {
			fmt.Printf("complete: %s\n", item.Title)
		}
	}
	return nil
}

func runSyncTest(cmd *cobra.Command, args []string) error {
	client, err := newFeishuClient()
	if err != nil {
		return err
	}

	if _, err := client.Token(context.Background()); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	fields, err := client.GetTableFields(context.Background())
	if err != nil {
		return fmt.Errorf("table access failed: %w", err)
	}
	fmt.Printf("connection ok, table has %d field(s): %s\n", len(fields), strings.Join(fields, ", "))
	return nil
}

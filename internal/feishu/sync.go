// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feishu

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Avis-Rio/Chora/pkg/types"
)

// RequiredFields must all carry data for a remote record to count as
// complete. A complete record is never touched unless forced.
var RequiredFields = []string{"标题", "正文", "封面", "标签", "发布时间", "记录ID"}

// coverField is the attachment column; its upload is gated separately
// from the rest of the diff.
const coverField = "封面"

// platformLabels maps internal platform names to the table's
// single-select options.
var platformLabels = map[string]string{
	"youtube":    "YouTube",
	"xiaoyuzhou": "小宇宙",
}

const maxQuotes = 5

// api is the client surface the syncer needs; *Client satisfies it.
type api interface {
	ListRecords(ctx context.Context, pageSize int) ([]Record, error)
	GetTableFields(ctx context.Context) ([]string, error)
	CreateRecord(ctx context.Context, fields map[string]any) (string, error)
	UpdateRecord(ctx context.Context, recordID string, fields map[string]any) error
	UploadImage(ctx context.Context, imagePath string) (string, error)
}

// Syncer pushes export records into the Bitable.
type Syncer struct {
	client api
	out    io.Writer
}

// NewSyncer constructs a Syncer.
func NewSyncer(client *Client, out io.Writer) *Syncer {
	return &Syncer{client: client, out: out}
}

// SyncResult counts per-item outcomes of one sync run.
type SyncResult struct {
	Created int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of items processed.
func (r SyncResult) Total() int {
	return r.Created + r.Updated + r.Skipped + r.Failed
}

// HasFailures reports whether any item failed.
func (r SyncResult) HasFailures() bool {
	return r.Failed > 0
}

// IsComplete reports whether a remote record has every required field
// filled, and which ones are missing. Empty strings and empty lists
// count as missing.
func IsComplete(rec Record) (bool, []string) {
	var missing []string
	for _, name := range RequiredFields {
		value, ok := rec.Fields[name]
		if !ok || value == nil {
			missing = append(missing, name)
			continue
		}
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				missing = append(missing, name)
			}
		case []any:
			if len(v) == 0 {
				missing = append(missing, name)
			}
		}
	}
	return len(missing) == 0, missing
}

// Sync diffs every export record against the table:
//
//   - complete remote records are skipped unless force is set;
//   - incomplete ones are updated with only their missing fields, so
//     manual edits in the table survive;
//   - unseen items are created with everything.
//
// Cover upload runs only when the cover field itself is missing (or on
// force), keeping drive quota out of routine runs. Per-item failures
// are counted and reported; the sync always runs to completion.
func (s *Syncer) Sync(ctx context.Context, items []types.ExportRecord, force bool) SyncResult {
	var result SyncResult

	available, err := s.client.GetTableFields(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "warning: could not read table schema, sending all fields: %v\n", err)
	}
	availableSet := toSet(available)
	hasCoverField := available == nil || availableSet[coverField]

	records, err := s.client.ListRecords(ctx, 500)
	if err != nil {
		fmt.Fprintf(s.out, "failed: listing records: %v\n", err)
		result.Failed = len(items)
		return result
	}
	byID := make(map[string]Record)
	for _, rec := range records {
		if id := FieldString(rec, "记录ID"); id != "" {
			byID[id] = rec
		}
	}
	fmt.Fprintf(s.out, "table has %d existing records\n", len(byID))

	for _, item := range items {
		existing, found := byID[item.ID]
		if !found {
			if s.createItem(ctx, item, availableSet, available != nil, hasCoverField) {
				result.Created++
			} else {
				result.Failed++
			}
			continue
		}

		complete, missing := IsComplete(existing)
		if complete && !force {
			fmt.Fprintf(s.out, "skipped (complete): %s\n", shortTitle(item.Title))
			result.Skipped++
			continue
		}

		if s.updateItem(ctx, item, existing, missing, force, availableSet, available != nil, hasCoverField) {
			result.Updated++
		} else {
			result.Failed++
		}
	}

	fmt.Fprintf(s.out, "sync complete: %d item(s): %d created, %d updated, %d skipped, %d failed\n",
		result.Total(), result.Created, result.Updated, result.Skipped, result.Failed)
	return result
}

func (s *Syncer) createItem(ctx context.Context, item types.ExportRecord, availableSet map[string]bool, haveSchema, hasCoverField bool) bool {
	fmt.Fprintf(s.out, "creating: %s\n", shortTitle(item.Title))

	fileToken := ""
	if hasCoverField && coverExists(item.CoverPath) {
		token, err := s.client.UploadImage(ctx, item.CoverPath)
		if err != nil {
			fmt.Fprintf(s.out, "warning: cover upload failed for %s: %v\n", shortTitle(item.Title), err)
		} else {
			fileToken = token
		}
	}

	fields := MapFields(item, fileToken)
	if haveSchema {
		fields = filterFields(fields, availableSet)
	}

	if _, err := s.client.CreateRecord(ctx, fields); err != nil {
		fmt.Fprintf(s.out, "failed: creating %s: %v\n", shortTitle(item.Title), err)
		return false
	}
	return true
}

func (s *Syncer) updateItem(ctx context.Context, item types.ExportRecord, existing Record, missing []string, force bool, availableSet map[string]bool, haveSchema, hasCoverField bool) bool {
	if force {
		fmt.Fprintf(s.out, "force updating: %s\n", shortTitle(item.Title))
	} else {
		fmt.Fprintf(s.out, "updating (missing: %s): %s\n", strings.Join(missing, ", "), shortTitle(item.Title))
	}

	needsCover := force || contains(missing, coverField)
	fileToken := ""
	if needsCover && hasCoverField && coverExists(item.CoverPath) {
		token, err := s.client.UploadImage(ctx, item.CoverPath)
		if err != nil {
			fmt.Fprintf(s.out, "warning: cover upload failed for %s: %v\n", shortTitle(item.Title), err)
		} else {
			fileToken = token
		}
	}

	fields := MapFields(item, fileToken)
	if haveSchema {
		fields = filterFields(fields, availableSet)
	}
	if !force {
		// Send only what the record lacks; operator edits to the other
		// columns stay untouched.
		fields = filterFields(fields, toSet(missing))
	}
	if len(fields) == 0 {
		fmt.Fprintf(s.out, "skipped (nothing to fill): %s\n", shortTitle(item.Title))
		return true
	}

	if err := s.client.UpdateRecord(ctx, existing.RecordID, fields); err != nil {
		fmt.Fprintf(s.out, "failed: updating %s: %v\n", shortTitle(item.Title), err)
		return false
	}
	return true
}

// MapFields converts an export record into Bitable cell values. Empty
// values are omitted so they never blank a column remotely.
func MapFields(item types.ExportRecord, fileToken string) map[string]any {
	fields := map[string]any{
		"标题": item.Title,
	}

	if item.ID != "" {
		fields["记录ID"] = item.ID
	}
	if item.Channel != "" {
		fields["频道"] = item.Channel
	}
	if item.Rewritten != "" {
		fields["正文"] = item.Rewritten
	}
	if item.Guests != "" {
		fields["嘉宾"] = item.Guests
	}
	if len(item.Quotes) > 0 {
		quotes := item.Quotes
		if len(quotes) > maxQuotes {
			quotes = quotes[:maxQuotes]
		}
		lines := make([]string, len(quotes))
		for i, q := range quotes {
			lines[i] = "> " + q
		}
		fields["金句"] = strings.Join(lines, "\n")
	}
	if item.Transcript != "" {
		fields["原文逐字稿"] = item.Transcript
	}
	if item.ReadingTime > 0 {
		fields["阅读时长"] = item.ReadingTime
	}
	if item.Score > 0 {
		fields["评分"] = item.Score
	}
	if item.SourceURL != "" {
		fields["原始链接"] = map[string]any{"link": item.SourceURL, "text": "查看原始内容"}
	}
	if fileToken != "" {
		fields[coverField] = []map[string]any{{"file_token": fileToken}}
	}
	if item.PublishDate != "" {
		if dt, err := time.ParseInLocation("2006-01-02", item.PublishDate, time.Local); err == nil {
			fields["发布时间"] = dt.UnixMilli()
		}
	}
	if item.Platform != "" {
		label, ok := platformLabels[string(item.Platform)]
		if !ok {
			label = string(item.Platform)
		}
		fields["平台"] = label
	}
	if len(item.Tags) > 0 {
		fields["标签"] = item.Tags
	}
	fields["是否发布"] = true

	return fields
}

func filterFields(fields map[string]any, allowed map[string]bool) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if allowed[k] {
			out[k] = v
		}
	}
	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func coverExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func shortTitle(title string) string {
	runes := []rune(title)
	if len(runes) > 35 {
		return string(runes[:35]) + "..."
	}
	return title
}

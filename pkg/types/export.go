// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ExportRecord is the flattened projection of one archive folder, as
// written to the export document and pushed to the tabular store. The ID
// is derived deterministically from the source URL or folder name so that
// repeated exports of an unchanged folder reconcile against the same
// remote record.
type ExportRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	SourceURL   string   `json:"source_url"`
	Platform    Platform `json:"platform"`
	Channel     string   `json:"channel"`
	PublishDate string   `json:"publish_date"`

	// CoverPath is the local cover image path, empty when absent.
	CoverPath string `json:"cover_path,omitempty"`

	// CoverURL is the public cover URL once covers are synced to the
	// static frontend.
	CoverURL string `json:"cover_url,omitempty"`

	Summary     string   `json:"summary"`
	ReadingTime int      `json:"reading_time"`
	Score       int      `json:"score"`
	Tags        []string `json:"tags"`
	Quotes      []string `json:"quotes"`
	BookList    string   `json:"book_list"`
	Rewritten   string   `json:"rewritten"`
	Transcript  string   `json:"transcript"`
	WordCount   int      `json:"word_count"`
	Guests      string   `json:"guests"`
	FolderPath  string   `json:"folder_path"`
	ExportedAt  string   `json:"exported_at"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feedscan

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avis-Rio/Chora/internal/state"
	"github.com/Avis-Rio/Chora/internal/ytdlp"
	"github.com/Avis-Rio/Chora/pkg/types"
)

func init() {
	rssRetryDelay = time.Millisecond
}

// fakeLister serves canned yt-dlp answers keyed by URL.
type fakeLister struct {
	durations map[string]float64
	flat      []ytdlp.FlatEntry
	flatErr   error
	dates     map[string]string
	calls     int
}

func (f *fakeLister) FlatPlaylist(_ context.Context, _ string, _ int) ([]ytdlp.FlatEntry, error) {
	return f.flat, f.flatErr
}

func (f *fakeLister) UploadDate(_ context.Context, url string) (string, error) {
	return f.dates[url], nil
}

func (f *fakeLister) DurationMinutes(_ context.Context, url string) (float64, error) {
	f.calls++
	d, ok := f.durations[url]
	if !ok {
		return 0, fmt.Errorf("no duration for %s", url)
	}
	return d, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
}

func testOptions(t *testing.T) Options {
	return Options{
		ScanConfig: types.ScanConfig{
			ArchiveRoot:        t.TempDir(),
			DateRangeDays:      7,
			MinDurationMinutes: 30,
		},
		Now: fixedNow,
	}
}

func rssEntry(id, title, published string) string {
	return fmt.Sprintf(`<entry>
		<yt:videoId>%s</yt:videoId>
		<title>%s</title>
		<published>%s</published>
	</entry>`, id, title, published)
}

func rssFeed(entries ...string) string {
	body := ""
	for _, e := range entries {
		body += e
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:yt="http://www.youtube.com/xml/schemas/2015">
	<title>channel feed</title>` + body + `</feed>`
}

func TestScanYouTubeRSS(t *testing.T) {
	feed := rssFeed(
		rssEntry("newvideo0001", "深度对谈：博物馆", "2026-08-25T10:00:00+00:00"),
		rssEntry("oldvideo0002", "过期视频", "2026-08-01T10:00:00+00:00"),
		rssEntry("donevideo003", "已处理视频", "2026-08-26T10:00:00+00:00"),
		rssEntry("shortvid0004", "深度短片", "2026-08-26T10:00:00+00:00"),
		rssEntry("offtopic0005", "闲聊特辑", "2026-08-26T10:00:00+00:00"),
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, feed)
	}))
	defer ts.Close()

	oldBase := YouTubeFeedBaseURL
	YouTubeFeedBaseURL = ts.URL
	defer func() { YouTubeFeedBaseURL = oldBase }()

	lister := &fakeLister{durations: map[string]float64{
		YouTubeWatchBaseURL + "newvideo0001": 62.0,
		YouTubeWatchBaseURL + "shortvid0004": 12.5,
	}}
	store := state.Load(filepath.Join(t.TempDir(), "state.yaml"))
	store.Add("donevideo003")

	var out bytes.Buffer
	s := New(ts.Client(), lister, &out)

	src := types.SourceConfig{
		Platform:        types.PlatformYouTube,
		ChannelID:       "UCx",
		Name:            "某频道",
		IncludeKeywords: []string{"深度"},
	}
	items := s.Scan(context.Background(), []types.SourceConfig{src}, testOptions(t), store)

	require.Len(t, items, 1)
	assert.Equal(t, "newvideo0001", items[0].ID)
	assert.Equal(t, "2026-08-25", items[0].Date)
	assert.Equal(t, "某频道", items[0].Channel)
	assert.InDelta(t, 62.0, items[0].DurationMinutes, 0.01)

	// Duration looked up only for entries that survived the cheap filters.
	assert.Equal(t, 2, lister.calls)
	assert.Contains(t, out.String(), "skipped (too short)")
}

func TestScanYouTubeFallsBackToYtdlp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	oldBase := YouTubeFeedBaseURL
	YouTubeFeedBaseURL = ts.URL
	defer func() { YouTubeFeedBaseURL = oldBase }()

	lister := &fakeLister{
		flat: []ytdlp.FlatEntry{
			{ID: "flatvideo001", Title: "新访谈", UploadDate: "20260826", Duration: 3600},
			{ID: "flatvideo002", Title: "旧访谈", UploadDate: "20260701", Duration: 3600},
		},
		durations: map[string]float64{},
	}
	store := state.Load(filepath.Join(t.TempDir(), "state.yaml"))

	var out bytes.Buffer
	s := New(ts.Client(), lister, &out)

	src := types.SourceConfig{Platform: types.PlatformYouTube, ChannelID: "UCx", Name: "某频道"}
	items := s.Scan(context.Background(), []types.SourceConfig{src}, testOptions(t), store)

	require.Len(t, items, 1)
	assert.Equal(t, "flatvideo001", items[0].ID)
	assert.Equal(t, "2026-08-26", items[0].Date)
	assert.InDelta(t, 60.0, items[0].DurationMinutes, 0.01)
	assert.Contains(t, out.String(), "falling back to yt-dlp")
}

const podcastPage = `<!DOCTYPE html>
<html><body>
<a href="/episode/5f1a2b3c4d5e6f7a8b9c0d1e"><div class="e_title">新一期节目</div></a>
<a href="/episode/6a1b2c3d4e5f6a7b8c9d0e1f"><div class="e_title">很久以前的节目</div></a>
<script name="schema:podcast-show" type="application/ld+json">
{"workExample":[
  {"name":"新一期节目","datePublished":"2026-08-27T10:22:06.258Z"},
  {"name":"很久以前的节目","datePublished":"2025-01-02T10:22:06.258Z"}
]}
</script>
</body></html>`

func TestScanXiaoyuzhou(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, podcastPage)
	}))
	defer ts.Close()

	oldBase := XiaoyuzhouBaseURL
	XiaoyuzhouBaseURL = ts.URL
	defer func() { XiaoyuzhouBaseURL = oldBase }()

	store := state.Load(filepath.Join(t.TempDir(), "state.yaml"))

	var out bytes.Buffer
	s := New(ts.Client(), &fakeLister{}, &out)

	src := types.SourceConfig{Platform: types.PlatformXiaoyuzhou, ChannelID: "pod1", Name: "某播客"}
	items := s.Scan(context.Background(), []types.SourceConfig{src}, testOptions(t), store)

	require.Len(t, items, 1)
	assert.Equal(t, "5f1a2b3c4d5e6f7a8b9c0d1e", items[0].ID)
	assert.Equal(t, "新一期节目", items[0].Title)
	assert.Equal(t, "2026-08-27", items[0].Date)
	assert.Equal(t, ts.URL+"/episode/5f1a2b3c4d5e6f7a8b9c0d1e", items[0].URL)
	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestScanXiaoyuzhouUsesConfiguredUserAgent(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, podcastPage)
	}))
	defer ts.Close()

	oldBase := XiaoyuzhouBaseURL
	XiaoyuzhouBaseURL = ts.URL
	defer func() { XiaoyuzhouBaseURL = oldBase }()

	store := state.Load(filepath.Join(t.TempDir(), "state.yaml"))

	var out bytes.Buffer
	s := New(ts.Client(), &fakeLister{}, &out)

	opts := testOptions(t)
	opts.UserAgent = "chora/0.1"

	src := types.SourceConfig{Platform: types.PlatformXiaoyuzhou, ChannelID: "pod1", Name: "某播客"}
	s.Scan(context.Background(), []types.SourceConfig{src}, opts, store)

	assert.Equal(t, "chora/0.1", gotUA)
}

func TestScanXiaoyuzhouWithoutJSONLD(t *testing.T) {
	page := `<html><body>
<a href="/episode/5f1a2b3c4d5e6f7a8b9c0d1e"><div class="e_title">某期节目</div></a>
</body></html>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer ts.Close()

	oldBase := XiaoyuzhouBaseURL
	XiaoyuzhouBaseURL = ts.URL
	defer func() { XiaoyuzhouBaseURL = oldBase }()

	store := state.Load(filepath.Join(t.TempDir(), "state.yaml"))

	var out bytes.Buffer
	s := New(ts.Client(), &fakeLister{}, &out)

	src := types.SourceConfig{Platform: types.PlatformXiaoyuzhou, ChannelID: "pod1", Name: "某播客"}
	items := s.Scan(context.Background(), []types.SourceConfig{src}, testOptions(t), store)

	require.Len(t, items, 1)
	assert.Equal(t, fixedNow().Format("2006-01-02"), items[0].Date)
}

func TestScanDropsItemsWithExistingFolders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, podcastPage)
	}))
	defer ts.Close()

	oldBase := XiaoyuzhouBaseURL
	XiaoyuzhouBaseURL = ts.URL
	defer func() { XiaoyuzhouBaseURL = oldBase }()

	opts := testOptions(t)
	require.NoError(t, os.MkdirAll(
		filepath.Join(opts.ArchiveRoot, "2026-08-27", "xiaoyuzhou_某播客_新一期节目"), 0o755))

	statePath := filepath.Join(t.TempDir(), "state.yaml")
	store := state.Load(statePath)

	var out bytes.Buffer
	s := New(ts.Client(), &fakeLister{}, &out)

	src := types.SourceConfig{Platform: types.PlatformXiaoyuzhou, ChannelID: "pod1", Name: "某播客"}
	items := s.Scan(context.Background(), []types.SourceConfig{src}, opts, store)

	assert.Empty(t, items)

	// Backfilled ID was persisted.
	reloaded := state.Load(statePath)
	assert.True(t, reloaded.Contains("5f1a2b3c4d5e6f7a8b9c0d1e"))
}

func TestScanSourceFailureDoesNotAbort(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/podcast/bad" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, podcastPage)
	}))
	defer ts.Close()

	oldBase := XiaoyuzhouBaseURL
	XiaoyuzhouBaseURL = ts.URL
	defer func() { XiaoyuzhouBaseURL = oldBase }()

	store := state.Load(filepath.Join(t.TempDir(), "state.yaml"))

	var out bytes.Buffer
	s := New(ts.Client(), &fakeLister{}, &out)

	sources := []types.SourceConfig{
		{Platform: types.PlatformXiaoyuzhou, ChannelID: "bad", Name: "坏源"},
		{Platform: types.PlatformXiaoyuzhou, ChannelID: "pod1", Name: "某播客"},
	}
	items := s.Scan(context.Background(), sources, testOptions(t), store)

	require.Len(t, items, 1)
	assert.Contains(t, out.String(), "failed: scanning 坏源")
}

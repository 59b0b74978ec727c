// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ytdlp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor records invocations and replays canned output.
type fakeExecutor struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (f *fakeExecutor) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return f.output, f.err
}

func (f *fakeExecutor) Run(_ context.Context, name string, args ...string) error {
	f.name = name
	f.args = args
	return f.err
}

func TestVideoInfo(t *testing.T) {
	fake := &fakeExecutor{output: []byte(`{
		"id": "dQw4w9WgXcQ",
		"title": "Deep Dive",
		"uploader": "Some Uploader",
		"upload_date": "20260820",
		"description": "about things",
		"duration": 1830.5,
		"webpage_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	}`)}
	c := &Client{exec: fake}

	info, err := c.VideoInfo(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, "yt-dlp", fake.name)
	assert.Contains(t, fake.args, "--dump-json")
	assert.Contains(t, fake.args, "--skip-download")

	assert.Equal(t, "dQw4w9WgXcQ", info.ID)
	assert.Equal(t, "Some Uploader", info.ChannelName())
	assert.Equal(t, "2026-08-20", info.Date())
	assert.InDelta(t, 1830.5, info.Duration, 0.01)
}

func TestChannelNamePrefersChannel(t *testing.T) {
	info := Info{Channel: "The Channel", Uploader: "uploader-handle"}
	assert.Equal(t, "The Channel", info.ChannelName())
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2026-08-20", FormatDate("20260820"))
	assert.Equal(t, "", FormatDate(""))
	assert.Equal(t, "2026-08", FormatDate("2026-08"))
}

func TestFlatPlaylistSkipsBadLines(t *testing.T) {
	fake := &fakeExecutor{output: []byte(
		`{"id":"aaa","title":"First"}` + "\n" +
			"not json\n" +
			`{"id":"bbb","title":"Second","url":"https://example.com/w"}` + "\n")}
	c := &Client{exec: fake}

	entries, err := c.FlatPlaylist(context.Background(), "https://www.youtube.com/@x/videos", 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "aaa", entries[0].ID)
	assert.Equal(t, "Second", entries[1].Title)
	assert.Contains(t, fake.args, "1-5")
}

func TestDurationMinutes(t *testing.T) {
	fake := &fakeExecutor{output: []byte("1830\n")}
	c := &Client{exec: fake}

	minutes, err := c.DurationMinutes(context.Background(), "https://www.youtube.com/watch?v=x")
	require.NoError(t, err)
	assert.InDelta(t, 30.5, minutes, 0.01)
}

func TestDurationMinutesBadOutput(t *testing.T) {
	fake := &fakeExecutor{output: []byte("NA\n")}
	c := &Client{exec: fake}

	_, err := c.DurationMinutes(context.Background(), "https://www.youtube.com/watch?v=x")
	assert.Error(t, err)
}

func TestCleanVTT(t *testing.T) {
	vtt := `WEBVTT
Kind: captions
Language: zh-Hans

00:00:00.240 --> 00:00:02.070
大家好<00:00:01.000><c>欢迎收听</c>

00:00:02.070 --> 00:00:04.000
大家好欢迎收听

00:00:04.000 --> 00:00:06.000
今天聊博物馆
`
	got := CleanVTT(vtt)
	assert.Equal(t, "大家好欢迎收听 今天聊博物馆", got)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avis-Rio/Chora/pkg/types"
)

// fakeSplitter pretends to be ffmpeg: it writes n segment files into the
// output directory named in the command arguments.
type fakeSplitter struct {
	segments int
	err      error
}

func (f *fakeSplitter) Run(_ context.Context, _ string, args ...string) error {
	if f.err != nil {
		return f.err
	}
	pattern := args[len(args)-1]
	dir := filepath.Dir(pattern)
	for i := 0; i < f.segments; i++ {
		name := filepath.Join(dir, fmt.Sprintf("segment_%03d.m4a", i))
		if err := os.WriteFile(name, []byte(fmt.Sprintf("audio-%d", i)), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// fakeGroq maps segment content to transcript text.
type fakeGroq struct {
	fail map[int]bool // indexes that error
}

func (f *fakeGroq) TranscribeFile(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var idx int
	fmt.Sscanf(string(data), "audio-%d", &idx)
	if f.fail[idx] {
		return "", fmt.Errorf("boom")
	}
	return fmt.Sprintf("text-%d", idx), nil
}

func TestTranscribeOrdersSegments(t *testing.T) {
	tr := &Transcriber{
		groq: &fakeGroq{},
		exec: &fakeSplitter{segments: 7},
		out:  io.Discard,
	}

	audio := filepath.Join(t.TempDir(), "audio.m4a")
	require.NoError(t, os.WriteFile(audio, []byte("x"), 0o644))

	got, err := tr.Transcribe(context.Background(), audio)
	require.NoError(t, err)

	want := "text-0\ntext-1\ntext-2\ntext-3\ntext-4\ntext-5\ntext-6"
	assert.Equal(t, want, got)
}

func TestTranscribeFailedSegmentGetsPlaceholder(t *testing.T) {
	tr := &Transcriber{
		groq: &fakeGroq{fail: map[int]bool{1: true}},
		exec: &fakeSplitter{segments: 3},
		out:  io.Discard,
	}

	audio := filepath.Join(t.TempDir(), "audio.m4a")
	require.NoError(t, os.WriteFile(audio, []byte("x"), 0o644))

	got, err := tr.Transcribe(context.Background(), audio)
	require.NoError(t, err)

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "text-0", lines[0])
	assert.Equal(t, "[segment 2 transcription failed]", lines[1])
	assert.Equal(t, "text-2", lines[2])
}

func TestTranscribeSplitFailure(t *testing.T) {
	tr := &Transcriber{
		groq: &fakeGroq{},
		exec: &fakeSplitter{err: fmt.Errorf("no ffmpeg")},
		out:  io.Discard,
	}

	_, err := tr.Transcribe(context.Background(), "audio.m4a")
	assert.ErrorContains(t, err, "ffmpeg")
}

func TestGroqClientTranscribeFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer grq_key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-large-v3", r.FormValue("model"))
		assert.Equal(t, "text", r.FormValue("response_format"))

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "fake audio", string(data))

		fmt.Fprint(w, "大家好，欢迎收听。\n")
	}))
	defer ts.Close()

	oldBase := GroqBaseURL
	GroqBaseURL = ts.URL
	defer func() { GroqBaseURL = oldBase }()

	path := filepath.Join(t.TempDir(), "segment_000.m4a")
	require.NoError(t, os.WriteFile(path, []byte("fake audio"), 0o644))

	c := NewGroqClient(ts.Client(), types.GroqConfig{APIKey: "grq_key"})
	text, err := c.TranscribeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "大家好，欢迎收听。", text)
}

func TestGroqClientErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	oldBase := GroqBaseURL
	GroqBaseURL = ts.URL
	defer func() { GroqBaseURL = oldBase }()

	path := filepath.Join(t.TempDir(), "segment_000.m4a")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	c := NewGroqClient(ts.Client(), types.GroqConfig{APIKey: "bad"})
	_, err := c.TranscribeFile(context.Background(), path)
	assert.ErrorContains(t, err, "status 401")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transcribe turns long audio files into text by splitting them
// into fixed-length segments with ffmpeg and transcribing the segments
// concurrently against the Groq Whisper API.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	segmentSeconds = 300
	workerCount    = 5
	segmentTimeout = 5 * time.Minute
)

// executor abstracts command execution for testing.
type executor interface {
	Run(ctx context.Context, name string, args ...string) error
}

type osExecutor struct{}

func (o *osExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// segmentTranscriber is the API surface workers need; *GroqClient
// satisfies it.
type segmentTranscriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

// Transcriber converts audio files to text.
type Transcriber struct {
	groq segmentTranscriber
	exec executor
	out  io.Writer
}

// New constructs a Transcriber. Progress lines go to out.
func New(groq *GroqClient, out io.Writer) *Transcriber {
	return &Transcriber{groq: groq, exec: &osExecutor{}, out: out}
}

// Transcribe splits the audio at audioPath into 300 s segments and
// transcribes them with a fixed pool of workers. Every segment gets a
// preallocated slot, so output order matches audio order regardless of
// completion order. A segment that fails or times out degrades to a
// placeholder line instead of failing the whole file.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	segDir, err := os.MkdirTemp("", "transcribe-segments-")
	if err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	defer os.RemoveAll(segDir)

	segments, err := t.split(ctx, audioPath, segDir)
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("ffmpeg produced no segments for %s", audioPath)
	}
	fmt.Fprintf(t.out, "audio split into %d segments, transcribing with %d workers\n", len(segments), workerCount)

	results := make([]string, len(segments))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = t.transcribeSegment(ctx, segments[i], i, len(segments))
			}
		}()
	}

	for i := range segments {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return strings.Join(results, "\n"), nil
}

// split runs ffmpeg in segment mode, stream-copying so no re-encode
// happens, and returns the produced files in order.
func (t *Transcriber) split(ctx context.Context, audioPath, segDir string) ([]string, error) {
	ext := filepath.Ext(audioPath)
	if ext == "" {
		ext = ".m4a"
	}
	pattern := filepath.Join(segDir, "segment_%03d"+ext)

	err := t.exec.Run(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%d", segmentSeconds),
		"-c", "copy",
		pattern)
	if err != nil {
		return nil, fmt.Errorf("splitting %s with ffmpeg: %w", audioPath, err)
	}

	entries, err := os.ReadDir(segDir)
	if err != nil {
		return nil, fmt.Errorf("listing segments: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "segment_") {
			segments = append(segments, filepath.Join(segDir, entry.Name()))
		}
	}
	sort.Strings(segments)
	return segments, nil
}

func (t *Transcriber) transcribeSegment(ctx context.Context, path string, index, total int) string {
	segCtx, cancel := context.WithTimeout(ctx, segmentTimeout)
	defer cancel()

	text, err := t.groq.TranscribeFile(segCtx, path)
	if err != nil {
		fmt.Fprintf(t.out, "  failed: segment %d/%d: %v\n", index+1, total, err)
		return fmt.Sprintf("[segment %d transcription failed]", index+1)
	}
	fmt.Fprintf(t.out, "  segment %d/%d done\n", index+1, total)
	return text
}

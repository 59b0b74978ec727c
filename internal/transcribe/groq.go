// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Avis-Rio/Chora/internal/httputil"
	"github.com/Avis-Rio/Chora/pkg/types"
)

// GroqBaseURL fronts the Groq OpenAI-compatible API. Tests point it at a
// local server.
var GroqBaseURL = "https://api.groq.com/openai/v1"

const defaultWhisperModel = "whisper-large-v3"

// GroqClient calls the Groq Whisper transcription endpoint.
type GroqClient struct {
	client *http.Client
	cfg    types.GroqConfig
}

// NewGroqClient constructs a client. An empty model selects
// whisper-large-v3.
func NewGroqClient(client *http.Client, cfg types.GroqConfig) *GroqClient {
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	return &GroqClient{client: client, cfg: cfg}
}

// TranscribeFile uploads one audio file and returns its plain-text
// transcription.
func (c *GroqClient) TranscribeFile(ctx context.Context, path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading audio segment: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := mw.WriteField("model", c.cfg.Model); err != nil {
		return "", err
	}
	if err := mw.WriteField("response_format", "text"); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		GroqBaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription returned status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	return strings.TrimSpace(string(data)), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rewrite

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Avis-Rio/Chora/pkg/types"
)

// GeminiClient streams text generation from a Gemini-compatible endpoint.
// The configured base URL is the generateContent endpoint (typically a
// proxy); authentication is a Bearer token as those proxies require.
type GeminiClient struct {
	client *http.Client
	cfg    types.GeminiConfig
}

// NewGeminiClient constructs a streaming client.
func NewGeminiClient(client *http.Client, cfg types.GeminiConfig) *GeminiClient {
	return &GeminiClient{client: client, cfg: cfg}
}

// streamURL derives the SSE endpoint from the configured base URL.
func (c *GeminiClient) streamURL() string {
	if strings.Contains(c.cfg.BaseURL, ":generateContent") {
		return strings.Replace(c.cfg.BaseURL, ":generateContent", ":streamGenerateContent?alt=sse", 1)
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + ":streamGenerateContent?alt=sse"
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type streamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// StreamGenerate sends prompt and invokes onText for every text delta as
// it arrives. Parts flagged as model thinking are discarded. Unparseable
// SSE data lines are skipped, matching the lenient behavior proxies need.
func (c *GeminiClient) StreamGenerate(ctx context.Context, prompt string, onText func(string)) error {
	payload := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: prompt}},
		}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			TopP:            0.95,
			MaxOutputTokens: 65536,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.streamURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return fmt.Errorf("generation returned status %d: %s", resp.StatusCode, string(data))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(line[len("data: "):]), &chunk); err != nil {
			continue
		}
		for _, cand := range chunk.Candidates {
			for _, p := range cand.Content.Parts {
				if p.Thought || p.Text == "" {
					continue
				}
				onText(p.Text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

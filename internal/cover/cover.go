// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cover generates episode cover images with the Gemini image
// model and backfills covers for archive folders missing one.
package cover

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Avis-Rio/Chora/internal/archive"
	"github.com/Avis-Rio/Chora/pkg/types"
)

// imageClient is the generation surface; *GeminiImageClient satisfies it.
type imageClient interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// Generator produces cover.png files for episodes.
type Generator struct {
	gemini imageClient
	out    io.Writer
}

// New constructs a Generator.
func New(gemini *GeminiImageClient, out io.Writer) *Generator {
	return &Generator{gemini: gemini, out: out}
}

// Generate renders a cover for the episode and writes it to outputPath.
// The channel name is used only to scrub branding out of the title;
// description, when present, gives the model thematic context.
func (g *Generator) Generate(ctx context.Context, title, channel, description, outputPath string) error {
	clean := CleanTitle(title, channel)
	fmt.Fprintf(g.out, "generating cover for %q\n", clean)

	prompt := buildCoverPrompt(title, clean, description)
	image, err := g.gemini.GenerateImage(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generating cover for %q: %w", clean, err)
	}

	return archive.WriteFileAtomic(outputPath, image)
}

// RegenerateMissing walks the archive and generates covers for every
// Xiaoyuzhou folder without one. YouTube folders are skipped; their
// covers come from thumbnails. Returns the regenerated and failed
// folder paths.
func (g *Generator) RegenerateMissing(ctx context.Context, archiveRoot string) (regenerated, failed []string) {
	dateDirs, err := os.ReadDir(archiveRoot)
	if err != nil {
		fmt.Fprintf(g.out, "failed: reading archive root: %v\n", err)
		return nil, nil
	}

	for _, dateDir := range dateDirs {
		if !dateDir.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(archiveRoot, dateDir.Name()))
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "xiaoyuzhou_") {
				continue
			}
			dir := filepath.Join(archiveRoot, dateDir.Name(), entry.Name())
			if archive.FindCover(dir) != "" {
				continue
			}

			title := ExtractTitleFromDirName(entry.Name())
			channel := channelFromMetadata(dir)

			err := g.Generate(ctx, title, channel, "", filepath.Join(dir, "cover.png"))
			if err != nil {
				fmt.Fprintf(g.out, "failed: %s: %v\n", entry.Name(), err)
				failed = append(failed, dir)
				continue
			}
			regenerated = append(regenerated, dir)
		}
	}

	fmt.Fprintf(g.out, "regenerated %d covers, %d failed\n", len(regenerated), len(failed))
	return regenerated, failed
}

// channelFromMetadata reads the source channel out of a folder's
// metadata document.
func channelFromMetadata(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, archive.MetadataFile))
	if err != nil {
		return "Unknown"
	}
	doc := archive.ParseMetadataDoc(string(data))
	if doc.Source == "" {
		return "Unknown"
	}
	return doc.Source
}

// buildCoverPrompt assembles the image prompt: the cleaned title is the
// only text allowed on the artwork, while the full title steers the
// theme.
func buildCoverPrompt(title, cleanTitle, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Create a visually stunning podcast cover image with the following specifications:

**CRITICAL REQUIREMENTS:**
1. **MUST include Chinese title text**: "%s" - elegantly placed within the composition
2. **16:9 aspect ratio** - horizontal layout suitable for podcast/video platforms
3. **NO series names, episode numbers, channel names, or watermarks** - ONLY display "%s"
4. **NO text like "EP", numbers, or any attribution** - absolutely forbidden

**TYPOGRAPHY STYLE - EXTREMELY IMPORTANT:**
- **Font Style**: Traditional Chinese Mingchao/Songti (宋體) with vintage woodblock print texture
- **Font Size**: MODERATE SIZE - NOT too large, the title should occupy at most 30-40%% of the image width
- **Placement**: Elegantly positioned, may be placed in a corner, along an edge, or integrated into the art
- **Visual Treatment**: Slightly distressed (微損), subtle ink bleed (墨暈感), aged letterpress feel
- **Stroke Style**: High contrast strokes (橫細豎粗), sharp serifs, scholarly elegance (儒雅書卷氣)
- **Color**: Use colors that harmonize with the background - can be warm gold, aged ivory, or muted tones

**ART STYLE - PRIORITIZE VISUAL ARTISTRY:**
- **Mood**: Evocative, atmospheric, intellectually stimulating
- **Style**: Oil painting texture, cinematic lighting, fine art illustration quality
- **Composition**: The ARTWORK should be the hero, with text as an elegant accent
- **Color Palette**: Rich, sophisticated, museum-quality - deep shadows, golden highlights, subtle gradients
- **Elements**: Abstract or symbolic imagery that captures the essence of "%s"
- **Quality**: Premium book cover or high-end magazine editorial aesthetic
- **Inspiration**: Think New Yorker covers, Penguin Classics, art house film posters

**LAYOUT & BALANCE:**
- The visual artwork should dominate 60-70%% of the composition
- Title text should feel like a natural part of the design, not stamped on top
- Ensure harmony between typography and illustrations
- Leave breathing room - avoid cluttered or cramped compositions

**Theme Interpretation:**
For the topic "%s", create an evocative visual that captures its intellectual essence and emotional resonance.`,
		cleanTitle, cleanTitle, title, title)

	if description != "" {
		runes := []rune(description)
		if len(runes) > 300 {
			description = string(runes[:300])
		}
		fmt.Fprintf(&b, "\n\n**Additional Context:**\nThe content discusses: %s", description)
	}
	return b.String()
}

// GeminiImageClient calls a Gemini-compatible image generation endpoint.
// Like the text client, the configured base URL is the full
// generateContent endpoint of a Bearer-authenticated proxy.
type GeminiImageClient struct {
	client *http.Client
	cfg    types.GeminiConfig
}

// NewGeminiImageClient constructs an image client.
func NewGeminiImageClient(client *http.Client, cfg types.GeminiConfig) *GeminiImageClient {
	return &GeminiImageClient{client: client, cfg: cfg}
}

type imageRequest struct {
	Contents         []imageContent   `json:"contents"`
	GenerationConfig imageGenSettings `json:"generationConfig"`
}

type imageContent struct {
	Role  string      `json:"role"`
	Parts []imagePart `json:"parts"`
}

type imagePart struct {
	Text string `json:"text"`
}

type imageGenSettings struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type imageResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					Data string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateImage sends the prompt and returns the decoded image bytes of
// the first inline-data part. A text-only response is an error; the
// model occasionally narrates instead of drawing.
func (c *GeminiImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	payload := imageRequest{
		Contents: []imageContent{{
			Role:  "user",
			Parts: []imagePart{{Text: prompt}},
		}},
		GenerationConfig: imageGenSettings{
			Temperature:     0.9,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 8192,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("image generation returned status %d: %s", resp.StatusCode, string(data))
	}

	var result imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing image response: %w", err)
	}

	for _, cand := range result.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			image, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decoding image data: %w", err)
			}
			return image, nil
		}
	}
	return nil, fmt.Errorf("no image data in response")
}

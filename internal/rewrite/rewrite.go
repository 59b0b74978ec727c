// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rewrite turns a raw transcript into a polished article by
// streaming the transcript through an LLM and splitting the tagged
// response into a metadata update and the rewritten body.
package rewrite

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Avis-Rio/Chora/internal/archive"
)

// streamer is the generation surface the orchestrator needs;
// *GeminiClient satisfies it.
type streamer interface {
	StreamGenerate(ctx context.Context, prompt string, onText func(string)) error
}

// requiredMarkers are section names a complete article always carries.
// Their absence is reported but never fails the rewrite.
var requiredMarkers = []string{"核心洞察", "哲思结语"}

const translateInstruction = "\n\n**重要提示：原文是英文，请在改写时将内容翻译为流畅的中文。**\n"

// Rewriter orchestrates one transcript rewrite.
type Rewriter struct {
	gemini     streamer
	promptPath string
	out        io.Writer
}

// New constructs a Rewriter reading its prompt template from promptPath.
func New(gemini *GeminiClient, promptPath string, out io.Writer) *Rewriter {
	return &Rewriter{gemini: gemini, promptPath: promptPath, out: out}
}

// Rewrite streams the model response for one transcript, writes the
// rewritten body to outputPath, merges the model's metadata section into
// metadataPath (operator fields preserved), and refreshes the word count
// in the written body.
func (r *Rewriter) Rewrite(ctx context.Context, transcriptPath, metadataPath, outputPath string) error {
	transcript, err := os.ReadFile(transcriptPath)
	if err != nil {
		return fmt.Errorf("reading transcript: %w", err)
	}
	template, err := os.ReadFile(r.promptPath)
	if err != nil {
		return fmt.Errorf("reading prompt template: %w", err)
	}

	prompt := r.buildPrompt(string(template), string(transcript), metadataPath)

	var parser sectionParser
	var full strings.Builder
	err = r.gemini.StreamGenerate(ctx, prompt, func(text string) {
		parser.feed(text)
		full.WriteString(text)
	})
	if err != nil {
		return err
	}

	if full.Len() == 0 {
		return fmt.Errorf("no content generated")
	}
	for _, marker := range requiredMarkers {
		if !strings.Contains(full.String(), marker) {
			fmt.Fprintf(r.out, "warning: generated content is missing section %q\n", marker)
		}
	}

	metadataText, body := parser.finish()
	if body == "" {
		return fmt.Errorf("no rewrite section in generated content")
	}

	if metadataText != "" {
		if err := r.mergeMetadata(metadataPath, metadataText); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(r.out, "warning: no metadata section in generated content\n")
	}

	body = finalizeBody(body, r.out)
	return archive.WriteFileAtomic(outputPath, []byte(body))
}

// buildPrompt assembles the template, an optional translation
// instruction, the transcript, and the current metadata for context.
func (r *Rewriter) buildPrompt(template, transcript, metadataPath string) string {
	var b strings.Builder
	b.WriteString(template)

	if isMostlyEnglish(transcript) {
		fmt.Fprintf(r.out, "transcript looks English, adding translation instruction\n")
		b.WriteString(translateInstruction)
	}

	b.WriteString("\n\n---\n\nTRANSCRIPT:\n")
	b.WriteString(transcript)

	if meta, err := os.ReadFile(metadataPath); err == nil {
		b.WriteString("\n\nMetadata:\n")
		b.Write(meta)
	}

	b.WriteString("\n\n---\n")
	return b.String()
}

// mergeMetadata reconciles the model's metadata section into the
// on-disk document.
func (r *Rewriter) mergeMetadata(metadataPath, metadataText string) error {
	var existing archive.MetadataDoc
	if data, err := os.ReadFile(metadataPath); err == nil {
		existing = archive.ParseMetadataDoc(string(data))
	}

	fromModel := archive.ParseMetadataDoc(metadataText)
	merged := archive.Reconcile(existing, fromModel)

	return archive.WriteFileAtomic(metadataPath, []byte(merged.Render()))
}

// finalizeBody injects the word count under the 创作说明 heading.
func finalizeBody(body string, out io.Writer) string {
	updated, ok := InjectWordCount(body)
	if !ok {
		fmt.Fprintf(out, "warning: no 创作说明 section, word count not recorded\n")
		return body
	}
	return updated
}

// isMostlyEnglish reports whether text is predominantly ASCII; such
// transcripts get an explicit translate-to-Chinese instruction.
func isMostlyEnglish(text string) bool {
	if len(text) == 0 {
		return false
	}
	var ascii, total int
	for _, r := range text {
		total++
		if r < 128 {
			ascii++
		}
	}
	return float64(ascii)/float64(total) > 0.8
}

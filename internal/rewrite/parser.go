// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rewrite

import "strings"

// Model output is expected to carry two tagged sections:
//
//	<METADATA_SECTION> ... </METADATA_SECTION>
//	<REWRITE_SECTION> ... </REWRITE_SECTION>
//
// Streams cut off by token limits routinely lose the closing tags, so a
// section runs to the end of the stream when its end tag never arrives.
const (
	metadataStart = "<METADATA_SECTION>"
	metadataEnd   = "</METADATA_SECTION>"
	rewriteStart  = "<REWRITE_SECTION>"
	rewriteEnd    = "</REWRITE_SECTION>"
)

// maxMarkerLen bounds how much tail input must be held back while a
// marker may still be arriving split across chunks.
const maxMarkerLen = len(metadataEnd)

type parseState int

const (
	stateBeforeMetadata parseState = iota
	stateInMetadata
	stateBetween
	stateInBody
	stateDone
)

// sectionParser consumes streamed text incrementally and separates the
// metadata and rewrite sections as they arrive.
type sectionParser struct {
	state    parseState
	buf      string
	metadata strings.Builder
	body     strings.Builder
	between  strings.Builder
	raw      strings.Builder
}

func (p *sectionParser) feed(chunk string) {
	p.raw.WriteString(chunk)
	p.buf += chunk

	for {
		switch p.state {
		case stateBeforeMetadata:
			// Text before the first marker is preamble and is dropped.
			if i := strings.Index(p.buf, metadataStart); i >= 0 {
				p.buf = p.buf[i+len(metadataStart):]
				p.state = stateInMetadata
				continue
			}
			if i := strings.Index(p.buf, rewriteStart); i >= 0 {
				p.buf = p.buf[i+len(rewriteStart):]
				p.state = stateInBody
				continue
			}
			p.buf = tail(p.buf)
			return

		case stateInMetadata:
			end := strings.Index(p.buf, metadataEnd)
			// The model sometimes omits the metadata end tag and jumps
			// straight into the rewrite section.
			start := strings.Index(p.buf, rewriteStart)
			switch {
			case end >= 0 && (start < 0 || end < start):
				p.metadata.WriteString(p.buf[:end])
				p.buf = p.buf[end+len(metadataEnd):]
				p.state = stateBetween
				continue
			case start >= 0:
				p.metadata.WriteString(p.buf[:start])
				p.buf = p.buf[start+len(rewriteStart):]
				p.state = stateInBody
				continue
			default:
				emit, keep := splitTail(p.buf)
				p.metadata.WriteString(emit)
				p.buf = keep
				return
			}

		case stateBetween:
			// Held in case the rewrite marker never arrives; discarded
			// once it does.
			if i := strings.Index(p.buf, rewriteStart); i >= 0 {
				p.between.Reset()
				p.buf = p.buf[i+len(rewriteStart):]
				p.state = stateInBody
				continue
			}
			emit, keep := splitTail(p.buf)
			p.between.WriteString(emit)
			p.buf = keep
			return

		case stateInBody:
			if i := strings.Index(p.buf, rewriteEnd); i >= 0 {
				p.body.WriteString(p.buf[:i])
				p.buf = ""
				p.state = stateDone
				return
			}
			emit, keep := splitTail(p.buf)
			p.body.WriteString(emit)
			p.buf = keep
			return

		case stateDone:
			p.buf = ""
			return
		}
	}
}

// finish flushes held-back input and returns both sections trimmed. When
// the stream carried no markers at all, everything becomes the body, so
// a fully untagged response is still saved rather than lost.
func (p *sectionParser) finish() (metadata, body string) {
	switch p.state {
	case stateInMetadata:
		p.metadata.WriteString(p.buf)
	case stateBetween:
		p.between.WriteString(p.buf)
	case stateInBody:
		p.body.WriteString(p.buf)
	}
	p.buf = ""

	metadata = strings.TrimSpace(p.metadata.String())
	body = strings.TrimSpace(p.body.String())

	if body == "" {
		// No rewrite section: salvage whatever followed the metadata,
		// or the whole stream when no markers appeared at all.
		if metadata != "" {
			body = strings.TrimSpace(p.between.String())
		} else {
			body = strings.TrimSpace(p.raw.String())
		}
	}
	return metadata, body
}

// tail returns the part of s that must be held back because a marker may
// be arriving split across chunk boundaries.
func tail(s string) string {
	_, keep := splitTail(s)
	return keep
}

// splitTail splits s into a safe-to-emit prefix and a held-back suffix.
// Everything up to the last '<' within marker reach is safe.
func splitTail(s string) (emit, keep string) {
	from := len(s) - maxMarkerLen
	if from < 0 {
		from = 0
	}
	if i := strings.LastIndex(s[from:], "<"); i >= 0 {
		cut := from + i
		return s[:cut], s[cut:]
	}
	return s, ""
}

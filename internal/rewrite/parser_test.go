// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// feedRunes pushes text through the parser in tiny chunks so marker
// boundaries land mid-chunk.
func feedRunes(p *sectionParser, text string, chunkSize int) {
	runes := []rune(text)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		p.feed(string(runes[i:end]))
	}
}

const taggedOutput = `前置废话
<METADATA_SECTION>
## 嘉宾
薛茗

## 金句
> 金句一。
</METADATA_SECTION>
<REWRITE_SECTION>
# 文章标题

正文内容。
</REWRITE_SECTION>
尾随内容`

func TestParserWellFormed(t *testing.T) {
	for _, chunkSize := range []int{1, 3, 7, 1000} {
		var p sectionParser
		feedRunes(&p, taggedOutput, chunkSize)
		meta, body := p.finish()

		assert.Contains(t, meta, "## 嘉宾")
		assert.Contains(t, meta, "> 金句一。")
		assert.Equal(t, "# 文章标题\n\n正文内容。", body, "chunk size %d", chunkSize)
	}
}

func TestParserMissingRewriteEndTag(t *testing.T) {
	var p sectionParser
	feedRunes(&p, `<METADATA_SECTION>
## 嘉宾
某人
</METADATA_SECTION>
<REWRITE_SECTION>
被截断的正文`, 5)
	meta, body := p.finish()

	assert.Contains(t, meta, "某人")
	assert.Equal(t, "被截断的正文", body)
}

func TestParserMissingMetadataEndTag(t *testing.T) {
	var p sectionParser
	feedRunes(&p, `<METADATA_SECTION>
## 嘉宾
某人
<REWRITE_SECTION>
正文`, 4)
	meta, body := p.finish()

	assert.Contains(t, meta, "某人")
	assert.NotContains(t, meta, "REWRITE_SECTION")
	assert.Equal(t, "正文", body)
}

func TestParserNoMarkersAtAll(t *testing.T) {
	var p sectionParser
	p.feed("完全没有标签的输出。")
	meta, body := p.finish()

	assert.Empty(t, meta)
	assert.Equal(t, "完全没有标签的输出。", body)
}

func TestParserMetadataOnly(t *testing.T) {
	var p sectionParser
	feedRunes(&p, `<METADATA_SECTION>
## 嘉宾
某人
</METADATA_SECTION>
漏掉标签的正文`, 6)
	meta, body := p.finish()

	assert.Contains(t, meta, "某人")
	assert.Equal(t, "漏掉标签的正文", body)
}

func TestParserIgnoresContentAfterEnd(t *testing.T) {
	var p sectionParser
	p.feed("<REWRITE_SECTION>正文</REWRITE_SECTION>多余输出")
	_, body := p.finish()
	assert.Equal(t, "正文", body)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tags

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		tag  string
		want string
		ok   bool
	}{
		{"哲学", "Philosophy", true},
		{"历史学", "History", true},
		{"人工智能", "Technology", true},
		{"Philosophy", "Philosophy", true},
		{"philosophy", "Philosophy", true},
		{" 权力 ", "Power & Politics", true},
		{"忽左忽右", "", false},
		{"america", "", false},
		{"量子佛学", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, ok := Normalize(tt.tag)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeContent(t *testing.T) {
	content := "## 6. 创作说明\n- 标签: 哲学, 权力、忽左忽右, History\n"
	var out bytes.Buffer

	got, changed := NormalizeContent(content, &out)
	assert.True(t, changed)
	assert.Contains(t, got, "Tags: History, Philosophy, Power & Politics")
	assert.NotContains(t, got, "忽左忽右")
}

func TestNormalizeContentDeduplicates(t *testing.T) {
	content := "Tags: 历史, 历史学, History\n"
	got, changed := NormalizeContent(content, &bytes.Buffer{})
	assert.True(t, changed)
	assert.Contains(t, got, "Tags: History\n")
}

func TestNormalizeContentReportsUnknown(t *testing.T) {
	var out bytes.Buffer
	_, changed := NormalizeContent("标签: 哲学, 量子佛学\n", &out)
	assert.True(t, changed)
	assert.Contains(t, out.String(), "unknown tag skipped: 量子佛学")
}

func TestNormalizeContentNoTagLine(t *testing.T) {
	got, changed := NormalizeContent("没有标签的文章\n", &bytes.Buffer{})
	assert.False(t, changed)
	assert.Equal(t, "没有标签的文章\n", got)
}

func TestCleanContent(t *testing.T) {
	content := "标签: 文化, 薛茗, 历史\n"
	got, changed := CleanContent(content)
	assert.True(t, changed)
	assert.Contains(t, got, "标签: 文化, 历史\n")
}

func TestCleanContentKeepsOriginalLanguage(t *testing.T) {
	got, changed := CleanContent("标签：文化、历史\n")
	assert.True(t, changed)
	assert.Contains(t, got, "标签： 文化, 历史\n")
}

func TestCleanContentUnchanged(t *testing.T) {
	content := "标签: 文化, 历史\n"
	_, changed := CleanContent(content)
	assert.False(t, changed)
}

func TestNormalizeArchive(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "2026-08-20", "xiaoyuzhou_频道_节目")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "rewritten.md")
	require.NoError(t, os.WriteFile(path, []byte("正文\n\n标签: 哲学, 忽左忽右\n"), 0o644))

	// A folder without a rewritten article is skipped quietly.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2026-08-20", "youtube_频道_空"), 0o755))

	var out bytes.Buffer
	updated, err := NormalizeArchive(root, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Tags: Philosophy\n")
	assert.Contains(t, out.String(), "updated tags: xiaoyuzhou_频道_节目")
}

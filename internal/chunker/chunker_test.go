package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_FixedWindows(t *testing.T) {
	chunks, err := Split(strings.Repeat("A", 100), 40, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Len(t, chunks[0].Text, 40)
	assert.Len(t, chunks[1].Text, 40)
	assert.Len(t, chunks[2].Text, 40)
	assert.LessOrEqual(t, len(chunks[3].Text), 40)
	assert.Equal(t, strings.Repeat("A", 10), chunks[3].Text)
	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
	}
}

func TestChunk_ReconstructsParagraph(t *testing.T) {
	text := "The mitochondria is the powerhouse of the cell and produces most of the chemical energy needed by the cell."
	chunks, err := Split(text, 25, 7)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	var b strings.Builder
	b.WriteString(chunks[0].Text)
	for _, c := range chunks[1:] {
		r := []rune(c.Text)
		b.WriteString(string(r[min(7, len(r)):]))
	}
	assert.Equal(t, text, b.String())

	for i := 1; i < len(chunks)-1; i++ {
		prev := []rune(chunks[i-1].Text)
		cur := []rune(chunks[i].Text)
		assert.Equal(t, string(prev[len(prev)-7:]), string(cur[:7]), "window %d overlap", i)
	}
}

func TestChunk_ShortParagraph(t *testing.T) {
	chunks, err := Split("  short   text\nhere ", 40, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text here", chunks[0].Text)
}

func TestChunk_Paragraphs(t *testing.T) {
	text := "First paragraph.\n\nSecond\tparagraph\nwraps.\n  \n\nThird."
	chunks, err := Split(text, 100, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "First paragraph.", chunks[0].Text)
	assert.Equal(t, "Second paragraph wraps.", chunks[1].Text)
	assert.Equal(t, "Third.", chunks[2].Text)
	assert.Equal(t, 2, chunks[2].Ordinal)
}

func TestChunk_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("é", 30)
	chunks, err := Split(text, 12, 2)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 12)
		assert.True(t, strings.Trim(c.Text, "é") == "")
	}
}

func TestChunk_Empty(t *testing.T) {
	chunks, err := Split(" \n\n\t ", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestNew_InvalidWindow(t *testing.T) {
	tests := []struct {
		name         string
		max, overlap int
	}{
		{"overlap equals max", 10, 10},
		{"overlap exceeds max", 10, 12},
		{"negative overlap", 10, -1},
		{"zero max", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.max, tt.overlap)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.max, cfgErr.MaxLength)
		})
	}
}

// Package chunker splits document text into overlapping character windows.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// Chunk is one window of a document. Ordinal is 0-based across the whole document.
type Chunk struct {
	Text    string
	Ordinal int
}

// ConfigError reports invalid window parameters.
type ConfigError struct {
	MaxLength     int
	OverlapLength int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("chunker: invalid window: max_length=%d overlap_length=%d (need 0 <= overlap < max)",
		e.MaxLength, e.OverlapLength)
}

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// Windows splits text into windows of MaxLength runes advancing by MaxLength-OverlapLength.
type Windows struct {
	maxLength int
	overlap   int
}

// New validates the window parameters.
func New(maxLength, overlapLength int) (*Windows, error) {
	if maxLength <= 0 || overlapLength < 0 || overlapLength >= maxLength {
		return nil, &ConfigError{MaxLength: maxLength, OverlapLength: overlapLength}
	}
	return &Windows{maxLength: maxLength, overlap: overlapLength}, nil
}

// MaxLength returns the window size in runes.
func (w *Windows) MaxLength() int { return w.maxLength }

// OverlapLength returns the number of runes shared by consecutive windows.
func (w *Windows) OverlapLength() int { return w.overlap }

// Split is a convenience for New followed by Windows.Chunk.
func Split(text string, maxLength, overlapLength int) ([]Chunk, error) {
	w, err := New(maxLength, overlapLength)
	if err != nil {
		return nil, err
	}
	return w.Chunk(text), nil
}

// Chunk splits text into paragraphs, normalizes whitespace inside each and
// windows every paragraph independently.
func (w *Windows) Chunk(text string) []Chunk {
	var chunks []Chunk
	for _, para := range Paragraphs(text) {
		for _, piece := range w.window([]rune(para)) {
			chunks = append(chunks, Chunk{Text: piece, Ordinal: len(chunks)})
		}
	}
	return chunks
}

func (w *Windows) window(runes []rune) []string {
	if len(runes) <= w.maxLength {
		return []string{string(runes)}
	}

	// Every step position inside the paragraph starts a window, so the tail
	// window can be shorter than the overlap.
	step := w.maxLength - w.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := min(start+w.maxLength, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

// Paragraphs splits text on blank lines and collapses whitespace runs inside each
// paragraph to a single space. Empty paragraphs are dropped.
func Paragraphs(text string) []string {
	var paras []string
	for _, raw := range paragraphBreak.Split(text, -1) {
		p := strings.TrimSpace(whitespaceRun.ReplaceAllString(raw, " "))
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// Package document loads source material as plain text with paragraphs separated
// by blank lines.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"quizrag/internal/version"
)

// ErrUnsupportedFormat is returned for file types the loader cannot read.
var ErrUnsupportedFormat = errors.New("document: unsupported format")

// maxFetchBytes caps a fetched page.
const maxFetchBytes = 10 << 20

// Document is loaded source text.
type Document struct {
	Name string // resource name, the base file name without extension
	Path string // file path or URL
	Text string
}

// Load reads a text, Markdown, HTML or PDF file.
func Load(p string) (*Document, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	defer f.Close()

	text, err := Extract(strings.ToLower(filepath.Ext(p)), f)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", p, err)
	}
	return &Document{Name: ResourceName(p), Path: p, Text: text}, nil
}

// Fetch downloads a page and extracts its text. HTML and PDF are detected by
// content type.
func Fetch(ctx context.Context, client *http.Client, rawURL string) (*Document, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("document: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document: fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	ext := ".txt"
	switch mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt {
	case "text/html":
		ext = ".html"
	case "application/pdf":
		ext = ".pdf"
	}
	text, err := Extract(ext, io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", rawURL, err)
	}

	name := "page"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." {
			name = strings.TrimSuffix(base, path.Ext(base))
		} else if u.Host != "" {
			name = u.Host
		}
	}
	return &Document{Name: name, Path: rawURL, Text: text}, nil
}

// Extract converts the content of a file with the given extension to text.
func Extract(ext string, r io.Reader) (string, error) {
	switch ext {
	case ".txt", ".md", ".markdown", "":
		b, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case ".html", ".htm":
		return extractHTML(r)
	case ".pdf":
		return extractPDF(r)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ResourceName derives a resource name from a file path.
func ResourceName(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, blockquote, pre, td, dd, dt, figcaption"

func extractHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, footer, aside, noscript, .ad, .advertisement, .sidebar").Remove()

	var root *goquery.Selection
	for _, selector := range []string{"main", "article", "#content", ".content", "body"} {
		if sel := doc.Find(selector); sel.Length() > 0 {
			root = sel.First()
			break
		}
	}
	if root == nil {
		root = doc.Selection
	}

	var paras []string
	root.Find(blockSelector).
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find(blockSelector).Length() == 0
		}).
		Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				paras = append(paras, text)
			}
		})

	// Pages without block markup fall back to all visible text.
	if len(paras) == 0 {
		if text := strings.TrimSpace(root.Text()); text != "" {
			paras = append(paras, text)
		}
	}
	return strings.Join(paras, "\n\n"), nil
}

// extractPDF returns the plain text of every page, one paragraph block per page.
func extractPDF(r io.Reader) (text string, err error) {
	b, err := io.ReadAll(io.LimitReader(r, maxFetchBytes+1))
	if err != nil {
		return "", err
	}
	if len(b) > maxFetchBytes {
		return "", fmt.Errorf("PDF larger than %d bytes", maxFetchBytes)
	}

	// The content stream interpreter panics on some malformed operators.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("failed to parse PDF: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

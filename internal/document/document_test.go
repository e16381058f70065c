package document

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head><title>Cells</title><style>p{color:red}</style></head>
<body>
<nav><p>Home | About</p></nav>
<main>
  <h1>The Cell</h1>
  <p>The mitochondria is the
     powerhouse of the cell.</p>
  <ul><li><p>Nucleus stores DNA.</p></li><li>Ribosomes build proteins.</li></ul>
  <script>alert("x")</script>
</main>
<footer><p>Copyright</p></footer>
</body></html>`

func TestExtract_HTML(t *testing.T) {
	text, err := Extract(".html", strings.NewReader(samplePage))
	require.NoError(t, err)

	paras := strings.Split(text, "\n\n")
	require.Len(t, paras, 4)
	assert.Equal(t, "The Cell", paras[0])
	assert.Contains(t, paras[1], "powerhouse of the cell.")
	assert.Equal(t, "Nucleus stores DNA.", paras[2])
	assert.Equal(t, "Ribosomes build proteins.", paras[3])
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "Copyright")
	assert.NotContains(t, text, "alert")
}

func TestExtract_PlainHTMLFallback(t *testing.T) {
	text, err := Extract(".htm", strings.NewReader("<html><body>just text</body></html>"))
	require.NoError(t, err)
	assert.Equal(t, "just text", text)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "biology.md")
	require.NoError(t, os.WriteFile(p, []byte("# Biology\n\nCells are small."), 0o644))

	doc, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "biology", doc.Name)
	assert.Equal(t, p, doc.Path)
	assert.Contains(t, doc.Text, "Cells are small.")
}

func TestLoad_PDF(t *testing.T) {
	doc, err := Load(filepath.Join("testdata", "photosynthesis.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "photosynthesis", doc.Name)

	paras := strings.Split(doc.Text, "\n\n")
	require.Len(t, paras, 2)
	assert.Contains(t, paras[0], "Photosynthesis converts light energy into chemical energy.")
	assert.Contains(t, paras[1], "Chlorophyll absorbs red and blue light.")
}

func TestLoad_MalformedPDF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4\nnot really"), 0o644))

	_, err := Load(p)
	assert.ErrorContains(t, err, "failed to parse PDF")
}

func TestLoad_Unsupported(t *testing.T) {
	p := filepath.Join(t.TempDir(), "slides.docx")
	require.NoError(t, os.WriteFile(p, []byte("PK"), 0o644))

	_, err := Load(p)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	doc, err := Fetch(context.Background(), server.Client(), server.URL+"/wiki/cell.html")
	require.NoError(t, err)
	assert.Equal(t, "cell", doc.Name)
	assert.Contains(t, doc.Text, "Ribosomes build proteins.")
}

func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), server.Client(), server.URL+"/missing")
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestFetch_PDF(t *testing.T) {
	body, err := os.ReadFile(filepath.Join("testdata", "photosynthesis.pdf"))
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(body)
	}))
	defer server.Close()

	doc, err := Fetch(context.Background(), server.Client(), server.URL+"/notes/photosynthesis.pdf")
	require.NoError(t, err)
	assert.Equal(t, "photosynthesis", doc.Name)
	assert.Contains(t, doc.Text, "Chlorophyll absorbs red and blue light.")
}

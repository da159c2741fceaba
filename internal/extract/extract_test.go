package extract

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"skillmatch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *errors.Logger {
	return errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>Go &amp; Kubernetes</w:t></w:r><w:r><w:tab/><w:t>2019</w:t></w:r></w:p>` +
	`</w:body></w:document>`

func buildDocx(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/document.xml":   documentXML,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFromFileText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("Senior Go engineer\nKubernetes"), 0600))

	e := New(testLogger(), 0)
	assert.Equal(t, "Senior Go engineer\nKubernetes", e.FromFile(path))
}

func TestFromFileMissing(t *testing.T) {
	e := New(testLogger(), 0)
	assert.Equal(t, "", e.FromFile(filepath.Join(t.TempDir(), "nope.txt")))
}

func TestFromFileTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a"), 2048), 0600))

	e := New(testLogger(), 1024)
	assert.Equal(t, "", e.FromFile(path))
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := New(testLogger(), 0)
	_, err := e.Extract("photo.png", []byte{0x89, 'P', 'N', 'G'})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnsupportedFormat, errors.CodeOf(err))
	assert.Equal(t, "", e.FromBytes("photo.png", []byte{0x89}))
}

func TestExtractTextStripsBOM(t *testing.T) {
	e := New(testLogger(), 0)
	text, err := e.Extract("notes.MD", []byte("\xef\xbb\xbfHello"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
}

func TestExtractTextRejectsBinary(t *testing.T) {
	e := New(testLogger(), 0)
	_, err := e.Extract("resume.txt", []byte{0xff, 0xfe, 0x00})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExtraction))
}

func TestExtractDocx(t *testing.T) {
	e := New(testLogger(), 0)
	text, err := e.Extract("resume.docx", buildDocx(t))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo & Kubernetes\t2019", text)
}

func TestExtractCorruptDocx(t *testing.T) {
	e := New(testLogger(), 0)
	_, err := e.Extract("resume.docx", []byte("not a zip"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotReadable, errors.CodeOf(err))
}

func TestExtractCorruptPDF(t *testing.T) {
	e := New(testLogger(), 0)
	_, err := e.Extract("resume.pdf", []byte("%PDF-1.4 garbage"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExtraction))
	assert.Equal(t, "", e.FromBytes("resume.pdf", []byte("garbage")))
}

func TestExtractSizeLimit(t *testing.T) {
	e := New(testLogger(), 4)
	_, err := e.Extract("resume.txt", []byte("too long"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}

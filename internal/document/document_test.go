package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/payorders/internal/common"
)

// minimalPDF builds a blank PDF with the given page count and a correct
// cross-reference table.
func minimalPDF(pages int) []byte {
	var objs []string
	kids := make([]string, pages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for range pages {
		objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func TestFromBytes(t *testing.T) {
	t.Run("should accept a readable pdf", func(t *testing.T) {
		data := minimalPDF(2)
		doc, err := FromBytes("Factura-001.PDF", data, 0)
		require.NoError(t, err)

		assert.Equal(t, "pdf", doc.Ext)
		assert.Equal(t, 2, doc.Pages)
		assert.Len(t, doc.HashHex, 64)
		assert.Equal(t, data, doc.Content)
	})

	t.Run("should hash identical bytes identically", func(t *testing.T) {
		a, err := FromBytes("a.pdf", minimalPDF(1), 0)
		require.NoError(t, err)
		b, err := FromBytes("b.pdf", minimalPDF(1), 0)
		require.NoError(t, err)
		assert.Equal(t, a.HashHex, b.HashHex)
	})

	testCases := []struct {
		name string
		file string
		data []byte
		max  int
	}{
		{name: "image extension", file: "scan.png", data: minimalPDF(1)},
		{name: "missing extension", file: "factura", data: minimalPDF(1)},
		{name: "empty", file: "a.pdf", data: nil},
		{name: "not a pdf", file: "a.pdf", data: []byte("hello world")},
		{name: "truncated pdf", file: "a.pdf", data: []byte("%PDF-1.4\n1 0 obj\n")},
		{name: "too large", file: "a.pdf", data: bytes.Repeat([]byte("x"), 1024*1024+1), max: 1},
	}
	for _, tc := range testCases {
		t.Run("should reject "+tc.name, func(t *testing.T) {
			_, err := FromBytes(tc.file, tc.data, tc.max)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestLoadDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "ok.pdf"), minimalPDF(1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.pdf"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden", "x.pdf"), minimalPDF(1), 0o644))

	results, stats, err := LoadDirectory(context.Background(), root, true, 0)
	require.NoError(t, err)

	assert.Equal(t, uint32(2), stats.Matched)
	assert.Equal(t, uint32(1), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Len(t, results, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.pdf"), 0)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

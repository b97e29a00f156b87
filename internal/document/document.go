// Package document checks an uploaded billing document before it is sent for
// extraction.
package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/common"
)

// Document is a readable billing document held in memory.
type Document struct {
	Name        string
	Path        string
	Ext         string
	ContentType string
	Content     []byte
	HashHex     string
	Pages       int
	LoadedAt    time.Time
}

// Load reads the file at path and checks it. maxMB <= 0 uses the default cap.
func Load(path string, maxMB int) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, fmt.Errorf("abs path: %w", err)
	}
	if err := checkExt(abs); err != nil {
		return Document{}, err
	}

	st, err := os.Stat(abs)
	if err != nil {
		return Document{}, common.NewAppError(common.CodeNotFound, "document not found", common.ErrNotFound)
	}
	if err := checkSize(st.Size(), maxMB); err != nil {
		return Document{}, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	doc, err := FromBytes(filepath.Base(abs), data, maxMB)
	if err != nil {
		return Document{}, err
	}
	doc.Path = abs
	return doc, nil
}

// FromBytes checks an uploaded document: allowed extension, size cap and a
// PDF that can be opened.
func FromBytes(name string, data []byte, maxMB int) (Document, error) {
	if err := checkExt(name); err != nil {
		return Document{}, err
	}
	if err := checkSize(int64(len(data)), maxMB); err != nil {
		return Document{}, err
	}

	pages, err := PageCount(data)
	if err != nil {
		return Document{}, common.NewAppError(common.CodeInvalidInput,
			"document is not a readable PDF: "+err.Error(), common.ErrInvalidInput)
	}

	sum := sha256.Sum256(data)
	return Document{
		Name:        filepath.Base(name),
		Ext:         constants.NormalizeExt(filepath.Ext(name)),
		ContentType: "application/pdf",
		Content:     data,
		HashHex:     hex.EncodeToString(sum[:]),
		Pages:       pages,
		LoadedAt:    time.Now().UTC(),
	}, nil
}

// PageCount opens data as a PDF and returns its page count.
func PageCount(data []byte) (n int, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return 0, fmt.Errorf("missing PDF header: %w", common.ErrInvalidInput)
	}
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("parse pdf: %v: %w", r, common.ErrInvalidInput)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	n = r.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("pdf has no pages: %w", common.ErrInvalidInput)
	}
	return n, nil
}

func checkExt(name string) error {
	ext := constants.NormalizeExt(filepath.Ext(name))
	if ext == "" || !constants.AllowedExt(ext) {
		return common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("unsupported or missing extension %q", ext), common.ErrInvalidInput)
	}
	return nil
}

func checkSize(size int64, maxMB int) error {
	if maxMB <= 0 {
		maxMB = constants.MaxDocumentMBDefault
	}
	if size == 0 {
		return common.NewAppError(common.CodeInvalidInput, "document is empty", common.ErrInvalidInput)
	}
	if size > int64(maxMB)*1024*1024 {
		return common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("document exceeds %d MB", maxMB), common.ErrInvalidInput)
	}
	return nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

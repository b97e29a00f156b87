package constants

import "strings"

// AllowedExtensions holds the file extensions accepted as billing documents.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// MaxDocumentMBDefault caps uploaded billing documents.
const MaxDocumentMBDefault = 10

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt checks if a file extension is an accepted document type.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

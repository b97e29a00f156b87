package extraction

import (
	"context"

	"github.com/joseph-ayodele/payorders/internal/entity"
)

// Request is one document sent to the extraction service.
type Request struct {
	SessionID    string
	DocumentName string
	ContentType  string
	Content      []byte
	ContentHash  string   // hex SHA-256 of Content
	Concepts     []string // reference concepts offered as hints
}

// Result is the service's reading plus the JSON it was decoded from.
type Result struct {
	Fields entity.ExtractedFields
	Raw    []byte
	Cached bool
}

// Extractor is what the form session depends on.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Result, error)
}

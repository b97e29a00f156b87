package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractJob records one extraction attempt for a form session.
type ExtractJob struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     uuid.UUID       `json:"session_id"`
	DocumentName  string          `json:"document_name"`
	ContentHash   []byte          `json:"content_hash"`
	Pages         int             `json:"pages"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	Status        string          `json:"status"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	Confidence    *string         `json:"confidence,omitempty"`
	FieldsMerged  int             `json:"fields_merged"`
	ExtractedJSON json.RawMessage `json:"extracted_json,omitempty"`
}

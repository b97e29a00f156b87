package entity

import (
	"time"

	"github.com/google/uuid"
)

// PaymentOrder is a submitted request, as handed to persistence.
type PaymentOrder struct {
	ID           uuid.UUID  `json:"id"`
	SessionID    uuid.UUID  `json:"session_id"`
	ExtractJobID *uuid.UUID `json:"extract_job_id,omitempty"`
	BillingDate  time.Time  `json:"billing_date"`
	Company      string     `json:"company"`
	Creditor     string     `json:"creditor"`
	Concept      string     `json:"concept"`
	Description  string     `json:"description"`
	BaseAmount   int64      `json:"base_amount"`
	HasTax       bool       `json:"has_tax"`
	TaxAmount    int64      `json:"tax_amount"`
	TotalAmount  int64      `json:"total_amount"`
	DocumentName string     `json:"document_name,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Package session owns the in-progress form of one payment order: it runs
// extraction on an attached document, merges the reading into the form and
// gates submission on the consistency check.
package session

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/common"
	"github.com/joseph-ayodele/payorders/internal/consistency"
	"github.com/joseph-ayodele/payorders/internal/document"
	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/extraction"
	"github.com/joseph-ayodele/payorders/internal/merge"
	"github.com/joseph-ayodele/payorders/internal/metrics"
	"github.com/joseph-ayodele/payorders/internal/normalize"
	"github.com/joseph-ayodele/payorders/internal/repository"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Extractor  extraction.Extractor
	Jobs       repository.ExtractJobRepository
	Orders     repository.OrderRepository
	Logger     *slog.Logger
	VATRatePct int
	Now        func() time.Time
}

func (d *Deps) defaults() {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Jobs == nil {
		d.Jobs = repository.NewMemoryExtractJobRepository()
	}
	if d.Orders == nil {
		d.Orders = repository.NewMemoryOrderRepository()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// AttachResult is what the user sees after attaching a document.
type AttachResult struct {
	Declined bool             `json:"declined"`
	JobID    *uuid.UUID       `json:"job_id,omitempty"`
	Cached   bool             `json:"cached"`
	Pages    int              `json:"pages"`
	Merge    *merge.Result    `json:"merge,omitempty"`
	Form     entity.FormState `json:"form"`
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID            uuid.UUID                `json:"id"`
	Form          entity.FormState         `json:"form"`
	Extraction    *entity.ExtractedFields  `json:"extraction,omitempty"`
	DocumentName  string                   `json:"document_name,omitempty"`
	Confidence    constants.ConfidenceTier `json:"confidence,omitempty"`
	Notices       []string                 `json:"notices,omitempty"`
	References    entity.ReferenceLists    `json:"references"`
	CreatedAt     time.Time                `json:"created_at"`
	LastTouchedAt time.Time                `json:"last_touched_at"`
}

// Session is one form in progress. Reference lists are a snapshot taken at
// creation and never change.
type Session struct {
	ID uuid.UUID

	deps   *Deps
	refs   entity.ReferenceLists
	merger *merge.Merger
	logger *slog.Logger

	// extractSlot admits one extraction at a time
	extractSlot chan struct{}

	mu           sync.Mutex
	form         entity.FormState
	extraction   *entity.ExtractedFields
	lastMerge    *merge.Result
	jobID        *uuid.UUID
	documentName string
	createdAt    time.Time
	touchedAt    time.Time
}

// New starts an empty session over refs.
func New(deps *Deps, refs entity.ReferenceLists) *Session {
	deps.defaults()
	id := uuid.New()
	logger := deps.Logger.With("session_id", id.String())
	now := deps.Now()
	return &Session{
		ID:          id,
		deps:        deps,
		refs:        refs,
		merger:      merge.New(refs.Companies, refs.Creditors, logger),
		logger:      logger,
		extractSlot: make(chan struct{}, 1),
		createdAt:   now,
		touchedAt:   now,
	}
}

// Attach sends doc for extraction and merges the reading into the form. When
// the user has not confirmed, no request is issued. A second attach waits for
// the first one to finish; if ctx ends while waiting it gives up with ErrBusy.
// A ctx that is already done returns its own error.
// An extraction failure leaves the form untouched for manual entry.
func (s *Session) Attach(ctx context.Context, doc document.Document, confirmed bool) (AttachResult, error) {
	if !confirmed {
		metrics.ExtractionsTotal.WithLabelValues("declined").Inc()
		s.logger.Info("session.attach.declined", "document", doc.Name)
		return AttachResult{Declined: true, Form: s.State()}, nil
	}

	hash, err := hex.DecodeString(doc.HashHex)
	if err != nil {
		s.logger.Error("session.attach.bad_hash", "document", doc.Name, "error", err)
		return AttachResult{Form: s.State()}, common.NewAppError(common.CodeInvalidInput,
			"the document content hash is not valid", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	if err := ctx.Err(); err != nil {
		return AttachResult{Form: s.State()}, err
	}

	select {
	case s.extractSlot <- struct{}{}:
	default:
		select {
		case s.extractSlot <- struct{}{}:
		case <-ctx.Done():
			return AttachResult{Form: s.State()}, common.NewAppError(common.CodeBusy,
				"another document is still being read", common.ErrBusy)
		}
	}
	defer func() { <-s.extractSlot }()

	ctx = common.WithSessionID(ctx, s.ID.String())
	start := s.deps.Now()
	s.logger.Info("session.attach.start", "document", doc.Name, "pages", doc.Pages, "request_id", common.RequestIDFromContext(ctx))

	job, err := s.deps.Jobs.Start(ctx, s.ID, doc.Name, hash, doc.Pages)
	if err != nil {
		s.logger.Warn("session.attach.job_start_failed", "error", err)
	}

	res, err := s.deps.Extractor.Extract(ctx, extraction.Request{
		SessionID:    s.ID.String(),
		DocumentName: doc.Name,
		ContentType:  doc.ContentType,
		Content:      doc.Content,
		ContentHash:  doc.HashHex,
		Concepts:     entity.Canonicals(s.refs.Concepts),
	})
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("failed").Inc()
		s.logger.Error("session.attach.extract_failed", "document", doc.Name, "retryable", extraction.IsRetryable(err), "error", err)
		if job != nil {
			if ferr := s.deps.Jobs.FinishFailure(ctx, job.ID, err.Error()); ferr != nil {
				s.logger.Warn("session.attach.job_finish_failed", "error", ferr)
			}
		}
		return AttachResult{Form: s.State()}, common.NewAppError(common.CodeExtractionFailed,
			"the document could not be read; fill in the form manually",
			fmt.Errorf("%w: %w", common.ErrExtractionFailed, err))
	}

	s.mu.Lock()
	result := s.merger.Merge(res.Fields, s.form)
	s.form = result.Patch.Apply(s.form)
	fields := res.Fields
	s.extraction = &fields
	s.lastMerge = &result
	s.documentName = doc.Name
	s.jobID = nil
	if job != nil {
		id := job.ID
		s.jobID = &id
	}
	s.touchedAt = s.deps.Now()
	form := s.form
	s.mu.Unlock()

	outcome, status := "ok", constants.JobStatusExtractOK
	if res.Cached {
		outcome, status = "cached", constants.JobStatusCached
	}
	metrics.ExtractionsTotal.WithLabelValues(outcome).Inc()
	metrics.FieldsMerged.Observe(float64(result.Populated))
	if res.Fields.Company != nil && result.Patch.Company == nil {
		metrics.EntityMisses.WithLabelValues(entity.FieldCompany).Inc()
	}
	if res.Fields.Creditor != nil && result.Patch.Creditor == nil {
		metrics.EntityMisses.WithLabelValues(entity.FieldCreditor).Inc()
	}

	out := AttachResult{Cached: res.Cached, Pages: doc.Pages, Merge: &result, Form: form}
	if job != nil {
		out.JobID = &job.ID
		if err := s.deps.Jobs.FinishSuccess(ctx, job.ID, status, string(result.Confidence), result.Populated, res.Raw); err != nil {
			s.logger.Warn("session.attach.job_finish_failed", "error", err)
		}
	}

	s.logger.Info("session.attach.done",
		"document", doc.Name,
		"cached", res.Cached,
		"populated", result.Populated,
		"confidence", result.Confidence,
		"notices", len(result.Notices),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// State returns a copy of the current form.
func (s *Session) State() entity.FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Snapshot returns the session as the UI renders it.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.ID,
		Form:          s.form,
		DocumentName:  s.documentName,
		References:    s.refs,
		CreatedAt:     s.createdAt,
		LastTouchedAt: s.touchedAt,
	}
	if s.extraction != nil {
		ext := *s.extraction
		snap.Extraction = &ext
	}
	if s.lastMerge != nil {
		snap.Confidence = s.lastMerge.Confidence
		snap.Notices = append([]string(nil), s.lastMerge.Notices...)
	}
	return snap
}

// Edit applies a user edit. Setting the tax flag without an amount, or the
// base without a total, recalculates the dependent amounts with the configured
// VAT rate.
func (s *Session) Edit(p entity.Patch) entity.FormState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form = p.Apply(s.form)
	switch {
	case p.HasTax != nil && p.TaxAmount == nil:
		s.applyTax(*p.HasTax, p.TotalAmount == nil)
	case p.BaseAmount != nil && p.TotalAmount == nil:
		s.applyTax(s.form.HasTax, true)
	}
	s.touchedAt = s.deps.Now()
	s.logger.Debug("session.edit", "fields", p.Fields())
	return s.form
}

// SetTax toggles the tax flag as the user does from the form.
func (s *Session) SetTax(hasTax bool) entity.FormState {
	return s.Edit(entity.Patch{HasTax: &hasTax})
}

// applyTax recomputes tax from the VAT rate when the flag is on.
// Caller holds s.mu.
func (s *Session) applyTax(hasTax, recalcTotal bool) {
	s.form.HasTax = hasTax
	if hasTax {
		s.form.TaxAmount = VAT(s.form.BaseAmount, s.deps.VATRatePct)
	} else {
		s.form.TaxAmount = 0
	}
	if recalcTotal {
		s.form.TotalAmount = s.form.BaseAmount + s.form.TaxAmount
	}
}

// VAT is base * ratePct / 100 rounded half away from zero.
func VAT(base int64, ratePct int) int64 {
	return normalize.Units(normalize.Amount(base).Mul(normalize.Amount(ratePct)).Div(normalize.Amount(100)))
}

// Discrepancies compares the form with the last extraction. It is empty when
// no document has been read.
func (s *Session) Discrepancies() []entity.Discrepancy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discrepancies()
}

func (s *Session) discrepancies() []entity.Discrepancy {
	if s.extraction == nil {
		return nil
	}
	return consistency.Check(*s.extraction, s.form)
}

// Submit persists the form when it is complete and agrees with the document.
// The returned discrepancies are the reason an inconsistent form was refused.
// A successful submit resets the session to an empty form.
func (s *Session) Submit(ctx context.Context) (*entity.PaymentOrder, []entity.Discrepancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	form := s.form
	if err := s.completeness(form).Err(common.CodeIncomplete); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("incomplete").Inc()
		s.logger.Info("session.submit.incomplete", "error", err)
		return nil, nil, err
	}

	if ds := s.discrepancies(); len(ds) > 0 {
		metrics.SubmissionsTotal.WithLabelValues("inconsistent").Inc()
		for _, d := range ds {
			metrics.DiscrepanciesTotal.WithLabelValues(d.Field).Inc()
		}
		s.logger.Info("session.submit.inconsistent", "discrepancies", len(ds))
		return nil, ds, common.NewAppError(common.CodeInconsistent,
			strings.Join(entity.Messages(ds), " "), common.ErrInconsistent)
	}

	billing, err := time.Parse(normalize.FormLayout, form.BillingDate)
	if err != nil {
		return nil, nil, common.NewAppError(common.CodeIncomplete, "billingDate must be a YYYY-MM-DD date", common.ErrValidation)
	}
	order := &entity.PaymentOrder{
		SessionID:    s.ID,
		ExtractJobID: s.jobID,
		BillingDate:  billing,
		Company:      form.Company,
		Creditor:     form.Creditor,
		Concept:      form.Concept,
		Description:  form.Description,
		BaseAmount:   form.BaseAmount,
		HasTax:       form.HasTax,
		TaxAmount:    form.TaxAmount,
		TotalAmount:  form.TotalAmount,
		DocumentName: s.documentName,
		Status:       string(constants.OrderStatusSubmitted),
		CreatedAt:    s.deps.Now().UTC(),
	}
	if err := s.deps.Orders.Create(ctx, order); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		s.logger.Error("session.submit.persist_failed", "error", err)
		return nil, nil, common.NewAppError(common.CodeDatabase, "the order could not be saved", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}

	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	s.logger.Info("session.submit.accepted", "order_id", order.ID, "total", order.TotalAmount)

	s.form = entity.FormState{}
	s.extraction = nil
	s.lastMerge = nil
	s.jobID = nil
	s.documentName = ""
	s.touchedAt = s.deps.Now()
	return order, nil, nil
}

func (s *Session) completeness(form entity.FormState) *common.Validator {
	v := common.NewValidator().
		Field(entity.FieldBillingDate, form.BillingDate, common.Required, common.YMD).
		Field(entity.FieldCompany, form.Company, common.Required, common.OneOf(entity.Canonicals(s.refs.Companies))).
		Field(entity.FieldCreditor, form.Creditor, common.Required, common.OneOf(entity.Canonicals(s.refs.Creditors))).
		Field(entity.FieldConcept, form.Concept, common.Required).
		Field(entity.FieldDescription, form.Description, common.MaxLength(500)).
		Field(entity.FieldBaseAmount, form.BaseAmount, common.Positive).
		Field(entity.FieldTotalAmount, form.TotalAmount, common.Positive)
	if len(s.refs.Concepts) > 0 {
		v.Field(entity.FieldConcept, form.Concept, common.OneOf(entity.Canonicals(s.refs.Concepts)))
	}
	return v
}

func (s *Session) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

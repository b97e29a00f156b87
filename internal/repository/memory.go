package repository

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/common"
	"github.com/joseph-ayodele/payorders/internal/entity"
)

// MemoryOrderRepository keeps orders in process, for runs without a database.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders []entity.PaymentOrder
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{}
}

func (r *MemoryOrderRepository) Create(_ context.Context, o *entity.PaymentOrder) error {
	prepareOrder(o)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, *o)
	return nil
}

func (r *MemoryOrderRepository) List(_ context.Context, from, to time.Time) ([]entity.PaymentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.PaymentOrder
	for _, o := range r.orders {
		if !o.BillingDate.Before(from) && !o.BillingDate.After(to) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b entity.PaymentOrder) int {
		return a.BillingDate.Compare(b.BillingDate)
	})
	return out, nil
}

// MemoryExtractJobRepository keeps extract jobs in process.
type MemoryExtractJobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.ExtractJob
}

func NewMemoryExtractJobRepository() *MemoryExtractJobRepository {
	return &MemoryExtractJobRepository{jobs: map[uuid.UUID]*entity.ExtractJob{}}
}

func (r *MemoryExtractJobRepository) Start(_ context.Context, sessionID uuid.UUID, documentName string, contentHash []byte, pages int) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:           uuid.New(),
		SessionID:    sessionID,
		DocumentName: documentName,
		ContentHash:  contentHash,
		Pages:        pages,
		StartedAt:    time.Now().UTC(),
		Status:       string(constants.JobStatusRunning),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	cp := *job
	return &cp, nil
}

func (r *MemoryExtractJobRepository) FinishSuccess(_ context.Context, jobID uuid.UUID, status constants.JobStatus, confidence string, fieldsMerged int, extracted json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return common.NewAppError(common.CodeNotFound, "extract job not found", common.ErrNotFound)
	}
	now := time.Now().UTC()
	job.FinishedAt = &now
	job.Status = string(status)
	job.Confidence = &confidence
	job.FieldsMerged = fieldsMerged
	job.ExtractedJSON = extracted
	return nil
}

func (r *MemoryExtractJobRepository) FinishFailure(_ context.Context, jobID uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return common.NewAppError(common.CodeNotFound, "extract job not found", common.ErrNotFound)
	}
	now := time.Now().UTC()
	job.FinishedAt = &now
	job.Status = string(constants.JobStatusFailed)
	job.ErrorMessage = &message
	return nil
}

// Get returns a copy of the job, for inspection.
func (r *MemoryExtractJobRepository) Get(jobID uuid.UUID) (entity.ExtractJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return entity.ExtractJob{}, false
	}
	return *job, true
}

// Jobs returns copies of every job for sessionID.
func (r *MemoryExtractJobRepository) Jobs(sessionID uuid.UUID) []entity.ExtractJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.ExtractJob
	for _, j := range r.jobs {
		if j.SessionID == sessionID {
			out = append(out, *j)
		}
	}
	slices.SortFunc(out, func(a, b entity.ExtractJob) int { return a.StartedAt.Compare(b.StartedAt) })
	return out
}

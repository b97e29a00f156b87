package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/entity"
)

type ExtractJobRepository interface {
	Start(ctx context.Context, sessionID uuid.UUID, documentName string, contentHash []byte, pages int) (*entity.ExtractJob, error)
	FinishSuccess(ctx context.Context, jobID uuid.UUID, status constants.JobStatus, confidence string, fieldsMerged int, extracted json.RawMessage) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
}

type extractJobRepo struct {
	db  DBTX
	log *slog.Logger
}

func NewExtractJobRepository(db DBTX, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log}
}

func (r *extractJobRepo) Start(ctx context.Context, sessionID uuid.UUID, documentName string, contentHash []byte, pages int) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:           uuid.New(),
		SessionID:    sessionID,
		DocumentName: documentName,
		ContentHash:  contentHash,
		Pages:        pages,
		StartedAt:    time.Now().UTC(),
		Status:       string(constants.JobStatusRunning),
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO extract_job (id, session_id, document_name, content_hash, pages, started_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.SessionID, job.DocumentName, job.ContentHash, job.Pages, job.StartedAt, job.Status)
	if err != nil {
		r.log.Error("extract_job start failed", "session_id", sessionID, "err", err)
		return nil, fmt.Errorf("insert extract job: %w", err)
	}
	r.log.Info("extract_job started", "job_id", job.ID, "session_id", sessionID, "document", documentName)
	return job, nil
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, status constants.JobStatus, confidence string, fieldsMerged int, extracted json.RawMessage) error {
	var payload any
	if len(extracted) > 0 {
		payload = []byte(extracted)
	}
	_, err := r.db.Exec(ctx, `
		UPDATE extract_job
		SET finished_at = $2, status = $3, confidence = $4, fields_merged = $5, extracted_json = $6
		WHERE id = $1`,
		jobID, time.Now().UTC(), string(status), confidence, fieldsMerged, payload)
	if err != nil {
		r.log.Error("extract_job finish(OK) failed", "job_id", jobID, "err", err)
		return fmt.Errorf("finish extract job: %w", err)
	}
	r.log.Info("extract_job finished", "job_id", jobID, "status", status, "fields_merged", fieldsMerged)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE extract_job
		SET finished_at = $2, status = $3, error_message = $4
		WHERE id = $1`,
		jobID, time.Now().UTC(), string(constants.JobStatusFailed), message)
	if err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return fmt.Errorf("fail extract job: %w", err)
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

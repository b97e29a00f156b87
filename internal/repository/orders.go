package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/entity"
)

type OrderRepository interface {
	Create(ctx context.Context, order *entity.PaymentOrder) error
	// List returns orders whose billing date falls in [from, to], oldest first.
	List(ctx context.Context, from, to time.Time) ([]entity.PaymentOrder, error)
}

type orderRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewOrderRepository(db DBTX, logger *slog.Logger) OrderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &orderRepository{db: db, logger: logger}
}

func (r *orderRepository) Create(ctx context.Context, o *entity.PaymentOrder) error {
	prepareOrder(o)
	_, err := r.db.Exec(ctx, `
		INSERT INTO payment_order (
			id, session_id, extract_job_id, billing_date, company, creditor, concept, description,
			base_amount, has_tax, tax_amount, total_amount, document_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.SessionID, o.ExtractJobID, o.BillingDate, o.Company, o.Creditor, o.Concept, o.Description,
		o.BaseAmount, o.HasTax, o.TaxAmount, o.TotalAmount, o.DocumentName, o.Status, o.CreatedAt)
	if err != nil {
		r.logger.Error("payment_order insert failed", "session_id", o.SessionID, "error", err)
		return fmt.Errorf("insert payment order: %w", err)
	}
	r.logger.Info("payment_order created", "order_id", o.ID, "session_id", o.SessionID, "total", o.TotalAmount)
	return nil
}

func (r *orderRepository) List(ctx context.Context, from, to time.Time) ([]entity.PaymentOrder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, extract_job_id, billing_date, company, creditor, concept, description,
		       base_amount, has_tax, tax_amount, total_amount, COALESCE(document_name, ''), status, created_at
		FROM payment_order
		WHERE billing_date BETWEEN $1 AND $2
		ORDER BY billing_date, created_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list payment orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.PaymentOrder, error) {
		var o entity.PaymentOrder
		err := row.Scan(&o.ID, &o.SessionID, &o.ExtractJobID, &o.BillingDate, &o.Company, &o.Creditor,
			&o.Concept, &o.Description, &o.BaseAmount, &o.HasTax, &o.TaxAmount, &o.TotalAmount,
			&o.DocumentName, &o.Status, &o.CreatedAt)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan payment orders: %w", err)
	}
	return orders, nil
}

func prepareOrder(o *entity.PaymentOrder) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = string(constants.OrderStatusSubmitted)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
}

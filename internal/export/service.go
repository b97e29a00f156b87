package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/repository"
)

const sheet = "Orders"

var headers = []string{
	"Billing Date",
	"Company",
	"Creditor",
	"Concept",
	"Description",
	"Base Amount",
	"VAT",
	"Tax Amount",
	"Total Amount",
	"Document",
	"Submitted At",
}

// Service produces XLSX workbooks of submitted payment orders.
type Service struct {
	orders repository.OrderRepository
	now    func() time.Time
	logger *slog.Logger
}

func NewService(orders repository.OrderRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orders: orders, now: time.Now, logger: logger}
}

// Window resolves an optional billing-date window to inclusive date-only
// bounds. Only from runs to today; only to starts at the zero date; neither
// covers every order.
func (s *Service) Window(from, to *time.Time) (time.Time, time.Time) {
	var start, end time.Time
	if from != nil {
		start = dateOnly(*from)
	}
	if to != nil {
		end = dateOnly(*to)
	} else {
		end = dateOnly(s.now().UTC())
		if from == nil {
			end = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
		}
	}
	return start, end
}

// OrdersXLSX returns a workbook with one row per order billed in the window.
func (s *Service) OrdersXLSX(ctx context.Context, from, to *time.Time) ([]byte, int, error) {
	start := time.Now()
	fromDate, toDate := s.Window(from, to)

	orders, err := s.orders.List(ctx, fromDate, toDate)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}

	b, err := Workbook(orders)
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("export.xlsx.ok",
		"from", fromDate.Format("2006-01-02"),
		"to", toDate.Format("2006-01-02"),
		"rows", len(orders),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, len(orders), nil
}

// Workbook renders orders into XLSX bytes.
func Workbook(orders []entity.PaymentOrder) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, o := range orders {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, o.BillingDate.Format("2006-01-02"))
		write(2, o.Company)
		write(3, o.Creditor)
		write(4, o.Concept)
		write(5, truncate(o.Description, 140))
		write(6, o.BaseAmount)
		write(7, yesNo(o.HasTax))
		write(8, o.TaxAmount)
		write(9, o.TotalAmount)
		write(10, o.DocumentName)
		write(11, o.CreatedAt.UTC().Format(time.RFC3339))
	}

	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "C", 40) // parties
	_ = f.SetColWidth(sheet, "D", "D", 20)
	_ = f.SetColWidth(sheet, "E", "E", 48)
	_ = f.SetColWidth(sheet, "F", "I", 16) // amounts
	_ = f.SetColWidth(sheet, "J", "K", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/repository"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOrdersXLSX(t *testing.T) {
	ctx := context.Background()
	orders := repository.NewMemoryOrderRepository()
	for _, o := range []entity.PaymentOrder{
		{BillingDate: day(2024, 3, 5), Company: "NT-860034313-BANCO DAVIVIENDA S.A.", Concept: "Arriendo", BaseAmount: 2000000, TotalAmount: 2000000},
		{BillingDate: day(2022, 12, 31), Company: "NT-830025448-GRUPO BOLÍVAR S.A.", Concept: "Papelería", BaseAmount: 1000000, HasTax: true, TaxAmount: 190000, TotalAmount: 1190000},
		{BillingDate: day(2021, 1, 1), Company: "fuera de rango", BaseAmount: 1, TotalAmount: 1},
	} {
		o := o
		require.NoError(t, orders.Create(ctx, &o))
	}

	svc := NewService(orders, nil)
	svc.now = func() time.Time { return day(2024, 6, 1) }

	from := day(2022, 1, 1)
	b, n, err := svc.OrdersXLSX(ctx, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "2022-12-31", rows[1][0])
	assert.Equal(t, "yes", rows[1][6])
	assert.Equal(t, "1190000", rows[1][8])
	assert.Equal(t, "2024-03-05", rows[2][0])
	assert.Equal(t, "no", rows[2][6])
}

func TestWindow(t *testing.T) {
	svc := NewService(repository.NewMemoryOrderRepository(), nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC) }
	from := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	to := day(2024, 2, 1)

	t.Run("should run from to today", func(t *testing.T) {
		start, end := svc.Window(&from, nil)
		assert.Equal(t, day(2024, 1, 2), start)
		assert.Equal(t, day(2024, 6, 1), end)
	})

	t.Run("should start at the beginning when only to is given", func(t *testing.T) {
		start, end := svc.Window(nil, &to)
		assert.True(t, start.IsZero())
		assert.Equal(t, to, end)
	})

	t.Run("should cover everything without bounds", func(t *testing.T) {
		start, end := svc.Window(nil, nil)
		assert.True(t, start.IsZero())
		assert.Equal(t, 9999, end.Year())
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "añ…", truncate("añbcd", 3))
}

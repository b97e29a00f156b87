package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/payorders/internal/common"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportOrders streams submitted orders billed between the optional from and
// to query dates (YYYY-MM-DD, inclusive) as a workbook.
func (s *Server) exportOrders(c echo.Context) error {
	from, err := queryDate(c, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return err
	}
	if from != nil && to != nil && to.Before(*from) {
		return common.NewAppError(common.CodeInvalidInput, "to must not be before from", common.ErrInvalidInput)
	}

	b, rows, err := s.exporter.OrdersXLSX(c.Request().Context(), from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "error", err)
		return common.NewAppError(common.CodeDatabase, "orders could not be exported", err)
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentDisposition, `attachment; filename="payment-orders.xlsx"`)
	h.Set("X-Row-Count", strconv.Itoa(rows))
	return c.Blob(http.StatusOK, xlsxMIME, b)
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalidInput, name+" must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	return &t, nil
}

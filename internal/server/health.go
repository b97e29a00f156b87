package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type healthStatus struct {
	Status   string            `json:"status"`
	Uptime   string            `json:"uptime"`
	Sessions int               `json:"sessions"`
	Checks   map[string]string `json:"checks"`
}

func (s *Server) health(c echo.Context) error {
	status := healthStatus{
		Status:   "healthy",
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Sessions: s.registry.Len(),
		Checks:   map[string]string{},
	}

	code := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status.Checks["database"] = "ok"
		}
	}
	return c.JSON(code, status)
}

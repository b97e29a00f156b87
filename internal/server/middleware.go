package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/payorders/internal/common"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// requestContext stamps a request id on the request context and response.
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			c.SetRequest(req.WithContext(common.WithRequestID(req.Context(), requestID)))
			return next(c)
		}
	}
}

// requestLogger logs one line per request once the response is written.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			level := slog.LevelInfo
			if res.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(req.Context(), level, "http.request",
				"request_id", common.RequestIDFromContext(req.Context()),
				"method", req.Method,
				"route", c.Path(),
				"status", res.Status,
				"remote_ip", c.RealIP(),
				"response_size", res.Size,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// errorHandler renders AppErrors and echo errors as ErrorResponse.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()

		status := common.HTTPStatus(err)
		code := common.ErrorCode(err)
		message := "internal server error"

		var appErr *common.AppError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			message = appErr.Message
		case errors.As(err, &he):
			status = he.Code
			code = http.StatusText(he.Code)
			if msg, ok := he.Message.(string); ok {
				message = msg
			}
		}
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "http.error", "error", err, "status", status)
		}

		_ = c.JSON(status, ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: common.RequestIDFromContext(ctx),
		})
	}
}

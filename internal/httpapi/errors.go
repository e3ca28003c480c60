package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"userAuthService/internal/auth"
	"userAuthService/internal/service"
)

// ErrForbidden is attached by RequireRole when the principal lacks the role.
var ErrForbidden = errors.New("forbidden")

const internalMessage = "internal server error"

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// classify maps an error to a status code and a client-safe message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrDuplicateUsername):
		return http.StatusBadRequest, service.ErrDuplicateUsername.Error()
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, internalMessage
	}
}

// ErrorBoundary is the single place where handler errors and panics become responses.
// Handlers report failures with c.Error and return; anything unclassified is logged
// and answered with an opaque 500.
func ErrorBoundary(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.ErrorContext(c.Request.Context(), "unhandled panic",
				"panic", rec,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", c.GetString(requestIDKey),
				"stack", string(debug.Stack()),
			)
			writeError(c, http.StatusInternalServerError, internalMessage)
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, msg := classify(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request.Context(), "request failed",
				"error", err,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", c.GetString(requestIDKey),
			)
		}
		writeError(c, status, msg)
	}
}

func writeError(c *gin.Context, status int, msg string) {
	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: status, Message: msg})
}

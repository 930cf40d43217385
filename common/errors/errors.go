package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"backoffice-service/common/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same class, so callers can test
// errors.Is(err, ErrNotFound) regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == e.Message || t.Message == "")
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Class sentinels. Compare with errors.Is; never mutate them.
var (
	ErrBadRequest      = New(http.StatusBadRequest, "", nil)
	ErrUnauthorized    = New(http.StatusUnauthorized, "", nil)
	ErrForbidden       = New(http.StatusForbidden, "", nil)
	ErrNotFound        = New(http.StatusNotFound, "", nil)
	ErrInternalServer  = New(http.StatusInternalServerError, "", nil)
	ErrProviderFailure = New(http.StatusBadGateway, "", nil)
)

// NotFound builds a 404 error for an absent or soft-deleted entity.
func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, fmt.Sprintf(format, args...), nil)
}

// BadRequest builds a 400 error for a business-rule violation.
func BadRequest(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, fmt.Sprintf(format, args...), nil)
}

// ProviderError wraps a failure reported by an external provider (e.g. Stripe).
func ProviderError(message string, err error) *Error {
	return New(http.StatusBadGateway, message, err)
}

// Internal wraps an unexpected failure (database, marshalling, ...).
func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Respond writes err as {"code","message"} with the matching status.
// Internal errors never leak their wrapped cause to the client.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		appErr = New(http.StatusInternalServerError, "Internal server error", err)
	}
	body := appErr
	if appErr.Code >= http.StatusInternalServerError {
		logger.Error(c, "Request failed", appErr.Err, zap.Int("status", appErr.Code), zap.String("route", c.FullPath()))
		if appErr.Message == "" {
			body = New(appErr.Code, http.StatusText(appErr.Code), nil)
		}
	} else {
		logger.Info(c, "Request rejected", zap.Int("status", appErr.Code), zap.String("message", appErr.Message))
	}
	c.AbortWithStatusJSON(appErr.Code, body)
}

// ErrorMiddleware renders the last error pushed with c.Error.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err)
		}
	}
}

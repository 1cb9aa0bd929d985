// internal/common/errors/handler.go
package errors

import (
	"time"
)

// Response is the JSON body written for a failed request.
type Response struct {
	Message string    `json:"message"`
	Code    ErrorCode `json:"code,omitempty"`
}

// ErrorHandler translates errors into HTTP statuses and response bodies.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle returns the status and body for err. Internal errors are logged
// with their details and answered with a generic message.
func (h *ErrorHandler) Handle(err error, fields map[string]interface{}) (int, Response) {
	stdErr := h.normalizeError(err)
	status := stdErr.HTTPStatus()

	if status >= 500 {
		h.logError(stdErr, fields)
	}

	resp := Response{Message: stdErr.Message, Code: stdErr.Code}
	if stdErr.Code == ErrCodeInternal {
		resp.Message = "internal server error"
	}
	return status, resp
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	details := "unknown"
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) logError(stdErr *StandardError, fields map[string]interface{}) {
	if h.logger == nil {
		return
	}
	logFields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	for k, v := range stdErr.Metadata {
		logFields[k] = v
	}
	for k, v := range fields {
		logFields[k] = v
	}
	h.logger.Error("Request failed", logFields)
}

package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// Kind classifies an application error for the wizard and the HTTP layer
type Kind int

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode lets the error middleware pick a response status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindStepOrder:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindGatewayTimeout:
		return http.StatusGatewayTimeout
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

const (
	KindInternal Kind = iota + 1000
	KindValidation
	KindStoreWrite
	KindStorageUpload
	KindStorageDelete
	KindGatewayTimeout
	KindStoreUnavailable
	KindNotFound
	KindConflict
	KindStepOrder
	KindUnauthorized
)

// User-facing messages
const (
	MsgTryAgain         = "The server took too long to respond. Please try again in a moment."
	MsgDuplicate        = "This value is already registered. Please check for duplicates."
	MsgBrokenReference  = "A referenced record does not exist. Please reload and try again."
	MsgMalformedNumber  = "A numeric field has an invalid format. Please check prices and coordinates."
	MsgMissingColumn    = "A required value is missing."
	MsgSaveFailed       = "Failed to save. Please try again."
	MsgUploadFailed     = "Failed to upload images. Please try again."
	MsgStoreUnavailable = "The service is temporarily unavailable."
	MsgConflict         = "This profile was changed in another session. Please reload."
)

func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func Validationf(format string, args ...interface{}) *AppError {
	return Validation(fmt.Sprintf(format, args...))
}

func NotFound(resource string, err error) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource), Err: err}
}

func Conflict(err error) *AppError {
	return &AppError{Kind: KindConflict, Message: MsgConflict, Err: err}
}

func StepOrder(step, completed int) *AppError {
	return &AppError{
		Kind:    KindStepOrder,
		Message: fmt.Sprintf("step %d cannot be saved before step %d is completed", step, completed+1),
	}
}

func StoreUnavailable(err error) *AppError {
	return &AppError{Kind: KindStoreUnavailable, Message: MsgStoreUnavailable, Err: err}
}

func Unauthorized(err error) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: "unauthorized", Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal server error", Err: err}
}

// StorageUpload wraps an object storage upload failure. It surfaces to the
// operator with the same class of message as a failed relational write.
func StorageUpload(err error) *AppError {
	if IsGatewayTimeout(err) {
		return GatewayTimeout(err)
	}
	return &AppError{Kind: KindStorageUpload, Message: MsgUploadFailed, Err: err}
}

// StorageDelete is logged only and never returned to the operator.
func StorageDelete(path string, err error) *AppError {
	return &AppError{Kind: KindStorageDelete, Message: fmt.Sprintf("failed to delete object %s", path), Err: err}
}

func GatewayTimeout(err error) *AppError {
	return &AppError{Kind: KindGatewayTimeout, Message: MsgTryAgain, Err: err}
}

// FromStore maps a relational store error to a StoreWrite error whose message
// names the cause by the driver's SQLSTATE.
func FromStore(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if IsGatewayTimeout(err) {
		return GatewayTimeout(err)
	}

	out := &AppError{Kind: KindStoreWrite, Message: MsgSaveFailed, Err: err}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		out.Code = string(pqErr.Code)
		switch pqErr.Code {
		case "23505":
			out.Message = MsgDuplicate
		case "23503":
			out.Message = MsgBrokenReference
		case "22P02", "22003":
			out.Message = MsgMalformedNumber
		case "23502":
			out.Message = MsgMissingColumn
		}
	}
	return out
}

// httpStatusCoder is implemented by storage backend errors that carry the
// status of the gateway response.
type httpStatusCoder interface {
	HTTPStatusCode() int
}

// IsGatewayTimeout reports whether err is a timeout-class failure from either backend.
func IsGatewayTimeout(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Kind == KindGatewayTimeout {
		return true
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == "57014" {
		return true
	}
	var sc httpStatusCoder
	if stderrors.As(err, &sc) && sc.HTTPStatusCode() == http.StatusGatewayTimeout {
		return true
	}
	return false
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Message returns the operator-facing message for err.
func Message(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return MsgSaveFailed
}

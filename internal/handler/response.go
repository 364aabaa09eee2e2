package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

// Context keys set by the auth middleware.
const (
	ContextExternalUserID = "external_user_id"
	ContextEmail          = "email"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// StatusOf picks the response status for err. Foreign errors are 500.
func StatusOf(err error) int {
	var coder interface{ StatusCode() int }
	if errors.As(err, &coder) {
		return coder.StatusCode()
	}
	return http.StatusInternalServerError
}

// MessageOf returns the text shown to the operator for err.
func MessageOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// Fail records err for the error middleware, which writes the envelope.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

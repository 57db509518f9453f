package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/bildout/bildout-api/pkg/errors"
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

// Error writes err as a JSON response, mapping application error codes to
// HTTP status codes. Unknown errors become opaque 500s.
func Error(c *gin.Context, err error) {
	if appErr, ok := apperrors.As(err); ok {
		c.JSON(statusFor(appErr.Code), NewErrorResponse(appErr.Message))
		return
	}
	c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrForbidden:
		return http.StatusForbidden
	case apperrors.ErrConflict:
		return http.StatusConflict
	case apperrors.ErrLimitExceeded:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

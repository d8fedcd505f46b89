package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SuccessResponse writes a 200 success envelope.
func SuccessResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, APIResponse{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// ListResponse writes a success envelope carrying a total count.
func ListResponse(c echo.Context, message string, data interface{}, total int) error {
	return c.JSON(http.StatusOK, APIResponse{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
		Total:   &total,
	})
}

// ErrorResponse writes an error envelope with the given HTTP status.
func ErrorResponse(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, APIResponse{
		Status:  StatusError,
		Message: message,
		Data:    data,
	})
}

// BadRequestResponse writes a 400 with validation details.
func BadRequestResponse(c echo.Context, details []ValidationError) error {
	return ErrorResponse(c, http.StatusBadRequest, "invalid request", details)
}

// InternalServerErrorResponse writes a generic 500.
func InternalServerErrorResponse(c echo.Context) error {
	return ErrorResponse(c, http.StatusInternalServerError, "Something went wrong", nil)
}

// AppErrorResponse writes err as an error envelope; anything that is not an
// *AppError becomes a generic 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrorResponse(c, appErr.Status, appErr.Message, appErr.Data)
	}
	return InternalServerErrorResponse(c)
}

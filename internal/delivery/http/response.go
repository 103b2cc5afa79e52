package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"papertrade/internal/domain"
)

// Response represents a standardized API response
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Kind    string      `json:"kind,omitempty"` // machine-readable error kind
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// Error kind codes, stable for clients.
const (
	KindValidation        = "VALIDATION"
	KindInsufficientFunds = "INSUFFICIENT_FUNDS"
	KindNotFound          = "NOT_FOUND"
	KindUnauthorized      = "UNAUTHORIZED"
	KindPersistence       = "PERSISTENCE"
	KindInternal          = "INTERNAL"
)

// SuccessResponse sends a success response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// SuccessMessageResponse sends a success response with a message
func SuccessMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c echo.Context, statusCode int, kind, message string) error {
	return c.JSON(statusCode, Response{
		Status:  "error",
		Kind:    kind,
		Message: message,
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, KindValidation, message)
}

// UnauthorizedResponse sends a 401 Unauthorized response
func UnauthorizedResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusUnauthorized, KindUnauthorized, message)
}

// NotFoundResponse sends a 404 Not Found response
func NotFoundResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusNotFound, KindNotFound, message)
}

// InternalServerErrorResponse sends a 500 Internal Server Error response
func InternalServerErrorResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusInternalServerError, KindInternal, message)
}

// LedgerErrorResponse maps a ledger error onto the HTTP surface. Client
// mistakes come back 4xx with a kind the UI can act on; transient storage
// failures come back 500 and are safe to retry. Internal storage detail
// never leaks past the error's top-level message.
func LedgerErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return ErrorResponse(c, http.StatusBadRequest, KindValidation, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		return ErrorResponse(c, http.StatusBadRequest, KindInsufficientFunds, "Insufficient funds")
	case errors.Is(err, domain.ErrAccountNotFound):
		return ErrorResponse(c, http.StatusNotFound, KindNotFound, "Portfolio not found")
	case errors.Is(err, domain.ErrPersistence):
		return ErrorResponse(c, http.StatusInternalServerError, KindPersistence, "Temporary storage failure, please retry")
	default:
		return ErrorResponse(c, http.StatusInternalServerError, KindInternal, "Unexpected error")
	}
}

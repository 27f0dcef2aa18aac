package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sonr-io/passkey/client/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Code      uint32 `json:"code,omitempty"` // registered wallet error code
	Retryable bool   `json:"retryable,omitempty"`
}

// statusForKind maps an error class onto an HTTP status.
func statusForKind(kind errors.Kind) int {
	switch kind {
	case errors.KindRPC, errors.KindTransport:
		return http.StatusBadGateway
	case errors.KindConfirmationTimeout, errors.KindCancelled:
		return http.StatusGatewayTimeout
	case errors.KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeError(c echo.Context, err error) error {
	kind := errors.Classify(err)
	return c.JSON(statusForKind(kind), ErrorResponse{
		Error:     err.Error(),
		Kind:      kind.String(),
		Code:      errors.GetErrorCode(err),
		Retryable: errors.Retryable(kind),
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

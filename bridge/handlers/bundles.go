package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sonr-io/passkey/client/rpc"
)

// BundleSource reports bundle status. *client.SDK implements it.
type BundleSource interface {
	BundleStatus(ctx context.Context, id string) (*rpc.CallsStatus, error)
}

// BundleResponse is the public view of a bundle.
type BundleResponse struct {
	ID              string         `json:"id"`
	Status          rpc.StatusCode `json:"status"`
	Terminal        bool           `json:"terminal"`
	TransactionHash string         `json:"transaction_hash,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// BundleHandlers serves the bundle endpoints.
type BundleHandlers struct {
	source BundleSource
}

// NewBundleHandlers returns handlers reading from source.
func NewBundleHandlers(source BundleSource) *BundleHandlers {
	return &BundleHandlers{source: source}
}

// StatusHandler returns the relay's status of bundle :id.
func (h *BundleHandlers) StatusHandler(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return badRequest(c, "bundle id is required")
	}

	status, err := h.source.BundleStatus(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	resp := BundleResponse{
		ID:       status.ID,
		Status:   status.Status,
		Terminal: status.Status.Terminal(),
		Error:    status.ErrorMessage(),
	}
	if hash := status.TxHash(); hash != nil {
		resp.TransactionHash = hash.Hex()
	}
	return c.JSON(http.StatusOK, resp)
}

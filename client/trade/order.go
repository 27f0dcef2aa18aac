package trade

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPOrderStatus queries the matching backend status endpoint at
// {baseURL}/{requestHash}.
type HTTPOrderStatus struct {
	baseURL string
	client  *http.Client
}

var _ OrderStatusSource = (*HTTPOrderStatus)(nil)

// NewHTTPOrderStatus returns a status client. A nil client uses one with a
// ten second timeout.
func NewHTTPOrderStatus(baseURL string, client *http.Client) *HTTPOrderStatus {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPOrderStatus{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

// OrderStatus fetches the status of requestHash. The status member may be a
// numeric code or a word; see rpc.StatusCode.
func (h *HTTPOrderStatus) OrderStatus(ctx context.Context, requestHash string) (*OrderStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/"+url.PathEscape(requestHash), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order status %s: %w", requestHash, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read order status: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order status service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var status OrderStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode order status: %w", err)
	}
	if status.RequestHash == "" {
		status.RequestHash = requestHash
	}
	return &status, nil
}

package trade

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonr-io/passkey/client/rpc"
)

func TestHTTPOrderStatus(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		body       string
		wantStatus rpc.StatusCode
		wantErr    bool
	}{
		{name: "numeric pending", code: http.StatusOK, body: `{"status":100}`, wantStatus: rpc.StatusPending},
		{name: "numeric success", code: http.StatusOK, body: `{"status":200}`, wantStatus: rpc.StatusSuccess},
		{name: "word failed", code: http.StatusOK, body: `{"status":"failed"}`, wantStatus: rpc.StatusFailed},
		{name: "not found", code: http.StatusNotFound, body: `not found`, wantErr: true},
		{name: "garbage", code: http.StatusOK, body: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			status, err := NewHTTPOrderStatus(srv.URL+"/orders/", nil).OrderStatus(context.Background(), "0xabc")
			assert.Equal(t, "/orders/0xabc", path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, "0xabc", status.RequestHash)
		})
	}
}

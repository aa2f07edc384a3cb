package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bazaar-mobile/api/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "trace-1"})
	rr := httptest.NewRecorder()

	WriteError(ctx, rr, NewError("order_not_found", "order\nmissing", http.StatusNotFound).
		WithDetails(map[string]any{"order_id": "ord_1"}))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "order_not_found", body["error"])
	require.Equal(t, "order missing", body["message"])
	require.EqualValues(t, 404, body["status"])
	require.Equal(t, "trace-1", body["trace_id"])
	require.NotContains(t, body, "request_id")
	require.Equal(t, map[string]any{"order_id": "ord_1"}, body["details"])
}

func TestNewErrorDefaultsAndLimits(t *testing.T) {
	err := NewError(strings.Repeat("c", 100), "boom", 0)
	require.Equal(t, http.StatusInternalServerError, err.Status)
	require.Len(t, err.Code, codeLimit)

	base := NewError("x", "y", http.StatusBadRequest)
	require.Nil(t, base.WithDetails(nil).Details)
}

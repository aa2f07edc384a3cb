package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bazaar-mobile/api/internal/platform/auth"
)

func observedRouter(t *testing.T, handler http.HandlerFunc) (*chi.Mux, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(InjectLoggerMiddleware(logger), RecoveryMiddleware(logger), RequestLoggerMiddleware())
	r.With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithIdentity(req.Context(), &auth.Identity{UID: "buyer-7"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}, CallerMiddleware).Post("/orders/{orderID}/cancel", handler)
	return r, logs
}

func TestRequestLoggerRecordsCallerAndOrder(t *testing.T) {
	r, logs := observedRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{}`))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/ord_01J/cancel", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	entry := entries[0]
	require.Equal(t, zapcore.WarnLevel, entry.Level)

	fields := entry.ContextMap()
	require.Equal(t, "buyer-7", fields["caller_id"])
	require.Equal(t, "ord_01J", fields["order_id"])
	require.Equal(t, "/orders/{orderID}/cancel", fields["route"])
	require.EqualValues(t, http.StatusConflict, fields["status"])
	require.EqualValues(t, 2, fields["bytes"])
}

func TestRecoveryMiddlewareAnswersWithEnvelope(t *testing.T) {
	r, logs := observedRouter(t, func(http.ResponseWriter, *http.Request) {
		panic("ledger exploded")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/ord_9/cancel", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal_server_error")
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())

	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	require.Equal(t, zapcore.ErrorLevel, completed[0].Level)
}

func TestCompletionLevel(t *testing.T) {
	require.Equal(t, zapcore.InfoLevel, completionLevel(http.StatusCreated, false))
	require.Equal(t, zapcore.WarnLevel, completionLevel(http.StatusNotFound, false))
	require.Equal(t, zapcore.ErrorLevel, completionLevel(http.StatusServiceUnavailable, false))
	require.Equal(t, zapcore.ErrorLevel, completionLevel(http.StatusOK, true))
}

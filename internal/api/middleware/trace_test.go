package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/spimex-api/internal/api/shared"
	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	buf, log := logger.NewTestLogger(t)

	var seenTrace string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTrace = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	})

	handler := chimw.RequestID(NewTraceMiddleware(log)(next))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, seenTrace, 2*shared.TraceIDLength)
	assert.Equal(t, seenTrace, w.Header().Get(shared.TraceIDHeader))

	entries := buf.Records(t)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, seenTrace, e["trace_id"])
		assert.NotEmpty(t, e["request_id"])
	}
	assert.Equal(t, "request started", entries[0]["msg"])
}

func TestTraceMiddleware_UniquePerRequest(t *testing.T) {
	handler := NewTraceMiddleware(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	ids := map[string]bool{}
	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		ids[w.Header().Get(shared.TraceIDHeader)] = true
	}
	assert.Len(t, ids, 20)
}

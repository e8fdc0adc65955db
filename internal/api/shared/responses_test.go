package shared

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		data         interface{}
		expectedBody string
	}{
		{"object", http.StatusOK, map[string]int{"rows": 3}, `{"rows":3}`},
		{"list", http.StatusOK, []string{"2024-03-05"}, `["2024-03-05"]`},
		{"empty list", http.StatusOK, []string{}, `[]`},
		{"nil", http.StatusOK, nil, `null`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			RespondWithJSON(w, req, tc.status, tc.data)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tc.expectedBody, w.Body.String())
		})
	}
}

func TestRespondWithJSON_EncodeError(t *testing.T) {
	buf, log := logger.NewTestLogger(t)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusOK, make(chan int))

	assert.True(t, buf.Contains("failed to encode JSON response"), buf.String())
}

func TestRespondWithMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/start-scrap/", nil)
	w := httptest.NewRecorder()

	RespondWithMessage(w, req, http.StatusCreated, "The scraper is running.")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"The scraper is running."}`, w.Body.String())
}

func TestRespondWithError(t *testing.T) {
	ctx := SetTraceID(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/get-trading-results/", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, "At least one of the trading parameters must be filled in.")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t,
		`{"error":"At least one of the trading parameters must be filled in.","trace_id":"`+GetTraceID(ctx)+`"}`,
		w.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	buf, log := logger.NewTestLogger(t)
	ctx := logger.WithLogger(SetTraceID(context.Background()), log)
	req := httptest.NewRequest(http.MethodGet, "/check-db/", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	cause := errors.New("dial postgres://spimex:hunter2@db:5432/mydb failed")
	RespondWithErrorAndLog(w, req, http.StatusInternalServerError, "An unexpected error occurred", cause)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")

	entries := buf.Records(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	assert.Equal(t, GetTraceID(ctx), entries[0]["trace_id"])
	assert.NotContains(t, entries[0]["error"], "hunter2")
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?days=%203%20&name=+A592+&bad=x", nil)

	assert.Equal(t, "A592", QueryString(req, "name"))

	n, err := QueryInt(req, "days", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = QueryInt(req, "missing", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = QueryInt(req, "bad", 1)
	assert.Error(t, err)
}

func TestGetTraceID_Missing(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}

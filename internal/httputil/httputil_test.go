package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcheck/internal/apperr"
	"simcheck/internal/logger"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "validation", err: apperr.Validation("bad"), want: http.StatusBadRequest},
		{name: "not found", err: apperr.NotFound("report", "x"), want: http.StatusNotFound},
		{name: "conflict", err: fmt.Errorf("%w: taken", apperr.ErrConflict), want: http.StatusConflict},
		{name: "upstream", err: apperr.Upstream("engine", errors.New("503")), want: http.StatusBadGateway},
		{name: "total outage", err: fmt.Errorf("%w: 3 of 3", apperr.ErrTotalOutage), want: http.StatusBadGateway},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestFailErr(t *testing.T) {
	rec := httptest.NewRecorder()
	FailErr(logger.Discard(), rec, apperr.NotFound("report", "r.txt"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "r.txt")

	rec = httptest.NewRecorder()
	FailErr(logger.Discard(), rec, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeBody(t, rec)["message"])
}

type compareBody struct {
	DocumentIDs []string `json:"document_ids" validate:"required,min=2"`
	Threshold   float64  `json:"threshold" validate:"gte=0,lte=100"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantFields map[string]any
		wantMsg    string
	}{
		{name: "valid", body: `{"document_ids":["a","b"],"threshold":20}`},
		{name: "empty body", body: ``, wantErr: true, wantMsg: "request body is required"},
		{name: "malformed", body: `{"document_ids":`, wantErr: true, wantMsg: "invalid JSON body"},
		{name: "unknown field", body: `{"document_ids":["a","b"],"extra":1}`, wantErr: true, wantMsg: "invalid JSON body"},
		{
			name:       "field errors",
			body:       `{"document_ids":["a"],"threshold":150}`,
			wantErr:    true,
			wantFields: map[string]any{"document_ids": "must have at least 2 items", "threshold": "must be at most 100"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst compareBody
			err := DecodeJSON(req, &dst)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, []string{"a", "b"}, dst.DocumentIDs)
				return
			}
			require.Error(t, err)

			rec := httptest.NewRecorder()
			ValidationError(logger.Discard(), rec, err)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, body["fields"])
			}
			if tt.wantMsg != "" {
				assert.Contains(t, body["message"], tt.wantMsg)
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	r := NewRouter(logger.Discard())
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decodeBody(t, rec)["status"])
}

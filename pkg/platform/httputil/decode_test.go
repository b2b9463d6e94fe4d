package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "seqrpay/pkg/domain-errors"
)

type scanRequest struct {
	Content string `json:"content"`
}

// amountRequest exercises both preparation hooks.
type amountRequest struct {
	Amount     string `json:"amount"`
	normalized bool
}

func (r *amountRequest) Normalize() { r.normalized = true; r.Amount = strings.TrimSpace(r.Amount) }
func (r *amountRequest) Validate() error {
	if r.Amount == "" {
		return errors.New("amount is required")
	}
	return nil
}

type payeeRequest struct {
	Payee string `json:"payeeUsername"`
}

func (r *payeeRequest) Validate() error {
	if r.Payee == "" {
		return dErrors.New(dErrors.CodeKeyNotFound, "unknown payee")
	}
	return nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestDecodeJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeJSON[scanRequest](w, post(`{"content":"https://shop.example"}`), discard, ctx, "rid")
		require.True(t, ok)
		assert.Equal(t, "https://shop.example", req.Content)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeJSON[scanRequest](w, post(`{content`), discard, ctx, "rid")
		assert.False(t, ok)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeBody(t, w).Error)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeJSON[scanRequest](w, post(`{"content":"x","extra":1}`), discard, ctx, "rid")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects empty body", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeJSON[scanRequest](w, post(""), discard, ctx, "rid")
		assert.False(t, ok)
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeJSON[scanRequest](w, post(`{"content":"`+strings.Repeat("a", maxBodyBytes)+`"}`), discard, ctx, "rid")
		assert.False(t, ok)
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes before validating", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[amountRequest](w, post(`{"amount":" 12.50 "}`), discard, ctx, "rid")
		require.True(t, ok)
		assert.True(t, req.normalized)
		assert.Equal(t, "12.50", req.Amount)
	})

	t.Run("plain validation error becomes validation_error", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[amountRequest](w, post(`{"amount":"  "}`), discard, ctx, "rid")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeBody(t, w)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Equal(t, "amount is required", resp.Description)
	})

	t.Run("types without hooks pass through", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[scanRequest](w, post(`{"content":" x "}`), discard, ctx, "rid")
		require.True(t, ok)
		assert.Equal(t, " x ", req.Content)
	})

	t.Run("domain error code is preserved", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[payeeRequest](w, post(`{"payeeUsername":""}`), discard, ctx, "rid")
		assert.False(t, ok)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeBody(t, w).Error)
	})
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		desc   string
	}{
		{"signing", dErrors.New(dErrors.CodeSigning, "cannot sign"), http.StatusConflict, "cannot_sign", "cannot sign"},
		{"encoding", dErrors.New(dErrors.CodeEncoding, "not utf-8"), http.StatusUnprocessableEntity, "encoding_error", "not utf-8"},
		{"unavailable", dErrors.New(dErrors.CodeUnavailable, "no directory"), http.StatusServiceUnavailable, "unavailable", "no directory"},
		{"timeout", dErrors.New(dErrors.CodeTimeout, "scan took too long"), http.StatusGatewayTimeout, "timeout", "scan took too long"},
		{"internal hides message", dErrors.New(dErrors.CodeInternal, "disk path /x"), http.StatusInternalServerError, "internal_error", ""},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)
			assert.Equal(t, tt.status, w.Code)
			resp := decodeBody(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, tt.desc, resp.Description)
		})
	}
}

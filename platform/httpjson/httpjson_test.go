package httpjson

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, http.StatusNotFound, "payment not found"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"payment not found"}`, rec.Body.String())
}

func TestDecode(t *testing.T) {
	var dst struct {
		Amount string `json:"amount"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"50.00"}`))
	require.NoError(t, Decode(req, &dst))
	require.Equal(t, "50.00", dst.Amount)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.NoError(t, Decode(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	err := Decode(req, &dst)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid JSON")
}

func TestReadError(t *testing.T) {
	rec := httptest.NewRecorder()
	_ = WriteError(rec, http.StatusBadGateway, "gateway unavailable")
	require.Equal(t, "gateway unavailable", ReadError(rec.Result()))

	rec = httptest.NewRecorder()
	rec.WriteHeader(http.StatusInternalServerError)
	require.Equal(t, "Internal Server Error", ReadError(rec.Result()))
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		isNil    bool
		err      error
	}{
		{name: "integer", raw: `50`, expected: "50"},
		{name: "fraction", raw: `12.34`, expected: "12.34"},
		{name: "negative", raw: `-5`, expected: "-5"},
		{name: "exponent", raw: `1.5e2`, expected: "150"},
		{name: "missing", raw: ``, isNil: true},
		{name: "null", raw: `null`, isNil: true},
		{name: "quoted", raw: `"50"`, err: ErrNotNumber},
		{name: "bool", raw: `true`, err: ErrNotNumber},
		{name: "object", raw: `{}`, err: ErrNotNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDecimal(json.RawMessage(tt.raw))
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			if tt.isNil {
				require.Nil(t, d)
				return
			}
			require.NotNil(t, d)
			require.Equal(t, tt.expected, d.String())
		})
	}
}

// Package httpjson holds the JSON request/response helpers shared by the HTTP APIs.
package httpjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

// MaxBodyBytes limits request bodies
const MaxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Write encodes v as JSON with the given status
func Write(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg} with the given status
func WriteError(w http.ResponseWriter, status int, msg string) error {
	return Write(w, status, ErrorResponse{Error: msg})
}

// Decode reads a single JSON object from r.Body into dst.
// An empty body decodes into the zero value.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ErrNotNumber is returned by ParseDecimal for anything but a JSON number literal
var ErrNotNumber = errors.New("must be a JSON number")

// ParseDecimal parses a JSON number literal without going through float64.
// A missing or null value gives nil; strings, booleans and objects give ErrNotNumber.
func ParseDecimal(raw json.RawMessage) (*decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return nil, ErrNotNumber
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return nil, ErrNotNumber
	}
	return &d, nil
}

// ReadError extracts the {"error"} message of a failed response, falling back to the status text
func ReadError(resp *http.Response) string {
	var body ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxBodyBytes)).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return http.StatusText(resp.StatusCode)
}

// Package validation provides helpers for HTTP request validation
package validation

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies decoded by DecodeJSON
const maxBodyBytes = 1 << 20

// DecodeJSON decodes a JSON request body into dst and validates it. Decoding
// problems come back as ValidationErrors on the "request_body" field so
// handlers can answer every failure the same way.
func DecodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return ValidationErrors{{
			Field:   "request_body",
			Value:   nil,
			Message: fmt.Sprintf("invalid JSON: %v", err),
		}}
	}
	return ValidateStruct(dst)
}

// WriteErrors writes validation errors as JSON response
func WriteErrors(w http.ResponseWriter, statusCode int, errs ValidationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	data, err := MarshalValidationErrors(errs)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"validation failed","message":"internal validation error"}`))
		return
	}
	_, _ = w.Write(data)
}

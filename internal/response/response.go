// Package response defines the API result object shared by every endpoint:
// a closed status enum, an ordered list of human-readable messages, and an
// optional data object (null on error). Field tags keep the wire names the
// clients already consume.
package response

import (
	"encoding/json"
	"net/http"
)

// Status values for Result.Code.
const (
	StatusSuccess = 1
	StatusWarning = 2
	StatusError   = 3
)

// Result is the response body shape for all auth endpoints.
type Result struct {
	Code     int      `json:"tipo"`
	Messages []string `json:"mensajes"`
	Data     any      `json:"data"`
}

// Success builds a StatusSuccess result carrying data.
func Success(data any, messages ...string) *Result {
	return &Result{Code: StatusSuccess, Messages: nonNil(messages), Data: data}
}

// Warning builds a StatusWarning result; data may be nil.
func Warning(messages ...string) *Result {
	return &Result{Code: StatusWarning, Messages: nonNil(messages)}
}

// Error builds a StatusError result with a nil data field.
func Error(messages ...string) *Result {
	return &Result{Code: StatusError, Messages: nonNil(messages)}
}

// nonNil keeps mensajes encoding as [] instead of null.
func nonNil(messages []string) []string {
	if messages == nil {
		return []string{}
	}
	return messages
}

// WriteJSON writes v as JSON with the given HTTP status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package httpx provides the JSON envelope shared by every API response.
package httpx

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// Envelope is the body of every API response, success or failure.
type Envelope struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends a successful envelope.
func OK(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Code: status, Success: true, Message: message, Data: data})
}

// Error sends a failed envelope with no data.
func Error(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	JSON(w, status, Envelope{Code: status, Success: false, Message: message})
}

// Fail sends a failed envelope carrying details such as field errors.
func Fail(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Code: status, Success: false, Message: message, Data: data})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

// Package types holds the JSON envelope shapes shared by every API response.
package types

// SuccessEnvelope wraps successful payloads as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body. Details carries field-level validation
// errors and is omitted for codes whose details must stay internal.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps failures as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

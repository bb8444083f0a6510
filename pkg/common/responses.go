package common

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo carries error details in a response.
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RespondJSON writes data inside the standard envelope.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// RespondError writes an error response in the standard envelope.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondErrorDetails(w, status, code, message, nil)
}

// RespondErrorDetails writes an error response with structured details,
// such as a compile error list.
func RespondErrorDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message, Details: details},
	})
}

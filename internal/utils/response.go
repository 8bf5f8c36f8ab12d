package utils

import "time"

// APIResponse is the envelope every payment endpoint returns.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func newResponse(success bool, message string) APIResponse {
	return APIResponse{
		Success:   success,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func SuccessResponse(message string, data interface{}) APIResponse {
	resp := newResponse(true, message)
	resp.Data = data
	return resp
}

// ErrorResponse carries a human-readable message plus the underlying error
// detail; detail is surfaced as-is, so never put credentials or keys in it.
func ErrorResponse(message, detail string) APIResponse {
	resp := newResponse(false, message)
	resp.Error = detail
	return resp
}

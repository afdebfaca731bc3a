package models

// RateLimitExceededResponse is the 429 body. It reuses the error envelope
// keys and adds the wait in seconds.
type RateLimitExceededResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RetryAfter       int    `json:"retry_after"`
}

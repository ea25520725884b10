package errors

import "fmt"

// HTTPError is a failed API response with a status code.
type HTTPError struct {
	StatusCode  int
	Message     string
	Description string
	Endpoint    string

	// RetryAfter is the Retry-After hint in seconds, 0 when absent.
	RetryAfter int
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := e.Description
	if msg == "" {
		msg = e.Message
	}
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, msg)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

// TransportError is a failure below HTTP, identified by a system error code.
type TransportError struct {
	Code string
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseError carries a decoded API error body, such as
// {"ok":false,"error_code":429,"description":"...","parameters":{"retry_after":5}}.
type ResponseError struct {
	StatusCode int
	Body       map[string]any
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if desc, ok := e.Body["description"].(string); ok && desc != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, desc)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

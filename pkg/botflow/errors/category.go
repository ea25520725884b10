// Package errors classifies outbound bot-API failures and decides how to
// handle them.
//
// The package is layered:
//   - Classify maps any failure shape onto a fixed Category
//   - RetryPolicy.Decide turns a classified failure into a retry decision
//   - Format renders operator-facing text and a structured error
//   - Handler owns the attempt loop and wires the three together
//
// Classify, Decide and Format are pure. Only Handler waits.
package errors

import (
	"fmt"
	"strings"
)

// Category is the taxonomy an outbound failure is classified into.
type Category string

const (
	// CategoryAuthentication covers rejected or missing credentials.
	CategoryAuthentication Category = "AUTHENTICATION"

	// CategoryRateLimit covers throttling by the remote API.
	CategoryRateLimit Category = "RATE_LIMIT"

	// CategoryValidation covers requests the remote API refused as malformed.
	CategoryValidation Category = "VALIDATION"

	// CategoryBusinessLogic covers rejections tied to application state,
	// such as a missing chat or a bot blocked by the user.
	CategoryBusinessLogic Category = "BUSINESS_LOGIC"

	// CategoryNetwork covers transport failures before a response arrived.
	CategoryNetwork Category = "NETWORK"

	// CategoryUnknown is everything else, including server errors.
	CategoryUnknown Category = "UNKNOWN"
)

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// Retryable reports whether failures of this category may succeed on retry.
func (c Category) Retryable() bool {
	switch c {
	case CategoryRateLimit, CategoryNetwork, CategoryUnknown:
		return true
	}
	return false
}

// ClassifiedError is an outbound failure with its category and the details
// extracted while classifying it.
type ClassifiedError struct {
	// Category is the classification result.
	Category Category

	// Raw is the failure as received: an error, a decoded JSON object, or a string.
	Raw any

	// Status is the HTTP or API status code, when one was found.
	Status *int

	// RetryAfter is the server's suggested wait in seconds.
	RetryAfter *int

	// MigrateToChatID is set when the API reports the chat moved.
	MigrateToChatID *int64

	// Code is the transport error code, such as ECONNRESET.
	Code string

	// Description is the most specific human-readable text found.
	Description string
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Category))
	if e.Status != nil {
		fmt.Fprintf(&b, " (status %d)", *e.Status)
	} else if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	return b.String()
}

// Unwrap returns Raw when it is an error.
func (e *ClassifiedError) Unwrap() error {
	if err, ok := e.Raw.(error); ok {
		return err
	}
	return nil
}

// HTTPStatus returns the status code, or 0 when unknown.
func (e *ClassifiedError) HTTPStatus() int {
	if e == nil || e.Status == nil {
		return 0
	}
	return *e.Status
}

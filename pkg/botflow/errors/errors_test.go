package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func TestCategoryRetryable(t *testing.T) {
	tests := []struct {
		category Category
		expected bool
	}{
		{CategoryAuthentication, false},
		{CategoryRateLimit, true},
		{CategoryValidation, false},
		{CategoryBusinessLogic, false},
		{CategoryNetwork, true},
		{CategoryUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			if got := tt.category.Retryable(); got != tt.expected {
				t.Errorf("Category(%s).Retryable() = %v, want %v", tt.category, got, tt.expected)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		expected Category
	}{
		{"nil", nil, CategoryUnknown},
		{"error_code 401", map[string]any{"error_code": 401.0}, CategoryAuthentication},
		{"error_code 403", map[string]any{"error_code": 403}, CategoryAuthentication},
		{"status 429", map[string]any{"status": 429}, CategoryRateLimit},
		{"statusCode 400", map[string]any{"statusCode": json.Number("400")}, CategoryValidation},
		{"404", map[string]any{"error_code": 404}, CategoryBusinessLogic},
		{"409", map[string]any{"error_code": 409}, CategoryBusinessLogic},
		{"500", map[string]any{"status": 500}, CategoryUnknown},
		{"302", map[string]any{"status": 302}, CategoryUnknown},
		{"status beats text", map[string]any{"error_code": 401, "message": "Network timeout"}, CategoryAuthentication},
		{"string status ignored", map[string]any{"status": "error", "message": "rate limit hit"}, CategoryRateLimit},
		{"ECONNRESET", map[string]any{"code": "ECONNRESET"}, CategoryNetwork},
		{"lowercase code", map[string]any{"code": "etimedout"}, CategoryNetwork},
		{"unlisted code", map[string]any{"code": "EACCES"}, CategoryUnknown},
		{"unauthorized text", map[string]any{"message": "Unauthorized access"}, CategoryAuthentication},
		{"forbidden description", map[string]any{"description": "Forbidden: bot is not a member"}, CategoryAuthentication},
		{"too many requests", map[string]any{"description": "Too Many Requests: retry later"}, CategoryRateLimit},
		{"nested data", map[string]any{"response": map[string]any{"data": map[string]any{"error_code": 429}}}, CategoryRateLimit},
		{"nested status fallback", map[string]any{"response": map[string]any{"status": 400, "data": map[string]any{"message": "bad"}}}, CategoryValidation},
		{"nested status with text body", map[string]any{"message": "Request failed with status code 401", "response": map[string]any{"status": 401, "data": "Unauthorized"}}, CategoryAuthentication},
		{"nested status without body", map[string]any{"response": map[string]any{"status": 429}}, CategoryRateLimit},
		{"top level wins over nested", map[string]any{"code": "EPIPE", "response": map[string]any{"data": map[string]any{"error_code": 401}}}, CategoryNetwork},
		{"plain string", "rate limit exceeded", CategoryRateLimit},
		{"unrecognized", map[string]any{"message": "something odd"}, CategoryUnknown},
		{"number", 42, CategoryUnknown},
		{"HTTPError", &HTTPError{StatusCode: 403}, CategoryAuthentication},
		{"wrapped HTTPError", fmt.Errorf("send: %w", &HTTPError{StatusCode: 429}), CategoryRateLimit},
		{"TransportError", &TransportError{Code: "ECONNREFUSED"}, CategoryNetwork},
		{"ResponseError", &ResponseError{StatusCode: 200, Body: map[string]any{"ok": false, "error_code": 400.0}}, CategoryValidation},
		{"ResponseError status only", &ResponseError{StatusCode: 404, Body: map[string]any{}}, CategoryBusinessLogic},
		{"deadline exceeded", fmt.Errorf("call: %w", context.DeadlineExceeded), CategoryNetwork},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, CategoryNetwork},
		{"plain error", errors.New("boom"), CategoryUnknown},
		{"classified passthrough", &ClassifiedError{Category: CategoryBusinessLogic}, CategoryBusinessLogic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.raw).Category; got != tt.expected {
				t.Errorf("Classify() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestClassifyExtractsDetails(t *testing.T) {
	c := Classify(map[string]any{
		"error_code":  429.0,
		"description": "Too Many Requests: retry after 5",
		"parameters":  map[string]any{"retry_after": 5.0, "migrate_to_chat_id": -100123.0},
	})

	if c.HTTPStatus() != 429 {
		t.Errorf("HTTPStatus() = %d, want 429", c.HTTPStatus())
	}
	if c.RetryAfter == nil || *c.RetryAfter != 5 {
		t.Errorf("RetryAfter = %v, want 5", c.RetryAfter)
	}
	if c.MigrateToChatID == nil || *c.MigrateToChatID != -100123 {
		t.Errorf("MigrateToChatID = %v, want -100123", c.MigrateToChatID)
	}
	if c.Description != "Too Many Requests: retry after 5" {
		t.Errorf("Description = %q", c.Description)
	}
}

func TestClassifyNestedDetails(t *testing.T) {
	c := Classify(map[string]any{
		"message": "Request failed",
		"response": map[string]any{
			"status": 403,
			"data":   map[string]any{"retry_after": 3},
		},
	})

	if c.Category != CategoryAuthentication {
		t.Errorf("Category = %s, want AUTHENTICATION", c.Category)
	}
	if c.HTTPStatus() != 403 {
		t.Errorf("HTTPStatus() = %d, want 403", c.HTTPStatus())
	}
	if c.RetryAfter == nil || *c.RetryAfter != 3 {
		t.Errorf("RetryAfter = %v, want 3", c.RetryAfter)
	}
}

func TestClassifyNestedStatusWithTextBody(t *testing.T) {
	c := Classify(map[string]any{
		"message":  "Request failed with status code 401",
		"response": map[string]any{"status": 401, "data": "Unauthorized"},
	})

	if c.Category != CategoryAuthentication {
		t.Errorf("Category = %s, want AUTHENTICATION", c.Category)
	}
	if c.HTTPStatus() != 401 {
		t.Errorf("HTTPStatus() = %d, want 401", c.HTTPStatus())
	}
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	cause := &TransportError{Code: "EPIPE", Err: errors.New("broken pipe")}
	c := Classify(cause)

	var transport *TransportError
	if !errors.As(c, &transport) {
		t.Fatal("expected ClassifiedError to unwrap to TransportError")
	}
	if c.Code != "EPIPE" {
		t.Errorf("Code = %q, want EPIPE", c.Code)
	}

	if Classify(map[string]any{}).Unwrap() != nil {
		t.Error("expected nil Unwrap for non-error raw value")
	}
}

func TestRetryDecide(t *testing.T) {
	policy := DefaultRetryPolicy

	tests := []struct {
		name        string
		c           *ClassifiedError
		attempt     int
		max         int
		shouldRetry bool
		delay       time.Duration
		remaining   int
	}{
		{"nil", nil, 0, 3, false, 0, 0},
		{"auth never", &ClassifiedError{Category: CategoryAuthentication}, 0, 3, false, 0, 0},
		{"validation never", Classify(map[string]any{"error_code": 400}), 0, 3, false, 0, 0},
		{"business never", &ClassifiedError{Category: CategoryBusinessLogic}, 0, 3, false, 0, 0},
		{"rate limit retry after", &ClassifiedError{Category: CategoryRateLimit, RetryAfter: intPtr(120)}, 0, 3, true, 120 * time.Second, 2},
		{"network first", &ClassifiedError{Category: CategoryNetwork}, 0, 3, true, time.Second, 2},
		{"network second", &ClassifiedError{Category: CategoryNetwork}, 1, 3, true, 2 * time.Second, 1},
		{"network last", &ClassifiedError{Category: CategoryNetwork}, 2, 3, true, 4 * time.Second, 0},
		{"network exhausted", &ClassifiedError{Category: CategoryNetwork}, 3, 3, false, 0, 0},
		{"unknown capped", &ClassifiedError{Category: CategoryUnknown}, 9, 10, true, 30 * time.Second, 0},
		{"zero budget", &ClassifiedError{Category: CategoryUnknown}, 0, 0, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := policy.Decide(tt.c, tt.attempt, tt.max)
			if d.ShouldRetry != tt.shouldRetry {
				t.Errorf("ShouldRetry = %v, want %v", d.ShouldRetry, tt.shouldRetry)
			}
			if d.Delay != tt.delay {
				t.Errorf("Delay = %v, want %v", d.Delay, tt.delay)
			}
			if d.AttemptsRemaining != tt.remaining {
				t.Errorf("AttemptsRemaining = %d, want %d", d.AttemptsRemaining, tt.remaining)
			}
		})
	}
}

func TestRetryDelayMs(t *testing.T) {
	d := DefaultRetryPolicy.Decide(&ClassifiedError{Category: CategoryRateLimit, RetryAfter: intPtr(120)}, 0, 3)
	if d.DelayMs() != 120000 {
		t.Errorf("DelayMs() = %d, want 120000", d.DelayMs())
	}
}

func TestBackoffJitter(t *testing.T) {
	policy := NewRetryPolicy(
		WithInitialBackoff(100*time.Millisecond),
		WithMaxBackoff(time.Second),
		WithBackoffFactor(3),
		WithJitter(0.5),
	)

	for i := 0; i < 50; i++ {
		d := policy.Backoff(1)
		if d < 150*time.Millisecond || d > 450*time.Millisecond {
			t.Fatalf("Backoff(1) = %v, want within [150ms, 450ms]", d)
		}
	}
	if d := policy.Backoff(10); d > time.Second {
		t.Errorf("Backoff(10) = %v, want capped at 1s", d)
	}
}

func TestCalculateBackoffNoJitter(t *testing.T) {
	if got := calculateBackoff(time.Second, 0); got != time.Second {
		t.Errorf("calculateBackoff() = %v, want 1s", got)
	}
}

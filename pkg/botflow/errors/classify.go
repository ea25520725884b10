package errors

import (
	"errors"
	"fmt"
	"strings"
)

// transportCodes are system error codes that mean the request never got
// a response.
var transportCodes = map[string]struct{}{
	"ETIMEDOUT":       {},
	"ECONNRESET":      {},
	"ECONNREFUSED":    {},
	"ECONNABORTED":    {},
	"ENOTFOUND":       {},
	"EAI_AGAIN":       {},
	"EHOSTUNREACH":    {},
	"ENETUNREACH":     {},
	"EPIPE":           {},
	"ESOCKETTIMEDOUT": {},
}

// Classify maps an outbound failure onto exactly one Category.
//
// raw may be an error, a decoded JSON object, a string or nil. Rules are
// applied in order and the first match wins:
//  1. a numeric status (error_code, status, statusCode)
//  2. a transport error code or Go network error
//  3. auth or rate-limit wording in message or description
//  4. the same rules against response.data, one level deep
//  5. UNKNOWN
//
// A *ClassifiedError anywhere in an error chain is returned unchanged.
// Classify never panics.
func Classify(raw any) (ce *ClassifiedError) {
	defer func() {
		if r := recover(); r != nil {
			ce = &ClassifiedError{Category: CategoryUnknown, Raw: raw, Description: fmt.Sprint(r)}
		}
	}()

	if err, ok := raw.(error); ok {
		var classified *ClassifiedError
		if errors.As(err, &classified) {
			return classified
		}
	}

	v := newView(raw)
	category, ok := classifyView(v)
	if !ok && v.nested != nil {
		category, ok = classifyView(v.nested)
	}
	if !ok {
		category = CategoryUnknown
	}

	ce = &ClassifiedError{
		Category:        category,
		Raw:             raw,
		Status:          v.status,
		RetryAfter:      v.retryAfter,
		MigrateToChatID: v.migrateTo,
		Code:            v.code,
		Description:     v.text(),
	}
	if n := v.nested; n != nil {
		if ce.Status == nil {
			ce.Status = n.status
		}
		if ce.RetryAfter == nil {
			ce.RetryAfter = n.retryAfter
		}
		if ce.MigrateToChatID == nil {
			ce.MigrateToChatID = n.migrateTo
		}
		if ce.Code == "" {
			ce.Code = n.code
		}
		if ce.Description == "" {
			ce.Description = n.text()
		}
	}
	return ce
}

func classifyView(v *errorView) (Category, bool) {
	if v.status != nil {
		return statusCategory(*v.status), true
	}
	if v.network {
		return CategoryNetwork, true
	}
	if _, ok := transportCodes[strings.ToUpper(v.code)]; ok {
		return CategoryNetwork, true
	}
	for _, text := range []string{v.message, v.description} {
		if c, ok := textCategory(text); ok {
			return c, true
		}
	}
	return "", false
}

func statusCategory(status int) Category {
	switch {
	case status == 401 || status == 403:
		return CategoryAuthentication
	case status == 429:
		return CategoryRateLimit
	case status == 400:
		return CategoryValidation
	case status >= 400 && status < 500:
		return CategoryBusinessLogic
	}
	return CategoryUnknown
}

func textCategory(text string) (Category, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "forbidden"):
		return CategoryAuthentication, true
	case strings.Contains(lower, "too many requests"), strings.Contains(lower, "rate limit"):
		return CategoryRateLimit, true
	}
	return "", false
}

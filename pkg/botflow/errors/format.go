package errors

import (
	"fmt"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes of surfaced errors.
const (
	TextCodeAPIError       = "API_ERROR"
	TextCodeOperationError = "OPERATION_ERROR"
	TextCodeCanceled       = "OPERATION_CANCELED"
)

// Operation describes the outbound call a failure belongs to.
type Operation struct {
	Name string

	// Attempt is the number of retries made before the failure was surfaced.
	Attempt int

	// MaxAttempts is the retry budget.
	MaxAttempts int
}

// Formatted is an operator-facing rendering of a classified failure.
type Formatted struct {
	Message string
	Err     *goerrors.Error
}

// Format renders a classified failure for the operator.
//
// VALIDATION surfaces as an operation error without an HTTP code, since
// it means the caller built a bad request. Every other category surfaces
// as an API error carrying the HTTP status when one is known.
func Format(c *ClassifiedError, op Operation) Formatted {
	if c == nil {
		c = &ClassifiedError{Category: CategoryUnknown}
	}
	msg := message(c)

	metadata := map[string]any{
		"category":  c.Category.String(),
		"operation": op.Name,
	}
	if op.Attempt > 0 {
		metadata["retry"] = fmt.Sprintf("Retry attempt %d/%d", op.Attempt, op.MaxAttempts)
	}
	if c.RetryAfter != nil {
		metadata["retry_after_seconds"] = *c.RetryAfter
	}
	if c.MigrateToChatID != nil {
		metadata["migrate_to_chat_id"] = *c.MigrateToChatID
	}

	var err *goerrors.Error
	if c.Category == CategoryValidation {
		err = envelope(c, goerrors.CategoryBadInput, msg).
			WithTextCode(TextCodeOperationError)
	} else {
		err = envelope(c, goerrors.CategoryExternal, msg).
			WithTextCode(TextCodeAPIError)
		if c.Status != nil {
			err = err.WithCode(*c.Status)
			metadata["http_status"] = strconv.Itoa(*c.Status)
		}
	}
	err.WithMetadata(metadata)

	return Formatted{Message: msg, Err: err}
}

func envelope(c *ClassifiedError, category goerrors.Category, msg string) *goerrors.Error {
	if source := c.Unwrap(); source != nil {
		return goerrors.Wrap(source, category, msg)
	}
	return goerrors.New(msg, category)
}

func message(c *ClassifiedError) string {
	var msg string
	switch c.Category {
	case CategoryAuthentication:
		msg = "Authorization failed - please check your credentials. " +
			"Re-issue the access token and validate it before retrying."
	case CategoryRateLimit:
		if c.RetryAfter != nil && *c.RetryAfter > 0 {
			msg = fmt.Sprintf("The service is receiving too many requests from you. "+
				"Please wait %d seconds before retrying.", *c.RetryAfter)
		} else {
			msg = "The service is receiving too many requests from you. Please wait before retrying."
		}
	case CategoryValidation:
		desc := c.Description
		if desc == "" {
			desc = "the request parameters were rejected"
		}
		msg = "Invalid request: " + desc
	case CategoryBusinessLogic:
		msg = businessMessage(c.Description)
	case CategoryNetwork:
		msg = "Could not reach the service. Please check your network connection and try again."
	default:
		msg = c.Description
		if msg == "" {
			msg = "An unknown error occurred"
		}
	}

	if c.MigrateToChatID != nil {
		msg = fmt.Sprintf("%s The chat was migrated to %d.", strings.TrimRight(msg, " "), *c.MigrateToChatID)
	}
	return msg
}

// businessMessage picks guidance from the remote description. The phrase
// match is best-effort; unmatched wording falls back to the description.
func businessMessage(desc string) string {
	lower := strings.ToLower(desc)
	switch {
	case strings.Contains(lower, "not found"):
		return "The requested resource was not found. Check that the chat or message ID is correct."
	case strings.Contains(lower, "blocked"):
		return "The bot was blocked by the user and cannot message them until it is unblocked."
	case strings.Contains(lower, "forbidden"):
		return "The bot does not have permission to perform this action in the chat."
	case desc != "":
		return desc
	}
	return "The request was rejected by the service."
}

package errors

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"strconv"
)

// errorView is the normalized shape of a failure, extracted once before
// any classification rule runs.
type errorView struct {
	status      *int
	code        string
	message     string
	description string
	retryAfter  *int
	migrateTo   *int64

	// network is set for Go errors that are known transport failures.
	network bool

	// nested is the view of response.data, built one level deep only.
	nested *errorView
}

func newView(raw any) *errorView {
	return buildView(raw, true)
}

func buildView(raw any, withNested bool) *errorView {
	v := &errorView{}
	switch r := raw.(type) {
	case nil:
	case string:
		v.message = r
	case map[string]any:
		v.fromMap(r, withNested)
	case error:
		v.fromError(r, withNested)
	default:
		v.message = fmtAny(r)
	}
	return v
}

func (v *errorView) fromMap(m map[string]any, withNested bool) {
	for _, key := range []string{"error_code", "status", "statusCode"} {
		if n, ok := intValue(m[key]); ok {
			v.status = &n
			break
		}
	}
	v.code, _ = m["code"].(string)
	v.message, _ = m["message"].(string)
	v.description, _ = m["description"].(string)

	params, _ := m["parameters"].(map[string]any)
	if n, ok := intValue(params["retry_after"]); ok {
		v.retryAfter = &n
	} else if n, ok := intValue(m["retry_after"]); ok {
		v.retryAfter = &n
	}
	if id, ok := int64Value(params["migrate_to_chat_id"]); ok {
		v.migrateTo = &id
	}

	if !withNested {
		return
	}
	resp, _ := m["response"].(map[string]any)
	if resp == nil {
		return
	}
	if data, ok := resp["data"].(map[string]any); ok {
		v.nested = buildView(data, false)
	} else {
		// Non-object bodies still carry the transport status.
		v.nested = &errorView{}
		if text, ok := resp["data"].(string); ok {
			v.nested.message = text
		}
	}
	if v.nested.status == nil {
		if n, ok := intValue(resp["status"]); ok {
			v.nested.status = &n
		}
	}
}

func (v *errorView) fromError(err error, withNested bool) {
	v.message = err.Error()

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode > 0 {
			status := httpErr.StatusCode
			v.status = &status
		}
		v.message = httpErr.Message
		v.description = httpErr.Description
		if httpErr.RetryAfter > 0 {
			ra := httpErr.RetryAfter
			v.retryAfter = &ra
		}
		return
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		v.fromMap(respErr.Body, withNested)
		if v.status == nil && respErr.StatusCode != 0 {
			status := respErr.StatusCode
			v.status = &status
		}
		return
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		v.code = transportErr.Code
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		v.network = true
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		v.network = true
	}
}

// text returns the description, falling back to the message.
func (v *errorView) text() string {
	if v.description != "" {
		return v.description
	}
	return v.message
}

func intValue(x any) (int, bool) {
	n, ok := int64Value(x)
	if !ok || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, false
	}
	return int(n), true
}

func int64Value(x any) (int64, bool) {
	switch n := x.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func fmtAny(x any) string {
	switch v := x.(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	data, err := json.Marshal(x)
	if err != nil {
		return ""
	}
	return string(data)
}

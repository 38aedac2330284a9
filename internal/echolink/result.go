package echolink

import "fmt"

// Result is the decoded JSON object returned by every client call.
//
// Validation failures, transport failures, server errors and timeouts are all
// reported through an "error" key rather than a Go error, so callers only
// need to check Failed.
type Result map[string]any

// errorResult builds a Result carrying only msg under "error".
func errorResult(msg string) Result {
	return Result{"error": msg}
}

// Failed reports whether the result carries an "error" key.
func (r Result) Failed() bool {
	_, ok := r["error"]
	return ok
}

// Err returns the "error" value as text, or "" when absent.
func (r Result) Err() string {
	v, ok := r["error"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Status returns the "status" field when it is a string.
func (r Result) Status() string {
	return r.String("status")
}

// String returns r[key] if it holds a string.
func (r Result) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Map returns r[key] as a nested Result, or nil.
func (r Result) Map(key string) Result {
	switch v := r[key].(type) {
	case map[string]any:
		return Result(v)
	case Result:
		return v
	}
	return nil
}

// failWith returns {"error": server error} when the server supplied one,
// falling back to msg.
func failWith(data Result, msg string) Result {
	if e, ok := data["error"]; ok && e != nil {
		return Result{"error": e}
	}
	return errorResult(msg)
}

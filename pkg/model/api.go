package model

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Result is the uniform outcome of one API call.
//
// OK is the only discriminant callers should branch on. When OK is true,
// Fields holds the parsed response body; when it is false, Error holds the
// server-supplied message or a transport failure description.
type Result struct {
	OK        bool
	Fields    map[string]any
	Error     string
	Status    int       // HTTP status, 0 when the request never completed
	Kind      ErrorKind // why the call failed; KindNone when OK
	RequestID string
}

// Success builds an OK result from a parsed body.
func Success(status int, fields map[string]any) Result {
	if fields == nil {
		fields = map[string]any{}
	}
	return Result{OK: true, Fields: fields, Status: status}
}

// Failure builds a failed result.
func Failure(kind ErrorKind, status int, message string) Result {
	return Result{Kind: kind, Status: status, Error: message}
}

// Field returns a top-level body field.
func (r Result) Field(key string) (any, bool) {
	if !r.OK {
		return nil, false
	}
	v, ok := r.Fields[key]
	return v, ok
}

// Data returns the "data" field of the body, or nil.
func (r Result) Data() any {
	v, _ := r.Field("data")
	return v
}

// String returns a string field, or "" when absent or not a string.
func (r Result) String(key string) string {
	v, _ := r.Field(key)
	s, _ := v.(string)
	return s
}

// Records returns a list field as records. Non-object elements are skipped.
func (r Result) Records(key string) []Record {
	v, _ := r.Field(key)
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	records := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, Record(m))
		}
	}
	return records
}

// Err returns nil for an OK result and an *APIError otherwise.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &APIError{Kind: r.Kind, Status: r.Status, Message: r.Error, RequestID: r.RequestID}
}

// MarshalJSON renders the result the way the API client contract describes
// it: {"ok":true, ...fields} or {"ok":false, "error":"..."}.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.OK {
		return json.Marshal(map[string]any{"ok": false, "error": r.Error})
	}
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["ok"] = true
	return json.Marshal(out)
}

// StatusText returns the reason phrase for an HTTP status code.
func StatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", code)
}

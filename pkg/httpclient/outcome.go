package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"
)

// Kind tells which of the three outcomes a request produced.
type Kind int

const (
	// OK means a response arrived (any status code).
	OK Kind = iota
	// NetworkFailure means no response: refused, DNS, TLS, cancelled.
	NetworkFailure
	// Timeout means the per-request deadline expired.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case NetworkFailure:
		return "network_failure"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Outcome is the result of one request. Response is set only when Kind is OK;
// Reason is set only when it is not.
type Outcome struct {
	Kind     Kind
	Response *Response
	Reason   string
	Elapsed  time.Duration
}

// OK reports whether a response arrived.
func (o Outcome) OK() bool {
	return o.Kind == OK && o.Response != nil
}

// Status returns the status code, or 0 when no response arrived.
func (o Outcome) Status() int {
	if !o.OK() {
		return 0
	}
	return o.Response.StatusCode
}

// StatusIn reports whether a response arrived with one of the given codes.
func (o Outcome) StatusIn(codes ...int) bool {
	return o.OK() && slices.Contains(codes, o.Response.StatusCode)
}

// Error describes a failed outcome for probe details, e.g. "Error: timeout (...)".
func (o Outcome) Error() string {
	switch o.Kind {
	case OK:
		return ""
	case Timeout:
		return fmt.Sprintf("timeout (%s)", o.Reason)
	default:
		return o.Reason
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Parse decodes the body as JSON when it is JSON.
func (r *Response) Parse() Parsed {
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return Parsed{raw: string(r.Body)}
	}
	return Parsed{value: v, raw: string(r.Body), isJSON: true}
}

// Parsed is either a decoded JSON value or the raw text of a non-JSON body.
// Field lookups on a non-JSON body report absence instead of failing.
type Parsed struct {
	value  any
	raw    string
	isJSON bool
}

// IsJSON reports whether the body decoded as JSON.
func (p Parsed) IsJSON() bool { return p.isJSON }

// Raw returns the original body text.
func (p Parsed) Raw() string { return p.raw }

// Value returns the decoded JSON value, nil for non-JSON bodies.
func (p Parsed) Value() any { return p.value }

// Field returns a top-level member of a JSON object.
func (p Parsed) Field(key string) (any, bool) {
	obj, ok := p.value.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the first of keys that holds a non-empty string.
func (p Parsed) String(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := p.Field(k)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// FieldIn looks key up at the top level and then inside each named
// container object, e.g. FieldIn("role_id", "data", "user").
func (p Parsed) FieldIn(key string, containers ...string) (any, bool) {
	if v, ok := p.Field(key); ok {
		return v, true
	}
	for _, c := range containers {
		inner, ok := p.Field(c)
		if !ok {
			continue
		}
		if obj, ok := inner.(map[string]any); ok {
			if v, ok := obj[key]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

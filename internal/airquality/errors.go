package airquality

import (
	"fmt"
	"net/url"
	"strings"
)

// ConfigError reports a missing or placeholder credential. It is never retried;
// the deployment configuration has to be fixed.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// Attempt records the outcome of one upstream request.
type Attempt struct {
	Strategy   string     `json:"strategy"`
	Endpoint   string     `json:"endpoint"`
	Params     url.Values `json:"params,omitempty"`
	StatusCode int        `json:"status,omitempty"`
	Err        string     `json:"error,omitempty"`
}

func (a Attempt) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", a.Strategy, a.Endpoint)
	if len(a.Params) > 0 {
		fmt.Fprintf(&b, "?%s", a.Params.Encode())
	}
	if a.StatusCode != 0 {
		fmt.Fprintf(&b, " status=%d", a.StatusCode)
	}
	if a.Err != "" {
		fmt.Fprintf(&b, " err=%s", a.Err)
	}
	return b.String()
}

// UpstreamError is returned when the upstream API could not produce a usable
// response. It carries enough detail to debug the failing request.
type UpstreamError struct {
	TraceID    string     `json:"traceId,omitempty"`
	StatusCode int        `json:"status,omitempty"`
	Message    string     `json:"message"`
	Params     url.Values `json:"params,omitempty"`
	Body       string     `json:"body,omitempty"`
	Attempts   []Attempt  `json:"attempts,omitempty"`
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("upstream error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Params) > 0 {
		fmt.Fprintf(&b, "; params: %s", e.Params.Encode())
	}
	if e.Body != "" {
		fmt.Fprintf(&b, "; response: %s", e.Body)
	}
	return b.String()
}

// Truncate shortens s to at most n bytes, for embedding response bodies in errors.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

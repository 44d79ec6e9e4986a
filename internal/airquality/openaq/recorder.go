package openaq

import (
	"errors"
	"log"
	"net/url"

	"github.com/i474232898/air-quality-monitor/internal/airquality"
)

// Recorder collects the diagnostics of every request made during one fetch.
type Recorder struct {
	traceID  string
	attempts []airquality.Attempt
	lastErr  *StatusError
}

// NewRecorder creates a Recorder for the fetch identified by traceID.
func NewRecorder(traceID string) *Recorder {
	return &Recorder{traceID: traceID}
}

// TraceID returns the fetch's trace id.
func (r *Recorder) TraceID() string {
	return r.traceID
}

// Record stores the outcome of one request. err is nil on HTTP 200.
func (r *Recorder) Record(strategy, endpoint string, params url.Values, err error) {
	a := airquality.Attempt{
		Strategy:   strategy,
		Endpoint:   endpoint,
		Params:     cloneValues(params),
		StatusCode: 200,
	}
	r.lastErr = nil
	if err != nil {
		a.StatusCode = 0
		a.Err = err.Error()
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			a.StatusCode = statusErr.StatusCode
			r.lastErr = statusErr
		}
	}
	r.attempts = append(r.attempts, a)
	log.Printf("DEBUG: openaq: [%s] %s", r.traceID, a)
}

// Attempts returns all recorded attempts in order.
func (r *Recorder) Attempts() []airquality.Attempt {
	return append([]airquality.Attempt(nil), r.attempts...)
}

// Last returns the most recent attempt and the status error it failed
// with, if any.
func (r *Recorder) Last() (airquality.Attempt, *StatusError, bool) {
	if len(r.attempts) == 0 {
		return airquality.Attempt{}, nil, false
	}
	return r.attempts[len(r.attempts)-1], r.lastErr, true
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

package openaq

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestUpstreamMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail list", `{"detail":[{"loc":["query","limit"],"msg":"value is not a valid integer"}]}`, "limit: value is not a valid integer"},
		{"detail string", `{"detail":"Not authorized"}`, "Not authorized"},
		{"message", `{"message":"Too many requests"}`, "Too many requests"},
		{"error", `{"error":"boom"}`, "boom"},
		{"not json", `<html>gateway</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := upstreamMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("upstreamMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusErrorUnwrap(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, errRateLimited},
		{http.StatusInternalServerError, errServerError},
		{http.StatusUnprocessableEntity, errUnexpected},
	}

	for _, tt := range tests {
		err := error(&StatusError{StatusCode: tt.status})
		if !errors.Is(err, tt.want) {
			t.Errorf("StatusError{%d} does not wrap %v", tt.status, tt.want)
		}
	}
}

func TestClientMeasurements_TruncatesErrorBody(t *testing.T) {
	long := strings.Repeat("x", 2000)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(long))
	})

	_, err := client.Measurements(context.Background(), nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Measurements() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", statusErr.StatusCode)
	}
	if len(statusErr.Body) > maxErrorBodyLen+3 {
		t.Errorf("Body length = %d, want <= %d", len(statusErr.Body), maxErrorBodyLen+3)
	}
}

func TestClientLocations(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/locations" {
			t.Errorf("path = %q, want /v3/locations", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, results(
			map[string]any{"id": 42, "name": "Tokyo Shinjuku", "locality": "Tokyo", "timezone": "Asia/Tokyo"},
		))
	})

	sites, err := client.Locations(context.Background(), nil)
	if err != nil {
		t.Fatalf("Locations() error = %v", err)
	}
	if len(sites) != 1 || sites[0].ID != 42 || sites[0].Locality != "Tokyo" {
		t.Errorf("Locations() = %+v", sites)
	}
}

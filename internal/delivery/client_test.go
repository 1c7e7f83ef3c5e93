package delivery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientDeliverSuccess(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotContentType, gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		gotUserAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(5 * time.Second)
	payload := []byte(`{"response_id":"r1","form_id":"f1"}`)

	result, err := client.Deliver(context.Background(), srv.URL, payload)
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if result.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", result.StatusCode)
	}
	if string(gotBody) != string(payload) {
		t.Fatalf("delivered body = %s, want %s", gotBody, payload)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type = %q, want application/json", gotContentType)
	}
	if gotUserAgent != UserAgent {
		t.Fatalf("user agent = %q, want %q", gotUserAgent, UserAgent)
	}
}

func TestHTTPClientDeliverNon2xx(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		wantTransient bool
	}{
		{name: "bad request is permanent", status: http.StatusBadRequest, body: "no thanks", wantTransient: false},
		{name: "too many requests is transient", status: http.StatusTooManyRequests, body: "slow down", wantTransient: true},
		{name: "server error is transient", status: http.StatusBadGateway, body: "upstream down", wantTransient: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewHTTPClient(5 * time.Second)
			_, err := client.Deliver(context.Background(), srv.URL, []byte(`{}`))
			if err == nil {
				t.Fatal("Deliver() should fail on non-2xx")
			}

			var deliveryErr *DeliveryError
			if !errors.As(err, &deliveryErr) {
				t.Fatalf("error type = %T, want *DeliveryError", err)
			}
			if deliveryErr.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", deliveryErr.StatusCode, tt.status)
			}
			if deliveryErr.Body != tt.body {
				t.Fatalf("body = %q, want %q", deliveryErr.Body, tt.body)
			}
			if IsTransient(err) != tt.wantTransient {
				t.Fatalf("IsTransient = %v, want %v", IsTransient(err), tt.wantTransient)
			}
		})
	}
}

func TestHTTPClientDeliverTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewHTTPClient(time.Second)
	_, err := client.Deliver(context.Background(), srv.URL, []byte(`{}`))
	if err == nil {
		t.Fatal("Deliver() should fail when the destination is unreachable")
	}

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("error type = %T, want *DeliveryError", err)
	}
	if deliveryErr.StatusCode != 0 {
		t.Fatalf("status = %d, want 0 for transport error", deliveryErr.StatusCode)
	}
	if !IsTransient(err) {
		t.Fatal("transport errors should be transient")
	}
}

func TestHTTPClientDeliverValidation(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient(time.Second)

	if _, err := client.Deliver(context.Background(), "  ", []byte(`{}`)); err == nil {
		t.Fatal("Deliver() with empty url should fail")
	}
	if _, err := client.Deliver(context.Background(), "http://example.com/hook", nil); err == nil {
		t.Fatal("Deliver() with empty payload should fail")
	}
}

func TestHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "plain", url: "https://hooks.example.com/a/b", want: "hooks.example.com"},
		{name: "with port", url: "http://localhost:9999/hook", want: "localhost"},
		{name: "uppercase", url: "https://Hooks.Example.COM/x", want: "hooks.example.com"},
		{name: "garbage", url: "not a url", want: "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Host(tt.url); got != tt.want {
				t.Fatalf("Host(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

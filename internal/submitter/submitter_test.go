package submitter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/farm-selector/internal/core/httpclient"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), httpclient.NewOutbound(time.Second), srv.URL, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSubmit_PostsBodyAndReturnsPayload(t *testing.T) {
	var got Request
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != LocationInputPath {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type=%q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"yield": 123}`))
	})

	data, err := c.Submit(context.Background(), 34.1, -118.4, 2)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if string(data) != `{"yield": 123}` {
		t.Fatalf("payload=%s", data)
	}
	if got != (Request{Latitude: 34.1, Longitude: -118.4, Area: 2}) {
		t.Fatalf("request=%+v", got)
	}
}

func TestSubmit_KeepsBackendCookies(t *testing.T) {
	calls := 0
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "s1", Path: "/"})
		} else if ck, err := r.Cookie("sessionid"); err != nil || ck.Value != "s1" {
			t.Errorf("cookie not sent on call %d: %v", calls, err)
		}
		_, _ = w.Write([]byte(`{}`))
	})

	for range 2 {
		if _, err := c.Submit(context.Background(), 1, 1, 2); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
}

func TestSubmit_NonSuccessStatus(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	_, err := c.Submit(context.Background(), 1, 1, 2)
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("err=%v want *SubmissionError", err)
	}
	if se.Status != http.StatusInternalServerError || se.Message == "" {
		t.Fatalf("unexpected error %+v", se)
	}
}

func TestSubmit_InvalidJSON(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	var se *SubmissionError
	if _, err := c.Submit(context.Background(), 1, 1, 2); !errors.As(err, &se) {
		t.Fatalf("err=%v want *SubmissionError", err)
	}
}

func TestSubmit_NetworkErrorAndCancel(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(nil, httpclient.NewOutbound(time.Second), url, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var se *SubmissionError
	if _, err := c.Submit(context.Background(), 1, 1, 2); !errors.As(err, &se) || se.Status != 0 {
		t.Fatalf("err=%v want network SubmissionError", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Submit(ctx, 1, 1, 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want wrapped context.Canceled", err)
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New(nil, nil, "ftp://example.com", 0); err == nil {
		t.Fatal("expected scheme error")
	}
	if _, err := New(nil, nil, "://bad", 0); err == nil {
		t.Fatal("expected parse error")
	}
}

// backendLatencySum reads the summed location-backend upstream latency from the default registry.
func backendLatencySum(t *testing.T) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "upstream_latency_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "upstream" && lp.GetValue() == "location-backend" {
					return m.GetHistogram().GetSampleSum()
				}
			}
		}
	}
	return 0
}

func TestSubmit_LatencyUsesClientClock(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	c.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 3 * time.Second)
	}

	before := backendLatencySum(t)
	if _, err := c.Submit(context.Background(), 1, 2, 2); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := backendLatencySum(t) - before; got != 3 {
		t.Fatalf("observed latency=%v want 3s from the injected clock", got)
	}
}

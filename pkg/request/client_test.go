package request

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"slowlooking/pkg/tracker"
)

func TestPostWithHeaders_Success(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("X-Api-Key = %q", got)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "SlowLooking/") {
			t.Errorf("User-Agent = %q", ua)
		}
		b, _ := io.ReadAll(r.Body)
		_, _ = w.Write(append([]byte("echo:"), b...))
	}))
	defer svr.Close()

	tr := tracker.New()
	client := New(tr, time.Second)

	body, err := client.PostWithHeaders(context.Background(), svr.URL, []byte("hi"), map[string]string{"x-api-key": "secret"})
	if err != nil {
		t.Fatalf("PostWithHeaders failed: %v", err)
	}
	if string(body) != "echo:hi" {
		t.Errorf("body = %q", body)
	}

	host := strings.TrimPrefix(svr.URL, "http://")
	if got := tr.Snapshot()[host].APISuccess; got != 1 {
		t.Errorf("APISuccess = %d, want 1", got)
	}
}

func TestPost_NoRetryOnServerError(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer svr.Close()

	tr := tracker.New()
	client := New(tr, time.Second)

	_, err := client.Post(context.Background(), svr.URL, []byte("{}"), "application/json")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsStatus(err, http.StatusTooManyRequests) {
		t.Errorf("error = %v, want status 429", err)
	}
	if !strings.Contains(err.Error(), "slow down") {
		t.Errorf("error body missing: %v", err)
	}
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}

	host := strings.TrimPrefix(svr.URL, "http://")
	if got := tr.Snapshot()[host].APIFailures; got != 1 {
		t.Errorf("APIFailures = %d, want 1", got)
	}
}

func TestPost_ContextCanceled(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer svr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(nil, time.Second)
	if _, err := client.Post(ctx, svr.URL, nil, "application/json"); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPost_InvalidURL(t *testing.T) {
	client := New(nil, 0)
	if _, err := client.Post(context.Background(), "://bad", nil, "text/plain"); err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestGetWithHeaders(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer svr.Close()

	body, err := New(nil, time.Second).GetWithHeaders(context.Background(), svr.URL, map[string]string{"Authorization": "Bearer k"})
	if err != nil {
		t.Fatalf("GetWithHeaders failed: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
}

func TestNormalizeProvider(t *testing.T) {
	hosts := map[string]string{
		"api.anthropic.com":                 "anthropic",
		"generativelanguage.googleapis.com": "gemini",
		"api.openai.com":                    "openai",
		"127.0.0.1:8080":                    "127.0.0.1:8080",
	}
	for host, want := range hosts {
		if got := normalizeProvider(host); got != want {
			t.Errorf("normalizeProvider(%q) = %q, want %q", host, got, want)
		}
	}
}

package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyeonwoo-dev/jipcheck/internal/retry"
	"github.com/hyeonwoo-dev/jipcheck/internal/worker"
)

func fastPolicy() *retry.Policy {
	return retry.NewPolicy(3, time.Millisecond, 2*time.Millisecond, 0)
}

func fastLimiter() *worker.Limiter {
	return worker.NewLimiter(1000, 100)
}

func TestHTTPEngine_ExtractPage(t *testing.T) {
	var got extractRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("Expected /extract path, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"등기사항전부증명서"}`))
	}))
	defer server.Close()

	engine := NewHTTPEngine("swift", server.URL, 5*time.Second, fastLimiter(), fastPolicy())

	text, err := engine.ExtractPage(context.Background(), PageRequest{
		CaseID:      "case-1",
		Page:        2,
		ContentType: "application/pdf",
		Payload:     []byte("raw-bytes"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if text != "등기사항전부증명서" {
		t.Errorf("Expected recognized text, got %q", text)
	}
	if got.CaseID != "case-1" || got.Page != 2 {
		t.Errorf("Expected case-1 page 2, got %s page %d", got.CaseID, got.Page)
	}
	if got.Payload != base64.StdEncoding.EncodeToString([]byte("raw-bytes")) {
		t.Errorf("Expected base64 payload, got %q", got.Payload)
	}
}

func TestHTTPEngine_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	}))
	defer server.Close()

	engine := NewHTTPEngine("swift", server.URL, 5*time.Second, fastLimiter(), fastPolicy())

	text, err := engine.ExtractPage(context.Background(), PageRequest{Page: 1})
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if text != "ok" {
		t.Errorf("Expected ok, got %q", text)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestHTTPEngine_ClientErrorDoesNotRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	engine := NewHTTPEngine("swift", server.URL, 5*time.Second, fastLimiter(), fastPolicy())

	if _, err := engine.ExtractPage(context.Background(), PageRequest{Page: 1}); err == nil {
		t.Fatal("Expected error for client error status")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected exactly 1 call for 400, got %d", calls)
	}
}

func TestHTTPEngine_ExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	engine := NewHTTPEngine("swift", server.URL, 5*time.Second, fastLimiter(), fastPolicy())

	if _, err := engine.ExtractPage(context.Background(), PageRequest{Page: 1}); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestHTTPEngine_MalformedResponseDoesNotRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	engine := NewHTTPEngine("swift", server.URL, 5*time.Second, fastLimiter(), fastPolicy())

	if _, err := engine.ExtractPage(context.Background(), PageRequest{Page: 1}); err == nil {
		t.Fatal("Expected error for malformed response")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

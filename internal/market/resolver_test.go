package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyeonwoo-dev/jipcheck/internal/cache"
	"github.com/hyeonwoo-dev/jipcheck/internal/retry"
)

func testPolicy() *retry.Policy {
	return retry.NewPolicy(3, time.Millisecond, time.Millisecond, 0)
}

func TestResolve_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/regions" {
			t.Errorf("Expected path /regions, got %s", r.URL.Path)
		}
		if kw := r.URL.Query().Get("keyword"); kw != "서울 종로구 청운동" {
			t.Errorf("Unexpected keyword: %q", kw)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"regions":[{"code":"1111010100","name":"서울특별시 종로구 청운동","school_district":0.3}]}`))
	}))
	defer server.Close()

	resolver := NewRegionResolver(server.URL, "", 5*time.Second, nil, 0, testPolicy(), nil, nil)
	region, err := resolver.Resolve(context.Background(), "서울 종로구 청운동")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if region.Code != "1111010100" {
		t.Errorf("Expected code 1111010100, got %s", region.Code)
	}
	if region.Location == nil || region.Location.SchoolDistrict == nil || *region.Location.SchoolDistrict != 0.3 {
		t.Errorf("Expected school district indicator, got %+v", region.Location)
	}
}

func TestResolve_NoMatchIsUnresolvedWithoutRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"regions":[]}`))
	}))
	defer server.Close()

	resolver := NewRegionResolver(server.URL, "", 5*time.Second, nil, 0, testPolicy(), nil, nil)
	_, err := resolver.Resolve(context.Background(), "없는 주소")
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("Expected ErrUnresolved, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("An empty match is definitive; expected 1 call, got %d", got)
	}
}

func TestResolve_ServerErrorRetriesThenUnresolved(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resolver := NewRegionResolver(server.URL, "", 5*time.Second, nil, 0, testPolicy(), nil, nil)
	_, err := resolver.Resolve(context.Background(), "서울 종로구")
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("Expected ErrUnresolved after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestResolve_SecondLookupServedFromCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"regions":[{"code":"1111010100","name":"종로구 청운동"}]}`))
	}))
	defer server.Close()

	mem := cache.NewMemory(time.Minute, time.Minute)
	resolver := NewRegionResolver(server.URL, "", 5*time.Second, mem, time.Minute, testPolicy(), nil, nil)

	for i := 0; i < 3; i++ {
		region, err := resolver.Resolve(context.Background(), "서울 종로구 청운동")
		if err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
		if region.Code != "1111010100" {
			t.Fatalf("Resolve %d: unexpected code %s", i, region.Code)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 network call with cache, got %d", got)
	}
}

func TestResolve_EmptyAddress(t *testing.T) {
	resolver := NewRegionResolver("http://unused", "", time.Second, nil, 0, testPolicy(), nil, nil)
	if _, err := resolver.Resolve(context.Background(), ""); !errors.Is(err, ErrUnresolved) {
		t.Errorf("Expected ErrUnresolved for empty address, got %v", err)
	}
}

package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyeonwoo-dev/jipcheck/internal/cache"
	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

const feedResponse = `<?xml version="1.0" encoding="UTF-8"?>
<response>
  <header><resultCode>00</resultCode><resultMsg>NORMAL SERVICE.</resultMsg></header>
  <body>
    <items>
      <item>
        <dealAmount>85,000</dealAmount>
        <dealYear>2026</dealYear><dealMonth>3</dealMonth><dealDay>12</dealDay>
        <excluUseAr>84.97</excluUseAr>
      </item>
      <item>
        <dealAmount>92,500</dealAmount>
        <dealYear>2026</dealYear><dealMonth>3</dealMonth><dealDay>20</dealDay>
      </item>
      <item>
        <dealAmount></dealAmount>
      </item>
    </items>
    <totalCount>3</totalCount>
  </body>
</response>`

func TestFetchWindow_ParsesFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("LAWD_CD"); got != "11110" {
			t.Errorf("Expected LAWD_CD 11110, got %s", got)
		}
		if got := r.URL.Query().Get("DEAL_YMD"); got != "202603" {
			t.Errorf("Expected DEAL_YMD 202603, got %s", got)
		}
		_, _ = w.Write([]byte(feedResponse))
	}))
	defer server.Close()

	client := NewTransactionClient(server.URL, "key", 5*time.Second, nil, 0, testPolicy(), nil, nil)
	transactions, err := client.FetchWindow(context.Background(), "11110", model.TransactionSale, "202603")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// The amount-less row is dropped; it cannot contribute to the mean.
	if len(transactions) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(transactions))
	}

	first := transactions[0]
	if first.Amount != 850_000_000 {
		t.Errorf("Expected 85,000 만원 = 850,000,000 KRW, got %d", first.Amount)
	}
	if first.ContractDate != "2026-03-12" {
		t.Errorf("Expected contract date 2026-03-12, got %s", first.ContractDate)
	}
	if first.AreaM2 == nil || *first.AreaM2 != 84.97 {
		t.Errorf("Expected area 84.97, got %v", first.AreaM2)
	}
	if first.YearMonth != "202603" {
		t.Errorf("Expected window 202603, got %s", first.YearMonth)
	}
}

func TestFetchWindow_LeaseUsesDepositColumn(t *testing.T) {
	body := `<response><header><resultCode>00</resultCode></header><body><items>
	  <item><deposit>40,000</deposit><monthlyRent>50</monthlyRent></item>
	</items></body></response>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewTransactionClient(server.URL, "", 5*time.Second, nil, 0, testPolicy(), nil, nil)
	transactions, err := client.FetchWindow(context.Background(), "11110", model.TransactionLease, "202603")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Amount != 400_000_000 {
		t.Errorf("Expected deposit 400,000,000, got %d", transactions[0].Amount)
	}
	if transactions[0].MonthlyRent == nil || *transactions[0].MonthlyRent != 500_000 {
		t.Errorf("Expected monthly rent 500,000, got %v", transactions[0].MonthlyRent)
	}
}

func TestFetchWindow_FeedErrorCodeDoesNotRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`<response><header><resultCode>30</resultCode><resultMsg>SERVICE KEY IS NOT REGISTERED</resultMsg></header></response>`))
	}))
	defer server.Close()

	client := NewTransactionClient(server.URL, "bad-key", 5*time.Second, nil, 0, testPolicy(), nil, nil)
	if _, err := client.FetchWindow(context.Background(), "11110", model.TransactionSale, "202603"); err == nil {
		t.Fatal("Expected an error for a rejected service key")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("A rejected key will not heal on retry; expected 1 call, got %d", got)
	}
}

func TestFetchWindow_ServerErrorRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`<response><header><resultCode>00</resultCode></header><body><items></items></body></response>`))
	}))
	defer server.Close()

	client := NewTransactionClient(server.URL, "", 5*time.Second, nil, 0, testPolicy(), nil, nil)
	transactions, err := client.FetchWindow(context.Background(), "11110", model.TransactionSale, "202603")
	if err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if len(transactions) != 0 {
		t.Errorf("Expected empty window, got %d transactions", len(transactions))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestFetchWindow_CachedWindowSkipsNetwork(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(feedResponse))
	}))
	defer server.Close()

	mem := cache.NewMemory(time.Minute, time.Minute)
	client := NewTransactionClient(server.URL, "", 5*time.Second, mem, time.Minute, testPolicy(), nil, nil)

	for i := 0; i < 2; i++ {
		if _, err := client.FetchWindow(context.Background(), "11110", model.TransactionSale, "202603"); err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 network call with cache, got %d", got)
	}
}

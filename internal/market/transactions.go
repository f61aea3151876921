package market

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyeonwoo-dev/jipcheck/internal/cache"
	"github.com/hyeonwoo-dev/jipcheck/internal/model"
	"github.com/hyeonwoo-dev/jipcheck/internal/retry"
	"github.com/hyeonwoo-dev/jipcheck/internal/worker"
)

const transactionService = "market.transactions"

// TransactionClient fetches one (region, month) window of comparable
// transactions from the government real-transaction feed. The feed speaks
// XML and reports amounts in 만원 with thousands separators.
type TransactionClient struct {
	serviceURL string
	serviceKey string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	policy     *retry.Policy
	limiter    *worker.Limiter
	logger     *zap.Logger
}

// NewTransactionClient creates a client for the feed at serviceURL.
func NewTransactionClient(serviceURL, serviceKey string, timeout time.Duration, c cache.Cache, cacheTTL time.Duration, policy *retry.Policy, limiter *worker.Limiter, logger *zap.Logger) *TransactionClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionClient{
		serviceURL: serviceURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		cacheTTL:   cacheTTL,
		policy:     policy,
		limiter:    limiter,
		logger:     logger,
	}
}

// SetProxy routes feed requests through the given proxy selector.
func (c *TransactionClient) SetProxy(proxy func(*http.Request) (*url.URL, error)) {
	c.httpClient.Transport = &http.Transport{Proxy: proxy}
}

// feedEnvelope mirrors the government feed's response shape.
type feedEnvelope struct {
	XMLName xml.Name `xml:"response"`
	Header  struct {
		ResultCode string `xml:"resultCode"`
		ResultMsg  string `xml:"resultMsg"`
	} `xml:"header"`
	Body struct {
		Items struct {
			Item []feedItem `xml:"item"`
		} `xml:"items"`
		TotalCount int `xml:"totalCount"`
	} `xml:"body"`
}

type feedItem struct {
	DealAmount  string `xml:"dealAmount"`  // sale price, 만원
	Deposit     string `xml:"deposit"`     // lease deposit, 만원
	MonthlyRent string `xml:"monthlyRent"` // 만원, empty or 0 for pure jeonse
	DealYear    int    `xml:"dealYear"`
	DealMonth   int    `xml:"dealMonth"`
	DealDay     int    `xml:"dealDay"`
	ExcluUseAr  string `xml:"excluUseAr"` // exclusive area, m2
}

// FetchWindow fetches all transactions of one kind for a (region, month)
// pair. Closed months are cached; the feed republishes them unchanged.
func (c *TransactionClient) FetchWindow(ctx context.Context, regionCode string, kind model.TransactionKind, yearMonth string) ([]model.Transaction, error) {
	key := cache.WindowKey(regionCode, string(kind), yearMonth)
	var cached []model.Transaction
	if cache.GetJSON(c.cache, key, &cached) {
		return cached, nil
	}

	var transactions []model.Transaction
	err := c.policy.Do(ctx, transactionService, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, transactionService); err != nil {
				return err
			}
		}
		got, err := c.fetchOnce(ctx, regionCode, kind, yearMonth)
		if err != nil {
			return err
		}
		transactions = got
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(c.cache, key, transactions, c.cacheTTL); err != nil {
		c.logger.Warn("window cache write failed", zap.Error(err))
	}
	return transactions, nil
}

func (c *TransactionClient) fetchOnce(ctx context.Context, regionCode string, kind model.TransactionKind, yearMonth string) ([]model.Transaction, error) {
	params := url.Values{}
	params.Set("LAWD_CD", regionCode)
	params.Set("DEAL_YMD", yearMonth)
	params.Set("dealKind", string(kind))
	if c.serviceKey != "" {
		params.Set("serviceKey", c.serviceKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serviceURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, retry.Stop(fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transaction request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Parsed below.
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("transaction feed: status %d", resp.StatusCode)
	default:
		return nil, retry.Stop(fmt.Errorf("transaction feed: status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var envelope feedEnvelope
	if err := xml.Unmarshal(data, &envelope); err != nil {
		return nil, retry.Stop(fmt.Errorf("decode response: %w", err))
	}
	if code := envelope.Header.ResultCode; code != "" && code != "00" && code != "000" {
		return nil, retry.Stop(fmt.Errorf("transaction feed: result %s %s", code, envelope.Header.ResultMsg))
	}

	transactions := make([]model.Transaction, 0, len(envelope.Body.Items.Item))
	for _, item := range envelope.Body.Items.Item {
		txn, ok := item.toTransaction(kind, yearMonth)
		if !ok {
			continue // a row without a readable amount is useless to the mean
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

// toTransaction converts one feed row. Amounts arrive in 만원.
func (item feedItem) toTransaction(kind model.TransactionKind, yearMonth string) (model.Transaction, bool) {
	raw := item.DealAmount
	if kind == model.TransactionLease {
		raw = item.Deposit
	}
	amount, ok := parseFeedAmount(raw)
	if !ok || amount < 0 {
		return model.Transaction{}, false
	}

	txn := model.Transaction{
		Kind:      kind,
		Amount:    amount,
		YearMonth: yearMonth,
	}
	if rent, ok := parseFeedAmount(item.MonthlyRent); ok && rent > 0 {
		txn.MonthlyRent = &rent
	}
	if area, err := strconv.ParseFloat(strings.TrimSpace(item.ExcluUseAr), 64); err == nil && area > 0 {
		txn.AreaM2 = &area
	}
	if item.DealYear > 0 && item.DealMonth >= 1 && item.DealMonth <= 12 && item.DealDay >= 1 {
		txn.ContractDate = fmt.Sprintf("%04d-%02d-%02d", item.DealYear, item.DealMonth, item.DealDay)
	}
	return txn, true
}

// parseFeedAmount converts a 만원 figure like "50,000" to KRW.
func parseFeedAmount(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n * 10_000, true
}

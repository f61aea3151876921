// Package market resolves a case address to an administrative region and
// aggregates recent comparable transactions into the statistics the risk
// formulas consume. Both clients are explicitly constructed and injected;
// nothing in this package holds ambient global state.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/hyeonwoo-dev/jipcheck/internal/cache"
	"github.com/hyeonwoo-dev/jipcheck/internal/model"
	"github.com/hyeonwoo-dev/jipcheck/internal/retry"
	"github.com/hyeonwoo-dev/jipcheck/internal/worker"
)

// ErrUnresolved means the lookup service had no region for the address after
// retries. The pipeline treats this as a degraded branch, never as fatal.
var ErrUnresolved = errors.New("region unresolved")

const resolverService = "market.region"

// RegionResolver maps a free-text address keyword to an administrative
// region code through the external registry-code lookup.
type RegionResolver struct {
	serviceURL string
	serviceKey string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	policy     *retry.Policy
	limiter    *worker.Limiter
	logger     *zap.Logger
}

// NewRegionResolver creates a resolver for the service at serviceURL.
// Resolved regions are cached; region codes change on the timescale of
// administrative reorganizations, not requests.
func NewRegionResolver(serviceURL, serviceKey string, timeout time.Duration, c cache.Cache, cacheTTL time.Duration, policy *retry.Policy, limiter *worker.Limiter, logger *zap.Logger) *RegionResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegionResolver{
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

// SetProxy routes lookup requests through the given proxy selector.
func (r *RegionResolver) SetProxy(proxy func(*http.Request) (*url.URL, error)) {
	r.httpClient.Transport = &http.Transport{Proxy: proxy}
}

type regionResponse struct {
	Regions []struct {
		Code           string   `json:"code"`
		Name           string   `json:"name"`
		SchoolDistrict *float64 `json:"school_district,omitempty"`
		Oversupply     *float64 `json:"oversupply,omitempty"`
		JobDemand      *float64 `json:"job_demand,omitempty"`
	} `json:"regions"`
}

// Resolve looks up the region for an address keyword. It returns
// ErrUnresolved when the service has no match or retries exhaust; any other
// error means the input itself was unusable.
func (r *RegionResolver) Resolve(ctx context.Context, address string) (model.Region, error) {
	if address == "" {
		return model.Region{}, ErrUnresolved
	}

	key := cache.RegionKey(address)
	var cached model.Region
	if cache.GetJSON(r.cache, key, &cached) && cached.Code != "" {
		return cached, nil
	}

	var region model.Region
	err := r.policy.Do(ctx, resolverService, func(ctx context.Context) error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx, resolverService); err != nil {
				return err
			}
		}
		got, err := r.lookupOnce(ctx, address)
		if err != nil {
			return err
		}
		region = got
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.Region{}, err
		}
		r.logger.Debug("region lookup failed", zap.String("address", address), zap.Error(err))
		return model.Region{}, fmt.Errorf("%w: %s", ErrUnresolved, address)
	}

	if err := cache.SetJSON(r.cache, key, region, r.cacheTTL); err != nil {
		r.logger.Warn("region cache write failed", zap.Error(err))
	}
	return region, nil
}

func (r *RegionResolver) lookupOnce(ctx context.Context, address string) (model.Region, error) {
	endpoint := fmt.Sprintf("%s/regions?keyword=%s", r.serviceURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Region{}, retry.Stop(fmt.Errorf("create request: %w", err))
	}
	if r.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.serviceKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return model.Region{}, fmt.Errorf("region request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Parsed below.
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return model.Region{}, fmt.Errorf("region service: status %d", resp.StatusCode)
	default:
		return model.Region{}, retry.Stop(fmt.Errorf("region service: status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.Region{}, fmt.Errorf("read response: %w", err)
	}

	var parsed regionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return model.Region{}, retry.Stop(fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Regions) == 0 || parsed.Regions[0].Code == "" {
		// An empty match list is a definitive answer, not a transient fault.
		return model.Region{}, retry.Stop(ErrUnresolved)
	}

	first := parsed.Regions[0]
	region := model.Region{Code: first.Code, Name: first.Name}
	if first.SchoolDistrict != nil || first.Oversupply != nil || first.JobDemand != nil {
		region.Location = &model.LocationProfile{
			SchoolDistrict: first.SchoolDistrict,
			Oversupply:     first.Oversupply,
			JobDemand:      first.JobDemand,
		}
	}
	return region, nil
}

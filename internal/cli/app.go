package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hyeonwoo-dev/jipcheck/internal/audit"
	"github.com/hyeonwoo-dev/jipcheck/internal/cache"
	"github.com/hyeonwoo-dev/jipcheck/internal/market"
	"github.com/hyeonwoo-dev/jipcheck/internal/model"
	"github.com/hyeonwoo-dev/jipcheck/internal/narrative"
	"github.com/hyeonwoo-dev/jipcheck/internal/ocr"
	"github.com/hyeonwoo-dev/jipcheck/internal/pipeline"
	"github.com/hyeonwoo-dev/jipcheck/internal/quality"
	"github.com/hyeonwoo-dev/jipcheck/internal/registry"
	"github.com/hyeonwoo-dev/jipcheck/internal/retry"
	"github.com/hyeonwoo-dev/jipcheck/internal/score"
	"github.com/hyeonwoo-dev/jipcheck/internal/store"
	"github.com/hyeonwoo-dev/jipcheck/internal/util"
	"github.com/hyeonwoo-dev/jipcheck/internal/worker"
)

// app is everything a command needs after wiring: the orchestrator with all
// collaborators attached, the store for direct reads, and an optional
// narrative generator.
type app struct {
	cfg          *model.Config
	logger       *zap.Logger
	store        *store.Store
	orchestrator *pipeline.Orchestrator
	narrator     narrative.Generator
}

// loadConfig layers the config file over the built-in defaults, then
// applies secret overrides from the environment.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if file := viper.ConfigFileUsed(); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Secrets belong in the environment, not the config file.
	if v := viper.GetString("market.service_key"); v != "" {
		cfg.Market.ServiceKey = v
	}
	if v := viper.GetString("ocr.engine_a_key"); v != "" {
		cfg.OCR.EngineAKey = v
	}
	if v := viper.GetString("ocr.engine_b_key"); v != "" {
		cfg.OCR.EngineBKey = v
	}
	if v := viper.GetString("store.sign_secret"); v != "" {
		cfg.Store.SignSecret = v
	}

	cfg.Output.Verbose = cfg.Output.Verbose || verbose
	return cfg, nil
}

// newLogger builds the process logger. Verbose mode switches to the
// human-readable development encoder at debug level.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		dev := zap.NewDevelopmentConfig()
		dev.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return dev.Build()
	}
	prod := zap.NewProductionConfig()
	prod.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return prod.Build()
}

// newApp wires the full analysis stack from configuration.
func newApp(cfg *model.Config) (*app, error) {
	logger, err := newLogger(cfg.Output.Verbose)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	st, err := store.Open(cfg.Store.Path, cfg.Store.SignSecret, cfg.Store.SignTTL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	dataCache := cache.FromConfig(cfg.Cache.Enabled, cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	policy := retry.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay, cfg.Retry.Jitter)

	limiter := worker.NewLimiter(cfg.Market.RatePerSec, cfg.Market.Burst)
	limiter.SetServiceRate("ocr."+cfg.OCR.EngineAName, cfg.OCR.RatePerSec, cfg.OCR.Burst)
	limiter.SetServiceRate("ocr."+cfg.OCR.EngineBName, cfg.OCR.RatePerSec, cfg.OCR.Burst)
	limiter.SetServiceRate("market.region", cfg.Market.RatePerSec, cfg.Market.Burst)
	limiter.SetServiceRate("market.transactions", cfg.Market.RatePerSec, cfg.Market.Burst)

	proxy := util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)

	engineA := ocr.NewHTTPEngine(cfg.OCR.EngineAName, cfg.OCR.EngineAURL, cfg.HTTP.Timeout, limiter, policy)
	engineA.SetAPIKey(cfg.OCR.EngineAKey)
	engineA.SetProxy(proxy)
	engineB := ocr.NewHTTPEngine(cfg.OCR.EngineBName, cfg.OCR.EngineBURL, cfg.HTTP.Timeout, limiter, policy)
	engineB.SetAPIKey(cfg.OCR.EngineBKey)
	engineB.SetProxy(proxy)

	sink := audit.NewLogSink(logger)

	resolver := market.NewRegionResolver(cfg.Market.RegionServiceURL, cfg.Market.ServiceKey,
		cfg.HTTP.Timeout, dataCache, cfg.Cache.DiskTTL, policy, limiter, logger)
	resolver.SetProxy(proxy)
	transactions := market.NewTransactionClient(cfg.Market.TransactionServiceURL, cfg.Market.ServiceKey,
		cfg.HTTP.Timeout, dataCache, cfg.Cache.DiskTTL, policy, limiter, logger)
	transactions.SetProxy(proxy)

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Cases:     st,
		Artifacts: st,
		Router:    quality.NewRouter(cfg.Quality.DirectThreshold),
		OCR:       ocr.NewRunner(engineA, engineB, sink, logger),
		Parser:    registry.NewParser(sink),
		Resolver:  resolver,
		Market:    market.NewAggregator(transactions, cfg.Market.RecoveryRate, sink, logger),
		Scorer:    score.NewScorer(),
		Saver:     st,
		Sink:      sink,
		Logger:    logger,
	})

	narrator, err := narrative.New(narrative.ConfigFromModel(cfg.Narrative))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("configure narrative generator: %w", err)
	}

	return &app{
		cfg:          cfg,
		logger:       logger,
		store:        st,
		orchestrator: orchestrator,
		narrator:     narrator,
	}, nil
}

// close releases the store and flushes the logger.
func (a *app) close() {
	_ = a.store.Close()
	_ = a.logger.Sync()
}

// narrativeAPIKeyFromEnv fills in the provider API key when the config
// leaves it empty.
func narrativeAPIKeyFromEnv(cfg *model.Config) error {
	if cfg.Narrative.Provider == "" || cfg.Narrative.APIKey != "" {
		return nil
	}
	switch cfg.Narrative.Provider {
	case "openai":
		cfg.Narrative.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.Narrative.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.Narrative.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.Narrative.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	}
	return nil
}

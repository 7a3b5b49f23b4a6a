package wallet

import (
	"context"
	"strings"

	"ledgerwallet/internal/money"

	"go.uber.org/zap"
)

// Service builds Wallets over a shared store, cache and event dispatcher.
type Service struct {
	store    LedgerStore
	cache    BalanceCache
	config   WalletConfig
	provider ConfigurationProvider
	events   *Dispatcher
	metrics  MetricsCollector
	logger   *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(metrics MetricsCollector) ServiceOption {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

func WithDispatcher(events *Dispatcher) ServiceOption {
	return func(s *Service) {
		if events != nil {
			s.events = events
		}
	}
}

func WithConfigurationProvider(provider ConfigurationProvider) ServiceOption {
	return func(s *Service) {
		if provider != nil {
			s.provider = provider
		}
	}
}

// NewService creates a new wallet service
func NewService(store LedgerStore, cache BalanceCache, config WalletConfig, opts ...ServiceOption) *Service {
	if store == nil {
		panic("store is required")
	}
	if cache == nil {
		panic("cache is required")
	}

	// 0 is a valid scale and a valid delay; only negative values fall back
	if config.DefaultDecimals < 0 {
		config.DefaultDecimals = DefaultDecimals
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	if config.Retry <= 0 {
		config.Retry = DefaultRetry
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = DefaultRetryDelay
	}

	s := &Service{
		store:   store,
		cache:   cache,
		config:  config,
		metrics: &NoopMetricsCollector{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = NewDispatcher(s.logger)
	}
	if s.provider == nil {
		s.provider = newAccountConfigurationProvider(store, config)
	}
	return s
}

// Events returns the dispatcher operations publish to.
func (s *Service) Events() *Dispatcher {
	return s.events
}

// Wallet resolves the configuration of accountID and returns its wallet. The
// configuration is a snapshot; build a new Wallet to pick up changes.
func (s *Service) Wallet(ctx context.Context, accountID string) (*Wallet, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, invalidArgument("account id is required")
	}

	cfg, err := s.provider.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if cfg.Decimals < 0 {
		return nil, invalidArgument("negative decimal places %d", cfg.Decimals)
	}
	if cfg.Currency == "" {
		cfg.Currency = s.config.DefaultCurrency
	}
	if cfg.MaximumCredit.IsNegative() {
		return nil, invalidArgument("negative maximum credit %s", cfg.MaximumCredit)
	}

	return &Wallet{
		svc:    s,
		config: cfg,
		math:   money.NewMath(cfg.Decimals),
		logger: s.logger.With(zap.String("account_id", accountID)),
	}, nil
}

package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledgerwallet/internal/money"
	"ledgerwallet/internal/repositories"
)

// ConfigurationProvider resolves the per-account wallet settings.
type ConfigurationProvider interface {
	Resolve(ctx context.Context, accountID string) (Configuration, error)
}

// accountConfigurationProvider reads the settings from the account row and
// falls back to the service defaults for NULL columns.
type accountConfigurationProvider struct {
	store    LedgerStore
	defaults WalletConfig
}

func newAccountConfigurationProvider(store LedgerStore, defaults WalletConfig) *accountConfigurationProvider {
	return &accountConfigurationProvider{store: store, defaults: defaults}
}

func (p *accountConfigurationProvider) Resolve(ctx context.Context, accountID string) (Configuration, error) {
	record, err := p.store.FindAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return Configuration{}, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		}
		return Configuration{}, fmt.Errorf("failed to resolve wallet configuration: %w", err)
	}

	cfg := Configuration{
		AccountID:     accountID,
		Decimals:      p.defaults.DefaultDecimals,
		Currency:      p.defaults.DefaultCurrency,
		MaximumCredit: p.defaults.DefaultMaximumCredit.Abs(),
	}
	if record.Decimals != nil {
		if *record.Decimals < 0 {
			return Configuration{}, invalidArgument("negative decimal places %d on account %s", *record.Decimals, accountID)
		}
		cfg.Decimals = *record.Decimals
	}
	if record.Currency != nil && strings.TrimSpace(*record.Currency) != "" {
		cfg.Currency = strings.ToUpper(strings.TrimSpace(*record.Currency))
	}
	if record.Credit.Valid {
		// stored as an integer at the account scale
		cfg.MaximumCredit = money.NewMath(cfg.Decimals).ToDecimal(record.Credit.Decimal).Abs()
	}

	return cfg, nil
}

// StaticConfigurationProvider returns the same settings for every account.
type StaticConfigurationProvider struct {
	Config Configuration
}

func (p StaticConfigurationProvider) Resolve(_ context.Context, accountID string) (Configuration, error) {
	cfg := p.Config
	cfg.AccountID = accountID
	return cfg, nil
}

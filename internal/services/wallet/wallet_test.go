package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerwallet/internal/models"
	"ledgerwallet/internal/repositories"
	"ledgerwallet/internal/repositories/cache"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Wallet(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.db.Create(&models.Account{
		ID:                  "eur-1",
		WalletDecimalPlaces: 2,
		WalletCurrency:      "eur",
		WalletCredit:        decimal.NewFromInt(500),
	}).Error)

	tests := []struct {
		name      string
		accountID string
		wantErr   error
		want      Configuration
	}{
		{
			name:      "resolves account columns",
			accountID: "eur-1",
			want: Configuration{
				AccountID:     "eur-1",
				Decimals:      2,
				Currency:      "EUR",
				MaximumCredit: decimal.NewFromInt(5),
			},
		},
		{name: "missing account id", accountID: "  ", wantErr: ErrInvalidArgument},
		{name: "unknown account", accountID: "nobody", wantErr: ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := env.svc.Wallet(ctx, tt.accountID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, w)
				return
			}
			require.NoError(t, err)
			cfg := w.Configuration()
			assert.Equal(t, tt.want.AccountID, cfg.AccountID)
			assert.Equal(t, tt.want.Decimals, cfg.Decimals)
			assert.Equal(t, tt.want.Currency, cfg.Currency)
			assert.True(t, tt.want.MaximumCredit.Equal(cfg.MaximumCredit), cfg.MaximumCredit.String())
			assert.Equal(t, 2, w.Math().Scale())
		})
	}
}

func TestService_StaticConfigurationProvider(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, WithConfigurationProvider(StaticConfigurationProvider{
		Config: Configuration{Decimals: 4, Currency: "GBP", MaximumCredit: decimal.NewFromInt(10)},
	}))
	env.createAccount(t, "acc-1", 0)

	w := env.wallet(t, "acc-1")
	assert.Equal(t, "acc-1", w.AccountID())
	assert.Equal(t, 4, w.Configuration().Decimals)

	op, err := w.Debit(ctx, amount("2.5"))
	require.NoError(t, err)
	assert.True(t, op.Transaction().Amount.Equal(decimal.NewFromInt(-25000)))
	assert.Equal(t, 4, op.Transaction().DecimalPlaces)
}

func TestWallet_BalanceLookup(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&models.Account{
		ID:                  "acc-1",
		WalletDecimalPlaces: 10,
		WalletCurrency:      "USD",
		WalletBalance:       decimal.NewFromInt(42).Shift(10),
	}).Error)

	t.Run("falls back to the persisted column and caches it", func(t *testing.T) {
		w := env.wallet(t, "acc-1")
		balance, err := w.Balance(ctx, true)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(42)), balance.String())

		cached, err := env.redis.Get(cache.BalanceKey("acc-1"))
		require.NoError(t, err)
		assert.Equal(t, "420000000000", cached)
	})

	t.Run("reads the cache", func(t *testing.T) {
		require.NoError(t, env.redis.Set(cache.BalanceKey("acc-1"), "70000000000"))
		w := env.wallet(t, "acc-1")
		raw, err := w.BalanceRaw(ctx, true)
		require.NoError(t, err)
		assert.True(t, raw.Equal(decimal.NewFromInt(70000000000)))
	})

	t.Run("uncached recomputes from the ledger", func(t *testing.T) {
		w := env.wallet(t, "acc-1")
		balance, err := w.Balance(ctx, false)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())

		persisted, _ := env.persisted(t, "acc-1")
		assert.True(t, persisted.IsZero())
		cached, err := env.redis.Get(cache.BalanceKey("acc-1"))
		require.NoError(t, err)
		assert.Equal(t, "0", cached)
	})

	t.Run("memo wins over the cache", func(t *testing.T) {
		w := env.wallet(t, "acc-1")
		_, err := w.Refresh(ctx)
		require.NoError(t, err)

		require.NoError(t, env.redis.Set(cache.BalanceKey("acc-1"), "990000000000"))
		balance, err := w.Balance(ctx, true)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})
}

func TestWallet_BalanceAsMoney(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createAccount(t, "acc-1", 0)
	w := env.wallet(t, "acc-1")

	_, err := w.Credit(ctx, amount("100.123456789"))
	require.NoError(t, err)

	m, err := w.BalanceAsMoney(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)
	assert.Equal(t, "USD 100.1234567890", m.String())
}

func TestWallet_HasBalanceFor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createAccount(t, "plain", 0)
	env.createAccount(t, "floor", 50)

	_, err := env.wallet(t, "plain").Credit(ctx, amount("100"))
	require.NoError(t, err)
	_, err = env.wallet(t, "floor").Credit(ctx, amount("100"))
	require.NoError(t, err)

	tests := []struct {
		name      string
		accountID string
		amount    string
		want      bool
	}{
		{name: "exact balance", accountID: "plain", amount: "100", want: true},
		{name: "above balance", accountID: "plain", amount: "100.0000000001", want: false},
		{name: "negative amount uses magnitude", accountID: "plain", amount: "-100", want: true},
		{name: "within credit floor", accountID: "floor", amount: "150", want: true},
		{name: "beyond credit floor", accountID: "floor", amount: "150.0000000001", want: false},
		{name: "zero amount", accountID: "plain", amount: "0", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.wallet(t, tt.accountID)
			assert.Equal(t, tt.want, w.HasBalanceFor(ctx, amount(tt.amount)))
		})
	}

	assert.Equal(t, int64(1), env.countEntries(t, "plain"))
	assert.Equal(t, int64(1), env.countEntries(t, "floor"))
}

func TestWallet_LedgerMatchesBalance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createAccount(t, "acc-1", 10)
	w := env.wallet(t, "acc-1")

	steps := []struct {
		direction Direction
		amount    string
	}{
		{Credit, "100"},
		{Debit, "30.5"},
		{Credit, "0.0000000001"},
		{Debit, "69.5000000001"},
		{Debit, "10"},
		{Credit, "25.25"},
		{Debit, "1000"},
	}

	for _, step := range steps {
		op := w.NewOperation().DontThrow()
		if step.direction == Credit {
			op.Credit(amount(step.amount))
		} else {
			op.Debit(amount(step.amount))
		}
		require.NoError(t, op.Dispatch(ctx))

		persisted, sum := env.persisted(t, "acc-1")
		assert.True(t, persisted.Equal(sum), "balance %s, ledger %s", persisted, sum)
	}

	balance, err := w.Balance(ctx, true)
	require.NoError(t, err)
	assert.True(t, balance.Equal(amount("15.25")), balance.String())
}

func TestWallet_Atomically(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createAccount(t, "acc-1", 0)
	w := env.wallet(t, "acc-1")

	appendEntry := func(ctx context.Context) error {
		return env.store.Append(ctx, &models.Transaction{
			AccountID:     "acc-1",
			Type:          models.TransactionTypeCredit,
			Amount:        decimal.NewFromInt(1),
			DecimalPlaces: 10,
		})
	}

	errWork := errors.New("work failed")
	tests := []struct {
		name    string
		result  any
		err     error
		wantErr error
	}{
		{name: "false rolls back", result: false, wantErr: ErrDatabaseTransactionFailed},
		{name: "empty slice rolls back", result: []string{}, wantErr: ErrDatabaseTransactionFailed},
		{name: "empty map rolls back", result: map[string]int{}, wantErr: ErrDatabaseTransactionFailed},
		{name: "error rolls back", result: true, err: errWork, wantErr: errWork},
		{name: "nil commits", result: nil},
		{name: "value commits", result: "done"},
	}

	committed := int64(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.Atomically(ctx, func(ctx context.Context) (any, error) {
				assert.True(t, env.store.InTransaction(ctx))
				require.NoError(t, appendEntry(ctx))
				return tt.result, tt.err
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.result, got)
				committed++
			}
			assert.Equal(t, committed, env.countEntries(t, "acc-1"))
		})
	}

	t.Run("reuses the outer transaction", func(t *testing.T) {
		before := env.countEntries(t, "acc-1")
		_, err := w.Atomically(ctx, func(ctx context.Context) (any, error) {
			inner, err := w.Atomically(ctx, func(ctx context.Context) (any, error) {
				return false, appendEntry(ctx)
			})
			require.NoError(t, err)
			assert.Equal(t, false, inner)
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, before+1, env.countEntries(t, "acc-1"))
	})

	t.Run("waits for the lock and times out", func(t *testing.T) {
		require.NoError(t, env.redis.Set(cache.LockKey("acc-1"), "another-owner"))
		defer env.redis.Del(cache.LockKey("acc-1"))

		_, err := w.Atomically(ctx, func(context.Context) (any, error) {
			return true, nil
		})
		assert.ErrorIs(t, err, cache.ErrLockTimeout)
	})
}

func TestIsEmptyResult(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   bool
	}{
		{name: "false", result: false, want: true},
		{name: "true", result: true},
		{name: "nil", result: nil},
		{name: "empty slice", result: []int{}, want: true},
		{name: "nil slice", result: []int(nil), want: true},
		{name: "slice", result: []int{1}},
		{name: "empty map", result: map[string]any{}, want: true},
		{name: "zero int", result: 0},
		{name: "empty string", result: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isEmptyResult(tt.result))
		})
	}
}

func TestNewService_Defaults(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		config    WalletConfig
		wantScale int
		wantDelay time.Duration
	}{
		{name: "zero scale and delay are kept", config: WalletConfig{}, wantScale: 0, wantDelay: 0},
		{name: "negative values fall back", config: WalletConfig{DefaultDecimals: -1, RetryDelay: -time.Second}, wantScale: DefaultDecimals, wantDelay: DefaultRetryDelay},
		{name: "explicit values", config: WalletConfig{DefaultDecimals: 4, RetryDelay: time.Millisecond}, wantScale: 4, wantDelay: time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(env.store, env.cache, tt.config)
			assert.Equal(t, tt.wantScale, svc.config.DefaultDecimals)
			assert.Equal(t, tt.wantDelay, svc.config.RetryDelay)
			assert.Equal(t, DefaultCurrency, svc.config.DefaultCurrency)
			assert.Equal(t, DefaultRetry, svc.config.Retry)
		})
	}
}

func TestService_ZeroScaleForAccountsWithoutDecimals(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.db.Exec(`CREATE TABLE legacy_accounts (uid TEXT PRIMARY KEY, bal NUMERIC, places INTEGER, cur TEXT, floor NUMERIC)`).Error)
	require.NoError(t, env.db.Exec(`INSERT INTO legacy_accounts (uid) VALUES ('points-1')`).Error)

	store := repositories.NewLedgerStore(env.db, repositories.LedgerStoreConfig{
		AccountsTable: "legacy_accounts",
		Columns: repositories.Columns{
			Key:      "uid",
			Balance:  "bal",
			Decimals: "places",
			Currency: "cur",
			Credit:   "floor",
		},
	})
	svc := NewService(store, env.cache, WalletConfig{DefaultDecimals: 0, DefaultCurrency: "PTS"})

	w, err := svc.Wallet(ctx, "points-1")
	require.NoError(t, err)
	assert.Equal(t, 0, w.Configuration().Decimals)
	assert.Equal(t, "PTS", w.Configuration().Currency)

	op, err := w.Credit(ctx, amount("5.5"))
	require.NoError(t, err)
	assert.True(t, op.Transaction().Amount.Equal(decimal.NewFromInt(6)), op.Transaction().Amount.String())
	assert.Equal(t, 0, op.Transaction().DecimalPlaces)

	balance, err := w.Balance(ctx, false)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(6)), balance.String())
}

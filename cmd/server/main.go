// Package main is the entry point for the wallet service.
// It loads configuration, wires storage, cache and the wallet engine,
// and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ledgerwallet/internal/config"
	"ledgerwallet/internal/models"
	"ledgerwallet/internal/money"
	"ledgerwallet/internal/observability"
	"ledgerwallet/internal/repositories"
	"ledgerwallet/internal/repositories/cache"
	"ledgerwallet/internal/routes"
	"ledgerwallet/internal/services/notification"
	"ledgerwallet/internal/services/wallet"
	"ledgerwallet/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagDatabaseURL = "database-url"
	flagListenAddr  = "listen-addr"
	flagRedisAddr   = "redis-addr"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "walletd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:           "walletd",
		Short:         "Ledger backed wallet service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			loaded, err := config.Load(v)
			if err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(flagDatabaseURL, config.DefaultDatabaseURL, "postgres:// or sqlite:// database URL")
	flags.String(flagListenAddr, config.DefaultListenAddr, "HTTP listen address")
	flags.String(flagRedisAddr, "localhost:6379", "Redis address")
	_ = v.BindPFlag(config.KeyDatabaseURL, flags.Lookup(flagDatabaseURL))
	_ = v.BindPFlag(config.KeyHTTPListenAddr, flags.Lookup(flagListenAddr))
	_ = v.BindPFlag(config.KeyRedisAddr, flags.Lookup(flagRedisAddr))

	cmd.AddCommand(newMigrateCommand(cfg), newTokenCommand(cfg), newSeedCommand(cfg))
	return cmd
}

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the accounts and transactions tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, _, err := repositories.OpenDatabase(cmd.Context(), dbConfig(cfg))
			if err != nil {
				return fmt.Errorf("database open: %w", err)
			}
			defer cleanup()
			return repositories.AutoMigrate(db)
		},
	}
}

func newTokenCommand(cfg *config.Config) *cobra.Command {
	var (
		subject  string
		scopes   []string
		accounts []string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := utils.GenerateToken(cfg.HTTP.JWTSecret, subject, scopes, accounts, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	cmd.Flags().StringSliceVar(&scopes, "scope", models.DefaultScopes("service"), "granted scopes")
	cmd.Flags().StringSliceVar(&accounts, "account", nil, "restrict the token to these accounts")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newSeedCommand(cfg *config.Config) *cobra.Command {
	var (
		currency string
		decimals int
		credit   string
	)
	cmd := &cobra.Command{
		Use:   "seed-account <id>",
		Short: "Create an account with wallet columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("decimals") {
				decimals = cfg.Wallet.DecimalPlaces
			}
			if !cmd.Flags().Changed("currency") {
				currency = cfg.Wallet.Currency
			}
			account, err := newSeedAccount(args[0], decimals, currency, credit)
			if err != nil {
				return err
			}

			db, cleanup, _, err := repositories.OpenDatabase(cmd.Context(), dbConfig(cfg))
			if err != nil {
				return fmt.Errorf("database open: %w", err)
			}
			defer cleanup()

			if err := db.WithContext(cmd.Context()).Create(account).Error; err != nil {
				return fmt.Errorf("create account: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %s created\n", account.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "currency code (defaults to WALLET_CURRENCY)")
	cmd.Flags().IntVar(&decimals, "decimals", 0, "decimal places (defaults to WALLET_DECIMAL_PLACES)")
	cmd.Flags().StringVar(&credit, "credit", "0", "maximum credit in major units")
	return cmd
}

// newSeedAccount builds the account row; credit is given in major units and
// stored scaled like the balance.
func newSeedAccount(id string, decimals int, currency, credit string) (*models.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("account id is required")
	}
	if decimals < 0 {
		return nil, fmt.Errorf("invalid decimals %d", decimals)
	}
	maximumCredit, err := decimal.NewFromString(credit)
	if err != nil {
		return nil, fmt.Errorf("invalid credit %q: %w", credit, err)
	}
	return &models.Account{
		ID:                  id,
		WalletDecimalPlaces: decimals,
		WalletCurrency:      strings.ToUpper(strings.TrimSpace(currency)),
		WalletCredit:        money.NewMath(decimals).ToInteger(maximumCredit.Abs()),
	}, nil
}

func dbConfig(cfg *config.Config) repositories.DBConfig {
	return repositories.DBConfig{
		URL:             cfg.Database.URL,
		SQLDriver:       cfg.Database.Driver,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	log, err := observability.NewLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, cleanup, driver, err := repositories.OpenDatabase(ctx, dbConfig(cfg))
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}()
	if err := repositories.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("database ready", zap.String("driver", driver))

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cacheService := cache.NewCacheService(redisClient, cache.Options{
		BalanceTTL: cfg.Wallet.BalanceTTL,
		LockTTL:    cfg.Wallet.LockTTL,
		LockWait:   cfg.Wallet.LockWait,
	})
	defer func() {
		if err := cacheService.Close(); err != nil {
			log.Warn("failed to close redis", zap.Error(err))
		}
	}()
	if err := cacheService.HealthCheck(ctx); err != nil {
		return err
	}

	store := repositories.NewLedgerStore(db, repositories.LedgerStoreConfig{
		AccountsTable: cfg.Wallet.AccountsTable,
		Columns: repositories.Columns{
			Key:      cfg.Wallet.Columns.Key,
			Balance:  cfg.Wallet.Columns.Balance,
			Decimals: cfg.Wallet.Columns.Decimals,
			Currency: cfg.Wallet.Columns.Currency,
			Credit:   cfg.Wallet.Columns.Credit,
		},
	})

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	events := wallet.NewDispatcher(log)
	events.Subscribe(notification.NewService(log))

	wallets := wallet.NewService(store, cacheService, wallet.WalletConfig{
		DefaultDecimals: cfg.Wallet.DecimalPlaces,
		DefaultCurrency: cfg.Wallet.Currency,
		Retry:           cfg.Wallet.Retry,
		RetryDelay:      cfg.Wallet.RetryDelay,
	},
		wallet.WithLogger(log),
		wallet.WithMetrics(metrics),
		wallet.WithDispatcher(events),
	)

	app := fiber.New(fiber.Config{
		AppName:               "walletd",
		DisableStartupMessage: cfg.IsProduction(),
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Wallets:   wallets,
		Store:     store,
		Cache:     cacheService,
		Metrics:   metrics,
		Gatherer:  prometheus.DefaultGatherer,
		JWTSecret: cfg.HTTP.JWTSecret,
		Logger:    log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("listen_addr", cfg.HTTP.ListenAddr))
		errCh <- app.Listen(cfg.HTTP.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

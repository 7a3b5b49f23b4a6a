// Package config loads the runtime configuration from the environment, an
// optional .env file and command line flags.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration keys. Each key is read from the upper-cased environment
// variable of the same name, e.g. database_url from DATABASE_URL.
const (
	KeyEnv             = "env"
	KeyHTTPListenAddr  = "http_listen_addr"
	KeyJWTSecret       = "jwt_secret"
	KeyDatabaseURL     = "database_url"
	KeyDatabaseDriver  = "database_driver"
	KeyDBMaxIdleConns  = "db_max_idle_conns"
	KeyDBMaxOpenConns  = "db_max_open_conns"
	KeyDBConnLifetime  = "db_conn_max_lifetime"
	KeyRedisAddr       = "redis_addr"
	KeyRedisPassword   = "redis_password"
	KeyRedisDB         = "redis_db"
	KeyDecimalPlaces   = "wallet_decimal_places"
	KeyCurrency        = "wallet_currency"
	KeyAccountsTable   = "wallet_accounts_table"
	KeyColumnKey       = "wallet_column_key"
	KeyColumnBalance   = "wallet_column_balance"
	KeyColumnDecimals  = "wallet_column_decimals"
	KeyColumnCurrency  = "wallet_column_currency"
	KeyColumnCredit    = "wallet_column_credit"
	KeyLockTTL         = "wallet_lock_ttl"
	KeyLockWait        = "wallet_lock_wait"
	KeyBalanceTTL      = "wallet_balance_ttl"
	KeyRetry           = "wallet_retry"
	KeyRetryDelay      = "wallet_retry_delay"
	DefaultDatabaseURL = "sqlite:///tmp/wallet.db"
	DefaultListenAddr  = ":3000"
	EnvFileVar         = "ENV_FILE"
	DefaultEnvFile     = ".env"
)

type Config struct {
	Env      string
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Wallet   WalletConfig
}

type HTTPConfig struct {
	ListenAddr string
	JWTSecret  string
}

type DatabaseConfig struct {
	URL string
	// Driver selects the postgres driver: "pgx" (default) or "pq".
	Driver          string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type WalletConfig struct {
	DecimalPlaces int
	Currency      string
	AccountsTable string
	Columns       ColumnConfig
	LockTTL       time.Duration
	LockWait      time.Duration
	BalanceTTL    time.Duration
	Retry         int
	RetryDelay    time.Duration
}

type ColumnConfig struct {
	Key      string
	Balance  string
	Decimals string
	Currency string
	Credit   string
}

// LoadEnv loads variables from the file named by ENV_FILE (default .env) if
// present.
func LoadEnv() {
	path := GetEnv(EnvFileVar, DefaultEnvFile)
	if err := godotenv.Load(path); err != nil {
		log.Printf("no %s file found: %v", path, err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyEnv, "development")
	v.SetDefault(KeyHTTPListenAddr, DefaultListenAddr)
	v.SetDefault(KeyDatabaseURL, DefaultDatabaseURL)
	v.SetDefault(KeyDatabaseDriver, "pgx")
	v.SetDefault(KeyDBMaxIdleConns, 10)
	v.SetDefault(KeyDBMaxOpenConns, 100)
	v.SetDefault(KeyDBConnLifetime, time.Hour)
	v.SetDefault(KeyRedisAddr, "localhost:6379")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyDecimalPlaces, 10)
	v.SetDefault(KeyCurrency, "USD")
	v.SetDefault(KeyAccountsTable, "accounts")
	v.SetDefault(KeyColumnKey, "id")
	v.SetDefault(KeyColumnBalance, "wallet_balance")
	v.SetDefault(KeyColumnDecimals, "wallet_decimal_places")
	v.SetDefault(KeyColumnCurrency, "wallet_currency")
	v.SetDefault(KeyColumnCredit, "wallet_credit")
	v.SetDefault(KeyLockTTL, 30*time.Second)
	v.SetDefault(KeyLockWait, time.Second)
	v.SetDefault(KeyBalanceTTL, 7*24*time.Hour)
	v.SetDefault(KeyRetry, 1)
	v.SetDefault(KeyRetryDelay, time.Second)
}

// Load reads the configuration from v, which may already have flags bound.
// Environment variables override defaults; bound flags that were set
// override both.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Env: v.GetString(KeyEnv),
		HTTP: HTTPConfig{
			ListenAddr: v.GetString(KeyHTTPListenAddr),
			JWTSecret:  v.GetString(KeyJWTSecret),
		},
		Database: DatabaseConfig{
			URL:             v.GetString(KeyDatabaseURL),
			Driver:          v.GetString(KeyDatabaseDriver),
			MaxIdleConns:    v.GetInt(KeyDBMaxIdleConns),
			MaxOpenConns:    v.GetInt(KeyDBMaxOpenConns),
			ConnMaxLifetime: v.GetDuration(KeyDBConnLifetime),
		},
		Redis: RedisConfig{
			Addr:     v.GetString(KeyRedisAddr),
			Password: v.GetString(KeyRedisPassword),
			DB:       v.GetInt(KeyRedisDB),
		},
		Wallet: WalletConfig{
			DecimalPlaces: v.GetInt(KeyDecimalPlaces),
			Currency:      strings.ToUpper(v.GetString(KeyCurrency)),
			AccountsTable: v.GetString(KeyAccountsTable),
			Columns: ColumnConfig{
				Key:      v.GetString(KeyColumnKey),
				Balance:  v.GetString(KeyColumnBalance),
				Decimals: v.GetString(KeyColumnDecimals),
				Currency: v.GetString(KeyColumnCurrency),
				Credit:   v.GetString(KeyColumnCredit),
			},
			LockTTL:    v.GetDuration(KeyLockTTL),
			LockWait:   v.GetDuration(KeyLockWait),
			BalanceTTL: v.GetDuration(KeyBalanceTTL),
			Retry:      v.GetInt(KeyRetry),
			RetryDelay: v.GetDuration(KeyRetryDelay),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.HTTP.ListenAddr == "" {
		return fmt.Errorf("http listen addr is required")
	}
	if c.IsProduction() && c.HTTP.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Wallet.DecimalPlaces < 0 {
		return fmt.Errorf("wallet decimal places must not be negative, got %d", c.Wallet.DecimalPlaces)
	}
	if c.Wallet.LockTTL <= 0 || c.Wallet.LockWait <= 0 {
		return fmt.Errorf("wallet lock ttl and wait must be positive")
	}
	switch c.Database.Driver {
	case "pgx", "pq":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// IsProduction checks if the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

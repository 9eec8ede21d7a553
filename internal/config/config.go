package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	Payment    PaymentConfig    `yaml:"payment"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	API        APIConfig        `yaml:"api"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	AMQP       AMQPConfig       `yaml:"amqp"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// BackendConfig points at the REST services of the marketplace.
type BackendConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	PageSize int           `yaml:"page_size"`
}

type BlockchainConfig struct {
	RPCURL        string        `yaml:"rpc_url"`
	ChainID       string        `yaml:"chain_id"`
	ChainName     string        `yaml:"chain_name"`
	CurrencyName  string        `yaml:"currency_name"`
	Symbol        string        `yaml:"symbol"`
	ExplorerURL   string        `yaml:"explorer_url"`
	EscrowAddress string        `yaml:"escrow_address"`
	WatchInterval time.Duration `yaml:"watch_interval"`
}

type PaymentConfig struct {
	EthPriceEUR     float64       `yaml:"eth_price_eur"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollAttempts int           `yaml:"max_poll_attempts"`
	CloseDelay      time.Duration `yaml:"close_delay"`
	CancelReason    string        `yaml:"cancel_reason"`
}

type RedisConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	KeyPrefix  string `yaml:"key_prefix"`
	CacheReads bool   `yaml:"cache_reads"`
}

type DatabaseConfig struct {
	Path   string       `yaml:"path"`
	Backup BackupConfig `yaml:"backup"`
}

// BackupConfig schedules snapshots of the action journal.
type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	StoragePath   string        `yaml:"storage_path"`
	RetentionDays int           `yaml:"retention_days"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	BookingSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
	BookingSheetName     string `yaml:"bookings_sheet_name"`
}

type AMQPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; values already in the environment win.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend base_url %q is not an absolute url", c.Backend.BaseURL)
	}

	if !strings.HasPrefix(c.Blockchain.ChainID, "0x") {
		return fmt.Errorf("blockchain chain_id %q must be hex encoded", c.Blockchain.ChainID)
	}
	if c.Blockchain.EscrowAddress != "" && !common.IsHexAddress(c.Blockchain.EscrowAddress) {
		return fmt.Errorf("blockchain escrow_address %q is not a valid address", c.Blockchain.EscrowAddress)
	}

	if c.Payment.EthPriceEUR <= 0 {
		return errors.New("payment eth_price_eur must be positive")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		return errors.New("telegram bot token and chat id are required when telegram is enabled")
	}

	if c.AMQP.Enabled && c.AMQP.URL == "" {
		return errors.New("amqp url is required when amqp is enabled")
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

// ValidateAPIKeys rejects empty and duplicate keys.
func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "rentdapp"
	}

	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:8080/api"
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 15 * time.Second
	}
	if c.Backend.CacheTTL == 0 {
		c.Backend.CacheTTL = 30 * time.Second
	}
	if c.Backend.PageSize == 0 {
		c.Backend.PageSize = 50
	}

	if c.Blockchain.RPCURL == "" {
		c.Blockchain.RPCURL = "http://localhost:7545"
	}
	if c.Blockchain.ChainID == "" {
		c.Blockchain.ChainID = "0x539"
	}
	if c.Blockchain.ChainName == "" {
		c.Blockchain.ChainName = "Ganache Local"
	}
	if c.Blockchain.CurrencyName == "" {
		c.Blockchain.CurrencyName = "Ether"
	}
	if c.Blockchain.Symbol == "" {
		c.Blockchain.Symbol = "ETH"
	}
	if c.Blockchain.WatchInterval == 0 {
		c.Blockchain.WatchInterval = 2 * time.Second
	}

	if c.Payment.EthPriceEUR == 0 {
		c.Payment.EthPriceEUR = 2000
	}
	if c.Payment.PollInterval == 0 {
		c.Payment.PollInterval = 3 * time.Second
	}
	if c.Payment.MaxPollAttempts == 0 {
		c.Payment.MaxPollAttempts = 20
	}
	if c.Payment.CloseDelay == 0 {
		c.Payment.CloseDelay = 2 * time.Second
	}
	if c.Payment.CancelReason == "" {
		c.Payment.CancelReason = "Payment cancelled by user"
	}

	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "rentdapp:"
	}

	if c.Database.Path == "" {
		c.Database.Path = "data/rentdapp.db"
	}
	if c.Database.Backup.Interval == 0 {
		c.Database.Backup.Interval = 24 * time.Hour
	}
	if c.Database.Backup.StoragePath == "" {
		c.Database.Backup.StoragePath = "data/backups"
	}

	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8091
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if len(c.API.CORS.AllowedOrigins) == 0 {
		c.API.CORS.AllowedOrigins = []string{"http://localhost:4200"}
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Google.BookingSheetName == "" {
		c.Google.BookingSheetName = "Bookings"
	}
	if c.AMQP.Exchange == "" {
		c.AMQP.Exchange = "rentdapp.events"
	}
}

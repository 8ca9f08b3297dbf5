package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/xssnick/tonutils-go/tlb"
)

const (
	TestnetConfigURL = "https://ton.org/testnet-global.config.json"
	MainnetConfigURL = "https://ton.org/global.config.json"
)

// RoyaltyBase is the denominator of COLLECTION_ROYALTY_PERCENT.
const RoyaltyBase = 100

// TON is an amount of toncoin read from a decimal string such as "0.05".
type TON struct {
	tlb.Coins
}

// Decode implements envconfig.Decoder.
func (t *TON) Decode(value string) error {
	c, err := tlb.FromTON(value)
	if err != nil {
		return fmt.Errorf("parse TON amount %q: %w", value, err)
	}
	t.Coins = c
	return nil
}

// Collection is the metadata and royalty of the collection being deployed.
type Collection struct {
	Name           string `envconfig:"COLLECTION_NAME" required:"true"`
	Description    string `envconfig:"COLLECTION_DESCRIPTION" required:"true"`
	Image          string `envconfig:"COLLECTION_IMAGE" required:"true"`
	RoyaltyPercent uint16 `envconfig:"COLLECTION_ROYALTY_PERCENT" required:"true"`
}

// Network selects the TON network, the wallet and the amounts attached to
// outgoing messages.
type Network struct {
	Name           string `envconfig:"TON_NETWORK" default:"testnet"`
	ConfigURL      string `envconfig:"TON_CONFIG_URL"`
	WalletMnemonic string `envconfig:"WALLET_MNEMONIC"`
	WalletVersion  string `envconfig:"WALLET_VERSION" default:"v4r2"`
	BuildDir       string `envconfig:"BUILD_DIR" default:"build"`

	DeployValue TON `envconfig:"DEPLOY_VALUE" default:"0.05"`
	MintValue   TON `envconfig:"MINT_VALUE" default:"0.04"`
	MintAmount  TON `envconfig:"MINT_AMOUNT" default:"0.014"`

	DeployWaitInterval time.Duration `envconfig:"DEPLOY_WAIT_INTERVAL" default:"2s"`
	DeployWaitAttempts int           `envconfig:"DEPLOY_WAIT_ATTEMPTS" default:"30"`

	BreakerMaxFailures  int           `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerResetTimeout time.Duration `envconfig:"BREAKER_RESET_TIMEOUT" default:"30s"`
}

// GlobalConfigURL returns TON_CONFIG_URL or the public config of the network.
func (n Network) GlobalConfigURL() string {
	if n.ConfigURL != "" {
		return n.ConfigURL
	}
	if n.Name == "mainnet" {
		return MainnetConfigURL
	}
	return TestnetConfigURL
}

// ExplorerURL links to addr on tonviewer.
func (n Network) ExplorerURL(addr string) string {
	if n.Name == "mainnet" {
		return "https://tonviewer.com/" + addr
	}
	return "https://testnet.tonviewer.com/" + addr
}

// Words splits the mnemonic on whitespace.
func (n Network) Words() []string {
	return strings.Fields(n.WalletMnemonic)
}

type Config struct {
	Network

	Port         string        `envconfig:"PORT" default:"8080"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL  string        `envconfig:"DATABASE_URL"`
	QueryTimeout time.Duration `envconfig:"QUERY_TIMEOUT" default:"5s"`

	// Webhooks
	WebhookURLs         []string      `envconfig:"WEBHOOK_URLS"`
	WebhookRetryMax     int           `envconfig:"WEBHOOK_RETRY_MAX" default:"3"`
	WebhookRetryBackoff time.Duration `envconfig:"WEBHOOK_RETRY_BACKOFF" default:"100ms"`
	WebhookTimeout      time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"5s"`
}

// Level maps LOG_LEVEL to a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadDotEnv reads variables from files (".env" when none are given) without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if cfg.DeployWaitInterval <= 0 {
		return Config{}, fmt.Errorf("DEPLOY_WAIT_INTERVAL must be positive, got %s", cfg.DeployWaitInterval)
	}
	if cfg.DeployWaitAttempts <= 0 {
		return Config{}, fmt.Errorf("DEPLOY_WAIT_ATTEMPTS must be positive, got %d", cfg.DeployWaitAttempts)
	}
	return cfg, nil
}

// LoadCollection reads the COLLECTION_* variables. All four are required.
func LoadCollection() (Collection, error) {
	var c Collection
	if err := envconfig.Process("", &c); err != nil {
		return Collection{}, fmt.Errorf("process collection env: %w", err)
	}
	return c, nil
}

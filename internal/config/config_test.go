package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xssnick/tonutils-go/tlb"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "DATABASE_URL", "TON_NETWORK", "TON_CONFIG_URL",
		"WALLET_VERSION", "DEPLOY_VALUE", "MINT_VALUE", "MINT_AMOUNT",
		"DEPLOY_WAIT_INTERVAL", "WEBHOOK_URLS", "WEBHOOK_RETRY_MAX",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port: got %q, want %q", cfg.Port, "8080")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Name != "testnet" {
		t.Errorf("Network: got %q, want testnet", cfg.Name)
	}
	if cfg.WalletVersion != "v4r2" {
		t.Errorf("WalletVersion: got %q", cfg.WalletVersion)
	}
	if cfg.DeployValue.Nano().Cmp(tlb.MustFromTON("0.05").Nano()) != 0 {
		t.Errorf("DeployValue: got %s, want 0.05", cfg.DeployValue)
	}
	if cfg.MintValue.Nano().Cmp(tlb.MustFromTON("0.04").Nano()) != 0 {
		t.Errorf("MintValue: got %s, want 0.04", cfg.MintValue)
	}
	if cfg.MintAmount.Nano().Cmp(tlb.MustFromTON("0.014").Nano()) != 0 {
		t.Errorf("MintAmount: got %s, want 0.014", cfg.MintAmount)
	}
	if cfg.DeployWaitInterval != 2*time.Second {
		t.Errorf("DeployWaitInterval: got %v", cfg.DeployWaitInterval)
	}
	if cfg.WebhookRetryMax != 3 {
		t.Errorf("WebhookRetryMax: got %d, want 3", cfg.WebhookRetryMax)
	}
	if cfg.WebhookRetryBackoff != 100*time.Millisecond {
		t.Errorf("WebhookRetryBackoff: got %v", cfg.WebhookRetryBackoff)
	}
	if len(cfg.WebhookURLs) != 0 {
		t.Errorf("WebhookURLs: got %v, want none", cfg.WebhookURLs)
	}
	if cfg.GlobalConfigURL() != TestnetConfigURL {
		t.Errorf("GlobalConfigURL: got %q", cfg.GlobalConfigURL())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TON_NETWORK", "mainnet")
	t.Setenv("MINT_VALUE", "1.5")
	t.Setenv("QUERY_TIMEOUT", "250ms")
	t.Setenv("WEBHOOK_URLS", "http://a.example/hook,http://b.example/hook")
	t.Setenv("WALLET_MNEMONIC", "word1  word2\tword3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port: got %q", cfg.Port)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level: got %v", cfg.Level())
	}
	if cfg.GlobalConfigURL() != MainnetConfigURL {
		t.Errorf("GlobalConfigURL: got %q", cfg.GlobalConfigURL())
	}
	if cfg.MintValue.Nano().Cmp(tlb.MustFromTON("1.5").Nano()) != 0 {
		t.Errorf("MintValue: got %s", cfg.MintValue)
	}
	if cfg.QueryTimeout != 250*time.Millisecond {
		t.Errorf("QueryTimeout: got %v", cfg.QueryTimeout)
	}
	if len(cfg.WebhookURLs) != 2 || cfg.WebhookURLs[1] != "http://b.example/hook" {
		t.Errorf("WebhookURLs: got %v", cfg.WebhookURLs)
	}
	if words := cfg.Words(); len(words) != 3 || words[2] != "word3" {
		t.Errorf("Words: got %v", words)
	}
	if got := cfg.ExplorerURL("EQabc"); got != "https://tonviewer.com/EQabc" {
		t.Errorf("ExplorerURL: got %q", got)
	}
}

func TestLoad_ExplicitConfigURL(t *testing.T) {
	t.Setenv("TON_CONFIG_URL", "http://localhost/global.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GlobalConfigURL() != "http://localhost/global.json" {
		t.Errorf("GlobalConfigURL: got %q", cfg.GlobalConfigURL())
	}
}

func TestLoad_InvalidAmount(t *testing.T) {
	t.Setenv("DEPLOY_VALUE", "lots")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid DEPLOY_VALUE")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("QUERY_TIMEOUT", "not_a_duration")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid QUERY_TIMEOUT")
	}
}

func TestLoad_DeployWaitMustBePositive(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"zero interval", "DEPLOY_WAIT_INTERVAL", "0s"},
		{"negative interval", "DEPLOY_WAIT_INTERVAL", "-1s"},
		{"zero attempts", "DEPLOY_WAIT_ATTEMPTS", "0"},
		{"negative attempts", "DEPLOY_WAIT_ATTEMPTS", "-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%s: expected error", tt.key, tt.value)
			}
		})
	}
}

func TestLoadCollection(t *testing.T) {
	t.Setenv("COLLECTION_NAME", "OnChain collection")
	t.Setenv("COLLECTION_DESCRIPTION", "Collection of items with onChain metadata")
	t.Setenv("COLLECTION_IMAGE", "https://example.com/logo.jpg")
	t.Setenv("COLLECTION_ROYALTY_PERCENT", "5")

	c, err := LoadCollection()
	if err != nil {
		t.Fatalf("LoadCollection: %v", err)
	}
	if c.Name != "OnChain collection" {
		t.Errorf("Name: got %q", c.Name)
	}
	if c.RoyaltyPercent != 5 {
		t.Errorf("RoyaltyPercent: got %d", c.RoyaltyPercent)
	}
}

func TestLoadCollection_MissingRequired(t *testing.T) {
	t.Setenv("COLLECTION_NAME", "n")
	t.Setenv("COLLECTION_DESCRIPTION", "d")
	t.Setenv("COLLECTION_IMAGE", "i")
	t.Setenv("COLLECTION_ROYALTY_PERCENT", "")
	os.Unsetenv("COLLECTION_ROYALTY_PERCENT")

	if _, err := LoadCollection(); err == nil {
		t.Error("expected error for missing COLLECTION_ROYALTY_PERCENT")
	}
}

func TestLoadCollection_NonIntegerRoyalty(t *testing.T) {
	t.Setenv("COLLECTION_NAME", "n")
	t.Setenv("COLLECTION_DESCRIPTION", "d")
	t.Setenv("COLLECTION_IMAGE", "i")
	t.Setenv("COLLECTION_ROYALTY_PERCENT", "five")

	if _, err := LoadCollection(); err == nil {
		t.Error("expected error for non-integer royalty")
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := (Config{LogLevel: tt.in}).Level(); got != tt.want {
			t.Errorf("Level(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("COLLECTION_TEST_DOTENV=from-file\nPORT=1111\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PORT", "2222")
	t.Setenv("COLLECTION_TEST_DOTENV", "")
	os.Unsetenv("COLLECTION_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("COLLECTION_TEST_DOTENV"); got != "from-file" {
		t.Errorf("COLLECTION_TEST_DOTENV: got %q", got)
	}
	if got := os.Getenv("PORT"); got != "2222" {
		t.Errorf("PORT should not be overridden, got %q", got)
	}
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("expected missing file to be ignored, got %v", err)
	}
}

func TestTON_Decode(t *testing.T) {
	var v TON
	if err := v.Decode("0.014"); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Nano().Int64() != 14_000_000 {
		t.Errorf("nano: got %s", v.Nano())
	}
	if err := v.Decode("abc"); err == nil {
		t.Error("expected error")
	}
}

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"sigs.k8s.io/yaml"

	"Apostille/internal/announce"
	"Apostille/internal/hashtag"
	"Apostille/internal/keys"
)

// Config holds the CLI configuration. The YAML file uses the json tag names.
type Config struct {
	// Network is the ledger network name.
	Network string `json:"network"`

	// KeyPath is the path to the hex-encoded owner private key.
	KeyPath string `json:"keyPath"`

	// DataPath is the registry directory; empty disables recording.
	DataPath string `json:"dataPath"`

	// Algorithm is the default tag hash algorithm.
	Algorithm string `json:"algorithm"`

	// LogLevel is the minimum log level.
	LogLevel string `json:"logLevel"`

	// HTTPAddress is the verification API listen address.
	HTTPAddress string `json:"httpAddress"`

	// Ledger configures the ledger endpoint client.
	Ledger LedgerConfig `json:"ledger"`
}

// LedgerConfig is the YAML form of announce.Config. Durations use time.ParseDuration syntax.
type LedgerConfig struct {
	Endpoint       string `json:"endpoint"`
	Timeout        string `json:"timeout"`
	Retries        int    `json:"retries"`
	RetryWait      string `json:"retryWait"`
	PollInterval   string `json:"pollInterval"`
	ConfirmTimeout string `json:"confirmTimeout"`
}

// defaultConfig returns the built-in settings.
func defaultConfig() *Config {
	return &Config{
		Network:     keys.TestNet.String(),
		KeyPath:     "./owner.key",
		DataPath:    "./data",
		Algorithm:   hashtag.SHA256.String(),
		LogLevel:    "info",
		HTTPAddress: ":8080",
		Ledger: LedgerConfig{
			Endpoint: "http://localhost:3000",
		},
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s:\n%w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s:\n%w", path, err)
	}

	return cfg, nil
}

// network resolves the configured network.
func (c *Config) network() (keys.NetworkType, error) {
	return keys.ParseNetwork(c.Network)
}

// algorithm resolves the configured algorithm.
func (c *Config) algorithm() (hashtag.Algorithm, error) {
	return hashtag.ParseAlgorithm(c.Algorithm)
}

// announceConfig converts the ledger section.
func (c *Config) announceConfig() (announce.Config, error) {
	out := announce.Config{Endpoint: c.Ledger.Endpoint, Retries: c.Ledger.Retries}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"timeout", c.Ledger.Timeout, &out.Timeout},
		{"retryWait", c.Ledger.RetryWait, &out.RetryWait},
		{"pollInterval", c.Ledger.PollInterval, &out.PollInterval},
		{"confirmTimeout", c.Ledger.ConfirmTimeout, &out.ConfirmTimeout},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}

		v, err := time.ParseDuration(d.value)
		if err != nil {
			return out, fmt.Errorf("ledger.%s:\n%w", d.name, err)
		}

		*d.dst = v
	}

	return out, nil
}

// loadOrGenerateKey loads the owner account from keyPath or generates and saves one.
// The file holds the 32-byte private key in hex.
func loadOrGenerateKey(keyPath string, network keys.NetworkType) (*keys.Account, error) {
	if keyPath == "" {
		return keys.GenerateAccount(network)
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath, network)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	acc, err := keys.AccountFromHex(strings.TrimSpace(string(data)), network)
	if err != nil {
		return nil, fmt.Errorf("parse key file %s:\n%w", keyPath, err)
	}

	return acc, nil
}

// generateAndSaveKey creates a new account and saves its private key to path.
func generateAndSaveKey(path string, network keys.NetworkType) (*keys.Account, error) {
	acc, err := keys.GenerateAccount(network)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, []byte(hex.EncodeToString(acc.PrivateKey())+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return acc, nil
}

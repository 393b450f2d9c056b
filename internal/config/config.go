// Package config handles configuration for waveportal.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/diogo/waveportal/internal/models"
)

// Wallet kinds
const (
	WalletProvider = "provider"
	WalletKeystore = "keystore"
)

// EnvRPCURL overrides the configured RPC endpoint
const EnvRPCURL = "WAVEPORTAL_RPC_URL"

// MarkdownConfig configures markdown rendering of wave messages
type MarkdownConfig struct {
	Style       string `json:"style"`        // glamour style name or path to JSON theme
	EnableEmoji bool   `json:"enable_emoji"` // Convert :emoji: to unicode
}

// Config represents the user configuration
type Config struct {
	// RPCURL is the node endpoint used for contract reads and event subscriptions.
	// A ws:// endpoint enables push subscriptions; http:// falls back to polling.
	RPCURL string `json:"rpc_url"`
	// Wallet selects the wallet bridge: "provider" or "keystore"
	Wallet string `json:"wallet"`
	// WalletURL is the provider endpoint. Empty means RPCURL.
	WalletURL   string `json:"wallet_url,omitempty"`
	KeystoreDir string `json:"keystore_dir,omitempty"`
	// Account picks a keystore account; empty means the first one
	Account         string `json:"account,omitempty"`
	ContractAddress string `json:"contract_address"`
	// ABIPath optionally replaces the embedded contract ABI (raw ABI or Hardhat/Foundry artifact)
	ABIPath string `json:"abi_path,omitempty"`
	// RequiredNetwork is the net_version the view requires before enabling controls
	RequiredNetwork  string         `json:"required_network"`
	GasLimit         uint64         `json:"gas_limit"`
	PollIntervalSecs int            `json:"poll_interval_secs"`
	NetworkCheckSecs int            `json:"network_check_secs"`
	CallTimeoutSecs  int            `json:"call_timeout_secs"`
	LogFile          string         `json:"log_file,omitempty"`
	LogLevel         string         `json:"log_level"`
	TUITheme         string         `json:"tui_theme,omitempty"`
	CopyToClipboard  bool           `json:"copy_to_clipboard"`
	Markdown         MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:       "dark",
		EnableEmoji: true,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		RPCURL:           "ws://127.0.0.1:8546",
		Wallet:           WalletProvider,
		KeystoreDir:      filepath.Join(homeDir, ".ethereum", "keystore"),
		ContractAddress:  models.DefaultContractAddress,
		RequiredNetwork:  models.DefaultRequiredNetwork,
		GasLimit:         models.DefaultGasLimit,
		PollIntervalSecs: 4,
		NetworkCheckSecs: 10,
		CallTimeoutSecs:  120,
		LogFile:          filepath.Join(homeDir, ".waveportal", "waveportal.log"),
		LogLevel:         "info",
		TUITheme:         "oldlace",
		CopyToClipboard:  true,
		Markdown:         DefaultMarkdownConfig(),
	}
}

// ProviderURL returns the endpoint of the provider wallet
func (c Config) ProviderURL() string {
	if c.WalletURL != "" {
		return c.WalletURL
	}
	return c.RPCURL
}

// PollInterval returns the log polling interval used when subscriptions are unsupported
func (c Config) PollInterval() time.Duration {
	return secondsOr(c.PollIntervalSecs, 4)
}

// NetworkCheckInterval returns how often the view re-reads the network identifier
func (c Config) NetworkCheckInterval() time.Duration {
	return secondsOr(c.NetworkCheckSecs, 10)
}

// CallTimeout returns the timeout attached to each wallet or contract call
func (c Config) CallTimeout() time.Duration {
	return secondsOr(c.CallTimeoutSecs, 120)
}

func secondsOr(secs, fallback int) time.Duration {
	if secs <= 0 {
		secs = fallback
	}
	return time.Duration(secs) * time.Second
}

// Validate checks the fields that would otherwise fail deep inside a call
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc_url is required")
	}
	if c.Wallet != WalletProvider && c.Wallet != WalletKeystore {
		return fmt.Errorf("wallet must be %q or %q, got %q", WalletProvider, WalletKeystore, c.Wallet)
	}
	if !isHexAddress(c.ContractAddress) {
		return fmt.Errorf("contract_address %q is not a hex address", c.ContractAddress)
	}
	if c.RequiredNetwork == "" {
		return fmt.Errorf("required_network is required")
	}
	return nil
}

func isHexAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	s = s[2:]
	if len(s) != 40 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".waveportal"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk and applies environment overrides
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	if url := os.Getenv(EnvRPCURL); url != "" {
		cfg.RPCURL = url
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Keys returns the settable configuration keys in display order
func Keys() []string {
	return []string{
		"rpc_url", "wallet", "wallet_url", "keystore_dir", "account",
		"contract_address", "abi_path", "required_network", "gas_limit",
		"poll_interval_secs", "network_check_secs", "call_timeout_secs",
		"log_file", "log_level", "tui_theme", "copy_to_clipboard",
		"markdown.style", "markdown.enable_emoji",
	}
}

// Get returns the string form of a configuration key
func (c Config) Get(key string) (string, error) {
	switch key {
	case "rpc_url":
		return c.RPCURL, nil
	case "wallet":
		return c.Wallet, nil
	case "wallet_url":
		return c.WalletURL, nil
	case "keystore_dir":
		return c.KeystoreDir, nil
	case "account":
		return c.Account, nil
	case "contract_address":
		return c.ContractAddress, nil
	case "abi_path":
		return c.ABIPath, nil
	case "required_network":
		return c.RequiredNetwork, nil
	case "gas_limit":
		return strconv.FormatUint(c.GasLimit, 10), nil
	case "poll_interval_secs":
		return strconv.Itoa(c.PollIntervalSecs), nil
	case "network_check_secs":
		return strconv.Itoa(c.NetworkCheckSecs), nil
	case "call_timeout_secs":
		return strconv.Itoa(c.CallTimeoutSecs), nil
	case "log_file":
		return c.LogFile, nil
	case "log_level":
		return c.LogLevel, nil
	case "tui_theme":
		return c.TUITheme, nil
	case "copy_to_clipboard":
		return strconv.FormatBool(c.CopyToClipboard), nil
	case "markdown.style":
		return c.Markdown.Style, nil
	case "markdown.enable_emoji":
		return strconv.FormatBool(c.Markdown.EnableEmoji), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// Set parses value and assigns it to the configuration key
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "rpc_url":
		c.RPCURL = value
	case "wallet":
		c.Wallet = value
	case "wallet_url":
		c.WalletURL = value
	case "keystore_dir":
		c.KeystoreDir = value
	case "account":
		c.Account = value
	case "contract_address":
		c.ContractAddress = value
	case "abi_path":
		c.ABIPath = value
	case "required_network":
		c.RequiredNetwork = value
	case "gas_limit":
		c.GasLimit, err = strconv.ParseUint(value, 10, 64)
	case "poll_interval_secs":
		c.PollIntervalSecs, err = strconv.Atoi(value)
	case "network_check_secs":
		c.NetworkCheckSecs, err = strconv.Atoi(value)
	case "call_timeout_secs":
		c.CallTimeoutSecs, err = strconv.Atoi(value)
	case "log_file":
		c.LogFile = value
	case "log_level":
		c.LogLevel = value
	case "tui_theme":
		c.TUITheme = value
	case "copy_to_clipboard":
		c.CopyToClipboard, err = strconv.ParseBool(value)
	case "markdown.style":
		c.Markdown.Style = value
	case "markdown.enable_emoji":
		c.Markdown.EnableEmoji, err = strconv.ParseBool(value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

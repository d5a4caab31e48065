package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"claimgate/crypto"

	"github.com/BurntSushi/toml"
)

// Config is the claimgated daemon configuration.
type Config struct {
	ListenAddress    string `toml:"ListenAddress"`
	RPCAddress       string `toml:"RPCAddress"`
	DataDir          string `toml:"DataDir"`
	RegistryManifest string `toml:"RegistryManifest"`
	TreasuryAddress  string `toml:"TreasuryAddress"`
	Environment      string `toml:"Environment"`

	// RPCAuthTokenEnv names the environment variable holding the bearer
	// token that guards mutating RPC methods. The token itself never lives
	// in the config file.
	RPCAuthTokenEnv string `toml:"RPCAuthTokenEnv"`

	Audit     Audit     `toml:"audit"`
	ProofLog  ProofLog  `toml:"prooflog"`
	Webhooks  Webhooks  `toml:"webhooks"`
	Telemetry Telemetry `toml:"telemetry"`
	Logging   Logging   `toml:"logging"`
	Gateway   Gateway   `toml:"gateway"`
}

// Audit configures the append-only audit index.
type Audit struct {
	Enabled bool   `toml:"Enabled"`
	DSN     string `toml:"DSN"`
}

// ProofLog configures the optional bbolt proof digest store.
type ProofLog struct {
	Enabled bool   `toml:"Enabled"`
	Path    string `toml:"Path"`
}

// Webhooks configures outbound claim notifications.
type Webhooks struct {
	Enabled   bool   `toml:"Enabled"`
	Endpoint  string `toml:"Endpoint"`
	SecretEnv string `toml:"SecretEnv"`
}

// Telemetry configures the OTLP exporter bootstrap.
type Telemetry struct {
	Enabled  bool   `toml:"Enabled"`
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

// Logging configures the optional rotating file sink.
type Logging struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Gateway points at the YAML gateway configuration.
type Gateway struct {
	ConfigPath string `toml:"ConfigPath"`
}

// Load reads the configuration at path, creating a default file on first run.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8545"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./claimgate-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "dev"
	}
	if strings.TrimSpace(c.RPCAuthTokenEnv) == "" {
		c.RPCAuthTokenEnv = "CLAIMGATE_RPC_TOKEN"
	}
	if c.Audit.Enabled && strings.TrimSpace(c.Audit.DSN) == "" {
		c.Audit.DSN = filepath.Join(c.DataDir, "audit.db")
	}
	if c.ProofLog.Enabled && strings.TrimSpace(c.ProofLog.Path) == "" {
		c.ProofLog.Path = filepath.Join(c.DataDir, "proofs.db")
	}
	if c.Webhooks.Enabled && strings.TrimSpace(c.Webhooks.SecretEnv) == "" {
		c.Webhooks.SecretEnv = "CLAIMGATE_WEBHOOK_SECRET"
	}
}

// Validate rejects configurations the daemon cannot boot with.
func (c *Config) Validate() error {
	if treasury := strings.TrimSpace(c.TreasuryAddress); treasury != "" {
		if _, err := crypto.DecodeAddress(treasury); err != nil {
			return fmt.Errorf("invalid TreasuryAddress: %w", err)
		}
	}
	if c.Webhooks.Enabled && strings.TrimSpace(c.Webhooks.Endpoint) == "" {
		return fmt.Errorf("webhooks enabled without Endpoint")
	}
	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry enabled without Endpoint")
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB < 0 {
		return fmt.Errorf("logging MaxSizeMB must not be negative")
	}
	return nil
}

// Treasury decodes the configured fee treasury address. The zero address is
// returned when no treasury is configured.
func (c *Config) Treasury() ([20]byte, error) {
	trimmed := strings.TrimSpace(c.TreasuryAddress)
	if trimmed == "" {
		return [20]byte{}, nil
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Bytes(), nil
}

// RPCAuthToken resolves the bearer token from the configured environment
// variable. An empty value disables authenticated RPC methods.
func (c *Config) RPCAuthToken() string {
	return strings.TrimSpace(os.Getenv(c.RPCAuthTokenEnv))
}

// WebhookSecret resolves the webhook signing secret from the environment.
func (c *Config) WebhookSecret() []byte {
	if !c.Webhooks.Enabled {
		return nil
	}
	secret := strings.TrimSpace(os.Getenv(c.Webhooks.SecretEnv))
	if secret == "" {
		return nil
	}
	return []byte(secret)
}

// createDefault writes a default configuration file and returns it.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:    ":8080",
		RPCAddress:       ":8545",
		DataDir:          "./claimgate-data",
		RegistryManifest: "",
		Environment:      "dev",
		RPCAuthTokenEnv:  "CLAIMGATE_RPC_TOKEN",
	}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

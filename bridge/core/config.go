package core

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Ethernal-Tech/vista-bridge/common"
	"github.com/kelseyhightower/envconfig"
)

const (
	DefaultRetryDelayMs = 30_000

	// MinMirrorOutputAmount is the destination output threshold; mirrors whose
	// net amount is at or below it are rejected before submission.
	MinMirrorOutputAmount = uint64(1_000_000)
)

type SourceChainConfig struct {
	NetworkName            string   `envconfig:"SOURCE_NETWORK_NAME" default:"preview" json:"networkName"`
	NetworkMagic           uint32   `envconfig:"SOURCE_NETWORK_MAGIC" default:"2" json:"networkMagic"`
	UtxoRPCURL             string   `envconfig:"SOURCE_UTXORPC_URL" json:"utxoRpcUrl"`
	UtxoRPCAPIKey          string   `envconfig:"SOURCE_UTXORPC_API_KEY" json:"-"`
	DepositAddresses       []string `envconfig:"SOURCE_DEPOSIT_ADDRESSES" json:"depositAddresses"`
	StartSlot              uint64   `envconfig:"SOURCE_START_SLOT" json:"startSlot"`
	StartBlockHash         string   `envconfig:"SOURCE_START_BLOCK_HASH" json:"startBlockHash"`
	ConfirmationBlockCount uint     `envconfig:"SOURCE_CONFIRMATION_BLOCK_COUNT" default:"10" json:"confirmationBlockCount"`
}

type DestinationChainConfig struct {
	NetworkName     string   `envconfig:"DEST_NETWORK_NAME" default:"preview" json:"networkName"`
	NetworkMagic    uint32   `envconfig:"DEST_NETWORK_MAGIC" default:"2" json:"networkMagic"`
	UtxoRPCURL      string   `envconfig:"DEST_UTXORPC_URL" json:"utxoRpcUrl"`
	UtxoRPCAPIKey   string   `envconfig:"DEST_UTXORPC_API_KEY" json:"-"`
	ProviderURL     string   `envconfig:"DEST_LUCID_PROVIDER" json:"providerUrl"`
	ProviderNetwork string   `envconfig:"DEST_LUCID_NETWORK" default:"Preview" json:"providerNetwork"`
	SenderAddresses []string `envconfig:"DEST_SENDER_ADDRESSES" json:"senderAddresses"`
	WalletSeed      string   `envconfig:"DEST_SENDER_WALLET_SEED" json:"-"`
}

type BridgeSettings struct {
	AllowedAssets     []string `envconfig:"BRIDGE_ALLOWED_ASSETS" default:"ADA" json:"allowedAssets"`
	MinDepositAmount  uint64   `envconfig:"BRIDGE_MIN_DEPOSIT_AMOUNT" default:"2000000" json:"minDepositAmount"`
	MaxTransferAmount uint64   `envconfig:"BRIDGE_MAX_TRANSFER_AMOUNT" default:"100000000000" json:"maxTransferAmount"`
	FeeAmount         uint64   `envconfig:"BRIDGE_FEE_AMOUNT" default:"1000000" json:"feeAmount"`
}

type SecuritySettings struct {
	RequiredConfirmations uint32 `envconfig:"SECURITY_REQUIRED_CONFIRMATIONS" default:"10" json:"requiredConfirmations"`
	RetryAttempts         uint32 `envconfig:"SECURITY_RETRY_ATTEMPTS" default:"3" json:"retryAttempts"`
	RetryDelayMs          uint64 `envconfig:"SECURITY_RETRY_DELAY_MS" default:"30000" json:"retryDelayMs"`
}

type APIConfig struct {
	Enabled        bool     `envconfig:"API_ENABLED" default:"true" json:"enabled"`
	Port           uint32   `envconfig:"API_PORT" default:"10000" json:"port"`
	PathPrefix     string   `envconfig:"API_PATH_PREFIX" default:"api" json:"pathPrefix"`
	AllowedHeaders []string `envconfig:"API_ALLOWED_HEADERS" default:"Content-Type" json:"allowedHeaders"`
	AllowedOrigins []string `envconfig:"API_ALLOWED_ORIGINS" default:"*" json:"allowedOrigins"`
	AllowedMethods []string `envconfig:"API_ALLOWED_METHODS" default:"GET,OPTIONS" json:"allowedMethods"`
	APIKeyHeader   string   `envconfig:"API_KEY_HEADER" default:"x-api-key" json:"apiKeyHeader"`
	APIKeys        []string `envconfig:"API_KEYS" json:"-"`
}

type TelemetrySettings struct {
	PrometheusAddr string `envconfig:"TELEMETRY_PROMETHEUS_ADDR" json:"prometheusAddr"`
	DataDogAddr    string `envconfig:"TELEMETRY_DATADOG_ADDR" json:"dataDogAddr"`
}

type Settings struct {
	DbsPath  string `envconfig:"BRIDGE_DBS_PATH" default:"./db/" json:"dbsPath"`
	LogsPath string `envconfig:"BRIDGE_LOGS_PATH" default:"./logs/" json:"logsPath"`
	LogLevel int32  `envconfig:"BRIDGE_LOG_LEVEL" default:"4" json:"logLevel"`
}

// AppConfig is the process-wide configuration record. It is loaded once at
// boot and never mutated afterwards.
type AppConfig struct {
	Source      SourceChainConfig      `json:"source"`
	Destination DestinationChainConfig `json:"destination"`
	Bridge      BridgeSettings         `json:"bridge"`
	Security    SecuritySettings       `json:"security"`
	API         APIConfig              `json:"api"`
	Telemetry   TelemetrySettings      `json:"telemetry"`
	Settings    Settings               `json:"settings"`
}

func (c AppConfig) RetryDelay() time.Duration {
	if c.Security.RetryDelayMs == 0 {
		return time.Duration(DefaultRetryDelayMs) * time.Millisecond
	}

	return time.Duration(c.Security.RetryDelayMs) * time.Millisecond
}

// LoadAppConfig reads the configuration record from the environment and
// validates it. When configPath is given, the JSON file overrides the
// environment for every field it names; secrets stay environment-only.
// Any validation failure is fatal for the boot.
func LoadAppConfig(configPath string) (*AppConfig, error) {
	config := &AppConfig{}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if configPath != "" {
		if err := common.LoadJSON(configPath, config); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c AppConfig) Validate() error {
	if len(c.Source.DepositAddresses) == 0 {
		return fmt.Errorf("no deposit addresses configured")
	}

	if len(c.Destination.SenderAddresses) == 0 {
		return fmt.Errorf("no sender addresses configured")
	}

	if c.Bridge.FeeAmount >= c.Bridge.MinDepositAmount {
		return fmt.Errorf("fee amount %d must be less than min deposit amount %d",
			c.Bridge.FeeAmount, c.Bridge.MinDepositAmount)
	}

	if c.Bridge.MinDepositAmount >= c.Bridge.MaxTransferAmount {
		return fmt.Errorf("min deposit amount %d must be less than max transfer amount %d",
			c.Bridge.MinDepositAmount, c.Bridge.MaxTransferAmount)
	}

	if len(c.Bridge.AllowedAssets) == 0 {
		return fmt.Errorf("no allowed assets configured")
	}

	for _, endpoint := range []string{c.Source.UtxoRPCURL, c.Destination.UtxoRPCURL, c.Destination.ProviderURL} {
		if endpoint != "" && !common.IsValidHTTPURL(endpoint) {
			return fmt.Errorf("endpoint is not a valid http(s) url: %s", endpoint)
		}
	}

	if c.Source.UtxoRPCURL != "" && c.Destination.UtxoRPCURL != "" {
		if src, dst := endpointHostPort(c.Source.UtxoRPCURL), endpointHostPort(c.Destination.UtxoRPCURL); src == dst {
			return fmt.Errorf("source and destination utxorpc endpoints must use different ports: %s", src)
		}
	}

	if c.API.Enabled && c.Telemetry.PrometheusAddr != "" {
		if fmt.Sprintf(":%d", c.API.Port) == portSuffix(c.Telemetry.PrometheusAddr) {
			return fmt.Errorf("api and prometheus ports must differ: %d", c.API.Port)
		}
	}

	return nil
}

func (c AppConfig) IsAssetAllowed(assetType string) bool {
	for _, asset := range c.Bridge.AllowedAssets {
		if asset == assetType {
			return true
		}
	}

	return false
}

func endpointHostPort(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	host := parsed.Host
	if parsed.Port() == "" {
		if parsed.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}

	return host
}

func portSuffix(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[i:]
		}
	}

	return ""
}

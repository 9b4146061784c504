// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir    string // Base directory for all databases, always absolute
	PolicyPath string // Compliance policy document (YAML or JSON); empty means built-in defaults
	LogLevel   string
	Port       int
	DevMode    bool

	Compliance ComplianceConfig
	Harvest    HarvestConfig
	Broker     BrokerConfig
	Reconcile  ReconcileConfig
	Explain    ExplainConfig
}

// ComplianceConfig holds rule evaluation parameters
type ComplianceConfig struct {
	ApprovalThreshold  float64 // Minimum score for approval
	TaxRate            float64 // Marginal rate applied to harvested losses
	WashSaleWindowDays int
}

// HarvestConfig holds tax-loss harvesting thresholds
type HarvestConfig struct {
	MinLoss    float64 // Absolute loss floor in dollars
	MinLossPct float64 // Loss as a fraction of cost basis
}

// BrokerConfig holds brokerage API settings
type BrokerConfig struct {
	BaseURL       string
	APIKey        string
	APISecret     string
	Account       string // Portfolio the credentialed broker account mirrors
	Timeout       time.Duration
	RetryAttempts int
	RetryBaseWait time.Duration
}

// ReconcileConfig holds the reconciliation schedule
type ReconcileConfig struct {
	Enabled  bool
	Schedule string // cron expression
}

// ExplainConfig holds settings for the optional LLM explanation client
type ExplainConfig struct {
	Enabled bool
	Model   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FALCON_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:    absDataDir,
		PolicyPath: getEnv("FALCON_POLICY_PATH", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Port:       getEnvAsInt("FALCON_PORT", 8080),
		DevMode:    getEnvAsBool("DEV_MODE", false),
		Compliance: ComplianceConfig{
			ApprovalThreshold:  getEnvAsFloat("COMPLIANCE_APPROVAL_THRESHOLD", 70.0),
			TaxRate:            getEnvAsFloat("HARVEST_TAX_RATE", 0.27),
			WashSaleWindowDays: getEnvAsInt("WASH_SALE_WINDOW_DAYS", 30),
		},
		Harvest: HarvestConfig{
			MinLoss:    getEnvAsFloat("HARVEST_MIN_LOSS", 500.0),
			MinLossPct: getEnvAsFloat("HARVEST_MIN_LOSS_PCT", 0.05),
		},
		Broker: BrokerConfig{
			BaseURL:       getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
			APIKey:        getEnv("ALPACA_API_KEY", ""),
			APISecret:     getEnv("ALPACA_API_SECRET", ""),
			Account:       getEnv("ALPACA_ACCOUNT_PORTFOLIO", ""),
			Timeout:       time.Duration(getEnvAsInt("BROKER_TIMEOUT_SECONDS", 15)) * time.Second,
			RetryAttempts: getEnvAsInt("BROKER_RETRY_ATTEMPTS", 3),
			RetryBaseWait: time.Duration(getEnvAsInt("BROKER_RETRY_BASE_MS", 250)) * time.Millisecond,
		},
		Reconcile: ReconcileConfig{
			Enabled:  getEnvAsBool("RECONCILE_ENABLED", true),
			Schedule: getEnv("RECONCILE_SCHEDULE", "*/15 9-16 * * 1-5"),
		},
		Explain: ExplainConfig{
			Enabled: getEnvAsBool("EXPLAIN_ENABLED", false),
			Model:   getEnv("EXPLAIN_MODEL", "gemini-2.0-flash"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Compliance.ApprovalThreshold < 0 || c.Compliance.ApprovalThreshold > 100 {
		return fmt.Errorf("approval threshold must be in [0, 100], got %g", c.Compliance.ApprovalThreshold)
	}
	if c.Compliance.TaxRate < 0 || c.Compliance.TaxRate >= 1 {
		return fmt.Errorf("tax rate must be in [0, 1), got %g", c.Compliance.TaxRate)
	}
	if c.Compliance.WashSaleWindowDays <= 0 {
		return fmt.Errorf("wash sale window must be positive, got %d", c.Compliance.WashSaleWindowDays)
	}
	if c.Harvest.MinLoss < 0 || c.Harvest.MinLossPct < 0 {
		return fmt.Errorf("harvest thresholds must be non-negative")
	}
	return nil
}

// LedgerDBPath returns the path of the ledger database
func (c *Config) LedgerDBPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// PortfolioDBPath returns the path of the portfolio database
func (c *Config) PortfolioDBPath() string {
	return filepath.Join(c.DataDir, "portfolio.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

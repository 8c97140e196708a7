package banking

import (
	"errors"
	"time"
)

const (
	// PlaidSandboxURL is the sandbox API endpoint
	PlaidSandboxURL = "https://sandbox.plaid.com"
	// PlaidDevelopmentURL is the development API endpoint
	PlaidDevelopmentURL = "https://development.plaid.com"
	// PlaidProductionURL is the production API endpoint
	PlaidProductionURL = "https://production.plaid.com"
)

// Errors for Plaid configuration
var (
	ErrPlaidConfigMissingClientID = errors.New("plaid: client id is required")
	ErrPlaidConfigMissingSecret   = errors.New("plaid: secret is required")
	ErrPlaidConfigBadEnvironment  = errors.New("plaid: unknown environment")
)

// PlaidConfig holds configuration for the Plaid API
type PlaidConfig struct {
	ClientID string
	Secret   string
	// Environment is sandbox, development or production
	Environment string
	// BaseURL overrides the environment URL (used by tests)
	BaseURL      string
	WebhookURL   string
	ClientName   string
	Products     []string
	CountryCodes []string
	Language     string
	Timeout      time.Duration
}

// NewPlaidConfig creates a sandbox configuration with defaults
func NewPlaidConfig(clientID, secret string) *PlaidConfig {
	return &PlaidConfig{
		ClientID:     clientID,
		Secret:       secret,
		Environment:  "sandbox",
		ClientName:   "CFO Sync",
		Products:     []string{"transactions"},
		CountryCodes: []string{"US"},
		Language:     "en",
		Timeout:      30 * time.Second,
	}
}

// Validate validates the configuration and fills in derived defaults
func (c *PlaidConfig) Validate() error {
	if c.ClientID == "" {
		return ErrPlaidConfigMissingClientID
	}
	if c.Secret == "" {
		return ErrPlaidConfigMissingSecret
	}
	if c.BaseURL == "" {
		switch c.Environment {
		case "", "sandbox":
			c.BaseURL = PlaidSandboxURL
		case "development":
			c.BaseURL = PlaidDevelopmentURL
		case "production":
			c.BaseURL = PlaidProductionURL
		default:
			return ErrPlaidConfigBadEnvironment
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ClientName == "" {
		c.ClientName = "CFO Sync"
	}
	if len(c.Products) == 0 {
		c.Products = []string{"transactions"}
	}
	if len(c.CountryCodes) == 0 {
		c.CountryCodes = []string{"US"}
	}
	if c.Language == "" {
		c.Language = "en"
	}
	return nil
}

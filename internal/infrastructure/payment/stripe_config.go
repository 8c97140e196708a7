package payment

import (
	"errors"
	"strings"
	"time"
)

// Errors for Stripe configuration validation
var (
	ErrStripeInvalidKey       = errors.New("stripe: secret key must start with sk_ or rk_")
	ErrStripeInvalidPageSize  = errors.New("stripe: page size must be between 1 and 100")
	ErrStripeNegativeRetries  = errors.New("stripe: max network retries must not be negative")
	ErrStripeMissingSecretKey = errors.New("stripe: secret key is required")
)

// StripeConfig holds configuration for the Stripe processor client
type StripeConfig struct {
	// SecretKey is the default API key used when a call does not supply its own.
	// It may be empty when every caller passes a per-connection key.
	SecretKey string
	// BaseURL overrides the API endpoint (stripe-mock, tests)
	BaseURL string
	// Timeout bounds each HTTP request
	Timeout time.Duration
	// PageSize is the list limit used when a request does not set one
	PageSize int64
	// MaxNetworkRetries is handed to the stripe backend
	MaxNetworkRetries int64
}

// DefaultStripeConfig returns the configuration used when nothing is set
func DefaultStripeConfig() *StripeConfig {
	return &StripeConfig{
		Timeout:           30 * time.Second,
		PageSize:          100,
		MaxNetworkRetries: 2,
	}
}

// Validate validates the configuration and fills in defaults
func (c *StripeConfig) Validate() error {
	if c.SecretKey != "" {
		if err := ValidateSecretKey(c.SecretKey); err != nil {
			return err
		}
	}
	if c.PageSize == 0 {
		c.PageSize = 100
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return ErrStripeInvalidPageSize
	}
	if c.MaxNetworkRetries < 0 {
		return ErrStripeNegativeRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

// ValidateSecretKey checks the shape of a secret or restricted key
func ValidateSecretKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrStripeMissingSecretKey
	}
	if !strings.HasPrefix(key, "sk_") && !strings.HasPrefix(key, "rk_") {
		return ErrStripeInvalidKey
	}
	return nil
}

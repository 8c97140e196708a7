package shared

import (
	"context"
	"time"
)

// DeliveryDeduplicator remembers provider deliveries (webhooks) that were already
// acted upon so a redelivery does not trigger a second sync.
type DeliveryDeduplicator interface {
	// MarkProcessed records key for ttl.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether key was already recorded
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the store
	Close() error
}

// DeduplicationConfig holds configuration for delivery de-duplication
type DeduplicationConfig struct {
	// TTL is how long a delivery key is remembered
	TTL time.Duration

	// Enabled turns de-duplication on or off
	Enabled bool
}

// DefaultDeduplicationConfig returns the default configuration
func DefaultDeduplicationConfig() DeduplicationConfig {
	return DeduplicationConfig{
		TTL:     10 * time.Minute,
		Enabled: true,
	}
}

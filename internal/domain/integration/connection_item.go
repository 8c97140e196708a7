package integration

import (
	"strings"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
)

// ProviderKind identifies which kind of external provider a connection talks to
type ProviderKind string

const (
	ProviderKindAggregator       ProviderKind = "AGGREGATOR"
	ProviderKindPaymentProcessor ProviderKind = "PAYMENT_PROCESSOR"
)

// IsValid returns true if the kind is known
func (k ProviderKind) IsValid() bool {
	switch k {
	case ProviderKindAggregator, ProviderKindPaymentProcessor:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProviderKind
func (k ProviderKind) String() string {
	return string(k)
}

// Credential is a sealed provider secret. Only the vault can open it.
type Credential struct {
	Ciphertext string `gorm:"column:credential_ciphertext;type:text;not null"`
	Algorithm  string `gorm:"column:credential_algorithm;type:varchar(32);not null"`
}

// IsZero reports whether no credential has been stored
func (c Credential) IsZero() bool {
	return c.Ciphertext == ""
}

// String never prints the ciphertext
func (c Credential) String() string {
	return "Credential(" + c.Algorithm + ")"
}

// CredentialVault seals and opens provider credentials
type CredentialVault interface {
	Encrypt(plaintext string) (Credential, error)
	Decrypt(credential Credential) (string, error)
}

// ConnectionItem is a tenant's link to a single provider connection
type ConnectionItem struct {
	shared.TenantEntity
	UserID          uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind            ProviderKind `gorm:"type:varchar(32);not null;uniqueIndex:idx_connection_items_kind_external,priority:1" json:"kind"`
	ExternalItemID  string       `gorm:"type:varchar(128);not null;uniqueIndex:idx_connection_items_kind_external,priority:2" json:"external_item_id"`
	InstitutionID   string       `gorm:"type:varchar(128)" json:"institution_id,omitempty"`
	InstitutionName string       `gorm:"type:varchar(200);not null" json:"institution_name"`
	Credential      Credential   `gorm:"embedded" json:"-"`
	LastSyncedAt    *time.Time   `json:"last_synced_at,omitempty"`
}

// TableName returns the table name for GORM
func (ConnectionItem) TableName() string {
	return "connection_items"
}

// NewConnectionItem creates a connection item holding an already sealed credential
func NewConnectionItem(
	tenantID, userID uuid.UUID,
	kind ProviderKind,
	externalItemID, institutionName string,
	credential Credential,
) (*ConnectionItem, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("tenant id is required")
	}
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("user id is required")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("unknown provider kind: " + string(kind))
	}
	if strings.TrimSpace(externalItemID) == "" {
		return nil, shared.NewValidationError("external item id is required")
	}
	if credential.IsZero() {
		return nil, shared.NewValidationError("credential is required")
	}
	name := strings.TrimSpace(institutionName)
	if name == "" {
		name = "Unknown Institution"
	}
	return &ConnectionItem{
		TenantEntity:    shared.NewTenantEntity(tenantID),
		UserID:          userID,
		Kind:            kind,
		ExternalItemID:  externalItemID,
		InstitutionName: name,
		Credential:      credential,
	}, nil
}

// MarkSynced records a successful sync
func (c *ConnectionItem) MarkSynced(at time.Time) {
	t := at.UTC()
	c.LastSyncedAt = &t
	c.UpdatedAt = t
}

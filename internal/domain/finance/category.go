package finance

import (
	"strings"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
)

// Category is a tenant-defined spending/income category
type Category struct {
	shared.TenantEntity
	Name string `gorm:"type:varchar(100);not null" json:"name"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a category
func NewCategory(tenantID uuid.UUID, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("category name is required")
	}
	return &Category{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Name:         name,
	}, nil
}

// ResolveCategory picks the tenant category for a provider label list.
// Only the first label is considered. A category matches when its name contains
// the label, ignoring case. When several match, the one with the lowest id wins
// so the result does not depend on the order categories were loaded in.
func ResolveCategory(categories []Category, labels []string) *uuid.UUID {
	if len(labels) == 0 {
		return nil
	}
	label := strings.ToLower(strings.TrimSpace(labels[0]))
	if label == "" {
		return nil
	}

	var best *Category
	for i := range categories {
		c := &categories[i]
		if !strings.Contains(strings.ToLower(c.Name), label) {
			continue
		}
		if best == nil || c.ID.String() < best.ID.String() {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	id := best.ID
	return &id
}

package integration

import (
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is a processor customer mirrored locally
type Customer struct {
	shared.TenantEntity
	ConnectionItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_customers_item_external,priority:1" json:"connection_item_id"`
	ExternalID       string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_customers_item_external,priority:2" json:"external_id"`
	Email            string    `gorm:"type:varchar(320)" json:"email,omitempty"`
	Name             string    `gorm:"type:varchar(200)" json:"name,omitempty"`
	Currency         string    `gorm:"type:varchar(8)" json:"currency,omitempty"`
	Delinquent       bool      `gorm:"not null;default:false" json:"delinquent"`
	ProviderCreated  time.Time `json:"provider_created"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string { return "customers" }

// NewCustomer maps a processor customer onto a local record
func NewCustomer(item *ConnectionItem, src ProcessorCustomer) *Customer {
	return &Customer{
		TenantEntity:     shared.TenantEntity{TenantID: item.TenantID},
		ConnectionItemID: item.ID,
		ExternalID:       src.ExternalID,
		Email:            src.Email,
		Name:             src.Name,
		Currency:         src.Currency,
		Delinquent:       src.Delinquent,
		ProviderCreated:  src.CreatedAt.UTC(),
	}
}

func (c *Customer) NaturalKey() map[string]any {
	return map[string]any{"connection_item_id": c.ConnectionItemID, "external_id": c.ExternalID}
}

func (c *Customer) MutableColumns() map[string]any {
	return map[string]any{
		"email":      c.Email,
		"name":       c.Name,
		"currency":   c.Currency,
		"delinquent": c.Delinquent,
		"updated_at": time.Now().UTC(),
	}
}

// Subscription is a processor subscription mirrored locally
type Subscription struct {
	shared.TenantEntity
	ConnectionItemID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_subscriptions_item_external,priority:1" json:"connection_item_id"`
	ExternalID         string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_subscriptions_item_external,priority:2" json:"external_id"`
	CustomerID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Status             string          `gorm:"type:varchar(32);not null" json:"status"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount"`
	Currency           string          `gorm:"type:varchar(8)" json:"currency,omitempty"`
	Interval           string          `gorm:"column:billing_interval;type:varchar(16)" json:"interval,omitempty"`
	CurrentPeriodStart time.Time       `json:"current_period_start"`
	CurrentPeriodEnd   time.Time       `json:"current_period_end"`
	CancelAtPeriodEnd  bool            `gorm:"not null;default:false" json:"cancel_at_period_end"`
}

// TableName returns the table name for GORM
func (Subscription) TableName() string { return "subscriptions" }

// NewSubscription maps a processor subscription onto a local record owned by customerID
func NewSubscription(item *ConnectionItem, customerID uuid.UUID, src ProcessorSubscription) *Subscription {
	return &Subscription{
		TenantEntity:       shared.TenantEntity{TenantID: item.TenantID},
		ConnectionItemID:   item.ID,
		ExternalID:         src.ExternalID,
		CustomerID:         customerID,
		Status:             src.Status,
		Amount:             src.Amount,
		Currency:           src.Currency,
		Interval:           src.Interval,
		CurrentPeriodStart: src.CurrentPeriodStart.UTC(),
		CurrentPeriodEnd:   src.CurrentPeriodEnd.UTC(),
		CancelAtPeriodEnd:  src.CancelAtPeriodEnd,
	}
}

func (s *Subscription) NaturalKey() map[string]any {
	return map[string]any{"connection_item_id": s.ConnectionItemID, "external_id": s.ExternalID}
}

func (s *Subscription) MutableColumns() map[string]any {
	return map[string]any{
		"customer_id":          s.CustomerID,
		"status":               s.Status,
		"amount":               s.Amount,
		"currency":             s.Currency,
		"billing_interval":     s.Interval,
		"current_period_start": s.CurrentPeriodStart,
		"current_period_end":   s.CurrentPeriodEnd,
		"cancel_at_period_end": s.CancelAtPeriodEnd,
		"updated_at":           time.Now().UTC(),
	}
}

// Invoice is a processor invoice mirrored locally
type Invoice struct {
	shared.TenantEntity
	ConnectionItemID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_item_external,priority:1" json:"connection_item_id"`
	ExternalID             string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_invoices_item_external,priority:2" json:"external_id"`
	CustomerID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	SubscriptionExternalID string          `gorm:"type:varchar(128)" json:"subscription_external_id,omitempty"`
	Number                 string          `gorm:"type:varchar(64)" json:"number,omitempty"`
	Status                 string          `gorm:"type:varchar(32)" json:"status"`
	AmountDue              decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_due"`
	AmountPaid             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_paid"`
	Currency               string          `gorm:"type:varchar(8)" json:"currency,omitempty"`
	DueDate                *time.Time      `json:"due_date,omitempty"`
	HostedURL              string          `gorm:"type:text" json:"hosted_url,omitempty"`
	ProviderCreated        time.Time       `json:"provider_created"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string { return "invoices" }

// NewInvoice maps a processor invoice onto a local record owned by customerID
func NewInvoice(item *ConnectionItem, customerID uuid.UUID, src ProcessorInvoice) *Invoice {
	return &Invoice{
		TenantEntity:           shared.TenantEntity{TenantID: item.TenantID},
		ConnectionItemID:       item.ID,
		ExternalID:             src.ExternalID,
		CustomerID:             customerID,
		SubscriptionExternalID: src.SubscriptionExternalID,
		Number:                 src.Number,
		Status:                 src.Status,
		AmountDue:              src.AmountDue,
		AmountPaid:             src.AmountPaid,
		Currency:               src.Currency,
		DueDate:                src.DueDate,
		HostedURL:              src.HostedURL,
		ProviderCreated:        src.CreatedAt.UTC(),
	}
}

func (i *Invoice) NaturalKey() map[string]any {
	return map[string]any{"connection_item_id": i.ConnectionItemID, "external_id": i.ExternalID}
}

func (i *Invoice) MutableColumns() map[string]any {
	return map[string]any{
		"customer_id":              i.CustomerID,
		"subscription_external_id": i.SubscriptionExternalID,
		"number":                   i.Number,
		"status":                   i.Status,
		"amount_due":               i.AmountDue,
		"amount_paid":              i.AmountPaid,
		"currency":                 i.Currency,
		"due_date":                 i.DueDate,
		"hosted_url":               i.HostedURL,
		"updated_at":               time.Now().UTC(),
	}
}

// Payment is a processor charge mirrored locally
type Payment struct {
	shared.TenantEntity
	ConnectionItemID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_payments_item_external,priority:1" json:"connection_item_id"`
	ExternalID        string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_payments_item_external,priority:2" json:"external_id"`
	CustomerID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	InvoiceExternalID string          `gorm:"type:varchar(128)" json:"invoice_external_id,omitempty"`
	Status            string          `gorm:"type:varchar(32)" json:"status"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount"`
	AmountRefunded    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_refunded"`
	Currency          string          `gorm:"type:varchar(8)" json:"currency,omitempty"`
	Paid              bool            `gorm:"not null;default:false" json:"paid"`
	Refunded          bool            `gorm:"not null;default:false" json:"refunded"`
	Description       string          `gorm:"type:text" json:"description,omitempty"`
	ProviderCreated   time.Time       `json:"provider_created"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string { return "payments" }

// NewPayment maps a processor charge onto a local record owned by customerID
func NewPayment(item *ConnectionItem, customerID uuid.UUID, src ProcessorCharge) *Payment {
	return &Payment{
		TenantEntity:      shared.TenantEntity{TenantID: item.TenantID},
		ConnectionItemID:  item.ID,
		ExternalID:        src.ExternalID,
		CustomerID:        customerID,
		InvoiceExternalID: src.InvoiceExternalID,
		Status:            src.Status,
		Amount:            src.Amount,
		AmountRefunded:    src.AmountRefunded,
		Currency:          src.Currency,
		Paid:              src.Paid,
		Refunded:          src.Refunded,
		Description:       src.Description,
		ProviderCreated:   src.CreatedAt.UTC(),
	}
}

func (p *Payment) NaturalKey() map[string]any {
	return map[string]any{"connection_item_id": p.ConnectionItemID, "external_id": p.ExternalID}
}

func (p *Payment) MutableColumns() map[string]any {
	return map[string]any{
		"customer_id":         p.CustomerID,
		"invoice_external_id": p.InvoiceExternalID,
		"status":              p.Status,
		"amount":              p.Amount,
		"amount_refunded":     p.AmountRefunded,
		"currency":            p.Currency,
		"paid":                p.Paid,
		"refunded":            p.Refunded,
		"description":         p.Description,
		"updated_at":          time.Now().UTC(),
	}
}

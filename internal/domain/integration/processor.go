package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPageSize is the page size requested from the processor per list call
const DefaultPageSize = 100

// ProcessorAccountIdentity identifies the processor account behind an API key
type ProcessorAccountIdentity struct {
	ExternalID      string
	DisplayName     string
	Email           string
	Country         string
	DefaultCurrency string
}

// PageRequest asks for one page starting after Cursor (empty for the first page)
type PageRequest struct {
	Limit  int64
	Cursor string
}

// Page is one page of a cursor-paginated listing
type Page[T any] struct {
	Items      []T
	HasMore    bool
	NextCursor string
}

// ProcessorCustomer is a customer as reported by the processor
type ProcessorCustomer struct {
	ExternalID string
	Email      string
	Name       string
	Currency   string
	Delinquent bool
	CreatedAt  time.Time
}

// ProcessorSubscription is a subscription as reported by the processor
type ProcessorSubscription struct {
	ExternalID         string
	CustomerExternalID string
	Status             string
	Amount             decimal.Decimal
	Currency           string
	Interval           string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CreatedAt          time.Time
}

// ProcessorInvoice is an invoice as reported by the processor
type ProcessorInvoice struct {
	ExternalID             string
	CustomerExternalID     string
	SubscriptionExternalID string
	Number                 string
	Status                 string
	AmountDue              decimal.Decimal
	AmountPaid             decimal.Decimal
	Currency               string
	DueDate                *time.Time
	HostedURL              string
	CreatedAt              time.Time
}

// ProcessorCharge is a charge as reported by the processor
type ProcessorCharge struct {
	ExternalID         string
	CustomerExternalID string
	InvoiceExternalID  string
	Status             string
	Amount             decimal.Decimal
	AmountRefunded     decimal.Decimal
	Currency           string
	Paid               bool
	Refunded           bool
	Description        string
	CreatedAt          time.Time
}

// PaymentProcessorClient is the port to a payment processor.
// secretKey may be empty, in which case the adapter's configured key is used.
// Each List call fetches exactly one page.
type PaymentProcessorClient interface {
	FetchAccountIdentity(ctx context.Context, secretKey string) (*ProcessorAccountIdentity, error)
	ListCustomers(ctx context.Context, secretKey string, page PageRequest) (*Page[ProcessorCustomer], error)
	ListSubscriptions(ctx context.Context, secretKey string, page PageRequest) (*Page[ProcessorSubscription], error)
	ListInvoices(ctx context.Context, secretKey string, page PageRequest) (*Page[ProcessorInvoice], error)
	ListCharges(ctx context.Context, secretKey string, page PageRequest) (*Page[ProcessorCharge], error)
}

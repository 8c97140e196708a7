package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"
)

// StripeProviderName identifies this adapter in errors and logs
const StripeProviderName = "stripe"

// zeroDecimalCurrencies are charged in whole units rather than cents
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// StripeProcessor implements integration.PaymentProcessorClient with stripe-go.
// A client is built per call so every connection item can use its own key.
type StripeProcessor struct {
	config   *StripeConfig
	backends *stripe.Backends
	logger   *zap.Logger
}

var _ integration.PaymentProcessorClient = (*StripeProcessor)(nil)

// NewStripeProcessor creates a processor client backed by the Stripe HTTP API
func NewStripeProcessor(config *StripeConfig, logger *zap.Logger) (*StripeProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("stripe")

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: config.Timeout},
		MaxNetworkRetries: stripe.Int64(config.MaxNetworkRetries),
		LeveledLogger:     logger.Sugar(),
	}
	if config.BaseURL != "" {
		backendConfig.URL = stripe.String(config.BaseURL)
	}
	api := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	return newStripeProcessor(config, &stripe.Backends{API: api, Connect: api, Uploads: api}, logger), nil
}

// NewStripeProcessorWithBackend creates a processor client over an explicit backend
func NewStripeProcessorWithBackend(config *StripeConfig, backend stripe.Backend, logger *zap.Logger) (*StripeProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return newStripeProcessor(config, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}, logger.Named("stripe")), nil
}

func newStripeProcessor(config *StripeConfig, backends *stripe.Backends, logger *zap.Logger) *StripeProcessor {
	return &StripeProcessor{config: config, backends: backends, logger: logger}
}

// FetchAccountIdentity returns the account that owns the key
func (p *StripeProcessor) FetchAccountIdentity(ctx context.Context, secretKey string) (*integration.ProcessorAccountIdentity, error) {
	sc, err := p.client(secretKey)
	if err != nil {
		return nil, err
	}
	acct, err := sc.Accounts.Get()
	if err != nil {
		return nil, p.mapError(ctx, "get_account", err)
	}

	identity := &integration.ProcessorAccountIdentity{
		ExternalID:      acct.ID,
		Email:           acct.Email,
		Country:         acct.Country,
		DefaultCurrency: strings.ToUpper(string(acct.DefaultCurrency)),
	}
	if acct.Settings != nil && acct.Settings.Dashboard != nil {
		identity.DisplayName = acct.Settings.Dashboard.DisplayName
	}
	if identity.DisplayName == "" && acct.BusinessProfile != nil {
		identity.DisplayName = acct.BusinessProfile.Name
	}
	return identity, nil
}

// ListCustomers fetches one page of customers
func (p *StripeProcessor) ListCustomers(ctx context.Context, secretKey string, page integration.PageRequest) (*integration.Page[integration.ProcessorCustomer], error) {
	sc, err := p.client(secretKey)
	if err != nil {
		return nil, err
	}
	params := &stripe.CustomerListParams{}
	p.applyPage(ctx, &params.ListParams, page)

	it := sc.Customers.List(params)
	out := &integration.Page[integration.ProcessorCustomer]{}
	for it.Next() {
		c := it.Customer()
		out.Items = append(out.Items, integration.ProcessorCustomer{
			ExternalID: c.ID,
			Email:      c.Email,
			Name:       c.Name,
			Currency:   normalizeCurrency(c.Currency),
			Delinquent: c.Delinquent,
			CreatedAt:  fromUnix(c.Created),
		})
		out.NextCursor = c.ID
	}
	if err := it.Err(); err != nil {
		return nil, p.mapError(ctx, "list_customers", err)
	}
	out.HasMore = hasMore(it.Meta())
	return out, nil
}

// ListSubscriptions fetches one page of subscriptions in any status
func (p *StripeProcessor) ListSubscriptions(ctx context.Context, secretKey string, page integration.PageRequest) (*integration.Page[integration.ProcessorSubscription], error) {
	sc, err := p.client(secretKey)
	if err != nil {
		return nil, err
	}
	params := &stripe.SubscriptionListParams{Status: stripe.String("all")}
	p.applyPage(ctx, &params.ListParams, page)

	it := sc.Subscriptions.List(params)
	out := &integration.Page[integration.ProcessorSubscription]{}
	for it.Next() {
		s := it.Subscription()
		out.Items = append(out.Items, convertSubscription(s))
		out.NextCursor = s.ID
	}
	if err := it.Err(); err != nil {
		return nil, p.mapError(ctx, "list_subscriptions", err)
	}
	out.HasMore = hasMore(it.Meta())
	return out, nil
}

// ListInvoices fetches one page of invoices
func (p *StripeProcessor) ListInvoices(ctx context.Context, secretKey string, page integration.PageRequest) (*integration.Page[integration.ProcessorInvoice], error) {
	sc, err := p.client(secretKey)
	if err != nil {
		return nil, err
	}
	params := &stripe.InvoiceListParams{}
	p.applyPage(ctx, &params.ListParams, page)

	it := sc.Invoices.List(params)
	out := &integration.Page[integration.ProcessorInvoice]{}
	for it.Next() {
		inv := it.Invoice()
		out.Items = append(out.Items, convertInvoice(inv))
		out.NextCursor = inv.ID
	}
	if err := it.Err(); err != nil {
		return nil, p.mapError(ctx, "list_invoices", err)
	}
	out.HasMore = hasMore(it.Meta())
	return out, nil
}

// ListCharges fetches one page of charges
func (p *StripeProcessor) ListCharges(ctx context.Context, secretKey string, page integration.PageRequest) (*integration.Page[integration.ProcessorCharge], error) {
	sc, err := p.client(secretKey)
	if err != nil {
		return nil, err
	}
	params := &stripe.ChargeListParams{}
	p.applyPage(ctx, &params.ListParams, page)

	it := sc.Charges.List(params)
	out := &integration.Page[integration.ProcessorCharge]{}
	for it.Next() {
		ch := it.Charge()
		out.Items = append(out.Items, convertCharge(ch))
		out.NextCursor = ch.ID
	}
	if err := it.Err(); err != nil {
		return nil, p.mapError(ctx, "list_charges", err)
	}
	out.HasMore = hasMore(it.Meta())
	return out, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func (p *StripeProcessor) client(secretKey string) (*client.API, error) {
	key := strings.TrimSpace(secretKey)
	if key == "" {
		key = p.config.SecretKey
	}
	if err := ValidateSecretKey(key); err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	return client.New(key, p.backends), nil
}

func (p *StripeProcessor) applyPage(ctx context.Context, lp *stripe.ListParams, page integration.PageRequest) {
	limit := page.Limit
	if limit <= 0 || limit > 100 {
		limit = p.config.PageSize
	}
	lp.Context = ctx
	lp.Single = true
	lp.Limit = stripe.Int64(limit)
	if page.Cursor != "" {
		lp.StartingAfter = stripe.String(page.Cursor)
	}
}

// mapError converts stripe-go failures into *shared.ProviderError
func (p *StripeProcessor) mapError(ctx context.Context, operation string, err error) error {
	pe := shared.NewProviderError(StripeProviderName, operation, err)

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		pe.StatusCode = stripeErr.HTTPStatusCode
		pe.ProviderCode = string(stripeErr.Code)
		pe.Retryable = stripeErr.HTTPStatusCode == http.StatusTooManyRequests || stripeErr.HTTPStatusCode >= 500
		p.logger.Warn("Stripe request failed",
			zap.String("operation", operation),
			zap.Int("status", stripeErr.HTTPStatusCode),
			zap.String("type", string(stripeErr.Type)),
			zap.String("code", string(stripeErr.Code)),
			zap.String("request_id", stripeErr.RequestID),
		)
		return pe
	}

	pe.Retryable = ctx.Err() == nil
	p.logger.Warn("Stripe request failed", zap.String("operation", operation), zap.Error(err))
	return pe
}

func hasMore(meta *stripe.ListMeta) bool {
	return meta != nil && meta.HasMore
}

func convertSubscription(s *stripe.Subscription) integration.ProcessorSubscription {
	out := integration.ProcessorSubscription{
		ExternalID:         s.ID,
		Status:             string(s.Status),
		Currency:           normalizeCurrency(s.Currency),
		CurrentPeriodStart: fromUnix(s.CurrentPeriodStart),
		CurrentPeriodEnd:   fromUnix(s.CurrentPeriodEnd),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CreatedAt:          fromUnix(s.Created),
	}
	if s.Customer != nil {
		out.CustomerExternalID = s.Customer.ID
	}

	var minor int64
	if s.Items != nil {
		for _, item := range s.Items.Data {
			if item == nil || item.Price == nil {
				continue
			}
			qty := item.Quantity
			if qty == 0 {
				qty = 1
			}
			minor += item.Price.UnitAmount * qty
			if out.Interval == "" && item.Price.Recurring != nil {
				out.Interval = string(item.Price.Recurring.Interval)
			}
		}
	}
	out.Amount = fromMinorUnits(minor, out.Currency)
	return out
}

func convertInvoice(inv *stripe.Invoice) integration.ProcessorInvoice {
	currency := normalizeCurrency(inv.Currency)
	out := integration.ProcessorInvoice{
		ExternalID: inv.ID,
		Number:     inv.Number,
		Status:     string(inv.Status),
		AmountDue:  fromMinorUnits(inv.AmountDue, currency),
		AmountPaid: fromMinorUnits(inv.AmountPaid, currency),
		Currency:   currency,
		HostedURL:  inv.HostedInvoiceURL,
		CreatedAt:  fromUnix(inv.Created),
	}
	if inv.Customer != nil {
		out.CustomerExternalID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionExternalID = inv.Subscription.ID
	}
	if inv.DueDate > 0 {
		due := fromUnix(inv.DueDate)
		out.DueDate = &due
	}
	return out
}

func convertCharge(ch *stripe.Charge) integration.ProcessorCharge {
	currency := normalizeCurrency(ch.Currency)
	out := integration.ProcessorCharge{
		ExternalID:     ch.ID,
		Status:         string(ch.Status),
		Amount:         fromMinorUnits(ch.Amount, currency),
		AmountRefunded: fromMinorUnits(ch.AmountRefunded, currency),
		Currency:       currency,
		Paid:           ch.Paid,
		Refunded:       ch.Refunded,
		Description:    ch.Description,
		CreatedAt:      fromUnix(ch.Created),
	}
	if ch.Customer != nil {
		out.CustomerExternalID = ch.Customer.ID
	}
	if ch.Invoice != nil {
		out.InvoiceExternalID = ch.Invoice.ID
	}
	return out
}

func normalizeCurrency(c stripe.Currency) string {
	return strings.ToUpper(string(c))
}

// fromMinorUnits converts an integer amount in the currency's smallest unit
func fromMinorUnits(amount int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

func fromUnix(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

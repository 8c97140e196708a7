package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrRepeatedCursor is returned when a provider hands back the cursor it was just given
var ErrRepeatedCursor = errors.New("provider returned a repeated page cursor")

// ProcessorSyncService mirrors payment processor customers, subscriptions,
// invoices and payments locally
type ProcessorSyncService struct {
	items      integration.ConnectionItemRepository
	customers  integration.CustomerRepository
	reconciler shared.Reconciler
	client     integration.PaymentProcessorClient
	vault      integration.CredentialVault
	pageSize   int64
	logger     *zap.Logger
	now        func() time.Time
}

// ProcessorSyncDeps groups the collaborators of ProcessorSyncService
type ProcessorSyncDeps struct {
	Items      integration.ConnectionItemRepository
	Customers  integration.CustomerRepository
	Reconciler shared.Reconciler
	Client     integration.PaymentProcessorClient
	Vault      integration.CredentialVault
}

// NewProcessorSyncService creates a new ProcessorSyncService. pageSize <= 0 uses integration.DefaultPageSize.
func NewProcessorSyncService(deps ProcessorSyncDeps, pageSize int, logger *zap.Logger) *ProcessorSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 || pageSize > integration.DefaultPageSize {
		pageSize = integration.DefaultPageSize
	}
	return &ProcessorSyncService{
		items:      deps.Items,
		customers:  deps.Customers,
		reconciler: deps.Reconciler,
		client:     deps.Client,
		vault:      deps.Vault,
		pageSize:   int64(pageSize),
		logger:     logger.Named("processor_sync"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ConnectPaymentProcessor verifies apiKey against the processor and stores it sealed
// as a PAYMENT_PROCESSOR connection item.
func (s *ProcessorSyncService) ConnectPaymentProcessor(ctx context.Context, tenantID uuid.UUID, req ConnectPaymentProcessorRequest) (*ConnectionItemResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "processor_sync", "connect",
		telemetry.SpanAttrTenantID, tenantID,
	)
	defer span.End()

	if req.APIKey == "" {
		return nil, shared.NewValidationError("api key is required")
	}

	identity, err := s.client.FetchAccountIdentity(ctx, req.APIKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if _, err := s.items.FindByExternalItemID(ctx, integration.ProviderKindPaymentProcessor, identity.ExternalID); err == nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("processor account %s is already connected", identity.ExternalID))
	} else if !shared.IsNotFound(err) {
		return nil, err
	}

	credential, err := s.vault.Encrypt(req.APIKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	item, err := integration.NewConnectionItem(tenantID, req.UserID, integration.ProviderKindPaymentProcessor,
		identity.ExternalID, identity.DisplayName, credential)
	if err != nil {
		return nil, err
	}
	if err := s.items.Create(ctx, item); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("store connection item: %w", err)
	}

	telemetry.SetOK(span)
	s.logger.Info("Payment processor connected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("connection_item_id", item.ID.String()),
		zap.String("processor_account", identity.ExternalID),
	)
	resp := ToConnectionItemResponse(item)
	return &resp, nil
}

// FullPaymentProcessorSync syncs every resource of a processor connection in
// dependency order. A failing resource is recorded in the report and the remaining
// resources still run; the returned error joins every resource error. The report
// is returned even when err is non-nil.
func (s *ProcessorSyncService) FullPaymentProcessorSync(ctx context.Context, tenantID, itemID uuid.UUID) (*integration.ProcessorSyncReport, error) {
	item, err := s.items.FindByIDForTenant(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Kind != integration.ProviderKindPaymentProcessor {
		return nil, shared.NewValidationError("connection item is not a payment processor connection")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "processor_sync", "full_sync",
		telemetry.SpanAttrTenantID, tenantID,
		telemetry.SpanAttrConnectionItemID, item.ID,
	)
	defer span.End()

	secretKey, err := s.vault.Decrypt(item.Credential)
	if err != nil {
		s.logger.Error("Stored credential cannot be decrypted",
			zap.String("connection_item_id", item.ID.String()),
			zap.Error(err),
		)
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &integration.ProcessorSyncReport{
		ConnectionItemID: item.ID,
		StartedAt:        s.now(),
	}

	var errs []error
	for _, resource := range integration.ProcessorSyncOrder {
		counts, err := s.syncResource(ctx, item, secretKey, resource)
		result := integration.ResourceSyncResult{Resource: resource, Counts: counts}
		if err != nil {
			result.Error = err.Error()
			errs = append(errs, fmt.Errorf("sync %s: %w", resource, err))
			s.logger.Warn("Processor resource sync failed",
				zap.String("connection_item_id", item.ID.String()),
				zap.String("resource", string(resource)),
				zap.Error(err),
			)
		} else {
			s.logger.Info("Processor resource synced",
				zap.String("connection_item_id", item.ID.String()),
				zap.String("resource", string(resource)),
				zap.Int("synced", counts.Synced()),
				zap.Int("skipped", counts.Skipped),
			)
		}
		report.Resources = append(report.Resources, result)
	}
	report.CompletedAt = s.now()

	if report.Succeeded() {
		if err := s.items.MarkSynced(ctx, item.ID, report.CompletedAt); err != nil {
			errs = append(errs, err)
		}
	}

	joined := errors.Join(errs...)
	if joined != nil {
		telemetry.RecordError(span, joined)
	} else {
		telemetry.SetOK(span)
	}
	return report, joined
}

func (s *ProcessorSyncService) syncResource(ctx context.Context, item *integration.ConnectionItem, secretKey string, resource integration.ProcessorResource) (integration.SyncCounts, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "processor_sync", "sync_resource",
		telemetry.SpanAttrConnectionItemID, item.ID,
		telemetry.SpanAttrResource, string(resource),
	)
	defer span.End()

	var counts integration.SyncCounts
	var err error
	if resource == integration.ProcessorResourceCustomers {
		err = drainPages(ctx, s.pageSize,
			func(ctx context.Context, page integration.PageRequest) (*integration.Page[integration.ProcessorCustomer], error) {
				return s.client.ListCustomers(ctx, secretKey, page)
			},
			func(src integration.ProcessorCustomer) error {
				counts.Fetched++
				return s.upsert(ctx, &counts, integration.NewCustomer(item, src))
			})
		return s.finishSpan(span, counts, err)
	}

	// customers from this run and every earlier one
	customerIndex, err := s.customers.ExternalIDIndex(ctx, item.ID)
	if err != nil {
		return counts, err
	}
	resolve := func(externalID string) (uuid.UUID, bool) {
		id, ok := customerIndex[externalID]
		if !ok {
			counts.Skipped++
		}
		return id, ok
	}

	switch resource {
	case integration.ProcessorResourceSubscriptions:
		err = drainPages(ctx, s.pageSize,
			func(ctx context.Context, page integration.PageRequest) (*integration.Page[integration.ProcessorSubscription], error) {
				return s.client.ListSubscriptions(ctx, secretKey, page)
			},
			func(src integration.ProcessorSubscription) error {
				counts.Fetched++
				customerID, ok := resolve(src.CustomerExternalID)
				if !ok {
					return nil
				}
				return s.upsert(ctx, &counts, integration.NewSubscription(item, customerID, src))
			})
	case integration.ProcessorResourceInvoices:
		err = drainPages(ctx, s.pageSize,
			func(ctx context.Context, page integration.PageRequest) (*integration.Page[integration.ProcessorInvoice], error) {
				return s.client.ListInvoices(ctx, secretKey, page)
			},
			func(src integration.ProcessorInvoice) error {
				counts.Fetched++
				customerID, ok := resolve(src.CustomerExternalID)
				if !ok {
					return nil
				}
				return s.upsert(ctx, &counts, integration.NewInvoice(item, customerID, src))
			})
	case integration.ProcessorResourcePayments:
		err = drainPages(ctx, s.pageSize,
			func(ctx context.Context, page integration.PageRequest) (*integration.Page[integration.ProcessorCharge], error) {
				return s.client.ListCharges(ctx, secretKey, page)
			},
			func(src integration.ProcessorCharge) error {
				counts.Fetched++
				customerID, ok := resolve(src.CustomerExternalID)
				if !ok {
					return nil
				}
				return s.upsert(ctx, &counts, integration.NewPayment(item, customerID, src))
			})
	default:
		err = fmt.Errorf("unknown processor resource %q", resource)
	}
	return s.finishSpan(span, counts, err)
}

func (s *ProcessorSyncService) upsert(ctx context.Context, counts *integration.SyncCounts, rec shared.Reconcilable) error {
	outcome, err := s.reconciler.Upsert(ctx, rec)
	if err != nil {
		counts.Failed++
		return err
	}
	countOutcome(counts, outcome)
	return nil
}

func (s *ProcessorSyncService) finishSpan(span trace.Span, counts integration.SyncCounts, err error) (integration.SyncCounts, error) {
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSyncedCount, counts.Synced(),
		telemetry.SpanAttrSkippedCount, counts.Skipped,
	)
	if err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.SetOK(span)
	}
	return counts, err
}

// drainPages walks a cursor-paginated listing until the provider reports no more
// pages, handing every item to handle. Pages are requested strictly one after another.
func drainPages[T any](
	ctx context.Context,
	pageSize int64,
	fetch func(context.Context, integration.PageRequest) (*integration.Page[T], error),
	handle func(T) error,
) error {
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := fetch(ctx, integration.PageRequest{Limit: pageSize, Cursor: cursor})
		if err != nil {
			return err
		}
		for _, item := range page.Items {
			if err := handle(item); err != nil {
				return err
			}
		}
		if !page.HasMore || page.NextCursor == "" {
			return nil
		}
		if page.NextCursor == cursor {
			return ErrRepeatedCursor
		}
		cursor = page.NextCursor
	}
}

package trade

import (
	"context"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/trade"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleService records product sales against the ledger
type SaleService struct {
	scope  TransactionScope
	logger *zap.Logger
	now    func() time.Time
}

// NewSaleService creates a new SaleService
func NewSaleService(scope TransactionScope, logger *zap.Logger) *SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{
		scope:  scope,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordSale sells quantity units of a product into an account. The ledger
// transaction, the sale, the stock decrement and the balance increment are
// written in one database transaction; a failure in any of them leaves no trace.
func (s *SaleService) RecordSale(ctx context.Context, tenantID uuid.UUID, req RecordSaleRequest) (*RecordSaleResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "record",
		telemetry.SpanAttrTenantID, tenantID,
		telemetry.SpanAttrProductID, req.ProductID,
		telemetry.SpanAttrAccountID, req.AccountID,
		telemetry.SpanAttrQuantity, req.QuantitySold,
	)
	defer span.End()

	if req.QuantitySold <= 0 {
		err := shared.NewValidationError("quantity sold must be positive")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.ProductID == uuid.Nil || req.AccountID == uuid.Nil {
		err := shared.NewValidationError("product id and account id are required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *RecordSaleResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.Products().FindByIDForUpdate(ctx, tenantID, req.ProductID)
		if err != nil {
			return err
		}
		account, err := repos.Accounts().FindByIDForUpdate(ctx, tenantID, req.AccountID)
		if err != nil {
			return err
		}
		if account.IsMirrored() {
			return shared.NewValidationError("account is mirrored from a provider and cannot receive local sales")
		}
		if err := product.CheckSellable(req.QuantitySold); err != nil {
			return err
		}
		if account.Currency != product.Currency {
			return shared.NewValidationError("product currency " + product.Currency + " does not match account currency " + account.Currency)
		}

		now := s.now()
		total := product.SaleTotal(req.QuantitySold)
		transactionID := uuid.New()

		sale, err := trade.NewSale(tenantID, product.ID, account.ID, transactionID, req.QuantitySold, product.Price, now)
		if err != nil {
			return err
		}
		ledgerTx := finance.NewSaleTransaction(tenantID, account.ID, sale.ID, total, account.Currency, req.QuantitySold, product.Name, now)
		ledgerTx.ID = transactionID

		if err := repos.Transactions().Create(ctx, ledgerTx); err != nil {
			return err
		}
		if err := repos.Sales().Create(ctx, sale); err != nil {
			return err
		}
		if err := repos.Products().DecrementStock(ctx, tenantID, product.ID, req.QuantitySold); err != nil {
			return err
		}
		if err := repos.Accounts().AdjustBalance(ctx, tenantID, account.ID, total); err != nil {
			return err
		}

		product.Quantity -= req.QuantitySold
		account.Balance = account.Balance.Add(total)
		result = &RecordSaleResult{Sale: sale, Transaction: ledgerTx, Product: product, Account: account}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Sale not recorded",
			zap.String("tenant_id", tenantID.String()),
			zap.String("product_id", req.ProductID.String()),
			zap.String("account_id", req.AccountID.String()),
			zap.Int64("quantity", req.QuantitySold),
			zap.Error(err),
		)
		return nil, err
	}

	telemetry.SetOK(span)
	s.logger.Info("Sale recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("sale_id", result.Sale.ID.String()),
		zap.String("transaction_id", result.Transaction.ID.String()),
		zap.String("total", result.Sale.TotalPrice.String()),
	)
	return result, nil
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	integrationapp "github.com/g-aniketh/coxistai-startup-acc-sub003/internal/application/integration"
	tradeapp "github.com/g-aniketh/coxistai-startup-acc-sub003/internal/application/trade"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/scheduler"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/interfaces/http/dto"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BankingService is the aggregator side of the sync orchestrator
type BankingService interface {
	CreateLinkToken(ctx context.Context, userID uuid.UUID) (*integration.LinkSession, error)
	ExchangePublicToken(ctx context.Context, tenantID uuid.UUID, req integrationapp.ExchangePublicTokenRequest) (*integrationapp.ExchangePublicTokenResult, error)
	ListConnectionItems(ctx context.Context, tenantID uuid.UUID) ([]integrationapp.ConnectionItemResponse, error)
	DeleteConnectionItem(ctx context.Context, tenantID, userID, itemID uuid.UUID) error
	SyncAccounts(ctx context.Context, tenantID, itemID uuid.UUID) (*integrationapp.AccountSyncResult, error)
	SyncTransactions(ctx context.Context, tenantID, itemID uuid.UUID, req integrationapp.SyncTransactionsRequest) (*integration.TransactionSyncResult, error)
}

// ProcessorService is the payment-processor side of the sync orchestrator
type ProcessorService interface {
	ConnectPaymentProcessor(ctx context.Context, tenantID uuid.UUID, req integrationapp.ConnectPaymentProcessorRequest) (*integrationapp.ConnectionItemResponse, error)
	FullPaymentProcessorSync(ctx context.Context, tenantID, itemID uuid.UUID) (*integration.ProcessorSyncReport, error)
}

// SyncRunner drives scheduled and manual sync runs
type SyncRunner interface {
	SyncAll(ctx context.Context, trigger scheduler.SyncTrigger) (*scheduler.SyncRun, error)
	SyncItem(ctx context.Context, itemID uuid.UUID) (*integration.TransactionSyncResult, error)
	Status(ctx context.Context) (*scheduler.SyncStatus, error)
	History(limit int) []scheduler.SyncRun
}

// SaleRecorder records a sale as one atomic ledger transaction
type SaleRecorder interface {
	RecordSale(ctx context.Context, tenantID uuid.UUID, req tradeapp.RecordSaleRequest) (*tradeapp.RecordSaleResult, error)
}

// CFOHandler serves the sync engine endpoints under /cfo
type CFOHandler struct {
	BaseHandler
	banking   BankingService
	processor ProcessorService
	runner    SyncRunner
	sales     SaleRecorder
}

// NewCFOHandler creates a new CFOHandler
func NewCFOHandler(banking BankingService, processor ProcessorService, runner SyncRunner, sales SaleRecorder) *CFOHandler {
	return &CFOHandler{
		banking:   banking,
		processor: processor,
		runner:    runner,
		sales:     sales,
	}
}

// ExchangeRequest is the body of POST /cfo/exchange
type ExchangeRequest struct {
	PublicToken string `json:"public_token" binding:"required"`
}

// ConnectProcessorRequest is the body of POST /cfo/stripe/connect
type ConnectProcessorRequest struct {
	APIKey string `json:"api_key" binding:"required,min=8"`
}

// RecordSaleRequest is the body of POST /cfo/sales
type RecordSaleRequest struct {
	ProductID    string `json:"product_id" binding:"required,uuid"`
	AccountID    string `json:"account_id" binding:"required,uuid"`
	QuantitySold int64  `json:"quantity_sold" binding:"required,gt=0"`
}

// CreateLinkToken opens an aggregator link session for the caller
func (h *CFOHandler) CreateLinkToken(c *gin.Context) {
	_, userID, ok := h.identity(c)
	if !ok {
		return
	}
	session, err := h.banking.CreateLinkToken(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// ExchangePublicToken completes the link flow and mirrors the new item's accounts
func (h *CFOHandler) ExchangePublicToken(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.banking.ExchangePublicToken(c.Request.Context(), tenantID, integrationapp.ExchangePublicTokenRequest{
		PublicToken: req.PublicToken,
		UserID:      userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListItems lists the tenant's connection items
func (h *CFOHandler) ListItems(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	items, err := h.banking.ListConnectionItems(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// DeleteItem removes a connection item owned by the caller
func (h *CFOHandler) DeleteItem(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.banking.DeleteConnectionItem(c.Request.Context(), tenantID, userID, itemID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// SyncAccounts overwrites the item's mirrored accounts from the aggregator
func (h *CFOHandler) SyncAccounts(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.banking.SyncAccounts(c.Request.Context(), tenantID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncTransactions pulls the item's transactions for an optional date window.
// The window comes from start_date/end_date query parameters or a JSON body.
func (h *CFOHandler) SyncTransactions(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req integrationapp.SyncTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	result, err := h.banking.SyncTransactions(c.Request.Context(), tenantID, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ConnectPaymentProcessor verifies and stores a processor API key
func (h *CFOHandler) ConnectPaymentProcessor(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req ConnectProcessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	item, err := h.processor.ConnectPaymentProcessor(c.Request.Context(), tenantID, integrationapp.ConnectPaymentProcessorRequest{
		APIKey: req.APIKey,
		UserID: userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// SyncPaymentProcessor runs a full processor sync. A partial failure answers
// 207 with the per-resource report so the caller sees what did sync.
func (h *CFOHandler) SyncPaymentProcessor(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	report, err := h.processor.FullPaymentProcessorSync(c.Request.Context(), tenantID, itemID)
	switch {
	case err == nil:
		h.Success(c, report)
	case report == nil:
		h.HandleError(c, err)
	default:
		_ = c.Error(err)
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeProvider,
			"One or more resources failed to sync", middleware.GetRequestID(c))
		resp.Data = report
		c.JSON(http.StatusMultiStatus, resp)
	}
}

// SyncStatus reports scheduler state, mirror totals and recent runs.
// Per-item detail and run errors are limited to the caller's tenant; run
// counters stay global.
// ?history=N bounds the number of runs returned (default 5).
func (h *CFOHandler) SyncStatus(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	limit := 5
	if raw := c.Query("history"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.BadRequest(c, "history must be a non-negative integer")
			return
		}
		limit = n
	}

	status, err := h.runner.Status(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	owned := scopeStatus(status, tenantID)

	history := []scheduler.SyncRun{}
	if limit > 0 {
		history = h.runner.History(limit)
	}
	for i := range history {
		scopeRunErrors(&history[i], owned)
	}
	h.Success(c, gin.H{
		"status":  status,
		"history": history,
	})
}

// RunSync runs a manual sync of every aggregator item.
// Item failures are reported inside the run; only an overlapping run is rejected.
func (h *CFOHandler) RunSync(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	run, err := h.runner.SyncAll(c.Request.Context(), scheduler.SyncTriggerManual)
	if errors.Is(err, scheduler.ErrSyncAlreadyInProgress) {
		h.Conflict(c, "A sync run is already in progress")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items, err := h.banking.ListConnectionItems(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	owned := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		owned[item.ID] = struct{}{}
	}
	scopeRunErrors(run, owned)
	h.Success(c, run)
}

// scopeStatus drops other tenants' items from status, recomputes the totals
// from what is left and returns the ids that remain.
func scopeStatus(status *scheduler.SyncStatus, tenantID uuid.UUID) map[uuid.UUID]struct{} {
	owned := make(map[uuid.UUID]struct{})
	items := make([]integration.ItemSyncStatus, 0, len(status.Items))
	var accounts, transactions int64
	for _, item := range status.Items {
		if item.TenantID != tenantID {
			continue
		}
		owned[item.ConnectionItemID] = struct{}{}
		items = append(items, item)
		accounts += item.AccountCount
		transactions += item.TransactionCount
	}
	status.Items = items
	status.TotalItems = int64(len(items))
	status.TotalAccounts = accounts
	status.TotalTransactions = transactions
	if status.LastRun != nil {
		scopeRunErrors(status.LastRun, owned)
	}
	return owned
}

func scopeRunErrors(run *scheduler.SyncRun, owned map[uuid.UUID]struct{}) {
	kept := make([]scheduler.ItemSyncError, 0, len(run.Errors))
	for _, e := range run.Errors {
		if _, ok := owned[e.ConnectionItemID]; ok {
			kept = append(kept, e)
		}
	}
	run.Errors = kept
}

// SyncItem runs a manual sync of one of the tenant's items over the scheduled window
func (h *CFOHandler) SyncItem(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	// the runner is tenant-blind, so ownership is checked here
	items, err := h.banking.ListConnectionItems(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	owned := false
	for _, item := range items {
		if item.ID == itemID && item.Kind == integration.ProviderKindAggregator {
			owned = true
			break
		}
	}
	if !owned {
		h.HandleError(c, shared.NewNotFoundError("connection item", itemID))
		return
	}

	result, err := h.runner.SyncItem(c.Request.Context(), itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RecordSale records a sale, its ledger transaction, the stock decrement and the balance delta
func (h *CFOHandler) RecordSale(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	var req RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.sales.RecordSale(c.Request.Context(), tenantID, tradeapp.RecordSaleRequest{
		ProductID:    uuid.MustParse(req.ProductID),
		AccountID:    uuid.MustParse(req.AccountID),
		QuantitySold: req.QuantitySold,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

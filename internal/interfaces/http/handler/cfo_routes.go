package handler

import (
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// CFORoutes creates the route group for the sync engine.
// identityChain guards every engine route and must start with the identity middleware.
// The webhook sits outside it; webhookMiddleware applies only to the webhook.
func CFORoutes(h *CFOHandler, webhook *WebhookHandler, identityChain []gin.HandlerFunc, webhookMiddleware ...gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("cfo", "/cfo")

	group.Group("plaid", "/plaid").
		Use(webhookMiddleware...).
		POST("/webhook", webhook.HandlePlaidWebhook)

	engine := group.Group("engine", "").Use(identityChain...)

	// Aggregator link flow and items
	engine.POST("/link-token", h.CreateLinkToken)
	engine.POST("/exchange", h.ExchangePublicToken)
	engine.GET("/items", h.ListItems)
	engine.DELETE("/items/:id", h.DeleteItem)
	engine.POST("/items/:id/sync-accounts", h.SyncAccounts)
	engine.POST("/items/:id/sync-transactions", h.SyncTransactions)

	// Payment processor
	engine.POST("/stripe/connect", h.ConnectPaymentProcessor)
	engine.POST("/stripe/:id/sync", h.SyncPaymentProcessor)

	// Scheduler
	engine.GET("/sync/status", h.SyncStatus)
	engine.POST("/sync/run", h.RunSync)
	engine.POST("/sync/items/:id", h.SyncItem)

	// Commerce ledger
	engine.POST("/sales", h.RecordSale)

	return group
}

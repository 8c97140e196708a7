package trade

import (
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/catalog"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/trade"
	"github.com/google/uuid"
)

// RecordSaleRequest represents a request to record a product sale into an account
type RecordSaleRequest struct {
	ProductID    uuid.UUID `json:"product_id" binding:"required"`
	AccountID    uuid.UUID `json:"account_id" binding:"required"`
	QuantitySold int64     `json:"quantity_sold" binding:"required,gt=0"`
}

// RecordSaleResult is the state after a sale commits
type RecordSaleResult struct {
	Sale        *trade.Sale          `json:"sale"`
	Transaction *finance.Transaction `json:"transaction"`
	Product     *catalog.Product     `json:"product"`
	Account     *finance.Account     `json:"account"`
}

package banking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"go.uber.org/zap"
)

// ProviderName identifies this adapter in errors and logs
const ProviderName = "plaid"

// maxResponseSize is the maximum allowed response size from the Plaid API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxTransactionsPerPage is the largest count /transactions/get accepts
const maxTransactionsPerPage = 500

// PlaidAdapter implements integration.AccountAggregationClient against the Plaid REST API
type PlaidAdapter struct {
	config     *PlaidConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ integration.AccountAggregationClient = (*PlaidAdapter)(nil)

// NewPlaidAdapter creates a new Plaid adapter with the given configuration
func NewPlaidAdapter(config *PlaidConfig, logger *zap.Logger) (*PlaidAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaidAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.Named("plaid"),
	}, nil
}

func (a *PlaidAdapter) auth() plaidAuth {
	return plaidAuth{ClientID: a.config.ClientID, Secret: a.config.Secret}
}

// CreateLinkSession creates a link token for the given application user
func (a *PlaidAdapter) CreateLinkSession(ctx context.Context, userID string) (*integration.LinkSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, shared.NewValidationError("user id is required to create a link token")
	}
	req := plaidLinkTokenRequest{
		plaidAuth:    a.auth(),
		ClientName:   a.config.ClientName,
		User:         plaidLinkUser{ClientUserID: userID},
		Products:     a.config.Products,
		CountryCodes: a.config.CountryCodes,
		Language:     a.config.Language,
		Webhook:      a.config.WebhookURL,
	}
	var resp plaidLinkTokenResponse
	if err := a.doRequest(ctx, "/link/token/create", req, &resp); err != nil {
		return nil, err
	}
	return &integration.LinkSession{Token: resp.LinkToken, Expiration: resp.Expiration}, nil
}

// ExchangePublicToken trades a public token from the link flow for an access token
func (a *PlaidAdapter) ExchangePublicToken(ctx context.Context, publicToken string) (*integration.TokenExchange, error) {
	if strings.TrimSpace(publicToken) == "" {
		return nil, shared.NewValidationError("public token is required")
	}
	req := plaidPublicTokenRequest{plaidAuth: a.auth(), PublicToken: publicToken}
	var resp plaidPublicTokenResponse
	if err := a.doRequest(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return nil, err
	}
	return &integration.TokenExchange{AccessToken: resp.AccessToken, ExternalItemID: resp.ItemID}, nil
}

// FetchItem returns the item behind an access token
func (a *PlaidAdapter) FetchItem(ctx context.Context, accessToken string) (*integration.ItemInfo, error) {
	req := plaidAccessTokenRequest{plaidAuth: a.auth(), AccessToken: accessToken}
	var resp plaidItemResponse
	if err := a.doRequest(ctx, "/item/get", req, &resp); err != nil {
		return nil, err
	}
	return &integration.ItemInfo{ExternalItemID: resp.Item.ItemID, InstitutionID: resp.Item.InstitutionID}, nil
}

// FetchInstitutionName resolves an institution id to its display name
func (a *PlaidAdapter) FetchInstitutionName(ctx context.Context, institutionID string) (string, error) {
	req := plaidInstitutionRequest{
		plaidAuth:     a.auth(),
		InstitutionID: institutionID,
		CountryCodes:  a.config.CountryCodes,
	}
	var resp plaidInstitutionResponse
	if err := a.doRequest(ctx, "/institutions/get_by_id", req, &resp); err != nil {
		return "", err
	}
	return resp.Institution.Name, nil
}

// FetchAccounts lists the accounts of an item with their balances
func (a *PlaidAdapter) FetchAccounts(ctx context.Context, accessToken string) ([]integration.AggregatedAccount, error) {
	req := plaidAccessTokenRequest{plaidAuth: a.auth(), AccessToken: accessToken}
	var resp plaidAccountsResponse
	if err := a.doRequest(ctx, "/accounts/get", req, &resp); err != nil {
		return nil, err
	}
	accounts := make([]integration.AggregatedAccount, 0, len(resp.Accounts))
	for _, acc := range resp.Accounts {
		accounts = append(accounts, convertPlaidAccount(acc))
	}
	return accounts, nil
}

// FetchTransactions fetches one page of transactions within an inclusive date window
func (a *PlaidAdapter) FetchTransactions(ctx context.Context, accessToken string, query integration.TransactionQuery) (*integration.TransactionPage, error) {
	if !query.Window.IsValid() {
		return nil, shared.NewValidationError("transaction window start must not be after end")
	}
	count := query.Count
	if count <= 0 || count > maxTransactionsPerPage {
		count = maxTransactionsPerPage
	}
	req := plaidTransactionsRequest{
		plaidAuth:   a.auth(),
		AccessToken: accessToken,
		StartDate:   query.Window.StartDate(),
		EndDate:     query.Window.EndDate(),
		Options: plaidTransactionsOptions{
			AccountIDs: query.AccountIDs,
			Count:      count,
			Offset:     query.Offset,
		},
	}
	var resp plaidTransactionsResponse
	if err := a.doRequest(ctx, "/transactions/get", req, &resp); err != nil {
		return nil, err
	}

	page := &integration.TransactionPage{
		Transactions:      make([]integration.AggregatedTransaction, 0, len(resp.Transactions)),
		TotalTransactions: resp.TotalTransactions,
	}
	for _, tx := range resp.Transactions {
		page.Transactions = append(page.Transactions, convertPlaidTransaction(tx))
	}
	return page, nil
}

// RevokeItem invalidates the access token at the provider
func (a *PlaidAdapter) RevokeItem(ctx context.Context, accessToken string) error {
	req := plaidAccessTokenRequest{plaidAuth: a.auth(), AccessToken: accessToken}
	return a.doRequest(ctx, "/item/remove", req, &struct{}{})
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest POSTs a JSON body to path and decodes a successful response into out.
// Failures are returned as *shared.ProviderError.
func (a *PlaidAdapter) doRequest(ctx context.Context, path string, body, out any) error {
	operation := strings.TrimPrefix(path, "/")

	payload, err := json.Marshal(body)
	if err != nil {
		return shared.NewProviderError(ProviderName, operation, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return shared.NewProviderError(ProviderName, operation, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Plaid-Version", "2020-09-14")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		pe := shared.NewProviderError(ProviderName, operation, err)
		pe.Retryable = ctx.Err() == nil
		return pe
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		pe := shared.NewProviderError(ProviderName, operation, fmt.Errorf("read response: %w", err))
		pe.Retryable = true
		return pe
	}

	if resp.StatusCode >= 400 {
		return a.decodeError(operation, resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return shared.NewProviderError(ProviderName, operation, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (a *PlaidAdapter) decodeError(operation string, status int, body []byte) error {
	pe := &shared.ProviderError{
		Provider:   ProviderName,
		Operation:  operation,
		StatusCode: status,
		Retryable:  status == http.StatusTooManyRequests || status >= 500,
	}

	var apiErr plaidError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.ErrorCode != "" {
		pe.ProviderCode = apiErr.ErrorCode
		pe.Err = &apiErr
		if apiErr.ErrorType == "RATE_LIMIT_EXCEEDED" || apiErr.ErrorType == "INSTITUTION_ERROR" {
			pe.Retryable = true
		}
		a.logger.Warn("Plaid request failed",
			zap.String("operation", operation),
			zap.Int("status", status),
			zap.String("error_type", apiErr.ErrorType),
			zap.String("error_code", apiErr.ErrorCode),
			zap.String("request_id", apiErr.RequestID),
		)
		return pe
	}

	pe.Err = errors.New(http.StatusText(status))
	return pe
}

func convertPlaidAccount(acc plaidAccount) integration.AggregatedAccount {
	currency := acc.Balances.ISOCurrencyCode
	if currency == "" {
		currency = acc.Balances.UnofficialCurrencyCode
	}
	return integration.AggregatedAccount{
		ExternalID:       acc.AccountID,
		Name:             acc.Name,
		OfficialName:     acc.OfficialName,
		Mask:             acc.Mask,
		Type:             acc.Type,
		Subtype:          acc.Subtype,
		CurrentBalance:   acc.Balances.Current,
		AvailableBalance: acc.Balances.Available,
		Currency:         currency,
	}
}

func convertPlaidTransaction(tx plaidTransaction) integration.AggregatedTransaction {
	currency := tx.ISOCurrencyCode
	if currency == "" {
		currency = tx.UnofficialCurrencyCode
	}
	categories := tx.Category
	if len(categories) == 0 && tx.PersonalFinanceCategory != nil && tx.PersonalFinanceCategory.Primary != "" {
		categories = []string{humanizeCategory(tx.PersonalFinanceCategory.Primary)}
	}
	return integration.AggregatedTransaction{
		ExternalID:        tx.TransactionID,
		ExternalAccountID: tx.AccountID,
		Amount:            tx.Amount,
		Currency:          currency,
		Date:              tx.Date,
		Name:              tx.Name,
		MerchantName:      tx.MerchantName,
		Pending:           tx.Pending,
		Categories:        categories,
	}
}

// humanizeCategory turns FOOD_AND_DRINK into "Food and drink"
func humanizeCategory(code string) string {
	words := strings.Split(strings.ToLower(code), "_")
	if len(words) == 0 || words[0] == "" {
		return code
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}

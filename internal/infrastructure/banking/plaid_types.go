package banking

import (
	"time"

	"github.com/shopspring/decimal"
)

// plaidAuth is embedded in every request body
type plaidAuth struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type plaidLinkUser struct {
	ClientUserID string `json:"client_user_id"`
}

type plaidLinkTokenRequest struct {
	plaidAuth
	ClientName   string        `json:"client_name"`
	User         plaidLinkUser `json:"user"`
	Products     []string      `json:"products"`
	CountryCodes []string      `json:"country_codes"`
	Language     string        `json:"language"`
	Webhook      string        `json:"webhook,omitempty"`
}

type plaidLinkTokenResponse struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
	RequestID  string    `json:"request_id"`
}

type plaidPublicTokenRequest struct {
	plaidAuth
	PublicToken string `json:"public_token"`
}

type plaidPublicTokenResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

type plaidAccessTokenRequest struct {
	plaidAuth
	AccessToken string `json:"access_token"`
}

type plaidItem struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}

type plaidItemResponse struct {
	Item      plaidItem `json:"item"`
	RequestID string    `json:"request_id"`
}

type plaidInstitutionRequest struct {
	plaidAuth
	InstitutionID string   `json:"institution_id"`
	CountryCodes  []string `json:"country_codes"`
}

type plaidInstitution struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
}

type plaidInstitutionResponse struct {
	Institution plaidInstitution `json:"institution"`
	RequestID   string           `json:"request_id"`
}

type plaidBalances struct {
	Available              decimal.NullDecimal `json:"available"`
	Current                decimal.NullDecimal `json:"current"`
	ISOCurrencyCode        string              `json:"iso_currency_code"`
	UnofficialCurrencyCode string              `json:"unofficial_currency_code"`
}

type plaidAccount struct {
	AccountID    string        `json:"account_id"`
	Name         string        `json:"name"`
	OfficialName string        `json:"official_name"`
	Mask         string        `json:"mask"`
	Type         string        `json:"type"`
	Subtype      string        `json:"subtype"`
	Balances     plaidBalances `json:"balances"`
}

type plaidAccountsResponse struct {
	Accounts  []plaidAccount `json:"accounts"`
	Item      plaidItem      `json:"item"`
	RequestID string         `json:"request_id"`
}

type plaidTransactionsOptions struct {
	AccountIDs []string `json:"account_ids,omitempty"`
	Count      int      `json:"count,omitempty"`
	Offset     int      `json:"offset"`
}

type plaidTransactionsRequest struct {
	plaidAuth
	AccessToken string                   `json:"access_token"`
	StartDate   string                   `json:"start_date"`
	EndDate     string                   `json:"end_date"`
	Options     plaidTransactionsOptions `json:"options"`
}

type plaidPersonalFinanceCategory struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

type plaidTransaction struct {
	TransactionID           string                        `json:"transaction_id"`
	AccountID               string                        `json:"account_id"`
	Amount                  decimal.Decimal               `json:"amount"`
	ISOCurrencyCode         string                        `json:"iso_currency_code"`
	UnofficialCurrencyCode  string                        `json:"unofficial_currency_code"`
	Date                    string                        `json:"date"`
	Name                    string                        `json:"name"`
	MerchantName            string                        `json:"merchant_name"`
	Pending                 bool                          `json:"pending"`
	Category                []string                      `json:"category"`
	PersonalFinanceCategory *plaidPersonalFinanceCategory `json:"personal_finance_category"`
}

type plaidTransactionsResponse struct {
	Accounts          []plaidAccount     `json:"accounts"`
	Transactions      []plaidTransaction `json:"transactions"`
	TotalTransactions int                `json:"total_transactions"`
	RequestID         string             `json:"request_id"`
}

// plaidError is the error body Plaid returns with non-2xx responses
type plaidError struct {
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}

func (e *plaidError) Error() string {
	return e.ErrorType + "/" + e.ErrorCode + ": " + e.ErrorMessage
}

package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format exchanged with providers
const DateLayout = "2006-01-02"

// DateRange is an inclusive window of calendar dates
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both bounds to UTC calendar dates
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: truncateDate(start), End: truncateDate(end)}
}

// TrailingDays returns the window [today-days, today] relative to now
func TrailingDays(now time.Time, days int) DateRange {
	end := truncateDate(now)
	return DateRange{Start: end.AddDate(0, 0, -days), End: end}
}

// StartDate returns the first date of the window as YYYY-MM-DD
func (r DateRange) StartDate() string {
	return r.Start.Format(DateLayout)
}

// EndDate returns the last date of the window as YYYY-MM-DD
func (r DateRange) EndDate() string {
	return r.End.Format(DateLayout)
}

// IsValid reports whether start is not after end
func (r DateRange) IsValid() bool {
	return !r.Start.After(r.End)
}

func truncateDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// LinkSession is a short-lived token the client UI uses to start the aggregator link flow
type LinkSession struct {
	Token      string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
}

// TokenExchange is the result of exchanging a public token for long-lived access
type TokenExchange struct {
	AccessToken    string
	ExternalItemID string
}

// ItemInfo describes an aggregator item as the provider sees it
type ItemInfo struct {
	ExternalItemID string
	InstitutionID  string
}

// AggregatedAccount is an account as reported by the aggregator
type AggregatedAccount struct {
	ExternalID       string
	Name             string
	OfficialName     string
	Mask             string
	Type             string
	Subtype          string
	CurrentBalance   decimal.NullDecimal
	AvailableBalance decimal.NullDecimal
	Currency         string
}

// AggregatedTransaction is a transaction as reported by the aggregator.
// Amount uses the provider's sign: positive means money leaving the account.
type AggregatedTransaction struct {
	ExternalID        string
	ExternalAccountID string
	Amount            decimal.Decimal
	Currency          string
	Date              string
	Name              string
	MerchantName      string
	Pending           bool
	Categories        []string
}

// TransactionQuery selects one page of transactions
type TransactionQuery struct {
	Window     DateRange
	AccountIDs []string
	Offset     int
	Count      int
}

// TransactionPage is one page of transactions plus the provider's total for the window
type TransactionPage struct {
	Transactions      []AggregatedTransaction
	TotalTransactions int
}

// AccountAggregationClient is the port to a bank-data aggregator.
// Methods perform exactly one provider call; callers drive pagination.
type AccountAggregationClient interface {
	CreateLinkSession(ctx context.Context, userID string) (*LinkSession, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*TokenExchange, error)
	FetchItem(ctx context.Context, accessToken string) (*ItemInfo, error)
	FetchInstitutionName(ctx context.Context, institutionID string) (string, error)
	FetchAccounts(ctx context.Context, accessToken string) ([]AggregatedAccount, error)
	FetchTransactions(ctx context.Context, accessToken string, query TransactionQuery) (*TransactionPage, error)
	RevokeItem(ctx context.Context, accessToken string) error
}

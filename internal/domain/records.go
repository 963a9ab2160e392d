package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the canonical form of an issued invoice, normalized from the
// invoicing provider. Immutable once a run has fetched it.
type Invoice struct {
	Number       string          `json:"number"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	IssueDate    time.Time       `json:"issue_date"`
	CustomerName string          `json:"customer_name,omitempty"`
}

// Transaction is the canonical form of an incoming payment from any rail or
// uploaded statement. Source tags the originating channel, e.g. "wise",
// "mypos", or an upload channel name.
type Transaction struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	ValueDate   time.Time       `json:"value_date"`
	Description string          `json:"description"`
}

// Order is a webshop order. Orders are fetched and persisted for audit but
// take no part in matching.
type Order struct {
	ID           string          `json:"id"`
	Number       string          `json:"number"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	CustomerName string          `json:"customer_name,omitempty"`
}

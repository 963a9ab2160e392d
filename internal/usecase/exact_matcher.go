package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"invoice-reconciler/internal/domain"
)

const (
	// amountTolerance is the relative amount difference still accepted as an
	// exact match (1%).
	amountTolerancePct = "0.01"

	// dateToleranceDays bounds how far a payment's value date may sit from
	// the invoice issue date for a token hit to be trusted outright.
	dateToleranceDays = 30
)

// ExactMatcher pairs transactions to invoices by the reference token embedded
// in the transaction description, within amount and date tolerances. Rejected
// token hits are deferred, not discarded: the token is strong partial
// evidence and the pair stays available to the AI stage.
type ExactMatcher struct {
	log *zap.Logger
}

func NewExactMatcher(log *zap.Logger) *ExactMatcher {
	return &ExactMatcher{log: log}
}

// Match runs the deterministic pass. It returns the accepted results plus the
// invoices and transactions left for the probabilistic stage, preserving
// input order. Running it twice on the same inputs yields identical results.
func (m *ExactMatcher) Match(invoices []domain.Invoice, transactions []domain.Transaction) ([]domain.MatchResult, []domain.Invoice, []domain.Transaction) {
	byNumber := make(map[string]*domain.Invoice, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		if _, dup := byNumber[inv.Number]; dup {
			// Invoice numbers should be unique within a period; first stored
			// instance wins when they are not.
			m.log.Warn("duplicate invoice number", zap.String("number", inv.Number))
			continue
		}
		byNumber[inv.Number] = inv
	}

	var results []domain.MatchResult
	matchedInvoices := make(map[string]bool)
	matchedTransactions := make(map[string]bool)

	for i := range transactions {
		txn := &transactions[i]
		token := domain.ExtractToken(txn.Description)
		if token == "" {
			continue
		}
		inv, ok := byNumber[token]
		if !ok || matchedInvoices[inv.Number] {
			continue
		}
		if !withinAmountTolerance(inv.Amount, txn.Amount) {
			m.log.Debug("token hit outside amount tolerance, deferring",
				zap.String("invoice", inv.Number), zap.String("transaction", txn.ID))
			continue
		}
		if !withinDateTolerance(inv, txn) {
			m.log.Debug("token hit outside date tolerance, deferring",
				zap.String("invoice", inv.Number), zap.String("transaction", txn.ID))
			continue
		}

		results = append(results, domain.MatchResult{
			Invoice:     inv,
			Transaction: txn,
			Confidence:  100,
			Type:        domain.MatchTypeExact,
			Reasoning:   fmt.Sprintf("reference %s found in transaction description, amount within 1%%", token),
		})
		matchedInvoices[inv.Number] = true
		matchedTransactions[txn.ID] = true
	}

	// Rebuild the leftover sets by identity rather than splicing in place.
	var leftInvoices []domain.Invoice
	for _, inv := range invoices {
		if !matchedInvoices[inv.Number] {
			leftInvoices = append(leftInvoices, inv)
		}
	}
	var leftTransactions []domain.Transaction
	for _, txn := range transactions {
		if !matchedTransactions[txn.ID] {
			leftTransactions = append(leftTransactions, txn)
		}
	}

	return results, leftInvoices, leftTransactions
}

func withinAmountTolerance(invoiceAmount, txnAmount decimal.Decimal) bool {
	if invoiceAmount.IsZero() {
		return txnAmount.IsZero()
	}
	tolerance := decimal.RequireFromString(amountTolerancePct)
	delta := invoiceAmount.Sub(txnAmount).Abs()
	return delta.Div(invoiceAmount.Abs()).Cmp(tolerance) <= 0
}

func withinDateTolerance(inv *domain.Invoice, txn *domain.Transaction) bool {
	if inv.IssueDate.IsZero() || txn.ValueDate.IsZero() {
		return true
	}
	diff := txn.ValueDate.Sub(inv.IssueDate)
	if diff < 0 {
		diff = -diff
	}
	return diff.Hours() <= dateToleranceDays*24
}

package usecase_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"invoice-reconciler/internal/domain"
	"invoice-reconciler/internal/usecase"
)

func invoice(number string, amount int64, issueDate time.Time) domain.Invoice {
	return domain.Invoice{
		Number:    number,
		Amount:    decimal.NewFromInt(amount),
		Currency:  "HUF",
		IssueDate: issueDate,
	}
}

func transaction(id string, amount int64, valueDate time.Time, description string) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		Source:      "wise",
		Amount:      decimal.NewFromInt(amount),
		Currency:    "HUF",
		ValueDate:   valueDate,
		Description: description,
	}
}

func TestExactMatcher_AmountTolerance(t *testing.T) {
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	invoices := []domain.Invoice{invoice("E-NNTCH-2024-001", 15000, base)}

	tests := []struct {
		name      string
		txnAmount int64
		wantExact bool
	}{
		{"identical amount", 15000, true},
		{"0.67% over, within tolerance", 15100, true},
		{"1.33% over, outside tolerance", 15200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := usecase.NewExactMatcher(zap.NewNop())
			txns := []domain.Transaction{
				transaction("wise_001", tt.txnAmount, base.AddDate(0, 0, 3), "E-NNTCH-2024-001 payment"),
			}

			results, leftInvoices, leftTxns := m.Match(invoices, txns)

			if tt.wantExact {
				assert.Len(t, results, 1)
				assert.Equal(t, domain.MatchTypeExact, results[0].Type)
				assert.Equal(t, 100, results[0].Confidence)
				assert.Empty(t, leftInvoices)
				assert.Empty(t, leftTxns)
			} else {
				assert.Empty(t, results)
				// Amount mismatch defers, it never discards: the token is
				// strong partial evidence for the AI stage.
				assert.Len(t, leftInvoices, 1)
				assert.Len(t, leftTxns, 1)
			}
		})
	}
}

func TestExactMatcher_NoTokenDefers(t *testing.T) {
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	m := usecase.NewExactMatcher(zap.NewNop())

	results, leftInvoices, leftTxns := m.Match(
		[]domain.Invoice{invoice("E-NNTCH-2024-001", 15000, base)},
		[]domain.Transaction{transaction("wise_001", 15000, base, "monthly transfer")},
	)

	assert.Empty(t, results)
	assert.Len(t, leftInvoices, 1)
	assert.Len(t, leftTxns, 1)
}

func TestExactMatcher_DateTolerance(t *testing.T) {
	issue := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	m := usecase.NewExactMatcher(zap.NewNop())
	invoices := []domain.Invoice{invoice("E-NNTCH-2024-001", 15000, issue)}

	t.Run("payment 30 days out is accepted", func(t *testing.T) {
		results, _, _ := m.Match(invoices, []domain.Transaction{
			transaction("wise_001", 15000, issue.AddDate(0, 0, 30), "E-NNTCH-2024-001"),
		})
		assert.Len(t, results, 1)
	})

	t.Run("payment 31 days out is deferred", func(t *testing.T) {
		results, leftInvoices, leftTxns := m.Match(invoices, []domain.Transaction{
			transaction("wise_001", 15000, issue.AddDate(0, 0, 31), "E-NNTCH-2024-001"),
		})
		assert.Empty(t, results)
		assert.Len(t, leftInvoices, 1)
		assert.Len(t, leftTxns, 1)
	})
}

func TestExactMatcher_Bijection(t *testing.T) {
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	m := usecase.NewExactMatcher(zap.NewNop())

	// Two transactions reference the same invoice; only the first may claim it.
	invoices := []domain.Invoice{invoice("E-NNTCH-2024-001", 15000, base)}
	txns := []domain.Transaction{
		transaction("wise_001", 15000, base, "E-NNTCH-2024-001 payment"),
		transaction("wise_002", 15000, base, "E-NNTCH-2024-001 duplicate payment"),
	}

	results, leftInvoices, leftTxns := m.Match(invoices, txns)

	assert.Len(t, results, 1)
	assert.Equal(t, "wise_001", results[0].Transaction.ID)
	assert.Empty(t, leftInvoices)
	assert.Len(t, leftTxns, 1)
	assert.Equal(t, "wise_002", leftTxns[0].ID)
}

func TestExactMatcher_DuplicateInvoiceNumberFirstWins(t *testing.T) {
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	m := usecase.NewExactMatcher(zap.NewNop())

	first := invoice("E-NNTCH-2024-001", 15000, base)
	first.CustomerName = "first"
	second := invoice("E-NNTCH-2024-001", 15000, base)
	second.CustomerName = "second"

	results, _, _ := m.Match(
		[]domain.Invoice{first, second},
		[]domain.Transaction{transaction("wise_001", 15000, base, "E-NNTCH-2024-001")},
	)

	assert.Len(t, results, 1)
	assert.Equal(t, "first", results[0].Invoice.CustomerName)
}

func TestExactMatcher_Idempotent(t *testing.T) {
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	m := usecase.NewExactMatcher(zap.NewNop())

	invoices := []domain.Invoice{
		invoice("E-NNTCH-2024-001", 15000, base),
		invoice("E-FRDLT-2024-002", 25000, base.AddDate(0, 0, 2)),
		invoice("E-NNTCH-2024-003", 9000, base.AddDate(0, 0, 4)),
	}
	txns := []domain.Transaction{
		transaction("wise_001", 15000, base, "E-NNTCH-2024-001 payment"),
		transaction("mypos_001", 25000, base.AddDate(0, 0, 3), "Card payment E-FRDLT-2024-002"),
		transaction("wise_002", 4000, base, "no reference here"),
	}

	first, firstInv, firstTxn := m.Match(invoices, txns)
	second, secondInv, secondTxn := m.Match(invoices, txns)

	assert.Equal(t, first, second)
	assert.Equal(t, firstInv, secondInv)
	assert.Equal(t, firstTxn, secondTxn)
	assert.Len(t, first, 2)
}

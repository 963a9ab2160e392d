package usecase

import (
	"context"

	"invoice-reconciler/internal/domain"
)

// Ports consumed by the reconciliation usecase. The usecase layer depends on
// these interfaces, not on concrete gateway implementations.
//
//go:generate mockgen -destination=mocks/mock_usecase.go -source=interface.go

// InvoiceSource fetches issued invoices for a period from the invoicing
// provider.
type InvoiceSource interface {
	Name() string
	FetchInvoices(ctx context.Context, period domain.Period) ([]domain.Invoice, error)
}

// TransactionSource fetches incoming payments for a period from one payment
// rail or uploaded statement channel.
type TransactionSource interface {
	Name() string
	FetchTransactions(ctx context.Context, period domain.Period) ([]domain.Transaction, error)
}

// OrderSource fetches webshop orders for a period.
type OrderSource interface {
	Name() string
	FetchOrders(ctx context.Context, period domain.Period) ([]domain.Order, error)
}

// Judgment is the structured verdict of the reasoning service for one
// transaction against a candidate invoice list. An empty InvoiceNumber means
// no match was proposed.
type Judgment struct {
	InvoiceNumber string
	Confidence    int
	Reasoning     string
}

// MatchJudge asks an external reasoning service to pick the invoice a
// transaction most likely pays, if any.
type MatchJudge interface {
	Judge(ctx context.Context, txn domain.Transaction, candidates []domain.Invoice) (Judgment, error)
}

// StoredRecord is one item handed to the persistence layer. Type and
// Identity derive the storage key together with the period; Data is the
// canonical record itself.
type StoredRecord struct {
	Type     string
	Identity string
	Data     any
}

// RecordStore persists raw records and match results for a period. Writing
// the same (type, identity, period) twice must overwrite, not duplicate.
type RecordStore interface {
	SaveRecords(ctx context.Context, period domain.Period, records []StoredRecord) error
}

// Notifier delivers the single best-effort alert sent when a run fails
// fatally.
type Notifier interface {
	NotifyFailure(ctx context.Context, period domain.Period, runErr error) error
}

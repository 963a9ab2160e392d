package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"invoice-reconciler/internal/domain"
)

// Stored record type tags. They prefix the persistence partition key.
const (
	recordTypeInvoice     = "INVOICE"
	recordTypeTransaction = "TRANSACTION"
	recordTypeOrder       = "ORDER"
	recordTypeMatch       = "MATCH"
)

// ReconciliationUseCase orchestrates a reconciliation run: fan-out fetch with
// a hard barrier, the deterministic then probabilistic match passes,
// idempotent persistence, and the failure alert. It owns the run's working
// sets; nothing is shared between runs.
type ReconciliationUseCase struct {
	invoiceSource InvoiceSource
	txnSources    []TransactionSource
	orderSource   OrderSource
	exact         *ExactMatcher
	ai            *AIMatcher
	store         RecordStore
	notifier      Notifier
	log           *zap.Logger
}

func NewReconciliationUseCase(
	invoiceSource InvoiceSource,
	txnSources []TransactionSource,
	orderSource OrderSource,
	exact *ExactMatcher,
	ai *AIMatcher,
	store RecordStore,
	notifier Notifier,
	log *zap.Logger,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		invoiceSource: invoiceSource,
		txnSources:    txnSources,
		orderSource:   orderSource,
		exact:         exact,
		ai:            ai,
		store:         store,
		notifier:      notifier,
		log:           log,
	}
}

// Reconcile executes one run for the given period. Connector failures are
// absorbed into the run's SourceErrors; only persistence failures are fatal
// and those trigger the single best-effort alert before returning.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, period domain.Period) (*domain.Run, error) {
	run := &domain.Run{
		ID:           uuid.NewString(),
		Period:       period,
		SourceErrors: map[string]string{},
		StartedAt:    time.Now().UTC(),
	}
	uc.log.Info("reconciliation started",
		zap.String("run", run.ID), zap.String("period", period.String()))

	invoices, transactions, orders := uc.fetchAll(ctx, period, run)
	uc.log.Info("fetch complete",
		zap.Int("invoices", len(invoices)),
		zap.Int("transactions", len(transactions)),
		zap.Int("orders", len(orders)),
		zap.Int("source_errors", len(run.SourceErrors)))

	exactResults, leftInvoices, leftTransactions := uc.exact.Match(invoices, transactions)
	aiResults, leftInvoices := uc.ai.Match(ctx, leftTransactions, leftInvoices)

	run.Results = append(run.Results, exactResults...)
	run.Results = append(run.Results, aiResults...)
	for i := range leftInvoices {
		run.Results = append(run.Results, domain.MatchResult{
			Invoice:   &leftInvoices[i],
			Type:      domain.MatchTypeUnmatched,
			Reasoning: "no payment found",
		})
	}
	run.Summary = summarize(len(invoices), len(transactions), len(orders), run.Results)

	if err := uc.persist(ctx, period, invoices, transactions, orders, run.Results); err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		uc.fail(ctx, period, err)
		return nil, err
	}

	run.FinishedAt = time.Now().UTC()
	uc.log.Info("reconciliation finished",
		zap.String("run", run.ID),
		zap.Int("exact", run.Summary.ExactMatches),
		zap.Int("ai", run.Summary.AIMatches),
		zap.Int("unmatched_invoices", run.Summary.UnmatchedInvoices),
		zap.Int("unmatched_transactions", run.Summary.UnmatchedTransactions))
	return run, nil
}

// fetchAll invokes every source concurrently and waits for all of them. A
// source error is recorded and that source contributes nothing; it never
// fails the run.
func (uc *ReconciliationUseCase) fetchAll(ctx context.Context, period domain.Period, run *domain.Run) ([]domain.Invoice, []domain.Transaction, []domain.Order) {
	var (
		mu       sync.Mutex
		invoices []domain.Invoice
		orders   []domain.Order
		perRail  = make([][]domain.Transaction, len(uc.txnSources))
	)
	captureErr := func(source string, err error) {
		uc.log.Error("source fetch failed", zap.String("source", source), zap.Error(err))
		mu.Lock()
		run.SourceErrors[source] = err.Error()
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		got, err := uc.invoiceSource.FetchInvoices(gctx, period)
		if err != nil {
			captureErr(uc.invoiceSource.Name(), err)
			return nil
		}
		invoices = got
		return nil
	})
	for i, src := range uc.txnSources {
		i, src := i, src
		g.Go(func() error {
			got, err := src.FetchTransactions(gctx, period)
			if err != nil {
				captureErr(src.Name(), err)
				return nil
			}
			perRail[i] = got
			return nil
		})
	}
	if uc.orderSource != nil {
		g.Go(func() error {
			got, err := uc.orderSource.FetchOrders(gctx, period)
			if err != nil {
				captureErr(uc.orderSource.Name(), err)
				return nil
			}
			orders = got
			return nil
		})
	}
	// Closures always return nil, so this is a pure barrier.
	_ = g.Wait()

	// Assemble transactions in configured source order so the matching
	// passes see a stable, reproducible input order.
	var transactions []domain.Transaction
	for _, rail := range perRail {
		transactions = append(transactions, rail...)
	}
	return invoices, transactions, orders
}

func (uc *ReconciliationUseCase) persist(ctx context.Context, period domain.Period, invoices []domain.Invoice, transactions []domain.Transaction, orders []domain.Order, results []domain.MatchResult) error {
	records := make([]StoredRecord, 0, len(invoices)+len(transactions)+len(orders)+len(results))
	for i := range invoices {
		records = append(records, StoredRecord{
			Type:     recordTypeInvoice,
			Identity: invoices[i].Number,
			Data:     invoices[i],
		})
	}
	for i := range transactions {
		records = append(records, StoredRecord{
			Type:     recordTypeTransaction,
			Identity: transactions[i].ID,
			Data:     transactions[i],
		})
	}
	for i := range orders {
		records = append(records, StoredRecord{
			Type:     recordTypeOrder,
			Identity: orders[i].ID,
			Data:     orders[i],
		})
	}
	for i := range results {
		records = append(records, StoredRecord{
			Type:     recordTypeMatch,
			Identity: matchIdentity(results[i]),
			Data:     results[i],
		})
	}
	return uc.store.SaveRecords(ctx, period, records)
}

// matchIdentity derives a deterministic identity for a result so re-running a
// period overwrites instead of duplicating.
func matchIdentity(r domain.MatchResult) string {
	inv, txn := "-", "-"
	if r.Invoice != nil {
		inv = r.Invoice.Number
	}
	if r.Transaction != nil {
		txn = r.Transaction.ID
	}
	return inv + ":" + txn
}

func (uc *ReconciliationUseCase) fail(ctx context.Context, period domain.Period, runErr error) {
	uc.log.Error("reconciliation failed", zap.Error(runErr))
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.NotifyFailure(ctx, period, runErr); err != nil {
		// Alert delivery failure must not become a second failure.
		uc.log.Error("failure notification not delivered", zap.Error(err))
	}
}

func summarize(totalInvoices, totalTransactions, totalOrders int, results []domain.MatchResult) domain.RunSummary {
	s := domain.RunSummary{
		TotalInvoices:     totalInvoices,
		TotalTransactions: totalTransactions,
		TotalOrders:       totalOrders,
	}
	for _, r := range results {
		switch r.Type {
		case domain.MatchTypeExact:
			s.ExactMatches++
		case domain.MatchTypeAI:
			s.AIMatches++
		case domain.MatchTypeUnmatched:
			if r.Invoice != nil {
				s.UnmatchedInvoices++
			}
			if r.Transaction != nil {
				s.UnmatchedTransactions++
			}
		}
	}
	return s
}

package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"invoice-reconciler/internal/domain"
)

const (
	// maxCandidates bounds the invoice list offered per transaction to keep
	// prompt size and cost predictable.
	maxCandidates = 20

	// maxInflightJudgments caps concurrent reasoning-service calls.
	maxInflightJudgments = 5

	// defaultConfidenceThreshold is the minimum judge confidence adopted
	// into the match set.
	defaultConfidenceThreshold = 70

	aiErrorReasoning = "AI processing error"
)

// AIMatcher escalates pairs the deterministic pass could not settle to an
// external reasoning service. Any judge failure collapses to a no-match
// result; the matcher never propagates an error and never consumes a record
// on failure.
type AIMatcher struct {
	judge     MatchJudge
	threshold int
	log       *zap.Logger
}

func NewAIMatcher(judge MatchJudge, threshold int, log *zap.Logger) *AIMatcher {
	if threshold <= 0 {
		threshold = defaultConfidenceThreshold
	}
	return &AIMatcher{judge: judge, threshold: threshold, log: log}
}

// Match evaluates every unmatched transaction against a bounded candidate
// list drawn from the unmatched invoices. It returns one result per
// transaction (matched or unmatched) plus the invoices that remain unclaimed.
//
// The unmatched-invoice set is guarded by a mutex: candidates are snapshotted
// under the lock, the judge call runs outside it, and adoption re-checks that
// the chosen invoice is still unclaimed. A concurrently consumed invoice
// downgrades that judgment to unmatched, so no invoice is consumed twice.
func (m *AIMatcher) Match(ctx context.Context, transactions []domain.Transaction, invoices []domain.Invoice) ([]domain.MatchResult, []domain.Invoice) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, maxInflightJudgments)
		results  = make([]domain.MatchResult, len(transactions))
		claimed  = make(map[string]bool, len(invoices))
		byNumber = make(map[string]*domain.Invoice, len(invoices))
	)
	for i := range invoices {
		if _, dup := byNumber[invoices[i].Number]; !dup {
			byNumber[invoices[i].Number] = &invoices[i]
		}
	}

	for i := range transactions {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			txn := &transactions[i]

			mu.Lock()
			candidates := m.candidates(txn, invoices, claimed)
			mu.Unlock()

			if len(candidates) == 0 {
				results[i] = unmatchedTransaction(txn, "no unmatched invoices available")
				return
			}

			judgment, err := m.judge.Judge(ctx, *txn, candidates)
			if err != nil {
				m.log.Warn("judge call failed",
					zap.String("transaction", txn.ID), zap.Error(err))
				results[i] = domain.MatchResult{
					Transaction: txn,
					Confidence:  0,
					Type:        domain.MatchTypeUnmatched,
					Reasoning:   aiErrorReasoning,
				}
				return
			}
			if judgment.InvoiceNumber == "" || judgment.Confidence < m.threshold {
				results[i] = unmatchedTransaction(txn, judgment.Reasoning)
				return
			}
			inv, known := byNumber[judgment.InvoiceNumber]
			if !known {
				m.log.Warn("judge proposed unknown invoice",
					zap.String("transaction", txn.ID),
					zap.String("invoice", judgment.InvoiceNumber))
				results[i] = unmatchedTransaction(txn, judgment.Reasoning)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if claimed[inv.Number] {
				results[i] = unmatchedTransaction(txn, "proposed invoice already matched")
				return
			}
			claimed[inv.Number] = true
			results[i] = domain.MatchResult{
				Invoice:     inv,
				Transaction: txn,
				Confidence:  judgment.Confidence,
				Type:        domain.MatchTypeAI,
				Reasoning:   judgment.Reasoning,
			}
		}(i)
	}
	wg.Wait()

	var leftInvoices []domain.Invoice
	for _, inv := range invoices {
		if !claimed[inv.Number] {
			leftInvoices = append(leftInvoices, inv)
		}
	}
	return results, leftInvoices
}

// candidates picks up to maxCandidates unclaimed invoices ordered by issue
// date proximity to the transaction's value date. Caller holds the lock.
func (m *AIMatcher) candidates(txn *domain.Transaction, invoices []domain.Invoice, claimed map[string]bool) []domain.Invoice {
	var out []domain.Invoice
	for _, inv := range invoices {
		if !claimed[inv.Number] {
			out = append(out, inv)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return dateDistance(out[a].IssueDate, txn.ValueDate) < dateDistance(out[b].IssueDate, txn.ValueDate)
	})
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

func dateDistance(a, b time.Time) int64 {
	d := a.Unix() - b.Unix()
	if d < 0 {
		return -d
	}
	return d
}

func unmatchedTransaction(txn *domain.Transaction, reasoning string) domain.MatchResult {
	if reasoning == "" {
		reasoning = "no confident match"
	}
	return domain.MatchResult{
		Transaction: txn,
		Confidence:  0,
		Type:        domain.MatchTypeUnmatched,
		Reasoning:   reasoning,
	}
}

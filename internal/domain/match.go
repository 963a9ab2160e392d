package domain

import "time"

// MatchType classifies how a pairing was produced.
type MatchType string

const (
	MatchTypeExact     MatchType = "exact"
	MatchTypeAI        MatchType = "ai"
	MatchTypeUnmatched MatchType = "unmatched"
)

// MatchResult pairs an invoice with a transaction, or records that one side
// could not be paired. Within a run every invoice and transaction identity
// appears in at most one result whose Type is not unmatched.
type MatchResult struct {
	Invoice     *Invoice     `json:"invoice,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Confidence  int          `json:"confidence"`
	Type        MatchType    `json:"match_type"`
	Reasoning   string       `json:"reasoning"`
}

// RunSummary holds the headline counts of a reconciliation run.
type RunSummary struct {
	TotalInvoices         int `json:"total_invoices"`
	TotalTransactions     int `json:"total_transactions"`
	TotalOrders           int `json:"total_orders"`
	ExactMatches          int `json:"exact_matches"`
	AIMatches             int `json:"ai_matches"`
	UnmatchedInvoices     int `json:"unmatched_invoices"`
	UnmatchedTransactions int `json:"unmatched_transactions"`
}

// Run is the audit record of a single reconciliation invocation. It is never
// mutated after the run completes; re-running a period produces a new Run
// while raw and matched storage for that period is overwritten.
type Run struct {
	ID           string            `json:"id"`
	Period       Period            `json:"period"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
	Summary      RunSummary        `json:"summary"`
	Results      []MatchResult     `json:"results"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
}

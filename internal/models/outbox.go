package models

// MutationKind distinguishes pending ledger mutations.
type MutationKind string

const (
	MutationOpen  MutationKind = "open"  // add position record + operation row
	MutationClose MutationKind = "close" // add operation row, delete position record
	MutationDrift MutationKind = "drift" // delete position record only
)

// LedgerMutation is one pending write against the ledger store.
type LedgerMutation struct {
	Kind      MutationKind
	Ticker    string
	Execution *ExecutionRecord // nil for drift deletions
	Position  *OpenPosition    // opens only
}

// CycleOutbox accumulates the side effects of one evaluation cycle:
// alert strings and ledger mutations. Both lists are append-only and
// flushed exactly once at cycle end. A cycle that aborts before the
// flush discards its outbox; the next cycle re-derives state from the
// ledger and the exchange.
type CycleOutbox struct {
	Alerts    []string
	Mutations []LedgerMutation
}

// Alert queues a notification message.
func (o *CycleOutbox) Alert(msg string) {
	o.Alerts = append(o.Alerts, msg)
}

// QueueOpen queues the ledger writes of a confirmed open.
func (o *CycleOutbox) QueueOpen(rec *ExecutionRecord, pos *OpenPosition) {
	o.Mutations = append(o.Mutations, LedgerMutation{
		Kind:      MutationOpen,
		Ticker:    rec.Ticker,
		Execution: rec,
		Position:  pos,
	})
}

// QueueClose queues the ledger writes of a confirmed close.
func (o *CycleOutbox) QueueClose(rec *ExecutionRecord) {
	o.Mutations = append(o.Mutations, LedgerMutation{
		Kind:      MutationClose,
		Ticker:    rec.Ticker,
		Execution: rec,
	})
}

// QueueDriftDelete queues removal of a position record the exchange no
// longer reports.
func (o *CycleOutbox) QueueDriftDelete(ticker string) {
	o.Mutations = append(o.Mutations, LedgerMutation{
		Kind:   MutationDrift,
		Ticker: ticker,
	})
}

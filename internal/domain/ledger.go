package domain

import (
	"sync"
	"time"
)

// FailureRecord describes a group that exhausted all delivery retries.
type FailureRecord struct {
	Sequence uint64    `json:"sequence"`
	Err      string    `json:"error"`
	At       time.Time `json:"at"`
	Records  int       `json:"records"`
	Bytes    int       `json:"bytes"`
}

// ErrorLedger is an append-only list of failure records.
// It is safe for concurrent use.
type ErrorLedger struct {
	mu      sync.RWMutex
	entries []FailureRecord
}

// NewErrorLedger creates an empty ledger.
func NewErrorLedger() *ErrorLedger {
	return &ErrorLedger{}
}

// Append records a terminal delivery failure.
func (l *ErrorLedger) Append(f FailureRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, f)
}

// Len returns the number of recorded failures.
func (l *ErrorLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a snapshot of the ledger in append order.
func (l *ErrorLedger) Entries() []FailureRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]FailureRecord(nil), l.entries...)
}

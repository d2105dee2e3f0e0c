package alert

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// maxLedgerRecords bounds the on-disk history. Old entries fall off the
// front; open-state tracking is unaffected because a state older than
// the retention window has long been dismissed or re-sent.
const maxLedgerRecords = 1000

// Record is one sent alert. Records are append-only: dismissal removes
// the state from the open set but never rewrites the record itself.
type Record struct {
	ID        string    `json:"id"`
	StateID   string    `json:"state_id,omitempty"` // empty for send_now records
	Scope     string    `json:"scope"`
	Kind      Kind      `json:"kind,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Value     float64   `json:"value,omitempty"`
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}

// ledgerFile is the persisted shape: the append-only record log plus the
// currently open violation states (state id -> record id).
type ledgerFile struct {
	Records []Record          `json:"records"`
	Open    map[string]string `json:"open"`
}

// Ledger persists sent alerts and the open/closed state per violation-state
// id, so dedup survives process restarts.
type Ledger struct {
	mu      sync.Mutex
	path    string
	records []Record
	open    map[string]string
}

// OpenLedger loads the ledger file, creating an empty ledger when the
// file does not exist yet.
func OpenLedger(path string) (*Ledger, error) {
	l := &Ledger{
		path: path,
		open: make(map[string]string),
	}

	if path == "" {
		return l, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var saved ledgerFile
		if err := json.Unmarshal(data, &saved); err != nil {
			return nil, fmt.Errorf("parse alert ledger %s: %w", path, err)
		}
		l.records = saved.Records
		if saved.Open != nil {
			l.open = saved.Open
		}
	case os.IsNotExist(err):
		// First run.
	default:
		return nil, fmt.Errorf("read alert ledger %s: %w", path, err)
	}

	return l, nil
}

// Append records a sent alert. When the record carries a state id it
// becomes the open record for that state.
func (l *Ledger) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
	if len(l.records) > maxLedgerRecords {
		l.records = l.records[len(l.records)-maxLedgerRecords:]
	}
	if rec.StateID != "" {
		l.open[rec.StateID] = rec.ID
	}
	return l.persistLocked()
}

// IsOpen reports whether a violation state has a sent, undismissed record.
func (l *Ledger) IsOpen(stateID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.open[stateID]
	return ok
}

// Close dismisses a violation state. Closing a state that is not open is
// a no-op; recovery cycles call this unconditionally.
func (l *Ledger) Close(stateID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.open[stateID]; !ok {
		return nil
	}
	delete(l.open, stateID)
	return l.persistLocked()
}

// RecordFilter narrows Recent queries. Zero values match everything.
type RecordFilter struct {
	Scope string
	Kind  Kind
}

// Recent returns up to limit records, newest first.
func (l *Ledger) Recent(limit int, filter RecordFilter) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, 0, limit)
	for i := len(l.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		rec := l.records[i]
		if filter.Scope != "" && rec.Scope != filter.Scope {
			continue
		}
		if filter.Kind != "" && rec.Kind != filter.Kind {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (l *Ledger) persistLocked() error {
	if l.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(ledgerFile{Records: l.records, Open: l.open}, "", "  ")
	if err != nil {
		return err
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

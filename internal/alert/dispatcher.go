package alert

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notifier is the push-notification transport. Implementations own their
// retry/backoff policy; a returned error means the transport gave up.
type Notifier interface {
	Send(ctx context.Context, title, message, priority string) error
}

// Dispatcher decides which violations are genuinely new and sends
// exactly one notification per newly-entered violation state.
type Dispatcher struct {
	ledger   *Ledger
	notifier Notifier

	// statesMu guards states; each per-state mutex serializes Submit
	// calls for the same violation-state id so an overlapping poll run
	// cannot double-send.
	statesMu sync.Mutex
	states   map[string]*sync.Mutex

	now func() time.Time
}

// NewDispatcher creates a Dispatcher over a persisted ledger.
func NewDispatcher(ledger *Ledger, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		ledger:   ledger,
		notifier: notifier,
		states:   make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

// SetClock overrides the dispatcher's clock. Test hook.
func (d *Dispatcher) SetClock(now func() time.Time) { d.now = now }

func (d *Dispatcher) stateLock(stateID string) *sync.Mutex {
	d.statesMu.Lock()
	defer d.statesMu.Unlock()
	mu, ok := d.states[stateID]
	if !ok {
		mu = &sync.Mutex{}
		d.states[stateID] = mu
	}
	return mu
}

// Submit dispatches a notification for the violation unless its state
// is already open. Returns true only when a notification was sent.
// A transport failure leaves the state closed so the next poll cycle
// retries from scratch.
func (d *Dispatcher) Submit(ctx context.Context, v Violation, title, message string) (bool, error) {
	stateID := v.StateID()

	mu := d.stateLock(stateID)
	mu.Lock()
	defer mu.Unlock()

	if d.ledger.IsOpen(stateID) {
		return false, nil
	}

	if err := d.notifier.Send(ctx, title, message, "high"); err != nil {
		return false, fmt.Errorf("dispatch %s: %w", stateID, err)
	}

	rec := Record{
		ID:        uuid.NewString(),
		StateID:   stateID,
		Scope:     v.Scope,
		Kind:      v.Kind,
		Threshold: v.Threshold,
		Value:     v.Observed,
		Message:   message,
		SentAt:    d.now(),
	}
	if err := d.ledger.Append(rec); err != nil {
		// The notification went out; losing the open record risks one
		// duplicate next cycle, which beats losing the history entry.
		log.Printf("dispatcher: failed to persist alert record for %s: %v", stateID, err)
	}
	return true, nil
}

// Dismiss closes a violation state after a recovery cycle finds the
// scope/kind no longer in violation. The state becomes eligible to
// re-open on the next crossing.
func (d *Dispatcher) Dismiss(stateID string) {
	mu := d.stateLock(stateID)
	mu.Lock()
	defer mu.Unlock()

	if err := d.ledger.Close(stateID); err != nil {
		log.Printf("dispatcher: failed to close state %s: %v", stateID, err)
	}
}

// SendNow sends a notification immediately, bypassing deduplication.
// Explicit user requests are never deduplicated; the send is logged as
// a record without a state id, so it neither counts as an open state
// nor suppresses later automatic alerts.
func (d *Dispatcher) SendNow(ctx context.Context, title, message, priority string) (bool, error) {
	if priority == "" {
		priority = "default"
	}
	if err := d.notifier.Send(ctx, title, message, priority); err != nil {
		return false, err
	}

	rec := Record{
		ID:      uuid.NewString(),
		Scope:   "manual",
		Message: message,
		SentAt:  d.now(),
	}
	if err := d.ledger.Append(rec); err != nil {
		log.Printf("dispatcher: failed to persist manual alert record: %v", err)
	}
	return true, nil
}

// History exposes the ledger's recent records for the API and agent tools.
func (d *Dispatcher) History(limit int, filter RecordFilter) []Record {
	return d.ledger.Recent(limit, filter)
}

package alert

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type fakeNotifier struct {
	sent []string
	fail error
}

func (f *fakeNotifier) Send(ctx context.Context, title, message, priority string) error {
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, title+": "+message)
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeNotifier) {
	t.Helper()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "alert_history.json"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	n := &fakeNotifier{}
	return NewDispatcher(ledger, n), n
}

func atticFreeze(observed float64) Violation {
	return Violation{
		Scope:     "Attic",
		Kind:      KindFreeze,
		Threshold: 60.0,
		Observed:  observed,
		At:        time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

// Submitting while the condition stays in violation sends exactly once.
func TestSubmitIsIdempotentPerState(t *testing.T) {
	d, n := newTestDispatcher(t)
	ctx := context.Background()

	sent, err := d.Submit(ctx, atticFreeze(55.9), "Freeze Warning", "Attic at 55.9F")
	if err != nil || !sent {
		t.Fatalf("first submit: sent=%v err=%v, want true/nil", sent, err)
	}

	// Next poll cycle, still cold (different observed value, same state).
	sent, err = d.Submit(ctx, atticFreeze(54.0), "Freeze Warning", "Attic at 54.0F")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if sent {
		t.Error("second submit sent a duplicate notification")
	}
	if len(n.sent) != 1 {
		t.Errorf("expected 1 notification, got %d", len(n.sent))
	}
}

// Clear, re-occur: exactly two notifications total, one per open period.
func TestDismissAllowsReopen(t *testing.T) {
	d, n := newTestDispatcher(t)
	ctx := context.Background()

	if sent, _ := d.Submit(ctx, atticFreeze(55.9), "Freeze Warning", "msg"); !sent {
		t.Fatal("first submit should send")
	}

	d.Dismiss(StateID("Attic", KindFreeze))

	if sent, _ := d.Submit(ctx, atticFreeze(58.0), "Freeze Warning", "msg"); !sent {
		t.Fatal("submit after dismiss should send again")
	}
	if len(n.sent) != 2 {
		t.Errorf("expected exactly 2 notifications, got %d", len(n.sent))
	}
}

func TestDismissUnknownStateIsNoop(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Dismiss("Nowhere/freeze")
}

// SendNow bypasses dedup and does not suppress later automatic alerts.
func TestSendNowBypassesDedup(t *testing.T) {
	d, n := newTestDispatcher(t)
	ctx := context.Background()

	sent, err := d.SendNow(ctx, "Test", "test alert", "")
	if err != nil || !sent {
		t.Fatalf("send_now: sent=%v err=%v", sent, err)
	}

	// The manual record must not count as an open state.
	if sent, _ := d.Submit(ctx, atticFreeze(55.9), "Freeze Warning", "msg"); !sent {
		t.Error("automatic alert suppressed by a manual send")
	}

	// And repeated send_now always sends.
	if sent, _ := d.SendNow(ctx, "Test", "again", ""); !sent {
		t.Error("second send_now did not send")
	}
	if len(n.sent) != 3 {
		t.Errorf("expected 3 notifications, got %d", len(n.sent))
	}

	recs := d.History(10, RecordFilter{})
	if len(recs) != 3 {
		t.Errorf("expected 3 ledger records, got %d", len(recs))
	}
}

// A transport failure leaves the state closed so the next cycle retries.
func TestSubmitTransportFailureLeavesStateClosed(t *testing.T) {
	d, n := newTestDispatcher(t)
	ctx := context.Background()

	n.fail = errors.New("ntfy unavailable")
	sent, err := d.Submit(ctx, atticFreeze(55.9), "Freeze Warning", "msg")
	if sent || err == nil {
		t.Fatalf("failed dispatch: sent=%v err=%v, want false/non-nil", sent, err)
	}

	n.fail = nil
	sent, err = d.Submit(ctx, atticFreeze(55.9), "Freeze Warning", "msg")
	if err != nil || !sent {
		t.Errorf("retry after transport recovery: sent=%v err=%v", sent, err)
	}
}

func TestHistoryFilters(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	d.Submit(ctx, atticFreeze(55.9), "Freeze Warning", "attic cold")
	d.Submit(ctx, Violation{Scope: "Kitchen", Kind: KindHeat, Threshold: 70, Observed: 72, At: time.Now()}, "Heat Warning", "kitchen hot")

	recs := d.History(10, RecordFilter{Scope: "Attic"})
	if len(recs) != 1 || recs[0].Scope != "Attic" {
		t.Errorf("scope filter: got %+v", recs)
	}

	recs = d.History(10, RecordFilter{Kind: KindHeat})
	if len(recs) != 1 || recs[0].Kind != KindHeat {
		t.Errorf("kind filter: got %+v", recs)
	}

	// Newest first.
	recs = d.History(10, RecordFilter{})
	if len(recs) != 2 || recs[0].Scope != "Kitchen" {
		t.Errorf("expected newest first, got %+v", recs)
	}
}

package alert

import (
	"path/filepath"
	"testing"
	"time"
)

// Dedup state must survive process restarts: an open state in the file
// keeps suppressing after a reload.
func TestLedgerOpenStateSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alert_history.json")

	ledger, err := OpenLedger(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	rec := Record{
		ID:      "rec-1",
		StateID: "Attic/freeze",
		Scope:   "Attic",
		Kind:    KindFreeze,
		Value:   55.9,
		SentAt:  time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	if err := ledger.Append(rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	reloaded, err := OpenLedger(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.IsOpen("Attic/freeze") {
		t.Error("open state lost across reload")
	}

	if err := reloaded.Close("Attic/freeze"); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := OpenLedger(path)
	if err != nil {
		t.Fatalf("second reload: %v", err)
	}
	if again.IsOpen("Attic/freeze") {
		t.Error("closed state still open after reload")
	}
	if got := again.Recent(10, RecordFilter{}); len(got) != 1 {
		t.Errorf("records must survive dismissal, got %d", len(got))
	}
}

func TestLedgerCapsRecordCount(t *testing.T) {
	ledger, err := OpenLedger("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 0; i < maxLedgerRecords+10; i++ {
		if err := ledger.Append(Record{ID: "r", Scope: "manual", SentAt: time.Now()}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if got := len(ledger.Recent(0, RecordFilter{})); got != maxLedgerRecords {
		t.Errorf("record cap: got %d, want %d", got, maxLedgerRecords)
	}
}

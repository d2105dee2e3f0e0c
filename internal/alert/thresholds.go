// Package alert holds the threshold table, the threshold and forecast
// evaluators, and the deduplicating alert dispatcher.
package alert

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Kind is a threshold direction.
type Kind string

const (
	KindFreeze Kind = "freeze" // alert when observed <= threshold
	KindHeat   Kind = "heat"   // alert when observed >= threshold
)

// Thresholds must stay inside a sane Fahrenheit range; anything outside
// is a typo, not a preference.
const (
	MinThresholdF = -50.0
	MaxThresholdF = 150.0
)

// ErrThresholdRange is returned when a threshold falls outside the
// accepted Fahrenheit range.
var ErrThresholdRange = errors.New("threshold outside accepted range")

// Limits are the per-room overrides. Nil means "no override, use the
// global default".
type Limits struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// Table is one immutable snapshot of the effective threshold
// configuration. Readers always dereference a whole snapshot, so an
// evaluation in progress never sees a half-applied update.
type Table struct {
	DefaultFreezeF *float64          `json:"default_freeze_f,omitempty"`
	DefaultHeatF   *float64          `json:"default_heat_f,omitempty"`
	Rooms          map[string]Limits `json:"thresholds,omitempty"`
}

// Effective resolves the thresholds that apply to a scope: the room
// override when present, else the global default. A nil result means
// that kind is not evaluated for the scope at all.
func (t *Table) Effective(scope string) (freeze, heat *float64) {
	freeze = t.DefaultFreezeF
	heat = t.DefaultHeatF
	if limits, ok := t.Rooms[scope]; ok {
		if limits.Low != nil {
			freeze = limits.Low
		}
		if limits.High != nil {
			heat = limits.High
		}
	}
	return freeze, heat
}

func (t *Table) clone() *Table {
	next := &Table{
		DefaultFreezeF: t.DefaultFreezeF,
		DefaultHeatF:   t.DefaultHeatF,
		Rooms:          make(map[string]Limits, len(t.Rooms)),
	}
	for room, limits := range t.Rooms {
		next.Rooms[room] = limits
	}
	return next
}

// Thresholds is the mutable holder around immutable Table snapshots.
// Updates build a new snapshot, persist it, and swap the pointer.
type Thresholds struct {
	current atomic.Pointer[Table]

	// writeMu serializes writers; readers never take it.
	writeMu sync.Mutex
	path    string
}

// LoadThresholds reads the persisted preferences file, falling back to
// the given defaults for anything the file does not set. A missing file
// is not an error; a corrupt file is.
func LoadThresholds(path string, defaultFreezeF, defaultHeatF *float64) (*Thresholds, error) {
	table := &Table{
		DefaultFreezeF: defaultFreezeF,
		DefaultHeatF:   defaultHeatF,
		Rooms:          make(map[string]Limits),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var saved Table
			if err := json.Unmarshal(data, &saved); err != nil {
				return nil, fmt.Errorf("parse thresholds file %s: %w", path, err)
			}
			if saved.DefaultFreezeF != nil {
				table.DefaultFreezeF = saved.DefaultFreezeF
			}
			if saved.DefaultHeatF != nil {
				table.DefaultHeatF = saved.DefaultHeatF
			}
			for room, limits := range saved.Rooms {
				table.Rooms[room] = limits
			}
		case os.IsNotExist(err):
			// First run.
		default:
			return nil, fmt.Errorf("read thresholds file %s: %w", path, err)
		}
	}

	t := &Thresholds{path: path}
	t.current.Store(table)
	return t, nil
}

// Snapshot returns the current immutable table.
func (t *Thresholds) Snapshot() *Table {
	return t.current.Load()
}

// SetRoom updates a room's override atomically and persists the new
// snapshot. Either limit may be nil to leave it unchanged.
func (t *Thresholds) SetRoom(room string, low, high *float64) error {
	if err := validateLimit(low); err != nil {
		return err
	}
	if err := validateLimit(high); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	next := t.current.Load().clone()
	limits := next.Rooms[room]
	if low != nil {
		limits.Low = low
	}
	if high != nil {
		limits.High = high
	}
	next.Rooms[room] = limits

	if err := t.persist(next); err != nil {
		return err
	}
	t.current.Store(next)
	return nil
}

// SetDefaults updates the global thresholds atomically.
func (t *Thresholds) SetDefaults(freeze, heat *float64) error {
	if err := validateLimit(freeze); err != nil {
		return err
	}
	if err := validateLimit(heat); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	next := t.current.Load().clone()
	if freeze != nil {
		next.DefaultFreezeF = freeze
	}
	if heat != nil {
		next.DefaultHeatF = heat
	}

	if err := t.persist(next); err != nil {
		return err
	}
	t.current.Store(next)
	return nil
}

// persist writes the snapshot to disk via a temp-file rename so a crash
// mid-write never leaves a truncated file.
func (t *Thresholds) persist(table *Table) error {
	if t.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, t.path)
}

func validateLimit(v *float64) error {
	if v == nil {
		return nil
	}
	if *v < MinThresholdF || *v > MaxThresholdF {
		return fmt.Errorf("%w: %.1f°F not in [%.0f, %.0f]", ErrThresholdRange, *v, MinThresholdF, MaxThresholdF)
	}
	return nil
}

// Float is a convenience for building optional threshold values.
func Float(v float64) *float64 { return &v }

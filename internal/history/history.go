// Package history maintains rolling 24-hour temperature history per room
// and answers current/coldest/warmest/high-low queries over it.
package history

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/home-temperature-agent/internal/sensor"
)

// ErrNoData is returned when a room has no readings inside the window.
var ErrNoData = errors.New("no temperature data for room")

// Window is how far back queries look. Entries older than this relative
// to the clock are evicted.
const Window = 24 * time.Hour

// WindowStats summarizes the trailing-24h extremes for one room.
type WindowStats struct {
	Room   string    `json:"room"`
	High   float64   `json:"high"`
	HighAt time.Time `json:"highAt"`
	Low    float64   `json:"low"`
	LowAt  time.Time `json:"lowAt"`
}

// Aggregator keeps time-ordered readings per room. A single poll loop
// writes; the HTTP and agent layers read concurrently.
type Aggregator struct {
	mu sync.RWMutex

	channels    sensor.ChannelMap
	outdoorRoom string
	rooms       map[string][]sensor.Reading

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// New creates an Aggregator. outdoorRoom names the room excluded from
// coldest/warmest comparisons (outdoor sensors are not living space);
// it may be empty when no outdoor sensor is configured.
func New(channels sensor.ChannelMap, outdoorRoom string) *Aggregator {
	return &Aggregator{
		channels:    channels,
		outdoorRoom: outdoorRoom,
		rooms:       make(map[string][]sensor.Reading),
		now:         time.Now,
	}
}

// SetClock overrides the aggregator's clock. Test hook.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// Record appends a reading, keeping per-room sequences time-ordered and
// bounded to the trailing window. A later write for the same instant
// replaces the earlier one rather than duplicating it.
func (a *Aggregator) Record(r sensor.Reading) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seq := a.rooms[r.Room]

	// Replace an existing reading at the same instant.
	replaced := false
	for i := range seq {
		if seq[i].ObservedAt.Equal(r.ObservedAt) {
			seq[i] = r
			replaced = true
			break
		}
	}

	if !replaced {
		// Readings arrive in time order from the poll loop; insert from
		// the tail for the rare out-of-order write.
		i := len(seq)
		for i > 0 && seq[i-1].ObservedAt.After(r.ObservedAt) {
			i--
		}
		seq = append(seq, sensor.Reading{})
		copy(seq[i+1:], seq[i:])
		seq[i] = r
	}

	a.rooms[r.Room] = evict(seq, a.now().Add(-Window))
}

// Current returns the most recent reading for a room.
func (a *Aggregator) Current(room string) (sensor.Reading, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	seq := a.rooms[room]
	if len(seq) == 0 {
		return sensor.Reading{}, false
	}
	return seq[len(seq)-1], true
}

// CurrentAll returns the latest reading for every room that has one,
// in channel-map order.
func (a *Aggregator) CurrentAll() []sensor.Reading {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]sensor.Reading, 0, len(a.channels))
	for _, room := range a.channels.Rooms() {
		seq := a.rooms[room]
		if len(seq) == 0 {
			continue
		}
		out = append(out, seq[len(seq)-1])
	}
	return out
}

// Coldest returns the indoor room with the lowest current reading.
// Only the latest reading per room is compared; on an exact tie the
// first-configured room wins, so repeated questions get a stable answer.
func (a *Aggregator) Coldest() (sensor.Reading, bool) {
	return a.pick(func(candidate, best float64) bool { return candidate < best })
}

// Warmest returns the indoor room with the highest current reading,
// with the same tie rule as Coldest.
func (a *Aggregator) Warmest() (sensor.Reading, bool) {
	return a.pick(func(candidate, best float64) bool { return candidate > best })
}

func (a *Aggregator) pick(better func(candidate, best float64) bool) (sensor.Reading, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var best sensor.Reading
	found := false
	for _, room := range a.channels.Rooms() {
		if room == a.outdoorRoom {
			continue
		}
		seq := a.rooms[room]
		if len(seq) == 0 {
			continue
		}
		latest := seq[len(seq)-1]
		// Strict comparison keeps the first-configured room on ties.
		if !found || better(latest.TempF, best.TempF) {
			best = latest
			found = true
		}
	}
	return best, found
}

// Window24h reports the high/low over the trailing 24 hours anchored at
// query time. Two queries 30 minutes apart may evict different points.
func (a *Aggregator) Window24h(room string) (WindowStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().Add(-Window)
	seq := evict(a.rooms[room], cutoff)
	a.rooms[room] = seq

	if len(seq) == 0 {
		return WindowStats{}, ErrNoData
	}

	stats := WindowStats{
		Room: room,
		High: seq[0].TempF, HighAt: seq[0].ObservedAt,
		Low: seq[0].TempF, LowAt: seq[0].ObservedAt,
	}
	for _, r := range seq[1:] {
		if r.TempF > stats.High {
			stats.High = r.TempF
			stats.HighAt = r.ObservedAt
		}
		if r.TempF < stats.Low {
			stats.Low = r.TempF
			stats.LowAt = r.ObservedAt
		}
	}
	return stats, nil
}

// evict drops readings at or before cutoff from the head of a
// time-ordered sequence.
func evict(seq []sensor.Reading, cutoff time.Time) []sensor.Reading {
	i := 0
	for i < len(seq) && !seq[i].ObservedAt.After(cutoff) {
		i++
	}
	if i == 0 {
		return seq
	}
	return append(seq[:0:0], seq[i:]...)
}

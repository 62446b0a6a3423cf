package services

import (
	"sort"
	"sync"
	"time"

	"github.com/kamal-hamza/bricklayer/internal/core/domain"
	"github.com/kamal-hamza/bricklayer/internal/core/ports"
)

// DefaultPollInterval is how often the polling detector re-stats its files
const DefaultPollInterval = 500 * time.Millisecond

// PollingDetector finds changed files by comparing modification times on a
// fixed cadence. It is meant to be drained from the render loop itself.
type PollingDetector struct {
	stat     ports.FileStat
	interval time.Duration

	mu       sync.Mutex
	targets  []pollTarget
	lastPoll time.Time
}

type pollTarget struct {
	event   domain.ChangeEvent
	path    string
	seen    time.Time
	present bool
}

// NewPollingDetector watches every model and companion path in the store.
// The current modification times become the baseline.
func NewPollingDetector(store *AssetStore, stat ports.FileStat, interval time.Duration) *PollingDetector {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	d := &PollingDetector{
		stat:     stat,
		interval: interval,
	}

	store.Each(func(slot domain.Slot) {
		for kind, path := range slot.WatchedPaths() {
			t := pollTarget{
				event: domain.ChangeEvent{Slot: slot.Index, Kind: kind},
				path:  path,
			}
			t.seen, t.present = stat.ModTime(path)
			d.targets = append(d.targets, t)
		}
	})

	// Map iteration above is unordered
	sort.Slice(d.targets, func(i, j int) bool {
		a, b := d.targets[i].event, d.targets[j].event
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Kind < b.Kind
	})

	return d
}

// Drain polls if the interval has elapsed since the previous poll, otherwise
// it returns nothing
func (d *PollingDetector) Drain() []domain.ChangeEvent {
	d.mu.Lock()
	due := time.Since(d.lastPoll) >= d.interval
	d.mu.Unlock()

	if !due {
		return nil
	}
	return d.Poll()
}

// Poll stats every watched path now and returns an event for each one whose
// modification time increased. A path that was missing and now exists counts
// as changed; a path that disappears is ignored until it comes back.
func (d *PollingDetector) Poll() []domain.ChangeEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastPoll = time.Now()

	var events []domain.ChangeEvent
	for i := range d.targets {
		t := &d.targets[i]

		modTime, ok := d.stat.ModTime(t.path)
		if !ok {
			t.present = false
			continue
		}

		if !t.present || modTime.After(t.seen) {
			events = append(events, t.event)
		}
		t.present = true
		if modTime.After(t.seen) {
			t.seen = modTime
		}
	}

	return events
}

// Close implements ports.ChangeSource
func (d *PollingDetector) Close() error {
	return nil
}

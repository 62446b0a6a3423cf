package watcher

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kamal-hamza/bricklayer/internal/core/domain"
)

// FSNotifySource pushes file changes into a pending set that the render loop
// drains once per frame. It never touches renderer resources itself.
type FSNotifySource struct {
	watcher *fsnotify.Watcher
	targets map[string][]domain.ChangeEvent

	mu      sync.Mutex
	pending map[domain.ChangeEvent]struct{}

	wg sync.WaitGroup
}

// NewFSNotifySource starts watching every model and companion path of slots.
// Parent directories are watched rather than the files, so saves that replace
// a file by renaming over it are still seen and companions created later are
// picked up.
func NewFSNotifySource(slots []domain.Slot) (*FSNotifySource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	s := &FSNotifySource{
		watcher: w,
		targets: make(map[string][]domain.ChangeEvent),
		pending: make(map[domain.ChangeEvent]struct{}),
	}

	dirs := make(map[string]bool)
	for _, slot := range slots {
		for kind, path := range slot.WatchedPaths() {
			abs, err := filepath.Abs(path)
			if err != nil {
				w.Close()
				return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
			}
			ev := domain.ChangeEvent{Slot: slot.Index, Kind: kind}
			s.targets[abs] = append(s.targets[abs], ev)
			dirs[filepath.Dir(abs)] = true
		}
	}

	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	s.wg.Add(1)
	go s.loop()

	return s, nil
}

func (s *FSNotifySource) loop() {
	defer s.wg.Done()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

func (s *FSNotifySource) handle(event fsnotify.Event) {
	// Removal and rename-away leave nothing to load; the replacement
	// arrives as a Create
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Chmod) {
		return
	}

	targets, ok := s.targets[filepath.Clean(event.Name)]
	if !ok {
		return
	}

	s.mu.Lock()
	for _, ev := range targets {
		s.pending[ev] = struct{}{}
	}
	s.mu.Unlock()
}

// Drain returns the changes seen since the previous call. Repeated writes to
// one file between drains collapse into a single event. It never blocks on
// the watcher.
func (s *FSNotifySource) Drain() []domain.ChangeEvent {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	events := make([]domain.ChangeEvent, 0, len(s.pending))
	for ev := range s.pending {
		events = append(events, ev)
	}
	clear(s.pending)
	s.mu.Unlock()

	domain.SortEvents(events)
	return events
}

// Close stops the watcher and waits for its goroutine to exit
func (s *FSNotifySource) Close() error {
	err := s.watcher.Close()
	s.wg.Wait()
	return err
}

package services

import (
	"fmt"
	"sync"

	"github.com/kamal-hamza/bricklayer/internal/core/domain"
)

// AssetStore holds the fixed set of slots loaded at startup.
// Each slot has its own lock so reloading one never stalls drawing another.
type AssetStore struct {
	entries []*storeEntry
}

type storeEntry struct {
	mu   sync.RWMutex
	slot domain.Slot
}

// NewAssetStore creates one empty slot per model path, in order
func NewAssetStore(modelPaths []string) (*AssetStore, error) {
	if len(modelPaths) == 0 {
		return nil, domain.ErrNoModels
	}

	entries := make([]*storeEntry, len(modelPaths))
	for i, p := range modelPaths {
		entries[i] = &storeEntry{slot: domain.NewSlot(i, p)}
	}

	return &AssetStore{entries: entries}, nil
}

// Len returns the number of slots
func (s *AssetStore) Len() int {
	return len(s.entries)
}

// Snapshot returns a copy of slot i
func (s *AssetStore) Snapshot(i int) (domain.Slot, error) {
	e, err := s.entry(i)
	if err != nil {
		return domain.Slot{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.slot, nil
}

// View runs fn with slot i held under its read lock. Use it for drawing:
// no reload can swap the slot's resources while fn runs.
func (s *AssetStore) View(i int, fn func(domain.Slot)) error {
	e, err := s.entry(i)
	if err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.slot)
	return nil
}

// Each calls View for every slot in index order
func (s *AssetStore) Each(fn func(domain.Slot)) {
	for i := range s.entries {
		_ = s.View(i, fn)
	}
}

// Slots returns a snapshot of every slot in index order
func (s *AssetStore) Slots() []domain.Slot {
	slots := make([]domain.Slot, 0, len(s.entries))
	s.Each(func(slot domain.Slot) {
		slots = append(slots, slot)
	})
	return slots
}

// swap runs fn with exclusive access to slot i. Only ReloadService calls it.
func (s *AssetStore) swap(i int, fn func(*domain.Slot)) error {
	e, err := s.entry(i)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.slot)
	return nil
}

func (s *AssetStore) entry(i int) (*storeEntry, error) {
	if i < 0 || i >= len(s.entries) {
		return nil, fmt.Errorf("%w: %d (have %d)", domain.ErrSlotOutOfRange, i, len(s.entries))
	}
	return s.entries[i], nil
}

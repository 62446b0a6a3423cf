package services

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kamal-hamza/bricklayer/internal/core/domain"
	"github.com/kamal-hamza/bricklayer/internal/core/ports"
)

// ErrShutdown is returned by reloads issued after Shutdown
var ErrShutdown = errors.New("reload service is shut down")

// ReloadService replaces slot resources when their files change.
// Loads happen outside the slot lock; only the swap holds it.
type ReloadService struct {
	store    *AssetStore
	renderer ports.Renderer
	stat     ports.FileStat
	closed   atomic.Bool
}

// NewReloadService creates a reload service. stat may be nil, in which case
// modification times are not recorded on the slots.
func NewReloadService(store *AssetStore, renderer ports.Renderer, stat ports.FileStat) *ReloadService {
	return &ReloadService{
		store:    store,
		renderer: renderer,
		stat:     stat,
	}
}

// ReloadResult represents the outcome of handling one change event
type ReloadResult struct {
	Slot    int
	Kind    domain.ChangeKind
	Path    string
	Success bool
	Error   error
}

// StartupResponse represents the outcome of the initial load
type StartupResponse struct {
	Slots           int
	TexturesLoaded  int
	TextureFailures []ReloadResult
}

// Startup loads every slot's model and texture. A model that fails to load is
// fatal: everything loaded so far is released and an ErrInvariant is returned.
// Texture failures are reported in the response and leave the slot untextured.
func (s *ReloadService) Startup() (*StartupResponse, error) {
	resp := &StartupResponse{Slots: s.store.Len()}

	for i := 0; i < s.store.Len(); i++ {
		if err := s.ReloadModel(i); err != nil {
			s.Shutdown()
			return nil, fmt.Errorf("%w: slot %d: %w", domain.ErrInvariant, i, err)
		}

		slot, _ := s.store.Snapshot(i)
		if !slot.HasTexture {
			continue
		}

		if err := s.ReloadTexture(i); err != nil {
			resp.TextureFailures = append(resp.TextureFailures, ReloadResult{
				Slot:  i,
				Kind:  domain.KindTexture,
				Path:  slot.TexturePath,
				Error: err,
			})
			continue
		}
		resp.TexturesLoaded++
	}

	return resp, nil
}

// ReloadModel loads slot i's model file and swaps it in, keeping the current texture.
// On failure the slot keeps its previous model.
func (s *ReloadService) ReloadModel(i int) error {
	if s.closed.Load() {
		return ErrShutdown
	}

	slot, err := s.store.Snapshot(i)
	if err != nil {
		return err
	}

	modTime := s.modTime(slot.ModelPath)

	model, err := s.renderer.LoadModel(slot.ModelPath)
	if err != nil {
		return s.fail(i, fmt.Errorf("%w: model %s: %w", domain.ErrLoadFailed, slot.ModelPath, err))
	}

	return s.store.swap(i, func(slot *domain.Slot) {
		texture := slot.Texture

		if slot.Model != 0 {
			s.renderer.ReleaseModel(slot.Model)
		}

		slot.Model = model
		s.renderer.AttachTexture(model, texture)

		slot.Generation++
		slot.LastError = nil
		if modTime.After(slot.ModelModTime) {
			slot.ModelModTime = modTime
		}
	})
}

// ReloadTexture loads slot i's companion texture and swaps it in. Without a
// model the texture is kept and attached once a model is installed.
func (s *ReloadService) ReloadTexture(i int) error {
	if s.closed.Load() {
		return ErrShutdown
	}

	slot, err := s.store.Snapshot(i)
	if err != nil {
		return err
	}
	if !slot.HasTexture {
		return fmt.Errorf("%w: slot %d", domain.ErrNoCompanion, i)
	}

	modTime := s.modTime(slot.TexturePath)

	texture, err := s.renderer.LoadTexture(slot.TexturePath)
	if err != nil {
		return s.fail(i, fmt.Errorf("%w: texture %s: %w", domain.ErrLoadFailed, slot.TexturePath, err))
	}

	return s.store.swap(i, func(slot *domain.Slot) {
		old := slot.Texture

		slot.Texture = texture
		if slot.Model != 0 {
			s.renderer.AttachTexture(slot.Model, texture)
		}
		if old != 0 {
			s.renderer.ReleaseTexture(old)
		}

		slot.LastError = nil
		if modTime.After(slot.TextureModTime) {
			slot.TextureModTime = modTime
		}
	})
}

// Apply handles each event once, in order
func (s *ReloadService) Apply(events []domain.ChangeEvent) []ReloadResult {
	if len(events) == 0 {
		return nil
	}

	results := make([]ReloadResult, 0, len(events))
	for _, ev := range events {
		result := ReloadResult{Slot: ev.Slot, Kind: ev.Kind}

		if slot, err := s.store.Snapshot(ev.Slot); err == nil {
			result.Path = slot.ModelPath
			if ev.Kind == domain.KindTexture {
				result.Path = slot.TexturePath
			}
		}

		var err error
		switch ev.Kind {
		case domain.KindModel:
			err = s.ReloadModel(ev.Slot)
		case domain.KindTexture:
			err = s.ReloadTexture(ev.Slot)
		default:
			err = fmt.Errorf("unknown change kind %d", ev.Kind)
		}

		result.Success = err == nil
		result.Error = err
		results = append(results, result)
	}

	return results
}

// Verify checks that every slot holds a model
func (s *ReloadService) Verify() error {
	for i := 0; i < s.store.Len(); i++ {
		slot, err := s.store.Snapshot(i)
		if err != nil {
			return err
		}
		if !slot.Loaded() {
			return fmt.Errorf("%w: slot %d (%s)", domain.ErrInvariant, i, slot.ModelPath)
		}
	}
	return nil
}

// Shutdown releases every resource exactly once. Later calls do nothing.
func (s *ReloadService) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	for i := 0; i < s.store.Len(); i++ {
		_ = s.store.swap(i, func(slot *domain.Slot) {
			if slot.Texture != 0 {
				s.renderer.ReleaseTexture(slot.Texture)
				slot.Texture = 0
			}
			if slot.Model != 0 {
				s.renderer.ReleaseModel(slot.Model)
				slot.Model = 0
			}
		})
	}
}

func (s *ReloadService) fail(i int, err error) error {
	_ = s.store.swap(i, func(slot *domain.Slot) {
		slot.LastError = err
	})
	return err
}

func (s *ReloadService) modTime(path string) time.Time {
	if s.stat == nil {
		return time.Time{}
	}
	t, _ := s.stat.ModTime(path)
	return t
}

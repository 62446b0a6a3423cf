package mocks

import (
	"fmt"
	"sync"

	"github.com/kamal-hamza/bricklayer/internal/core/domain"
)

// MockRenderer is a mock implementation of the Renderer interface for testing.
// It hands out increasing handles and tracks which ones are alive.
type MockRenderer struct {
	mu sync.Mutex

	next     uint64
	models   map[domain.ModelHandle]string
	textures map[domain.TextureHandle]string
	attached map[domain.ModelHandle]domain.TextureHandle
	failing  map[string]error

	calls []string

	releasedModels   []domain.ModelHandle
	releasedTextures []domain.TextureHandle
}

// NewMockRenderer creates a new mock renderer
func NewMockRenderer() *MockRenderer {
	return &MockRenderer{
		models:   make(map[domain.ModelHandle]string),
		textures: make(map[domain.TextureHandle]string),
		attached: make(map[domain.ModelHandle]domain.TextureHandle),
		failing:  make(map[string]error),
	}
}

// SetShouldFail makes loads of path fail with err. A nil err clears the failure.
func (m *MockRenderer) SetShouldFail(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.failing, path)
		return
	}
	m.failing[path] = err
}

func (m *MockRenderer) LoadModel(path string) (domain.ModelHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "LoadModel "+path)
	if err, ok := m.failing[path]; ok {
		return 0, err
	}
	m.next++
	h := domain.ModelHandle(m.next)
	m.models[h] = path
	return h, nil
}

func (m *MockRenderer) ReleaseModel(model domain.ModelHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, fmt.Sprintf("ReleaseModel %d", model))
	delete(m.models, model)
	delete(m.attached, model)
	m.releasedModels = append(m.releasedModels, model)
}

func (m *MockRenderer) LoadTexture(path string) (domain.TextureHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "LoadTexture "+path)
	if err, ok := m.failing[path]; ok {
		return 0, err
	}
	m.next++
	h := domain.TextureHandle(m.next)
	m.textures[h] = path
	return h, nil
}

func (m *MockRenderer) ReleaseTexture(texture domain.TextureHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, fmt.Sprintf("ReleaseTexture %d", texture))
	delete(m.textures, texture)
	m.releasedTextures = append(m.releasedTextures, texture)
}

func (m *MockRenderer) AttachTexture(model domain.ModelHandle, texture domain.TextureHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, fmt.Sprintf("AttachTexture %d %d", model, texture))
	m.attached[model] = texture
}

// ModelAlive reports whether a model handle has been loaded and not released
func (m *MockRenderer) ModelAlive(h domain.ModelHandle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.models[h]
	return ok
}

// TextureAlive reports whether a texture handle has been loaded and not released
func (m *MockRenderer) TextureAlive(h domain.TextureHandle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.textures[h]
	return ok
}

// AttachedTo returns the texture last attached to a model
func (m *MockRenderer) AttachedTo(h domain.ModelHandle) domain.TextureHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached[h]
}

// LiveCount returns the number of models and textures currently alive
func (m *MockRenderer) LiveCount() (models, textures int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.models), len(m.textures)
}

// GetCalls returns every recorded call in order
func (m *MockRenderer) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// ResetCalls clears the call log
func (m *MockRenderer) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// ReleasedModels returns every model handle passed to ReleaseModel
func (m *MockRenderer) ReleasedModels() []domain.ModelHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ModelHandle(nil), m.releasedModels...)
}

// ReleasedTextures returns every texture handle passed to ReleaseTexture
func (m *MockRenderer) ReleasedTextures() []domain.TextureHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TextureHandle(nil), m.releasedTextures...)
}

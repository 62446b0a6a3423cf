package ports

import (
	"time"

	"github.com/kamal-hamza/bricklayer/internal/core/domain"
)

// Renderer defines the port for GPU resource management.
// Handles are opaque; the core never looks inside them.
type Renderer interface {
	// LoadModel reads geometry from disk and uploads it
	LoadModel(path string) (domain.ModelHandle, error)

	// ReleaseModel frees a model and anything it loaded on its own.
	// Textures handed out by LoadTexture stay alive.
	ReleaseModel(model domain.ModelHandle)

	// LoadTexture reads an image from disk and uploads it
	LoadTexture(path string) (domain.TextureHandle, error)

	// ReleaseTexture frees a texture
	ReleaseTexture(texture domain.TextureHandle)

	// AttachTexture binds a texture and the viewer shading to a model.
	// A zero texture attaches a plain white map.
	AttachTexture(model domain.ModelHandle, texture domain.TextureHandle)
}

// FileStat defines the port for reading file modification times
type FileStat interface {
	// ModTime returns the modification time of path, or false if it does not exist
	ModTime(path string) (time.Time, bool)
}

// ChangeSource defines the port for change detection
type ChangeSource interface {
	// Drain returns the changes detected since the last call without blocking
	Drain() []domain.ChangeEvent

	// Close stops detection and releases its resources
	Close() error
}

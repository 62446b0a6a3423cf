package domain

import (
	"sort"
	"time"
)

// ModelHandle identifies geometry owned by the renderer. Zero means no model.
type ModelHandle uint64

// TextureHandle identifies an image owned by the renderer. Zero means no texture.
type TextureHandle uint64

// ChangeKind says which resource of a slot a change refers to
type ChangeKind int

const (
	KindModel ChangeKind = iota
	KindTexture
)

func (k ChangeKind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindTexture:
		return "texture"
	default:
		return "unknown"
	}
}

// ChangeEvent reports that the file behind (Slot, Kind) changed on disk.
// Events are consumed once and then discarded.
type ChangeEvent struct {
	Slot int
	Kind ChangeKind
}

// Slot is one loaded asset: a model and its optional companion texture
type Slot struct {
	Index       int
	ModelPath   string
	TexturePath string // empty when HasTexture is false
	HasTexture  bool

	Model   ModelHandle
	Texture TextureHandle

	// Modification times observed before the last successful load
	ModelModTime   time.Time
	TextureModTime time.Time

	Generation int   // successful model installs, including the initial one
	LastError  error // most recent load failure, cleared on success
}

// NewSlot creates an empty slot for a model path and derives its companion texture path
func NewSlot(index int, modelPath string) Slot {
	texturePath, ok := CompanionPath(modelPath)
	return Slot{
		Index:       index,
		ModelPath:   modelPath,
		TexturePath: texturePath,
		HasTexture:  ok,
	}
}

// Loaded reports whether the slot holds a model
func (s Slot) Loaded() bool {
	return s.Model != 0
}

// WatchedPaths returns every path whose changes affect this slot, tagged by kind
func (s Slot) WatchedPaths() map[ChangeKind]string {
	paths := map[ChangeKind]string{KindModel: s.ModelPath}
	if s.HasTexture {
		paths[KindTexture] = s.TexturePath
	}
	return paths
}

// SortEvents orders events by slot, models before textures
func SortEvents(events []ChangeEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Slot != events[j].Slot {
			return events[i].Slot < events[j].Slot
		}
		return events[i].Kind < events[j].Kind
	})
}

package domain

import "errors"

var (
	// ErrNoModels is returned when startup receives no model paths
	ErrNoModels = errors.New("no model files were supplied")

	// ErrSlotOutOfRange is returned for an index outside the asset store
	ErrSlotOutOfRange = errors.New("slot index out of range")

	// ErrLoadFailed wraps renderer failures while loading a model or texture
	ErrLoadFailed = errors.New("load failed")

	// ErrNoCompanion is returned when a texture reload targets a slot without a texture path
	ErrNoCompanion = errors.New("slot has no companion texture path")

	// ErrInvariant means a slot finished startup without a model
	ErrInvariant = errors.New("slot has no model after startup")
)

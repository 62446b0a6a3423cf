package domain

import (
	"path/filepath"
	"strings"
)

// TextureExt is the extension, without the dot, of companion texture files
const TextureExt = "aseprite"

// legacyExtLen is the extension length assumed when a path has no dot to split on
const legacyExtLen = 3

// CompanionPath derives the texture path that belongs to a model path.
// "/models/brick.obj" -> "/models/brick.aseprite"
//
// The final path element is split into stem and extension and the extension is
// replaced. Elements without an extension fall back to treating their last three
// characters as the extension, so "obj" -> "aseprite". Inputs shorter than three
// characters have no companion. The filesystem is never consulted.
func CompanionPath(modelPath string) (string, bool) {
	if len(modelPath) < legacyExtLen {
		return "", false
	}

	if ext := filepath.Ext(modelPath); ext != "" {
		return strings.TrimSuffix(modelPath, ext) + "." + TextureExt, true
	}

	return modelPath[:len(modelPath)-legacyExtLen] + TextureExt, true
}

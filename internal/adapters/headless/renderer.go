package headless

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kamal-hamza/bricklayer/internal/core/domain"
	"github.com/kamal-hamza/bricklayer/pkg/aseprite"
)

// ModelInfo describes a model loaded by the headless renderer
type ModelInfo struct {
	Path     string
	Vertices int
	Faces    int
	Hash     string // SHA-256 of the file content
	Texture  domain.TextureHandle
}

// TextureInfo describes a texture loaded by the headless renderer
type TextureInfo struct {
	Path   string
	Width  int
	Height int
}

// Renderer implements the Renderer port without a GPU. It parses and
// fingerprints files so reload behavior can be observed from a terminal.
type Renderer struct {
	mu       sync.Mutex
	next     uint64
	models   map[domain.ModelHandle]ModelInfo
	textures map[domain.TextureHandle]TextureInfo
}

// NewRenderer creates a headless renderer
func NewRenderer() *Renderer {
	return &Renderer{
		models:   make(map[domain.ModelHandle]ModelInfo),
		textures: make(map[domain.TextureHandle]TextureInfo),
	}
}

func (r *Renderer) LoadModel(path string) (domain.ModelHandle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%s is empty", path)
	}

	sum := sha256.Sum256(data)
	info := ModelInfo{Path: path, Hash: hex.EncodeToString(sum[:])}

	if strings.EqualFold(filepath.Ext(path), ".obj") {
		if info.Vertices, info.Faces, err = parseOBJ(data); err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := domain.ModelHandle(r.next)
	r.models[h] = info
	return h, nil
}

func (r *Renderer) ReleaseModel(model domain.ModelHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, model)
}

func (r *Renderer) LoadTexture(path string) (domain.TextureHandle, error) {
	img, err := aseprite.Load(path)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := domain.TextureHandle(r.next)
	r.textures[h] = TextureInfo{
		Path:   path,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	return h, nil
}

func (r *Renderer) ReleaseTexture(texture domain.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.textures, texture)
}

func (r *Renderer) AttachTexture(model domain.ModelHandle, texture domain.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.models[model]; ok {
		info.Texture = texture
		r.models[model] = info
	}
}

// Model returns what the headless renderer knows about a live model
func (r *Renderer) Model(h domain.ModelHandle) (ModelInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.models[h]
	return info, ok
}

// Texture returns what the headless renderer knows about a live texture
func (r *Renderer) Texture(h domain.TextureHandle) (TextureInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.textures[h]
	return info, ok
}

// Live returns the number of models and textures not yet released
func (r *Renderer) Live() (models, textures int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.models), len(r.textures)
}

// parseOBJ counts vertices and faces, rejecting malformed vertex data and
// faces that reference missing vertices. A half-written file usually fails here.
func parseOBJ(data []byte) (vertices, faces int, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return 0, 0, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNum)
			}
			for _, f := range fields[1:4] {
				if _, err := strconv.ParseFloat(f, 32); err != nil {
					return 0, 0, fmt.Errorf("line %d: bad coordinate %q", lineNum, f)
				}
			}
			vertices++

		case "f":
			if len(fields) < 4 {
				return 0, 0, fmt.Errorf("line %d: face needs 3 vertices", lineNum)
			}
			for _, f := range fields[1:] {
				idx, err := strconv.Atoi(strings.SplitN(f, "/", 2)[0])
				if err != nil {
					return 0, 0, fmt.Errorf("line %d: bad face index %q", lineNum, f)
				}
				if idx < 0 {
					idx = vertices + idx + 1
				}
				if idx < 1 || idx > vertices {
					return 0, 0, fmt.Errorf("line %d: face index %d out of range", lineNum, idx)
				}
			}
			faces++
		}
	}

	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	if vertices == 0 {
		return 0, 0, fmt.Errorf("no vertices")
	}
	return vertices, faces, nil
}

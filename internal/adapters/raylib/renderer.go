// Package raylib implements the Renderer port on top of raylib and runs the
// viewer window. Every function here must be called from the thread that
// opened the window.
package raylib

import (
	"fmt"
	"image"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/kamal-hamza/bricklayer/internal/core/domain"
	"github.com/kamal-hamza/bricklayer/pkg/aseprite"
)

// Models are shaded with texture colour only; vertex colours are ignored
const vertexShader = `#version 330
in vec3 vertexPosition;
in vec2 vertexTexCoord;
in vec4 vertexColor;
out vec2 fragTexCoord;
out vec4 fragColor;
uniform mat4 mvp;
void main()
{
    fragTexCoord = vertexTexCoord;
    fragColor = vec4(1.0);
    gl_Position = mvp*vec4(vertexPosition, 1.0);
}
`

// Renderer owns every model and texture uploaded to the GPU
type Renderer struct {
	shader rl.Shader
	blank  rl.Texture2D

	next     uint64
	models   map[domain.ModelHandle]rl.Model
	textures map[domain.TextureHandle]rl.Texture2D

	// textures raylib loaded from a model's own material file
	modelTextures map[domain.ModelHandle][]rl.Texture2D
}

// NewRenderer compiles the viewer shader. The window must already be open.
func NewRenderer() *Renderer {
	white := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	white.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img := rl.NewImageFromImage(white)
	blank := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)

	return &Renderer{
		shader:   rl.LoadShaderFromMemory(vertexShader, ""),
		blank:    blank,
		models:   make(map[domain.ModelHandle]rl.Model),
		textures: make(map[domain.TextureHandle]rl.Texture2D),

		modelTextures: make(map[domain.ModelHandle][]rl.Texture2D),
	}
}

func (r *Renderer) LoadModel(path string) (domain.ModelHandle, error) {
	model := rl.LoadModel(path)
	if model.MeshCount == 0 {
		// raylib hands back a default model on failure
		rl.UnloadModel(model)
		return 0, fmt.Errorf("could not load model %s", path)
	}

	mats := materials(model)
	for i := range mats {
		mats[i].Shader = r.shader
	}

	r.next++
	h := domain.ModelHandle(r.next)
	r.models[h] = model
	r.modelTextures[h] = materialTextures(mats, rl.GetTextureIdDefault(), r.blank.ID)
	return h, nil
}

func (r *Renderer) ReleaseModel(model domain.ModelHandle) {
	m, ok := r.models[model]
	if !ok {
		return
	}
	// UnloadModel frees the material maps but not the textures in them.
	// Textures from the texture table stay alive; the model's own go with it.
	rl.UnloadModel(m)
	for _, tex := range r.modelTextures[model] {
		rl.UnloadTexture(tex)
	}
	delete(r.models, model)
	delete(r.modelTextures, model)
}

func (r *Renderer) LoadTexture(path string) (domain.TextureHandle, error) {
	pixels, err := aseprite.Load(path)
	if err != nil {
		return 0, err
	}

	img := rl.NewImageFromImage(pixels)
	tex := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	if tex.ID == 0 {
		return 0, fmt.Errorf("could not upload texture %s", path)
	}

	r.next++
	h := domain.TextureHandle(r.next)
	r.textures[h] = tex
	return h, nil
}

func (r *Renderer) ReleaseTexture(texture domain.TextureHandle) {
	tex, ok := r.textures[texture]
	if !ok {
		return
	}
	rl.UnloadTexture(tex)
	delete(r.textures, texture)
}

func (r *Renderer) AttachTexture(model domain.ModelHandle, texture domain.TextureHandle) {
	m, ok := r.models[model]
	if !ok {
		return
	}

	tex, ok := r.textures[texture]
	if !ok {
		tex = r.blank
	}

	mats := materials(m)
	if len(mats) == 0 {
		return
	}
	mats[0].Shader = r.shader
	rl.SetMaterialTexture(&mats[0], rl.MapDiffuse, tex)
}

// Draw renders one slot at the origin, optionally with its wireframe on top
func (r *Renderer) Draw(slot domain.Slot, wireframe bool) {
	m, ok := r.models[slot.Model]
	if !ok {
		return
	}

	origin := rl.NewVector3(0, 0, 0)
	rl.DrawModel(m, origin, 1.0, rl.RayWhite)
	if wireframe {
		rl.DrawModelWires(m, origin, 1.0, rl.Black)
	}
}

// Close frees everything still uploaded, including resources the reload
// service never released
func (r *Renderer) Close() {
	for h := range r.models {
		r.ReleaseModel(h)
	}
	for h := range r.textures {
		r.ReleaseTexture(h)
	}
	rl.UnloadTexture(r.blank)
	rl.UnloadShader(r.shader)
}

func materials(m rl.Model) []rl.Material {
	if m.MaterialCount == 0 || m.Materials == nil {
		return nil
	}
	return m.GetMaterials()
}

// materialTextures lists the distinct textures referenced by any map of mats,
// leaving out ids in skip
func materialTextures(mats []rl.Material, skip ...uint32) []rl.Texture2D {
	seen := make(map[uint32]bool, len(skip))
	for _, id := range skip {
		seen[id] = true
	}

	var out []rl.Texture2D
	for _, mat := range mats {
		if mat.Maps == nil {
			continue
		}
		for i := int32(0); i < rl.MaxMaterialMaps; i++ {
			tex := mat.GetMap(i).Texture
			if tex.ID == 0 || seen[tex.ID] {
				continue
			}
			seen[tex.ID] = true
			out = append(out, tex)
		}
	}
	return out
}

package raylib

import (
	"reflect"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// material builds a raylib material in Go memory with the given map textures
func material(ids map[int]uint32) rl.Material {
	maps := make([]rl.MaterialMap, rl.MaxMaterialMaps)
	for i, id := range ids {
		maps[i].Texture = rl.Texture2D{ID: id, Width: 1, Height: 1}
	}
	return rl.Material{Maps: &maps[0]}
}

func textureIDs(textures []rl.Texture2D) []uint32 {
	ids := make([]uint32, 0, len(textures))
	for _, tex := range textures {
		ids = append(ids, tex.ID)
	}
	return ids
}

func TestMaterialTextures(t *testing.T) {
	const defaultID, blankID = 1, 2

	tests := []struct {
		name string
		mats []rl.Material
		want []uint32
	}{
		{
			name: "textures from the material file",
			mats: []rl.Material{
				material(map[int]uint32{rl.MapDiffuse: 7, rl.MapNormal: 8}),
			},
			want: []uint32{7, 8},
		},
		{
			name: "shared texture listed once",
			mats: []rl.Material{
				material(map[int]uint32{rl.MapDiffuse: 7}),
				material(map[int]uint32{rl.MapDiffuse: 7, rl.MapSpecular: 9}),
			},
			want: []uint32{7, 9},
		},
		{
			name: "default and blank textures are not owned",
			mats: []rl.Material{
				material(map[int]uint32{rl.MapDiffuse: defaultID, rl.MapNormal: blankID}),
			},
			want: []uint32{},
		},
		{
			name: "material without maps",
			mats: []rl.Material{{}},
			want: []uint32{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textureIDs(materialTextures(tt.mats, defaultID, blankID))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("materialTextures() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaterials_EmptyModel(t *testing.T) {
	if mats := materials(rl.Model{}); mats != nil {
		t.Errorf("expected no materials, got %d", len(mats))
	}
}

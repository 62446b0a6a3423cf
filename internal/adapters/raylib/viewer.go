package raylib

import (
	"context"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/kamal-hamza/bricklayer/internal/core/domain"
	"github.com/kamal-hamza/bricklayer/internal/core/ports"
	"github.com/kamal-hamza/bricklayer/internal/core/services"
	"github.com/kamal-hamza/bricklayer/pkg/config"
	"github.com/kamal-hamza/bricklayer/pkg/orbit"
)

const windowTitle = "Bricklayer"

var (
	startPosition = orbit.Vec3{X: 0, Y: 1, Z: 3}
	startTarget   = orbit.Vec3{}
)

// ViewerOptions configures the window and the scene
type ViewerOptions struct {
	Config    *config.Config
	Skybox    bool
	Wireframe bool
	// OnReload receives the results of every non-empty batch of reloads
	OnReload func([]services.ReloadResult)
}

// Viewer is the window driver loop: drain changes, apply them, handle input, draw
type Viewer struct {
	opts     ViewerOptions
	store    *services.AssetStore
	reloader *services.ReloadService
	renderer *Renderer
	source   ports.ChangeSource

	camera     orbit.Camera
	grid       bool
	wireframe  bool
	background color.RGBA
	unfocused  color.RGBA
}

// OpenWindow creates the viewer window. Call it before NewRenderer.
func OpenWindow(cfg *config.Config) {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.WindowWidth), int32(cfg.WindowHeight), windowTitle)
	rl.SetTargetFPS(int32(cfg.TargetFPS))
}

// CloseWindow destroys the viewer window
func CloseWindow() {
	rl.CloseWindow()
}

// NewViewer wires the loop together. The window must be open and the store
// already populated by ReloadService.Startup.
func NewViewer(store *services.AssetStore, reloader *services.ReloadService, renderer *Renderer, source ports.ChangeSource, opts ViewerOptions) (*Viewer, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		opts.Config = cfg
	}

	bg, err := parseColor(cfg.Background)
	if err != nil {
		return nil, err
	}
	unfocused, err := parseColor(cfg.BackgroundUnfocused)
	if err != nil {
		return nil, err
	}

	return &Viewer{
		opts:       opts,
		store:      store,
		reloader:   reloader,
		renderer:   renderer,
		source:     source,
		camera:     orbit.FromPosition(startPosition, startTarget),
		grid:       cfg.Grid && !opts.Skybox,
		wireframe:  opts.Wireframe,
		background: bg,
		unfocused:  unfocused,
	}, nil
}

// Run drives frames until the window is closed or ctx is cancelled
func (v *Viewer) Run(ctx context.Context) error {
	for !rl.WindowShouldClose() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if results := v.reloader.Apply(v.source.Drain()); len(results) > 0 && v.opts.OnReload != nil {
			v.opts.OnReload(results)
		}

		v.handleInput()
		v.draw()
	}
	return nil
}

func (v *Viewer) handleInput() {
	cfg := v.opts.Config

	if rl.IsMouseButtonPressed(rl.MouseButtonMiddle) {
		rl.DisableCursor()
	}
	if rl.IsMouseButtonReleased(rl.MouseButtonMiddle) {
		rl.EnableCursor()
	}
	if rl.IsMouseButtonDown(rl.MouseButtonMiddle) {
		delta := rl.GetMouseDelta()
		if rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift) {
			v.camera.Pan(delta.X, delta.Y, cfg.PanSensitivity)
		} else {
			v.camera.Rotate(delta.X, delta.Y, cfg.DragSensitivityX, cfg.DragSensitivityY)
		}
	}
	v.camera.Zoom(rl.GetMouseWheelMove(), cfg.ZoomSensitivity)

	if rl.IsKeyPressed(rl.KeyG) {
		v.grid = !v.grid
	}
	if rl.IsKeyPressed(rl.KeyW) {
		v.wireframe = !v.wireframe
	}
	if rl.IsKeyPressed(rl.KeyB) {
		v.camera = orbit.FromPosition(startPosition, startTarget)
	}
}

func (v *Viewer) draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()

	if rl.IsWindowFocused() {
		rl.ClearBackground(v.background)
	} else {
		rl.ClearBackground(v.unfocused)
	}

	rl.BeginMode3D(v.camera3D())
	v.store.Each(func(slot domain.Slot) {
		v.renderer.Draw(slot, v.wireframe)
	})
	if v.grid {
		rl.DrawGrid(int32(v.opts.Config.GridSlices), 1.0)
	}
	rl.EndMode3D()
}

func (v *Viewer) camera3D() rl.Camera3D {
	pos := v.camera.Position()
	target := v.camera.Target
	return rl.Camera3D{
		Position:   rl.NewVector3(pos.X, pos.Y, pos.Z),
		Target:     rl.NewVector3(target.X, target.Y, target.Z),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}
}

func parseColor(hex string) (color.RGBA, error) {
	r, g, b, err := config.ParseHexColor(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

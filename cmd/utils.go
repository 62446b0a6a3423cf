package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"

	"github.com/kamal-hamza/bricklayer/internal/adapters/filesystem"
	"github.com/kamal-hamza/bricklayer/internal/adapters/watcher"
	"github.com/kamal-hamza/bricklayer/internal/core/domain"
	"github.com/kamal-hamza/bricklayer/internal/core/ports"
	"github.com/kamal-hamza/bricklayer/internal/core/services"
	"github.com/kamal-hamza/bricklayer/pkg/config"
	"github.com/kamal-hamza/bricklayer/pkg/ui"
)

// modelExtensions are the formats offered by --pick
var modelExtensions = map[string]bool{
	".obj":  true,
	".gltf": true,
	".glb":  true,
	".iqm":  true,
	".vox":  true,
	".m3d":  true,
}

// normalizeArgs rewrites the single-dash -skybox spelling to the flag cobra knows
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == "-skybox" {
			a = "--skybox"
		}
		out[i] = a
	}
	return out
}

// resolveModelPaths returns the model files to open, in order: picked
// interactively, taken from args, or read from stdin when it is not a terminal
func resolveModelPaths(args []string, stdin io.Reader, pick bool) ([]string, error) {
	var paths []string

	switch {
	case pick:
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		picked, err := pickModels(cwd)
		if err != nil {
			return nil, err
		}
		paths = append(picked, args...)

	case len(args) > 0:
		paths = args

	case stdin != nil && !isTerminal(stdin):
		words, err := readPaths(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read model files from stdin: %w", err)
		}
		paths = words
	}

	for _, p := range paths {
		if strings.HasPrefix(p, "-") {
			return nil, fmt.Errorf("unsupported command-line option %q", p)
		}
	}

	if len(paths) == 0 {
		return nil, domain.ErrNoModels
	}
	return paths, nil
}

// readPaths splits r on whitespace
func readPaths(r io.Reader) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		paths = append(paths, scanner.Text())
	}
	return paths, scanner.Err()
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// findModels lists model files under root, skipping hidden directories
func findModels(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if modelExtensions[strings.ToLower(filepath.Ext(path))] {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			found = append(found, rel)
		}
		return nil
	})
	sort.Strings(found)
	return found, err
}

func pickModels(root string) ([]string, error) {
	models, err := findModels(root)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no model files found under %s", root)
	}

	idxs, err := fuzzyfinder.FindMulti(
		models,
		func(i int) string { return models[i] },
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			preview := "Model: " + models[i]
			if tex, ok := domain.CompanionPath(models[i]); ok {
				state := "missing"
				if _, err := os.Stat(filepath.Join(root, tex)); err == nil {
					state = "found"
				}
				preview += fmt.Sprintf("\nTexture: %s (%s)", tex, state)
			}
			return preview
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, nil
		}
		return nil, err
	}

	picked := make([]string, len(idxs))
	for i, idx := range idxs {
		picked[i] = models[idx]
	}
	return picked, nil
}

// newChangeSource picks the change detector. File system events are the
// default; polling is used when asked for or when the watcher cannot start.
func newChangeSource(store *services.AssetStore, poll bool) ports.ChangeSource {
	cfg := appConfig
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if !poll && cfg.Detector != config.DetectorPoll {
		src, err := watcher.NewFSNotifySource(store.Slots())
		if err == nil {
			return src
		}
		log.Printf("File watcher unavailable, polling instead: %v", err)
	}

	return services.NewPollingDetector(store, filesystem.NewStat(), cfg.PollInterval())
}

// session is a started reload pipeline: every slot holds a model and the
// change source is live
type session struct {
	reloader *services.ReloadService
	source   ports.ChangeSource
	startup  *services.StartupResponse
}

// startSession creates the change source before the initial load, so a
// write that lands while Startup runs still shows up in the first Drain.
func startSession(store *services.AssetStore, renderer ports.Renderer, poll bool) (*session, error) {
	source := newChangeSource(store, poll)
	reloader := services.NewReloadService(store, renderer, filesystem.NewStat())

	resp, err := reloader.Startup()
	if err == nil {
		err = reloader.Verify()
	}
	if err != nil {
		reloader.Shutdown()
		source.Close()
		return nil, err
	}

	return &session{reloader: reloader, source: source, startup: resp}, nil
}

// Close stops change detection and releases every slot
func (s *session) Close() {
	s.source.Close()
	s.reloader.Shutdown()
}

// reportReloads prints one line per reload; failures are always shown
func reportReloads(results []services.ReloadResult) {
	for _, r := range results {
		if !r.Success {
			fmt.Println(ui.FormatError(fmt.Sprintf("Reload %s failed: %v", r.Kind, r.Error)))
			continue
		}
		if !quiet {
			fmt.Println(ui.FormatReload(fmt.Sprintf("Reloaded %s %s", r.Kind, r.Path)))
		}
	}
}

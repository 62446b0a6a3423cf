package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bricklayer/internal/adapters/headless"
	"github.com/kamal-hamza/bricklayer/internal/core/domain"
	"github.com/kamal-hamza/bricklayer/pkg/aseprite"
	"github.com/kamal-hamza/bricklayer/pkg/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [model files...]",
	Short: "Check the configuration and the files you want to view",
	Long: `Diagnose issues with your Bricklayer setup.

Checks for:
  - Configuration file existence and values
  - Each model file (exists, parses)
  - Each companion .aseprite texture (exists, decodes)`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println(ui.FormatTitle("Bricklayer Doctor"))
	fmt.Println()

	failures := 0
	check := func(name string, fn func() error) {
		if !checkStep(name, fn) {
			failures++
		}
	}

	checkStep("Configuration File", func() error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("missing at %s (defaults in use, run 'bricklayer config init')", path)
		}
		return nil
	})

	check("Configuration Values", func() error {
		if keys := appConfig.Replaced(); len(keys) > 0 {
			return fmt.Errorf("invalid %s (defaults in use)", strings.Join(keys, ", "))
		}
		return nil
	})

	if len(args) > 0 {
		failures += checkModels(args)
	}

	fmt.Println()
	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	fmt.Println(ui.FormatSuccess("Everything the viewer needs is in place"))
	return nil
}

// checkModels loads every model and its companion texture through the
// headless renderer and returns the number of failed checks
func checkModels(paths []string) int {
	fmt.Println()
	fmt.Println(ui.FormatInfo("Checking model files..."))

	failures := 0
	renderer := headless.NewRenderer()
	for _, path := range paths {
		ok := checkStep("Model "+path, func() error {
			h, err := renderer.LoadModel(path)
			if err != nil {
				return err
			}
			info, _ := renderer.Model(h)
			renderer.ReleaseModel(h)
			if info.Vertices > 0 {
				fmt.Printf("    %s\n", ui.StyleMuted.Render(fmt.Sprintf("%d vertices, %d faces", info.Vertices, info.Faces)))
			}
			return nil
		})
		if !ok {
			failures++
		}

		texture, ok := domain.CompanionPath(path)
		if !ok {
			checkStep("Texture for "+path, func() error { return domain.ErrNoCompanion })
			continue
		}

		// A missing texture is allowed; it is picked up when it appears
		checkStep("Texture "+texture, func() error {
			h, err := renderer.LoadTexture(texture)
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("not found (the model will be drawn untextured)")
			}
			if err != nil {
				failures++
				return err
			}
			info, _ := renderer.Texture(h)
			renderer.ReleaseTexture(h)

			detail := fmt.Sprintf("%dx%d", info.Width, info.Height)
			if hidden := hiddenLayers(texture); len(hidden) > 0 {
				detail += ", not drawn: " + strings.Join(hidden, ", ")
			}
			fmt.Printf("    %s\n", ui.StyleMuted.Render(detail))
			return nil
		})
	}
	return failures
}

// hiddenLayers names the layers left out of the texture because they or a
// group above them are hidden
func hiddenLayers(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	layers, err := aseprite.Layers(f)
	if err != nil {
		return nil
	}

	var names []string
	for _, l := range layers {
		if !l.Visible {
			names = append(names, l.Name)
		}
	}
	return names
}

// checkStep runs a check function and prints the result nicely
func checkStep(name string, check func() error) bool {
	err := check()
	if err == nil {
		fmt.Printf("%s %s\n", ui.FormatSuccess(""), name)
		return true
	}
	fmt.Printf("%s %s\n", ui.FormatError(""), name)
	fmt.Printf("    %s\n", ui.StyleMuted.Render(err.Error()))
	return false
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bricklayer/internal/adapters/raylib"
	"github.com/kamal-hamza/bricklayer/internal/core/services"
	"github.com/kamal-hamza/bricklayer/pkg/config"
	"github.com/kamal-hamza/bricklayer/pkg/ui"
)

var (
	// Loaded once before any command runs
	appConfig *config.Config

	// Global flags
	configPath string
	quiet      bool

	// Viewer flags
	skyboxFlag    bool
	pollFlag      bool
	wireframeFlag bool
	pickFlag      bool
)

// rootCmd opens the viewer on the given model files
var rootCmd = &cobra.Command{
	Use:   "bricklayer [model files...]",
	Short: "Bricklayer - a live-reloading 3D model viewer",
	Long: ui.StyleTitle.Render("Bricklayer") + " - live-reloading 3D model viewer\n\n" +
		"Opens every model given on the command line (or on stdin) in one window and\n" +
		"reloads a model, or its .aseprite texture, whenever the file changes on disk.\n\n" +
		"Controls:\n" +
		"  middle drag        orbit the camera\n" +
		"  shift+middle drag  pan the camera\n" +
		"  wheel              zoom\n" +
		"  G                  toggle the grid\n" +
		"  W                  toggle wireframe\n" +
		"  B                  reset the camera",
	PersistentPreRunE: initializeApp,
	RunE:              runViewer,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is $XDG_CONFIG_HOME/bricklayer/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only report failures")

	rootCmd.Flags().BoolVar(&skyboxFlag, "skybox", false, "Hide the grid")
	rootCmd.Flags().BoolVar(&pollFlag, "poll", false, "Detect changes by polling instead of file system events")
	rootCmd.Flags().BoolVar(&wireframeFlag, "wireframe", false, "Start with wireframes shown")
	rootCmd.Flags().BoolVar(&pickFlag, "pick", false, "Pick model files under the working directory")
}

// initializeApp loads the configuration and applies the UI theme
func initializeApp(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	appConfig = cfg

	if cfg.Quiet {
		quiet = true
	}
	ui.SetTheme(cfg.ColorTheme)
	return nil
}

func runViewer(cmd *cobra.Command, args []string) error {
	paths, err := resolveModelPaths(args, os.Stdin, pickFlag)
	if err != nil {
		return err
	}

	store, err := services.NewAssetStore(paths)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(getContext(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raylib.OpenWindow(appConfig)
	defer raylib.CloseWindow()

	renderer := raylib.NewRenderer()
	defer renderer.Close()

	sess, err := startSession(store, renderer, pollFlag)
	if err != nil {
		return err
	}
	defer sess.Close()

	reportStartup(sess.startup, store)

	viewer, err := raylib.NewViewer(store, sess.reloader, renderer, sess.source, raylib.ViewerOptions{
		Config:    appConfig,
		Skybox:    skyboxFlag,
		Wireframe: wireframeFlag,
		OnReload:  reportReloads,
	})
	if err != nil {
		return err
	}

	return viewer.Run(ctx)
}

func reportStartup(resp *services.StartupResponse, store *services.AssetStore) {
	for _, f := range resp.TextureFailures {
		if errors.Is(f.Error, fs.ErrNotExist) {
			if !quiet {
				fmt.Println(ui.FormatMuted("No texture yet at " + f.Path))
			}
			continue
		}
		fmt.Println(ui.FormatWarning(fmt.Sprintf("Texture %s not loaded: %v", f.Path, f.Error)))
	}

	if quiet {
		return
	}
	fmt.Println(ui.FormatRocket(fmt.Sprintf("Viewing %d model(s), %d textured", resp.Slots, resp.TexturesLoaded)))
	fmt.Println()

	t := ui.NewTable([]ui.TableColumn{
		{Header: "#", Width: 3, Align: "right"},
		{Header: "Model", Width: 20},
		{Header: "Texture", Width: 20},
	})
	for _, slot := range store.Slots() {
		texture := "-"
		if slot.Texture != 0 {
			texture = slot.TexturePath
		}
		t.AddRow([]string{fmt.Sprintf("%d", slot.Index), slot.ModelPath, texture})
	}
	fmt.Print(t.Render())
}

// getContext returns a context for operations
func getContext() context.Context {
	return context.Background()
}

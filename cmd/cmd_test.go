package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kamal-hamza/bricklayer/internal/adapters/watcher"
	"github.com/kamal-hamza/bricklayer/internal/core/domain"
	"github.com/kamal-hamza/bricklayer/internal/core/services"
	"github.com/kamal-hamza/bricklayer/pkg/config"
)

// TestCommandStructure verifies that all commands are properly registered
func TestCommandStructure(t *testing.T) {
	commands := []string{"monitor", "doctor", "config", "version"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{cmdName})
			if err != nil {
				t.Fatalf("Command '%s' not found: %v", cmdName, err)
			}
			if cmd == nil || cmd == rootCmd {
				t.Fatalf("Command '%s' resolved to the root command", cmdName)
			}
			if cmd.Use == "" {
				t.Errorf("Command '%s' has no Use field", cmdName)
			}
		})
	}
}

// TestRootCommandExists verifies the root command is properly configured
func TestRootCommandExists(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("Root command is nil")
	}

	if !strings.HasPrefix(rootCmd.Use, "bricklayer") {
		t.Errorf("Expected root command Use to start with 'bricklayer', got '%s'", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Root command Short description is empty")
	}

	if rootCmd.RunE == nil {
		t.Error("Root command should open the viewer")
	}
}

// TestCommandsHaveHelp verifies all commands have help text
func TestCommandsHaveHelp(t *testing.T) {
	commands := rootCmd.Commands()

	if len(commands) == 0 {
		t.Fatal("No commands registered")
	}

	for _, cmd := range commands {
		t.Run(cmd.Name(), func(t *testing.T) {
			if cmd.Short == "" {
				t.Errorf("Command '%s' has no Short description", cmd.Name())
			}
		})
	}
}

// TestSubcommands verifies specific subcommands exist
func TestSubcommands(t *testing.T) {
	tests := []struct {
		parent     string
		subcommand string
	}{
		{"config", "show"},
		{"config", "init"},
		{"config", "path"},
		{"config", "edit"},
	}

	for _, tt := range tests {
		t.Run(tt.parent+"_"+tt.subcommand, func(t *testing.T) {
			parentCmd, _, err := rootCmd.Find([]string{tt.parent})
			if err != nil {
				t.Fatalf("Parent command '%s' not found: %v", tt.parent, err)
			}

			found := false
			for _, cmd := range parentCmd.Commands() {
				if cmd.Name() == tt.subcommand {
					found = true
					break
				}
			}

			if !found {
				t.Errorf("Subcommand '%s' not found under '%s'", tt.subcommand, tt.parent)
			}
		})
	}
}

// TestFlagsExist verifies important flags are registered
func TestFlagsExist(t *testing.T) {
	tests := []struct {
		flagName string
	}{
		{"skybox"},
		{"poll"},
		{"wireframe"},
		{"pick"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			if rootCmd.Flags().Lookup(tt.flagName) == nil {
				t.Errorf("Flag '--%s' not found on root command", tt.flagName)
			}
		})
	}

	for _, name := range []string{"config", "quiet"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Persistent flag '--%s' not found", name)
		}
	}

	if monitorCmd.Flags().Lookup("poll") == nil {
		t.Error("Flag '--poll' not found on monitor")
	}
}

// TestCommandAliases verifies command aliases work
func TestCommandAliases(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"v"})
	if err != nil {
		t.Fatalf("Alias 'v' not found: %v", err)
	}
	if cmd.Name() != "version" {
		t.Errorf("Expected alias 'v' to resolve to version, got %s", cmd.Name())
	}
}

func TestNormalizeArgs(t *testing.T) {
	got := normalizeArgs([]string{"a.obj", "-skybox", "b.obj", "--poll"})
	want := []string{"a.obj", "--skybox", "b.obj", "--poll"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeArgs() = %v, want %v", got, want)
	}
}

func TestLegacySkyboxFlagParses(t *testing.T) {
	fs := rootCmd.Flags()
	t.Cleanup(func() { skyboxFlag = false })

	if err := fs.Parse(normalizeArgs([]string{"-skybox", "a.obj"})); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !skyboxFlag {
		t.Error("expected -skybox to set the skybox flag")
	}
	if args := fs.Args(); len(args) != 1 || args[0] != "a.obj" {
		t.Errorf("unexpected positional args %v", args)
	}
}

func TestResolveModelPaths(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    []string
		wantErr error
	}{
		{
			name: "arguments in order",
			args: []string{"b.obj", "a.obj"},
			want: []string{"b.obj", "a.obj"},
		},
		{
			name:  "arguments win over stdin",
			args:  []string{"a.obj"},
			stdin: "ignored.obj",
			want:  []string{"a.obj"},
		},
		{
			name:  "stdin words",
			stdin: "one.obj  two.obj\n\tthree.obj\n",
			want:  []string{"one.obj", "two.obj", "three.obj"},
		},
		{
			name:    "nothing supplied",
			stdin:   "  \n",
			wantErr: domain.ErrNoModels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveModelPaths(tt.args, strings.NewReader(tt.stdin), false)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveModelPaths_RejectsOptions(t *testing.T) {
	_, err := resolveModelPaths([]string{"a.obj", "-x"}, nil, false)
	if err == nil || !strings.Contains(err.Error(), "-x") {
		t.Errorf("expected unsupported option error, got %v", err)
	}
}

func TestResolveModelPaths_NilStdin(t *testing.T) {
	if _, err := resolveModelPaths(nil, nil, false); !errors.Is(err, domain.ErrNoModels) {
		t.Errorf("expected ErrNoModels, got %v", err)
	}
}

func TestFindModels(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"b.obj",
		"a.GLB",
		"notes.txt",
		"brick.aseprite",
		"props/crate.gltf",
		".cache/hidden.obj",
	} {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := findModels(root)
	if err != nil {
		t.Fatalf("findModels: %v", err)
	}
	want := []string{"a.GLB", "b.obj", filepath.Join("props", "crate.gltf")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNewChangeSource(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "a.obj")
	if err := os.WriteFile(model, []byte("v 0 0 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	store, err := services.NewAssetStore([]string{model})
	if err != nil {
		t.Fatal(err)
	}

	saved := appConfig
	t.Cleanup(func() { appConfig = saved })

	appConfig = config.DefaultConfig()
	src := newChangeSource(store, true)
	if _, ok := src.(*services.PollingDetector); !ok {
		t.Errorf("--poll should select the polling detector, got %T", src)
	}
	src.Close()

	appConfig.Detector = config.DetectorPoll
	src = newChangeSource(store, false)
	if _, ok := src.(*services.PollingDetector); !ok {
		t.Errorf("detector: poll should select the polling detector, got %T", src)
	}
	src.Close()

	appConfig.Detector = config.DetectorWatch
	src = newChangeSource(store, false)
	if _, ok := src.(*watcher.FSNotifySource); !ok {
		t.Errorf("expected the fsnotify source by default, got %T", src)
	}
	src.Close()
}

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamal-hamza/bricklayer/pkg/config"
	"github.com/kamal-hamza/bricklayer/pkg/ui"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the bricklayer configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}

		source := path
		if _, err := os.Stat(path); os.IsNotExist(err) {
			source = "built-in defaults"
		}
		fmt.Println(ui.RenderKeyValue("Source", source))
		fmt.Println()

		c := appConfig
		fmt.Println(ui.RenderKeyValue("Detector", c.Detector))
		fmt.Println(ui.RenderKeyValue("Poll Interval", c.PollInterval().String()))
		fmt.Println(ui.RenderKeyValue("Window", fmt.Sprintf("%dx%d @ %d fps", c.WindowWidth, c.WindowHeight, c.TargetFPS)))
		fmt.Println(ui.RenderKeyValue("Grid", fmt.Sprintf("%t (%d slices)", c.Grid, c.GridSlices)))
		fmt.Println(ui.RenderKeyValue("Background", c.Background+" / "+c.BackgroundUnfocused))
		fmt.Println(ui.RenderKeyValue("Drag", fmt.Sprintf("%s, %s", formatFloat(c.DragSensitivityX), formatFloat(c.DragSensitivityY))))
		fmt.Println(ui.RenderKeyValue("Zoom", formatFloat(c.ZoomSensitivity)))
		fmt.Println(ui.RenderKeyValue("Pan", formatFloat(c.PanSensitivity)))
		fmt.Println(ui.RenderKeyValue("Theme", c.ColorTheme))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}

		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Println(ui.FormatSuccess("Wrote " + path))
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}

		// Ensure it exists
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := appConfig.Save(path); err != nil {
				return err
			}
		}

		fmt.Println(ui.FormatInfo("Opening config: " + path))

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		c := exec.Command(editor, path)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return err
		}

		// Catch typos before the next viewer run does
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var parsed config.Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("config no longer parses: %w", err)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
}

func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

package controllers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/bom/internal/domain/commands"
	"github.com/rios0rios0/bom/internal/domain/entities"
)

const (
	flagManifestPath = "manifest-path"
	flagAll          = "all"
	flagVerbose      = "verbose"
	flagQuiet        = "quiet"
	flagColor        = "color"
	flagOffline      = "offline"
	flagLocked       = "locked"
	flagFrozen       = "frozen"
	flagEcosystem    = "ecosystem"
	flagFormat       = "format"
	flagConfig       = "config"
)

// BomController handles the root command: it loads the settings, applies
// the flags on top of them and runs the BOM command.
type BomController struct {
	command commands.Bom
}

// NewBomController creates a new BomController.
func NewBomController(command commands.Bom) *BomController {
	return &BomController{command: command}
}

// GetBind returns the Cobra command metadata for the bom controller.
func (it *BomController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "bom",
		Short: "Bill of materials of a project's dependencies",
		Long: `Resolve the dependencies of a project and print a bill of materials:
a table with the name, version and licenses of every dependency,
followed by the full text of every license file they ship.

Supported ecosystems (detected in this order): cargo, golang, npm, terraform.
Only the direct dependencies of the workspace members are reported
unless --all is given.`,
	}
}

// AddFlags adds the bom flags to the given Cobra command.
func (it *BomController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagManifestPath, "", "Path to the manifest or project directory (default: current directory)")
	cmd.Flags().Bool(flagAll, false, "Report every transitive dependency, not only the direct ones")
	cmd.Flags().CountP(flagVerbose, "v", "Use verbose output (-vv very verbose)")
	cmd.Flags().BoolP(flagQuiet, "q", false, "No output printed to stderr besides warnings and errors")
	cmd.Flags().String(flagColor, entities.ColorAuto, "Coloring: auto, always, never")
	cmd.Flags().Bool(flagOffline, false, "Run without accessing the network")
	cmd.Flags().Bool(flagLocked, false, "Require the lockfile to be up to date")
	cmd.Flags().Bool(flagFrozen, false, "Require the lockfile and cache to be up to date (implies --locked and --offline)")
	cmd.Flags().String(flagEcosystem, "", "Resolver to use instead of detecting one (cargo, golang, npm, terraform)")
	cmd.Flags().String(flagFormat, entities.FormatTable, "Output format: table, json")
	cmd.Flags().StringP(flagConfig, "c", "", "Path to config file (default: auto-detect)")
}

// Execute loads the configuration and writes the report to the command output.
func (it *BomController) Execute(cmd *cobra.Command, _ []string) error {
	configureLogLevel(cmd)

	manifestPath, _ := cmd.Flags().GetString(flagManifestPath)
	settings, err := loadSettings(cmd, manifestPath)
	if err != nil {
		return err
	}
	if err = applyFlags(cmd, settings); err != nil {
		return err
	}

	output := cmd.OutOrStdout()
	return it.command.Execute(context.Background(), settings, commands.BomOptions{
		ManifestPath: manifestPath,
		Output:       output,
		Color:        useColor(settings.Color, output),
	})
}

// configureLogLevel maps -q, -v and -vv onto the logger level. DEBUG=true
// is honoured when no flag was given.
func configureLogLevel(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetCount(flagVerbose)
	quiet, _ := cmd.Flags().GetBool(flagQuiet)

	switch {
	case quiet:
		logger.SetLevel(logger.WarnLevel)
	case verbose >= 2:
		logger.SetLevel(logger.TraceLevel)
	case verbose == 1 || os.Getenv("DEBUG") == "true":
		logger.SetLevel(logger.DebugLevel)
	}
}

// loadSettings reads the file passed with --config or the first one found
// next to the project. Without any file the defaults are used.
func loadSettings(cmd *cobra.Command, manifestPath string) (*entities.Settings, error) {
	configPath, _ := cmd.Flags().GetString(flagConfig)
	if configPath == "" {
		found, err := entities.FindConfigFile(projectDirOf(manifestPath))
		if err != nil {
			logger.Debugf("No config file found, using defaults: %v", err)
			return entities.DefaultSettings(), nil
		}
		configPath = found
	}

	logger.Debugf("Using config file: %s", configPath)
	settings, err := entities.NewSettings(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return settings, nil
}

// applyFlags overrides the settings with every flag set on the command line.
func applyFlags(cmd *cobra.Command, settings *entities.Settings) error {
	flags := cmd.Flags()
	if flags.Changed(flagEcosystem) {
		settings.Ecosystem, _ = flags.GetString(flagEcosystem)
	}
	if flags.Changed(flagAll) {
		settings.AllDependencies, _ = flags.GetBool(flagAll)
	}
	if flags.Changed(flagColor) {
		settings.Color, _ = flags.GetString(flagColor)
	}
	if flags.Changed(flagFormat) {
		settings.Format, _ = flags.GetString(flagFormat)
	}
	if flags.Changed(flagOffline) {
		settings.Offline, _ = flags.GetBool(flagOffline)
	}
	if flags.Changed(flagLocked) {
		settings.Locked, _ = flags.GetBool(flagLocked)
	}
	if flags.Changed(flagFrozen) {
		settings.Frozen, _ = flags.GetBool(flagFrozen)
	}
	return settings.Validate()
}

// useColor decides whether the table is styled. "auto" colours only a
// terminal, and never when NO_COLOR is set or TERM is "dumb".
func useColor(mode string, output io.Writer) bool {
	switch mode {
	case entities.ColorAlways:
		return true
	case entities.ColorNever:
		return false
	}

	if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	file, ok := output.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

func projectDirOf(manifestPath string) string {
	if manifestPath == "" {
		return "."
	}
	if info, err := os.Stat(manifestPath); err == nil && !info.IsDir() {
		return filepath.Dir(manifestPath)
	}
	return manifestPath
}

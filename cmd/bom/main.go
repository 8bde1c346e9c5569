package main

import (
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/bom/internal"
	"github.com/rios0rios0/bom/internal/domain/entities"
)

const rootUse = "bom"

func newCommand(controller entities.Controller) *cobra.Command {
	bind := controller.GetBind()
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:           bind.Use,
		Short:         bind.Short,
		Long:          bind.Long,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return controller.Execute(command, arguments)
		},
	}
	controller.AddFlags(cmd)
	return cmd
}

// buildRootCommand binds the "bom" controller to the root command and every
// other controller to a subcommand.
func buildRootCommand(appContext *internal.AppInternal) *cobra.Command {
	var root *cobra.Command
	var subcommands []*cobra.Command
	for _, controller := range appContext.GetControllers() {
		cmd := newCommand(controller)
		if cmd.Use == rootUse {
			root = cmd
			continue
		}
		subcommands = append(subcommands, cmd)
	}

	if root == nil {
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		root = &cobra.Command{Use: rootUse}
	}
	root.AddCommand(subcommands...)
	return root
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		DisableColors: os.Getenv("NO_COLOR") != "",
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stderr)
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	// Inject controllers via DIG
	appContext := injectAppContext()
	cobraRoot := buildRootCommand(appContext)

	if err := cobraRoot.Execute(); err != nil {
		logger.Fatalf("Error executing 'bom': %s", err)
	}
}

// Package commands implements ormctl commands.
package commands

import (
	"github.com/satishbabariya/ormcore/internal/config"
	"github.com/satishbabariya/ormcore/internal/debug"
	"github.com/satishbabariya/ormcore/internal/ui"
	"github.com/spf13/cobra"
)

// app carries state shared by every command after the root pre-run.
type app struct {
	configFile string
	debug      bool

	loader  *config.Loader
	cfg     *config.Config
	printer *ui.Printer
}

// NewRootCommand creates the ormctl root command.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "ormctl",
		Short:         "Inspect ormcore batch loading",
		Long:          "ormctl renders batch load statements, checks database capabilities and shows the resolved ormcore configuration.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default searches .ormcore.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(newSQLCommand(a))
	root.AddCommand(newExplainCommand(a))
	root.AddCommand(newPingCommand(a))
	root.AddCommand(newConfigCommand(a))

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	a.printer = ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	a.loader = config.New(config.AppFs)
	if a.configFile != "" {
		a.loader.SetConfigFile(a.configFile)
	}
	cfg, err := a.loader.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	debug.InitWriter(cmd.ErrOrStderr(), a.debug || cfg.Debug)
	debug.Debug("Configuration loaded", "file", cfg.File, "provider", cfg.Database.Provider)
	return nil
}

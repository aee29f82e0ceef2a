package commands

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"

	"github.com/AlecAivazis/survey/v2"
	"github.com/satishbabariya/ormcore/internal/adapters/database/factory"
	"github.com/satishbabariya/ormcore/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printConfig(a.cfg)
			if !watch {
				return nil
			}

			if err := a.loader.Watch(func(cfg *config.Config, err error) {
				if err != nil {
					a.printer.Error("reload failed: %v", err)
					return
				}
				a.printer.Success("Configuration reloaded")
				a.printConfig(cfg)
			}); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			a.printer.Success("Watching %s (Ctrl+C to stop)", a.cfg.File)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "print the configuration again whenever the config file changes")
	cmd.AddCommand(newConfigInitCommand(a))
	return cmd
}

func (a *app) printConfig(cfg *config.Config) {
	file := cfg.File
	if file == "" {
		file = "(none)"
	}
	p := a.printer
	p.KeyValue("file", file)
	p.KeyValue("database.provider", cfg.Database.Provider)
	p.KeyValue("database.url", redact(cfg.Database.URL))
	p.KeyValue("database.max_connections", cfg.Database.MaxConnections)
	p.KeyValue("database.max_idle_time", cfg.Database.MaxIdleTime)
	p.KeyValue("database.connect_timeout", cfg.Database.ConnectTimeout)
	p.KeyValue("database.connect_retries", cfg.Database.ConnectRetries)
	p.KeyValue("batch.default_size", cfg.Batch.DefaultSize)
	p.KeyValue("batch.max_size", cfg.Batch.MaxSize)
	p.KeyValue("batch.strategy", cfg.Batch.Strategy)
	p.KeyValue("debug", cfg.Debug)
}

// redact hides the password of URL-shaped connection strings.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.User == nil {
		return raw
	}
	return u.Redacted()
}

func newConfigInitCommand(a *app) *cobra.Command {
	var (
		output      string
		provider    string
		dbURL       string
		force       bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if provider != "" {
				cfg.Database.Provider = provider
			}
			if dbURL != "" {
				cfg.Database.URL = dbURL
			}
			if interactive {
				if err := askConfig(&cfg); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			path := output
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			exists, err := afero.Exists(config.AppFs, path)
			if err != nil {
				return err
			}
			if exists && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := a.loader.Save(&cfg, path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			a.printer.Success("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "config file path (default ~/.config/ormcore/.ormcore.yaml)")
	cmd.Flags().StringVar(&provider, "provider", "", "database provider")
	cmd.Flags().StringVar(&dbURL, "url", "", "database URL")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for each setting")
	return cmd
}

func askConfig(cfg *config.Config) error {
	questions := []*survey.Question{
		{
			Name: "provider",
			Prompt: &survey.Select{
				Message: "Database provider:",
				Options: factory.Providers(),
				Default: cfg.Database.Provider,
			},
		},
		{
			Name:   "url",
			Prompt: &survey.Input{Message: "Database URL:", Default: cfg.Database.URL},
		},
		{
			Name: "strategy",
			Prompt: &survey.Select{
				Message: "Batch strategy:",
				Options: []string{"auto", "inline", "array"},
				Default: cfg.Batch.Strategy,
			},
		},
		{
			Name:     "size",
			Prompt:   &survey.Input{Message: "Default batch size:", Default: fmt.Sprint(cfg.Batch.DefaultSize)},
			Validate: survey.Required,
		},
	}

	answers := struct {
		Provider string
		URL      string `survey:"url"`
		Strategy string
		Size     int
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	cfg.Database.Provider = answers.Provider
	cfg.Database.URL = answers.URL
	cfg.Batch.Strategy = answers.Strategy
	cfg.Batch.DefaultSize = answers.Size
	return nil
}

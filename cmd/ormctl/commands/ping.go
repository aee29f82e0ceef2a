package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/adapters/database/factory"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
	"github.com/spf13/cobra"
)

func newPingCommand(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Connect to the configured database and report its capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return a.runPing(ctx)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}

func (a *app) runPing(ctx context.Context) error {
	db := a.cfg.Database
	adapter, err := factory.NewAdapter(database.Config{
		Provider:       db.Provider,
		URL:            db.URL,
		MaxConnections: db.MaxConnections,
		MaxIdleTime:    db.MaxIdleTime,
		ConnectTimeout: db.ConnectTimeout,
		ConnectRetries: db.ConnectRetries,
	})
	if err != nil {
		return err
	}

	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	defer adapter.Disconnect(ctx)

	if err := adapter.Ping(ctx); err != nil {
		return err
	}

	p := a.printer
	dialect := adapter.GetDialect()
	p.Success("Connected to %s", dialect)

	serverVersion, err := database.ServerVersion(ctx, adapter)
	if err != nil {
		return err
	}
	p.KeyValue("server version", serverVersion)

	features := adapter.Features()
	predicate := features.ArrayPredicate
	if predicate == "" {
		predicate = "-"
	}
	placeholder, err := features.Placeholder.ReplacePlaceholders("?")
	if err != nil {
		return err
	}
	if err := p.Table([]string{"Feature", "Value"}, [][]string{
		{"Dialect", string(dialect)},
		{"Placeholder", placeholder},
		{"Array predicate", predicate},
		{"Max bind parameters", strconv.Itoa(features.MaxBindParameters)},
	}); err != nil {
		return err
	}

	if !features.SupportsArrayParameters() {
		p.Warning("%s cannot bind arrays; batches use inline parameters", dialect)
		return nil
	}
	if err := database.CheckArraySupport(dialect, serverVersion); err != nil {
		p.Warning("%v", err)
		return nil
	}

	types := metadata.NewTypeRegistry()
	adapter.RegisterTypes(types)
	rows := make([][]string, 0)
	for _, t := range types.ArrayTypes() {
		rows = append(rows, []string{t.Name, t.GoType.String()})
	}
	if err := p.Table([]string{"Array type", "Go type"}, rows); err != nil {
		return err
	}
	p.Success("Array parameters supported (%s)", fmt.Sprintf(predicate, "id"))
	return nil
}

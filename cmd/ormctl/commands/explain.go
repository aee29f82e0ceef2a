package commands

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/ormcore/internal/core/persister"
	"github.com/spf13/cobra"
)

func newExplainCommand(a *app) *cobra.Command {
	var (
		flags planFlags
		raw   bool
	)

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Describe how a table is batch loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.buildPlan(flags)
			if err != nil {
				return err
			}
			doc := p.markdown()
			if raw {
				_, err := fmt.Fprint(a.printer.Out(), doc)
				return err
			}
			return a.printer.Markdown(doc)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return cmd
}

func (p *plan) markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Batch plan: %s\n\n", p.desc.Name)
	b.WriteString("| Setting | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Table | %s |\n", p.desc.Table)
	fmt.Fprintf(&b, "| Dialect | %s |\n", p.dialect)
	fmt.Fprintf(&b, "| Strategy | %s |\n", p.strategy)
	fmt.Fprintf(&b, "| Batch size | %d |\n", p.size)
	fmt.Fprintf(&b, "| Parameters per statement | %d |\n", p.statement.ParameterCount)
	fmt.Fprintf(&b, "| Distinct statements | %d |\n\n", p.distinctStatements())

	b.WriteString("## Statement\n\n```sql\n")
	b.WriteString(p.statement.SQL)
	b.WriteString("\n```\n\n")

	if p.strategy == persister.StrategyArray {
		b.WriteString("Every batch binds its keys as one array parameter, so a single prepared statement serves all batch sizes.\n")
	} else {
		fmt.Fprintf(&b, "A partial batch of k keys renders its own statement with k placeholders (1 <= k <= %d).\n", p.size)
	}
	return b.String()
}

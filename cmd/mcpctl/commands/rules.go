package commands

import (
	"fmt"

	"github.com/flightos/mcpd/cmd/mcpctl/cmdutil"
	"github.com/flightos/mcpd/internal/cli/output"
	"github.com/flightos/mcpd/internal/mct"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List declared rules",
	RunE:  runRules,
}

type ruleList []mct.RuleRow

func (l ruleList) Headers() []string {
	return []string{"ID", "Name", "Period (s)", "Equation", "Action", "Option"}
}

func (l ruleList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{
			fmt.Sprint(r.ID), r.Name, fmt.Sprint(r.PeriodSeconds), r.Equation, fmt.Sprint(r.Action), r.Option,
		})
	}
	return rows
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	snapshot, queries, err := cmdutil.OpenMCT(cfg)
	if err != nil {
		return err
	}
	defer snapshot.Close()
	defer queries.Close()

	rows, err := queries.IterateRules()
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format).Print(ruleList(rows))
}

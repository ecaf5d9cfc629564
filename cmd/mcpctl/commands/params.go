package commands

import (
	"fmt"

	"github.com/flightos/mcpd/cmd/mcpctl/cmdutil"
	"github.com/flightos/mcpd/internal/cli/output"
	"github.com/flightos/mcpd/internal/paramstore"
	"github.com/flightos/mcpd/internal/publication"
	"github.com/spf13/cobra"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List declared parameters and their live values",
	Long: `List every declared parameter alongside its current value read
from the running daemon's publication region. If the region cannot be
attached (daemon not running), only the declared metadata is shown.`,
	RunE: runParams,
}

type paramReport struct {
	ID    uint32  `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Type  string  `json:"type" yaml:"type"`
	Value float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Live  bool    `json:"live" yaml:"live"`
}

type paramList []paramReport

func (l paramList) Headers() []string { return []string{"ID", "Name", "Type", "Value"} }
func (l paramList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		value := "-"
		if p.Live {
			value = fmt.Sprint(p.Value)
		}
		rows = append(rows, []string{fmt.Sprint(p.ID), p.Name, p.Type, value})
	}
	return rows
}

func runParams(cmd *cobra.Command, args []string) error {
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

	declared, err := queries.IterateParams()
	if err != nil {
		return fmt.Errorf("list parameters: %w", err)
	}

	region, regionErr := publication.Open(cfg.Publication.Path)
	var store *paramstore.Store
	if regionErr == nil {
		defer region.Close()
		store = paramstore.New(region, queries)
	}

	out := make(paramList, 0, len(declared))
	for _, p := range declared {
		report := paramReport{ID: p.ID, Name: p.Name, Type: p.Type}
		if store != nil {
			if v, err := store.GetChecked(p.ID); err == nil {
				report.Value = v
				report.Live = true
			}
		}
		out = append(out, report)
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format).Print(out)
}

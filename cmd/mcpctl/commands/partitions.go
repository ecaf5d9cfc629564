package commands

import (
	"fmt"

	"github.com/flightos/mcpd/cmd/mcpctl/cmdutil"
	"github.com/flightos/mcpd/internal/cli/output"
	"github.com/flightos/mcpd/internal/mct"
	"github.com/spf13/cobra"
)

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "List declared partitions",
	Long: `List every partition declared in the mission control table. This
reports declared configuration only: live domain state is owned by the
running daemon's partition controller, which mcpctl has no channel to
query short of inspecting hypervisor state directly.`,
	RunE: runPartitions,
}

type partitionList []mct.PartitionRow

func (l partitionList) Headers() []string { return []string{"ID", "Name"} }
func (l partitionList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		rows = append(rows, []string{fmt.Sprint(p.ID), p.Name})
	}
	return rows
}

func runPartitions(cmd *cobra.Command, args []string) error {
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

	rows, err := queries.IteratePartitions()
	if err != nil {
		return fmt.Errorf("list partitions: %w", err)
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format).Print(partitionList(rows))
}

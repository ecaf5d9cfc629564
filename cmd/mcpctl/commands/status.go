package commands

import (
	"fmt"

	"github.com/flightos/mcpd/cmd/mcpctl/cmdutil"
	"github.com/flightos/mcpd/internal/cli/output"
	"github.com/flightos/mcpd/internal/mct"
	"github.com/flightos/mcpd/internal/publication"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running daemon's current flight state",
	Long: `Attach to mcpd's publication region and report the live
(mcp_state, op_mode, flight_leg) coordinate, resolved against the
mission control table's state table when a matching definition exists.`,
	RunE: runStatus,
}

// statusReport is the table/JSON/YAML view of a live status query.
type statusReport struct {
	MCPState  uint32 `json:"mcp_state" yaml:"mcp_state"`
	OpMode    uint32 `json:"op_mode" yaml:"op_mode"`
	FlightLeg uint32 `json:"flight_leg" yaml:"flight_leg"`
	StateID   uint32 `json:"state_id,omitempty" yaml:"state_id,omitempty"`
	StateName string `json:"state_name,omitempty" yaml:"state_name,omitempty"`
	NumParams int    `json:"num_params" yaml:"num_params"`
}

func (r statusReport) Headers() []string { return []string{"Field", "Value"} }
func (r statusReport) Rows() [][]string {
	rows := [][]string{
		{"mcp_state", fmt.Sprint(r.MCPState)},
		{"op_mode", fmt.Sprint(r.OpMode)},
		{"flight_leg", fmt.Sprint(r.FlightLeg)},
		{"num_params", fmt.Sprint(r.NumParams)},
	}
	if r.StateName != "" {
		rows = append(rows, []string{"state", fmt.Sprintf("%s (id %d)", r.StateName, r.StateID)})
	}
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	region, err := publication.Open(cfg.Publication.Path)
	if err != nil {
		return fmt.Errorf("attach to publication region: %w", err)
	}
	defer region.Close()

	mcpState, opMode, flightLeg, err := region.GetState()
	if err != nil {
		return fmt.Errorf("read live state: %w", err)
	}

	report := statusReport{
		MCPState:  mcpState,
		OpMode:    opMode,
		FlightLeg: flightLeg,
		NumParams: region.NumParams(),
	}

	if snapshot, queries, err := cmdutil.OpenMCT(cfg); err == nil {
		defer snapshot.Close()
		defer queries.Close()
		if id, ok, err := queries.StateByLegMode(flightLeg, opMode); err == nil && ok {
			var row mct.State
			if err := snapshot.DB().First(&row, "id = ?", id).Error; err == nil {
				report.StateID = id
				report.StateName = row.Name
			}
		}
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format).Print(report)
}

package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/flightos/mcpd/cmd/mcpctl/cmdutil"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var reloadForce bool

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Signal a running mcpd to reload its mission control table",
	Long: `Send SIGHUP to the daemon named by --pid-file, triggering the
reload protocol: save state, rebuild every MCT-derived component, and
re-enter the saved state. Does not restart the process.`,
	RunE: runReload,
}

func init() {
	reloadCmd.Flags().BoolVarP(&reloadForce, "force", "f", false, "Skip the confirmation prompt")
}

func runReload(cmd *cobra.Command, args []string) error {
	if cmdutil.GlobalFlags.PIDFile == "" {
		return fmt.Errorf("--pid-file is required")
	}

	pid, err := readPID(cmdutil.GlobalFlags.PIDFile)
	if err != nil {
		return err
	}

	if !reloadForce {
		ok, err := confirm(fmt.Sprintf("Reload mcpd (pid %d)?", pid))
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("aborted")
			return nil
		}
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}

	cmd.Printf("sent SIGHUP to pid %d\n", pid)
	return nil
}

func readPID(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	return pid, nil
}

// confirm prompts for yes/no confirmation, matching dfsctl's
// IsConfirm-based prompt pattern.
func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrAbort {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

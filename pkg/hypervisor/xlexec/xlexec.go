// Package xlexec implements hypervisor.Hypervisor by shelling out to the
// Xen "xl" toolstack CLI, the same external program mcpDomCtrl.c forked
// and execl'd for every domain transition and scheduler change.
package xlexec

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/flightos/mcpd/internal/logger"
	"github.com/flightos/mcpd/internal/metrics"
	"github.com/flightos/mcpd/pkg/hypervisor"
)

// Client runs "xl" as a subprocess for every hypervisor operation. Open
// and Close are no-ops beyond a binary existence check: "xl" is
// stateless from the caller's perspective, unlike the original's libxc
// handle (xen_interface.c's xc_interface_open), which this package does
// not need since every other operation goes through the CLI already.
type Client struct {
	binary  string
	metrics metrics.HypervisorMetrics
}

// New builds a Client that invokes binary (e.g. "xl", or a full path)
// for every operation. m may be nil to disable metrics collection.
func New(binary string, m metrics.HypervisorMetrics) *Client {
	if binary == "" {
		binary = "xl"
	}
	return &Client{binary: binary, metrics: m}
}

var _ hypervisor.Hypervisor = (*Client)(nil)

// Open verifies the configured binary is reachable on PATH.
func (c *Client) Open(ctx context.Context) error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Errorf("xlexec: %s not found: %w", c.binary, err)
	}
	return nil
}

// Close is a no-op: there is no persistent handle to release.
func (c *Client) Close() error { return nil }

func (c *Client) run(ctx context.Context, command, domain string, args ...string) error {
	start := time.Now()
	cmd := exec.CommandContext(ctx, c.binary, args...)
	out, err := cmd.CombinedOutput()
	if c.metrics != nil {
		c.metrics.RecordCommand(command, domain, time.Since(start), err)
	}
	if err != nil {
		logger.Error("xl command failed", "args", args, "output", string(out), "error", err)
		return fmt.Errorf("xlexec: %s %s: %w", c.binary, strings.Join(args, " "), err)
	}
	return nil
}

// Create brings configPath's domain up paused, matching mcpDomCtrl.c's
// "xl create -qp" invocation on an INIT->OFF transition.
func (c *Client) Create(ctx context.Context, name string, configPath string) error {
	return c.run(ctx, "create", name, "create", "-qp", configPath)
}

// Destroy matches the "xl destroy" invocation on any->DELETE.
func (c *Client) Destroy(ctx context.Context, name string) error {
	return c.run(ctx, "destroy", name, "destroy", name)
}

// Pause matches the "xl pause" invocation on ON->OFF and ON->PAUSED.
func (c *Client) Pause(ctx context.Context, name string) error {
	return c.run(ctx, "pause", name, "pause", name)
}

// Unpause matches the "xl unpause" invocation on OFF->ON and
// PAUSED->UNPAUSED.
func (c *Client) Unpause(ctx context.Context, name string) error {
	return c.run(ctx, "unpause", name, "unpause", name)
}

// Reboot matches the "xl reboot" invocation on ON->RESET.
func (c *Client) Reboot(ctx context.Context, name string) error {
	return c.run(ctx, "reboot", name, "reboot", name)
}

// SetSchedTimeslice matches "xl sched-credit -s -t <millis>".
func (c *Client) SetSchedTimeslice(ctx context.Context, millis uint32) error {
	return c.run(ctx, "sched-credit-timeslice", "", "sched-credit", "-s", "-t", strconv.FormatUint(uint64(millis), 10))
}

// SetSchedWeightCap matches "xl sched-credit -d <name> -w <weight> -c <cap>".
func (c *Client) SetSchedWeightCap(ctx context.Context, name string, weight, cpuCap uint32) error {
	return c.run(ctx, "sched-credit-weight-cap", name, "sched-credit",
		"-d", name,
		"-w", strconv.FormatUint(uint64(weight), 10),
		"-c", strconv.FormatUint(uint64(cpuCap), 10))
}

// List runs "xl list" and parses its tabular output, standing in for
// xen_interface.c's direct xc_domain_getinfolist call.
func (c *Client) List(ctx context.Context) ([]hypervisor.DomainInfo, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, c.binary, "list")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stdout
	err := cmd.Run()
	if c.metrics != nil {
		c.metrics.RecordCommand("list", "", time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("xlexec: %s list: %w", c.binary, err)
	}

	return parseDomainList(&stdout)
}

// parseDomainList parses "xl list" output of the form:
//
//	Name   ID  Mem  VCPUs  State   Time(s)
//	guest1  3  512      1  -b----    45.6
//
// skipping the header row. The state column packs up to six flag
// characters (r/b/p/s/c/d); parseState resolves them with the same
// priority xen_domStateFromFlags used.
func parseDomainList(r *bytes.Buffer) ([]hypervisor.DomainInfo, error) {
	scanner := bufio.NewScanner(r)
	var domains []hypervisor.DomainInfo
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		domains = append(domains, hypervisor.DomainInfo{
			Name:  fields[0],
			ID:    id,
			State: parseState(fields[4]),
		})
	}
	return domains, scanner.Err()
}

func parseState(flags string) hypervisor.DomainState {
	switch {
	case strings.Contains(flags, "d"):
		return hypervisor.DomainDying
	case strings.Contains(flags, "s"):
		return hypervisor.DomainShutdown
	case strings.Contains(flags, "p"):
		return hypervisor.DomainPaused
	case strings.Contains(flags, "b"):
		return hypervisor.DomainBlocked
	case strings.Contains(flags, "r"):
		return hypervisor.DomainRunning
	default:
		return hypervisor.DomainUnknown
	}
}

// Package systemd reloads and restarts the managed unit after an install.
package systemd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/ollama-updater/internal/logger"
	"github.com/oshokin/ollama-updater/internal/service/common"
)

// ProcessLister returns the running processes. ps.Processes satisfies it.
type ProcessLister func() ([]ps.Process, error)

// Controller issues service manager commands for one unit.
type Controller struct {
	runner    common.Runner
	systemctl string
	unit      string
	// process is the executable name the unit is expected to run.
	process string
	list    ProcessLister
	// output receives what systemctl prints.
	output io.Writer
}

// NewController creates a controller for unit. process is looked up after restarts.
// systemctl output goes to output, or to os.Stderr when output is nil.
func NewController(runner common.Runner, systemctl, unit, process string, output io.Writer) *Controller {
	if output == nil {
		output = os.Stderr
	}

	return &Controller{
		runner:    runner,
		systemctl: systemctl,
		unit:      unit,
		process:   process,
		list:      ps.Processes,
		output:    output,
	}
}

// WithProcessLister replaces the process table source.
func (c *Controller) WithProcessLister(list ProcessLister) *Controller {
	c.list = list
	return c
}

// Restart runs daemon-reload and then restarts the unit. The first failure is returned.
func (c *Controller) Restart(ctx context.Context) error {
	steps := [][]string{
		{"daemon-reload"},
		{"restart", c.unit},
	}

	for _, args := range steps {
		cmd := common.Command{
			Name:   c.systemctl,
			Args:   args,
			Stdout: c.output,
			Stderr: c.output,
		}

		logger.InfoKV(ctx, "Running service manager", "command", cmd.String())

		if err := c.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("service %s: %w", c.unit, err)
		}
	}

	c.reportProcess(ctx)

	return nil
}

// reportProcess logs whether the managed executable shows up in the process table.
// systemd may still be starting it, so a miss is only a warning.
func (c *Controller) reportProcess(ctx context.Context) {
	pids, err := RunningPIDs(c.list, c.process)
	if err != nil {
		logger.WarnKV(ctx, "Could not list processes", "error", err)
		return
	}

	if len(pids) == 0 {
		logger.WarnKV(ctx, "Service process not found yet", "unit", c.unit, "process", c.process)
		return
	}

	logger.InfoKV(ctx, "Service process running", "unit", c.unit, "pids", pids)
}

// RunningPIDs returns the ids of processes whose executable name equals name.
func RunningPIDs(list ProcessLister, name string) ([]int, error) {
	processes, err := list()
	if err != nil {
		return nil, err
	}

	var pids []int

	for _, process := range processes {
		if process.Executable() == name {
			pids = append(pids, process.Pid())
		}
	}

	return pids, nil
}

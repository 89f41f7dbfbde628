// SPDX-License-Identifier: Apache-2.0

// Package procprobe is the reference manager.ProcessProbe: on real hardware
// the focused application ID comes from the platform's process manager
// service (see original_source's ProcessManagement::GetCurrentApplicationId);
// on a generic Linux host there is no single-foreground-app concept, so this
// probe does its best by matching a configurable process-name pattern via
// gopsutil, the same process-enumeration library the teacher uses for CPU
// topology discovery (topology.go).
package procprobe

import (
	"fmt"
	"regexp"

	gopsproc "github.com/shirou/gopsutil/v3/process"
)

// ShellApplicationID is the sentinel application_id meaning "no application
// is focused, the platform shell is".
const ShellApplicationID uint64 = 0

// Probe matches the most-recently-started process whose name matches a
// configured pattern and reports its PID as the application ID.
type Probe struct {
	pattern *regexp.Regexp
}

// New builds a Probe matching process names against namePattern (a Go
// regexp). An empty pattern makes every tick report ShellApplicationID.
func New(namePattern string) (*Probe, error) {
	if namePattern == "" {
		return &Probe{}, nil
	}
	re, err := regexp.Compile(namePattern)
	if err != nil {
		return nil, fmt.Errorf("procprobe: compiling pattern %q: %w", namePattern, err)
	}
	return &Probe{pattern: re}, nil
}

// ProcessExists reports whether any running process's name matches pattern,
// used by cmd/sysclkd to block startup until the platform shell process has
// come up (original_source's boot sequence waits on qlaunch the same way).
// An empty pattern always reports true (nothing to wait for).
func ProcessExists(pattern string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("procprobe: compiling pattern %q: %w", pattern, err)
	}

	procs, err := gopsproc.Processes()
	if err != nil {
		return false, fmt.Errorf("procprobe: listing processes: %w", err)
	}
	for _, proc := range procs {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		if re.MatchString(name) {
			return true, nil
		}
	}
	return false, nil
}

// CurrentApplicationID implements manager.ProcessProbe. It lists running
// processes and returns the highest-PID match for the configured pattern,
// on the assumption that among several matches the most recently started
// one is most likely to be the foreground workload. Enumeration failures
// are not fatal to the daemon: they are reported as the shell sentinel, the
// same fallback the original uses when the platform's PID query reports "no
// application process".
func (p *Probe) CurrentApplicationID() (uint64, error) {
	if p.pattern == nil {
		return ShellApplicationID, nil
	}

	procs, err := gopsproc.Processes()
	if err != nil {
		return ShellApplicationID, nil
	}

	var best int32
	for _, proc := range procs {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		if !p.pattern.MatchString(name) {
			continue
		}
		if proc.Pid > best {
			best = proc.Pid
		}
	}
	if best == 0 {
		return ShellApplicationID, nil
	}
	return uint64(best), nil
}

// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/retronx-team/sys-clk-sub000/internal/board"
	"github.com/retronx-team/sys-clk-sub000/internal/board/boardsim"
	"github.com/retronx-team/sys-clk-sub000/internal/board/sysfs"
	"github.com/retronx-team/sys-clk-sub000/internal/config"
	"github.com/retronx-team/sys-clk-sub000/internal/ipc"
	"github.com/retronx-team/sys-clk-sub000/internal/log"
	"github.com/retronx-team/sys-clk-sub000/internal/manager"
	"github.com/retronx-team/sys-clk-sub000/internal/policy"
	"github.com/retronx-team/sys-clk-sub000/internal/procprobe"
	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
	"github.com/retronx-team/sys-clk-sub000/internal/telemetry"
	"github.com/retronx-team/sys-clk-sub000/internal/version"
)

func main() {
	configDir := flag.String("config-dir", "/etc/sysclk", "directory holding config.ini and the telemetry CSV/log/flag files")
	socketPath := flag.String("socket", "/run/sysclk.sock", "Unix domain socket the IPC service listens on")
	simulate := flag.Bool("simulate", false, "drive the tick loop against an in-memory boardsim.Board instead of real hardware")
	pollInterval := flag.Duration("poll-interval", 300*time.Millisecond, "fallback tick cadence until the config store loads its own polling_interval_ms")
	processPattern := flag.String("process-pattern", "", "regexp matching the foreground application's process name; empty always reports the platform shell")
	shellPattern := flag.String("shell-pattern", "", "regexp matching the platform shell's process name; startup blocks until it appears (empty skips the wait)")
	flag.Parse()

	log.SetLogger(&simpleLogger{})
	log.Infof("starting %s", version.GetFullVersion())

	if err := run(*configDir, *socketPath, *simulate, *pollInterval, *processPattern, *shellPattern); err != nil {
		log.Errorf("fatal: %v", err)
		os.Exit(1)
	}
}

// shellPollInterval is how often startup rechecks for the platform shell
// process before constructing the manager and IPC service.
const shellPollInterval = 500 * time.Millisecond

func run(configDir, socketPath string, simulate bool, pollInterval time.Duration, processPattern, shellPattern string) error {
	drv, err := newBoardDriver(simulate)
	if err != nil {
		return fmt.Errorf("sysclkd: building board driver: %w", err)
	}

	proc, err := procprobe.New(processPattern)
	if err != nil {
		return fmt.Errorf("sysclkd: building process probe: %w", err)
	}

	if err := waitForPlatformShell(shellPattern); err != nil {
		return fmt.Errorf("sysclkd: waiting for platform shell: %w", err)
	}

	cfg := config.New(filepath.Join(configDir, "config.ini"))
	if !cfg.Refresh() {
		log.Warnf("sysclkd: no config.ini found under %q yet, running with defaults", configDir)
	}

	sink := telemetry.New(configDir)
	resolver := policy.New(cfg)

	mgr, err := manager.New(drv, resolver, cfg, sink, proc, manager.WithWaitFunc(boundedSleep(pollInterval, cfg.HasLoaded)))
	if err != nil {
		return fmt.Errorf("sysclkd: constructing manager: %w", err)
	}
	mgr.SetRunning(true)

	svc, err := ipc.Listen(socketPath, ipc.NewServer(mgr))
	if err != nil {
		return fmt.Errorf("sysclkd: listening on %q: %w", socketPath, err)
	}

	serveErrs := make(chan error, 1)
	go func() {
		serveErrs <- svc.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	tickErrs := make(chan error, 1)
	go func() {
		tickErrs <- tickLoop(mgr)
	}()

	select {
	case sig := <-sigCh:
		log.Infof("sysclkd: received %s, shutting down", sig)
	case err := <-tickErrs:
		svc.Stop()
		return err
	case err := <-serveErrs:
		if err != nil {
			log.Errorf("sysclkd: ipc service stopped: %v", err)
		}
	}

	svc.Stop()
	return nil
}

// waitForPlatformShell blocks until a process matching shellPattern is
// observed, polling every shellPollInterval, before the manager and IPC
// service are constructed. An empty pattern returns immediately.
func waitForPlatformShell(shellPattern string) error {
	for {
		ready, err := procprobe.ProcessExists(shellPattern)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		log.Debugf("sysclkd: platform shell %q not yet up, rechecking in %s", shellPattern, shellPollInterval)
		time.Sleep(shellPollInterval)
	}
}

// tickLoop runs until the manager's Running flag is cleared by an IPC Exit
// command, or until Tick returns a fatal error, which it passes back.
func tickLoop(mgr *manager.Manager) error {
	for mgr.Running() {
		if err := mgr.Tick(); err != nil {
			return fmt.Errorf("sysclkd: tick: %w", err)
		}
		mgr.WaitForNextTick()
	}
	return nil
}

// boundedSleep wraps time.Sleep so the tick loop waits for fallback until
// loaded reports that the config store has loaded its polling_interval_ms.
// A polling_interval_ms of 0 (which config.isValid already rejects, but a
// zero Option path shouldn't also spin) also falls back, so the wait never
// collapses into a busy loop.
func boundedSleep(fallback time.Duration, loaded func() bool) func(time.Duration) {
	return func(d time.Duration) {
		if d <= 0 || !loaded() {
			d = fallback
		}
		time.Sleep(d)
	}
}

func newBoardDriver(simulate bool) (board.Driver, error) {
	if simulate {
		return boardsim.New(), nil
	}
	return sysfs.New(
		sysfs.WithDevfreqDevice(sysclk.ModuleGPU, "13800000.gpu"),
		sysfs.WithDevfreqDevice(sysclk.ModuleMEM, "11a00000.dmc"),
		sysfs.WithPowerSupply("battery"),
		sysfs.WithThermalZoneType(sysclk.ThermalSOC, "soc-thermal"),
		sysfs.WithThermalZoneType(sysclk.ThermalPCB, "pcb-thermal"),
		sysfs.WithThermalZoneType(sysclk.ThermalSkin, "skin-thermal"),
	), nil
}

// simpleLogger adapts the stdlib log package to internal/log.Logger,
// grounded on cmd/example/main.go's level-prefixed Printf wrapper.
type simpleLogger struct{}

func (l *simpleLogger) Debugf(format string, args ...interface{}) {
	stdlog.Printf("D! "+format, args...)
}

func (l *simpleLogger) Debug(args ...interface{}) {
	stdlog.Print(append([]interface{}{"D! "}, args...)...)
}

func (l *simpleLogger) Infof(format string, args ...interface{}) {
	stdlog.Printf("I! "+format, args...)
}

func (l *simpleLogger) Info(args ...interface{}) {
	stdlog.Print(append([]interface{}{"I! "}, args...)...)
}

func (l *simpleLogger) Warnf(format string, args ...interface{}) {
	stdlog.Printf("W! "+format, args...)
}

func (l *simpleLogger) Warn(args ...interface{}) {
	stdlog.Print(append([]interface{}{"W! "}, args...)...)
}

func (l *simpleLogger) Errorf(format string, args ...interface{}) {
	stdlog.Printf("E! "+format, args...)
}

func (l *simpleLogger) Error(args ...interface{}) {
	stdlog.Print(append([]interface{}{"E! "}, args...)...)
}

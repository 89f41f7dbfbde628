// SPDX-License-Identifier: Apache-2.0

// Package manager implements the clock manager: the reconciliation state
// machine that ties the frequency table, policy resolver, config store,
// board driver and telemetry sink together into the tick loop described by
// the original's ClockManager::Tick/RefreshContext, generalized off the
// Switch-specific types onto the sysclk package's enums.
package manager

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"golang.org/x/sync/errgroup"

	"github.com/retronx-team/sys-clk-sub000/internal/board"
	"github.com/retronx-team/sys-clk-sub000/internal/config"
	"github.com/retronx-team/sys-clk-sub000/internal/freqtable"
	"github.com/retronx-team/sys-clk-sub000/internal/log"
	"github.com/retronx-team/sys-clk-sub000/internal/policy"
	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
	"github.com/retronx-team/sys-clk-sub000/internal/telemetry"
)

// ProcessProbe returns the currently focused application's identifier; 0
// means the platform shell is focused.
type ProcessProbe interface {
	CurrentApplicationID() (uint64, error)
}

// Manager owns the Context and runs the tick loop.
type Manager struct {
	board     board.Driver
	table     *freqtable.Table
	resolver  *policy.Resolver
	cfg       *config.Store
	sink      *telemetry.Sink
	proc      ProcessProbe
	soc       sysclk.SocType
	clk       clock.Clock
	wait      func(time.Duration)

	mu  sync.Mutex
	ctx sysclk.Context

	lastTempLog  time.Time
	lastFreqLog  time.Time
	lastPowerLog time.Time
	lastCSV      time.Time

	runMu   sync.Mutex
	running bool
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithClock overrides the time source (tests only).
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clk = c }
}

// WithWaitFunc overrides the inter-tick sleep (tests only, to avoid
// blocking on real time while still exercising the reset-then-wait path).
func WithWaitFunc(f func(time.Duration)) Option {
	return func(m *Manager) { m.wait = f }
}

// New builds a Manager and populates the frequency table from drv.
func New(drv board.Driver, resolver *policy.Resolver, cfg *config.Store, sink *telemetry.Sink, proc ProcessProbe, opts ...Option) (*Manager, error) {
	table, err := freqtable.Build(drv)
	if err != nil {
		return nil, fmt.Errorf("manager: building frequency table: %w", err)
	}
	soc, err := drv.GetSocType()
	if err != nil {
		return nil, fmt.Errorf("manager: reading soc type: %w", err)
	}

	m := &Manager{
		board:    drv,
		table:    table,
		resolver: resolver,
		cfg:      cfg,
		sink:     sink,
		proc:     proc,
		soc:      soc,
		clk:      clock.New(),
		wait:     time.Sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// GetCurrentContext returns a snapshot of the Context, copied under the
// context mutex.
func (m *Manager) GetCurrentContext() sysclk.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx.Clone()
}

// GetConfig returns the manager's config store.
func (m *Manager) GetConfig() *config.Store {
	return m.cfg
}

// GetFreqList passes through to the frequency table.
func (m *Manager) GetFreqList(module sysclk.Module) []uint32 {
	return m.table.List(module)
}

// Running reports whether the outer loop should keep ticking.
func (m *Manager) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.running
}

// SetRunning sets the outer-loop lifecycle flag.
func (m *Manager) SetRunning(running bool) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	m.running = running
}

// WaitForNextTick sleeps for the configured polling interval.
func (m *Manager) WaitForNextTick() {
	m.wait(m.pollInterval())
}

func (m *Manager) pollInterval() time.Duration {
	ms := m.cfg.GetConfigValues()[config.ValuePollingIntervalMs]
	return time.Duration(ms) * time.Millisecond
}

// Tick runs one reconciliation pass. Any board-driver failure is fatal and
// returned to the caller, which per design aborts the daemon.
func (m *Manager) Tick() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	configReloaded := m.cfg.Refresh()

	changed, err := m.refreshContext()
	if err != nil {
		return err
	}

	// A config reload hands control back to the platform for one tick just
	// like any other observed change, even though it is not one of
	// refresh_context's own cached-field comparisons.
	if changed || configReloaded {
		if err := m.board.ResetToStock(); err != nil {
			return fmt.Errorf("manager: resetting to stock: %w", err)
		}
		m.wait(m.pollInterval())
	}

	if changed || configReloaded {
		if err := m.reconcile(); err != nil {
			return err
		}
	}

	if err := m.sampleTelemetry(); err != nil {
		return err
	}

	if err := m.maybeWriteCSV(); err != nil {
		return err
	}

	return nil
}

// refreshContext detects whether any observable input has changed since
// the last tick, updating the cached Context fields as it goes.
func (m *Manager) refreshContext() (bool, error) {
	changed := false

	if enabled := m.cfg.Enabled(); enabled != m.ctx.Enabled {
		m.ctx.Enabled = enabled
		changed = true
	}

	appID, err := m.proc.CurrentApplicationID()
	if err != nil {
		return false, fmt.Errorf("manager: reading application id: %w", err)
	}
	if appID != m.ctx.ApplicationID {
		m.ctx.ApplicationID = appID
		changed = true
	}

	profile, err := m.board.GetProfile()
	if err != nil {
		return false, fmt.Errorf("manager: reading profile: %w", err)
	}
	if profile != m.ctx.Profile {
		m.ctx.Profile = profile
		changed = true
	}

	for _, mod := range sysclk.Modules {
		hz, err := m.board.GetHz(mod)
		if err != nil {
			return false, fmt.Errorf("manager: reading %s frequency: %w", mod, err)
		}
		if hz != m.ctx.Freqs[mod] {
			m.ctx.Freqs[mod] = hz
			changed = true
		}

		override := m.cfg.OverrideHz(mod)
		if override != m.ctx.OverrideFreqs[mod] {
			m.ctx.OverrideFreqs[mod] = override
			changed = true
		}
	}

	return changed, nil
}

// reconcile computes the target Hz for every module, quantizes it under the
// module's cap, and, while the master switch is enabled, applies it when the
// quantized value differs from the cached observed frequency.
func (m *Manager) reconcile() error {
	for _, mod := range sysclk.Modules {
		target := m.ctx.OverrideFreqs[mod]
		if target == 0 {
			target = m.resolver.AutoClockHz(m.ctx.ApplicationID, mod, m.ctx.Profile)
		}
		if target == 0 {
			continue
		}

		cap := freqtable.MaxAllowedHz(mod, m.ctx.Profile, m.soc)
		nearest := m.table.NearestHz(mod, target, cap)

		if nearest != m.ctx.Freqs[mod] && m.ctx.Enabled {
			if err := m.sink.LogLine("set_hz module=%s target=%d nearest=%d cap=%d", mod, target, nearest, cap); err != nil {
				log.Errorf("manager: writing log line: %v", err)
			}
			if err := m.board.SetHz(mod, nearest); err != nil {
				return fmt.Errorf("manager: setting %s frequency: %w", mod, err)
			}
			m.ctx.Freqs[mod] = nearest
		}
	}
	return nil
}

// sampleTelemetry reads temperature, power, RAM load and real frequency
// concurrently (read-only, independent I/O) without forcing a reconcile,
// then logs the temperature, real-frequency and power groups if their own
// interval has elapsed; RAM load is recorded in the Context but not logged.
func (m *Manager) sampleTelemetry() error {
	values := m.cfg.GetConfigValues()

	var g errgroup.Group
	g.Go(func() error {
		for _, sensor := range sysclk.ThermalSensors {
			milli, err := m.board.GetTemperatureMilli(sensor)
			if err != nil {
				return fmt.Errorf("manager: reading %s temperature: %w", sensor, err)
			}
			m.ctx.Temps[sensor] = milli
		}
		return nil
	})
	g.Go(func() error {
		for _, sensor := range sysclk.PowerSensors {
			mw, err := m.board.GetPowerMw(sensor)
			if err != nil {
				return fmt.Errorf("manager: reading %s power: %w", sensor, err)
			}
			m.ctx.Power[sensor] = mw
		}
		return nil
	})
	g.Go(func() error {
		for _, mod := range sysclk.Modules {
			hz, err := m.board.GetRealHz(mod)
			if err != nil {
				return fmt.Errorf("manager: reading %s real frequency: %w", mod, err)
			}
			m.ctx.RealFreqs[mod] = hz
		}
		return nil
	})
	g.Go(func() error {
		pid := int(m.ctx.ApplicationID)
		for _, sensor := range sysclk.RAMLoadSensors {
			pct, err := m.board.GetRAMLoad(sensor, pid)
			if err != nil {
				return fmt.Errorf("manager: reading ram load %s: %w", sensor, err)
			}
			m.ctx.RAMLoad[sensor] = pct
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	now := m.clk.Now()
	if telemetry.IntervalElapsed(m.clk, m.lastTempLog, values[config.ValueTempLogIntervalMs]) {
		m.lastTempLog = now
		if err := m.sink.LogLine("temps soc=%d pcb=%d skin=%d", m.ctx.Temps[sysclk.ThermalSOC], m.ctx.Temps[sysclk.ThermalPCB], m.ctx.Temps[sysclk.ThermalSkin]); err != nil {
			log.Errorf("manager: writing log line: %v", err)
		}
	}
	if telemetry.IntervalElapsed(m.clk, m.lastFreqLog, values[config.ValueFreqLogIntervalMs]) {
		m.lastFreqLog = now
		if err := m.sink.LogLine("real_hz cpu=%d gpu=%d mem=%d", m.ctx.RealFreqs[sysclk.ModuleCPU], m.ctx.RealFreqs[sysclk.ModuleGPU], m.ctx.RealFreqs[sysclk.ModuleMEM]); err != nil {
			log.Errorf("manager: writing log line: %v", err)
		}
	}
	if telemetry.IntervalElapsed(m.clk, m.lastPowerLog, values[config.ValuePowerLogIntervalMs]) {
		m.lastPowerLog = now
		if err := m.sink.LogLine("power now=%d avg=%d", m.ctx.Power[sysclk.PowerNow], m.ctx.Power[sysclk.PowerAvg]); err != nil {
			log.Errorf("manager: writing log line: %v", err)
		}
	}

	return nil
}

func (m *Manager) maybeWriteCSV() error {
	values := m.cfg.GetConfigValues()
	if !telemetry.IntervalElapsed(m.clk, m.lastCSV, values[config.ValueCsvWriteIntervalMs]) {
		return nil
	}
	m.lastCSV = m.clk.Now()
	if err := m.sink.WriteContextToCSV(m.ctx); err != nil {
		return fmt.Errorf("manager: writing csv row: %w", err)
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0

// Package boardsim is a deterministic in-memory board.Driver used by the
// manager's own tests and by "sysclkd -simulate" to drive the tick loop
// without real hardware.
package boardsim

import (
	"fmt"
	"sync"

	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

// Board is an in-memory board.Driver. Zero value is not usable; construct
// with New.
type Board struct {
	mu sync.Mutex

	freqLists [3][]uint32
	stockHz   [3]uint32
	soc       sysclk.SocType

	hz        [3]uint32
	realHz    [3]uint32
	profile   sysclk.Profile
	temps     [3]uint32
	power     [2]int32
	ramLoad   [2]uint32
	resetHits int
}

// Option configures a Board at construction.
type Option func(*Board)

// WithFreqList seeds the enumerated frequency list for module.
func WithFreqList(module sysclk.Module, hz ...uint32) Option {
	return func(b *Board) { b.freqLists[module] = append([]uint32(nil), hz...) }
}

// WithStockHz seeds the frequency triple ResetToStock restores.
func WithStockHz(module sysclk.Module, hz uint32) Option {
	return func(b *Board) { b.stockHz[module] = hz }
}

// WithSocType seeds the reported SoC family.
func WithSocType(soc sysclk.SocType) Option {
	return func(b *Board) { b.soc = soc }
}

// WithProfile seeds the profile GetProfile reports until SetProfile is
// called by a test.
func WithProfile(p sysclk.Profile) Option {
	return func(b *Board) { b.profile = p }
}

// New builds a Board applying opts over sensible zero defaults.
func New(opts ...Option) *Board {
	b := &Board{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Board) GetHz(module sysclk.Module) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hz[module], nil
}

func (b *Board) SetHz(module sysclk.Module, hz uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hz[module] = hz
	b.realHz[module] = hz
	return nil
}

func (b *Board) GetRealHz(module sysclk.Module) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realHz[module], nil
}

func (b *Board) GetFreqList(module sysclk.Module) ([]uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint32(nil), b.freqLists[module]...), nil
}

func (b *Board) GetProfile() (sysclk.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profile, nil
}

func (b *Board) GetTemperatureMilli(sensor sysclk.ThermalSensor) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.temps[sensor], nil
}

func (b *Board) GetPowerMw(sensor sysclk.PowerSensor) (int32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.power[sensor], nil
}

func (b *Board) GetRAMLoad(sensor sysclk.RAMLoadSensor, _ int) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ramLoad[sensor], nil
}

func (b *Board) ResetToStock() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range sysclk.Modules {
		b.hz[m] = b.stockHz[m]
		b.realHz[m] = b.stockHz[m]
	}
	b.resetHits++
	return nil
}

func (b *Board) GetSocType() (sysclk.SocType, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.soc, nil
}

// Test-only mutators below: a simulated board needs to let a scenario push
// state changes the daemon is expected to observe on its next tick.

// SetProfile changes what GetProfile reports.
func (b *Board) SetProfile(p sysclk.Profile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profile = p
}

// SetTemperatureMilli sets a fixed reading for sensor.
func (b *Board) SetTemperatureMilli(sensor sysclk.ThermalSensor, milli uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.temps[sensor] = milli
}

// SetPowerMw sets a fixed reading for sensor.
func (b *Board) SetPowerMw(sensor sysclk.PowerSensor, mw int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.power[sensor] = mw
}

// SetRAMLoad sets a fixed reading for sensor.
func (b *Board) SetRAMLoad(sensor sysclk.RAMLoadSensor, pct uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ramLoad[sensor] = pct
}

// SetHzDirect bypasses SetHz's real-Hz mirroring, simulating an external
// change to the commanded frequency (e.g. the platform itself re-clocking).
func (b *Board) SetHzDirect(module sysclk.Module, hz uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hz[module] = hz
}

// ResetCount returns how many times ResetToStock has been called.
func (b *Board) ResetCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resetHits
}

// ErrFailing is returned by FailingBoard's GetHz once armed.
var ErrFailing = fmt.Errorf("boardsim: simulated board failure")

// FailingBoard wraps a working Board but lets a test arm GetHz to fail,
// exercising the manager's fatal-error propagation path out of Tick
// without needing every other method to also fail.
type FailingBoard struct {
	*Board
	failGetHz bool
}

// NewFailing builds a FailingBoard over a fresh Board constructed with opts.
func NewFailing(opts ...Option) *FailingBoard {
	return &FailingBoard{Board: New(opts...)}
}

// ArmGetHz makes every subsequent GetHz call return ErrFailing.
func (f *FailingBoard) ArmGetHz() {
	f.failGetHz = true
}

func (f *FailingBoard) GetHz(module sysclk.Module) (uint32, error) {
	if f.failGetHz {
		return 0, ErrFailing
	}
	return f.Board.GetHz(module)
}

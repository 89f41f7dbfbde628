// SPDX-License-Identifier: Apache-2.0

// Package sysfs is the reference board.Driver implementation for a generic
// embedded Linux handheld: CPU frequency via cpufreq, GPU/MEM frequency via
// devfreq, temperatures via thermal_zone, power via power_supply. Grounded
// on the teacher's sysfs-reading style (cpufreq.go, uncorefreq.go) and on
// the thermal-zone matching approach in ajitm722's thermalwatch.go,
// generalized to a table-driven per-sensor lookup.
package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/retronx-team/sys-clk-sub000/internal/log"
	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

const (
	defaultCPUFreqPath = "/sys/devices/system/cpu/cpu0/cpufreq"
	defaultThermalPath = "/sys/class/thermal"
	defaultPowerPath   = "/sys/class/power_supply"
	defaultDevfreqPath = "/sys/class/devfreq"
)

// Board reads and writes clock, thermal and power state through sysfs.
type Board struct {
	cpuFreqPath string
	devfreqPath [3]string // indexed by sysclk.Module; CPU entry unused
	thermalBase string
	thermalZone [3]string // indexed by sysclk.ThermalSensor: expected thermal_zoneN "type" contents
	powerSupply string

	stockHz [3]uint32
	socType sysclk.SocType
}

// Option configures a Board at construction.
type Option func(*Board)

// WithCPUFreqPath overrides the default cpufreq directory (for tests).
func WithCPUFreqPath(path string) Option {
	return func(b *Board) { b.cpuFreqPath = path }
}

// WithDevfreqDevice names the devfreq device backing module (GPU or MEM).
func WithDevfreqDevice(module sysclk.Module, name string) Option {
	return func(b *Board) { b.devfreqPath[module] = filepath.Join(defaultDevfreqPath, name) }
}

// WithThermalZoneType maps sensor to a thermal_zone "type" file's expected
// contents; the matching zone directory is looked up again on every read.
func WithThermalZoneType(sensor sysclk.ThermalSensor, zoneType string) Option {
	return func(b *Board) { b.thermalZone[sensor] = zoneType }
}

// WithThermalBasePath overrides the default thermal_zone* parent directory
// (for tests).
func WithThermalBasePath(path string) Option {
	return func(b *Board) { b.thermalBase = path }
}

// WithPowerSupply names the power_supply device (e.g. "battery").
func WithPowerSupply(name string) Option {
	return func(b *Board) { b.powerSupply = filepath.Join(defaultPowerPath, name) }
}

// WithStockHz seeds the frequency triple ResetToStock restores.
func WithStockHz(module sysclk.Module, hz uint32) Option {
	return func(b *Board) { b.stockHz[module] = hz }
}

// WithSocType overrides the SoC family GetSocType reports.
func WithSocType(soc sysclk.SocType) Option {
	return func(b *Board) { b.socType = soc }
}

// New builds a Board over sysfs, applying opts over the generic defaults.
func New(opts ...Option) *Board {
	b := &Board{
		cpuFreqPath: defaultCPUFreqPath,
		thermalBase: defaultThermalPath,
		powerSupply: filepath.Join(defaultPowerPath, "battery"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Board) GetHz(module sysclk.Module) (uint32, error) {
	switch module {
	case sysclk.ModuleCPU:
		v, err := readUint(filepath.Join(b.cpuFreqPath, "scaling_cur_freq"))
		if err != nil {
			return 0, fmt.Errorf("sysfs: reading CPU frequency: %w", err)
		}
		return uint32(v) * 1000, nil // scaling_cur_freq is in kHz
	case sysclk.ModuleGPU, sysclk.ModuleMEM:
		path := b.devfreqPath[module]
		if path == "" {
			return 0, fmt.Errorf("sysfs: no devfreq device configured for %s", module)
		}
		v, err := readUint(filepath.Join(path, "cur_freq"))
		if err != nil {
			return 0, fmt.Errorf("sysfs: reading %s frequency: %w", module, err)
		}
		return uint32(v), nil // devfreq reports Hz directly
	default:
		return 0, fmt.Errorf("sysfs: unknown module %v", module)
	}
}

func (b *Board) SetHz(module sysclk.Module, hz uint32) error {
	switch module {
	case sysclk.ModuleCPU:
		path := filepath.Join(b.cpuFreqPath, "scaling_setspeed")
		if err := writeFile(path, []byte(strconv.FormatUint(uint64(hz/1000), 10))); err != nil {
			return fmt.Errorf("sysfs: setting CPU frequency: %w", err)
		}
		return nil
	case sysclk.ModuleGPU, sysclk.ModuleMEM:
		path := b.devfreqPath[module]
		if path == "" {
			return fmt.Errorf("sysfs: no devfreq device configured for %s", module)
		}
		if err := writeFile(filepath.Join(path, "target_freq"), []byte(strconv.FormatUint(uint64(hz), 10))); err != nil {
			return fmt.Errorf("sysfs: setting %s frequency: %w", module, err)
		}
		return nil
	default:
		return fmt.Errorf("sysfs: unknown module %v", module)
	}
}

// GetRealHz has no independent PLL-counter path on generic Linux; it
// re-reads the same cached value cpufreq/devfreq reports.
func (b *Board) GetRealHz(module sysclk.Module) (uint32, error) {
	hz, err := b.GetHz(module)
	if err != nil {
		log.Debugf("sysfs: real frequency unavailable for %s: %v", module, err)
		return 0, nil
	}
	return hz, nil
}

func (b *Board) GetFreqList(module sysclk.Module) ([]uint32, error) {
	switch module {
	case sysclk.ModuleCPU:
		content, err := readFile(filepath.Join(b.cpuFreqPath, "scaling_available_frequencies"))
		if err != nil {
			return nil, fmt.Errorf("sysfs: reading CPU frequency list: %w", err)
		}
		return parseKhzList(string(content))
	case sysclk.ModuleGPU, sysclk.ModuleMEM:
		path := b.devfreqPath[module]
		if path == "" {
			return nil, fmt.Errorf("sysfs: no devfreq device configured for %s", module)
		}
		content, err := readFile(filepath.Join(path, "available_frequencies"))
		if err != nil {
			return nil, fmt.Errorf("sysfs: reading %s frequency list: %w", module, err)
		}
		return parseHzList(string(content))
	default:
		return nil, fmt.Errorf("sysfs: unknown module %v", module)
	}
}

func parseKhzList(content string) ([]uint32, error) {
	fields := strings.Fields(content)
	out := make([]uint32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sysfs: parsing frequency list entry %q: %w", f, err)
		}
		out = append(out, uint32(v*1000))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func parseHzList(content string) ([]uint32, error) {
	fields := strings.Fields(content)
	out := make([]uint32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sysfs: parsing frequency list entry %q: %w", f, err)
		}
		out = append(out, uint32(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// GetProfile has no generic-Linux equivalent to the Switch's apm/psm
// services; it always reports Handheld. Embedders that have a real
// docked/charger signal should wrap Board and override this behavior.
func (b *Board) GetProfile() (sysclk.Profile, error) {
	return sysclk.ProfileHandheld, nil
}

func (b *Board) GetTemperatureMilli(sensor sysclk.ThermalSensor) (uint32, error) {
	zone, err := b.resolveThermalZone(sensor)
	if err != nil {
		return 0, nil //nolint:nilerr // missing sensor saturates at 0, per design.
	}
	v, err := readInt(filepath.Join(zone, "temp"))
	if err != nil {
		return 0, fmt.Errorf("sysfs: reading temperature for %s: %w", sensor, err)
	}
	if v < 0 {
		return 0, nil
	}
	return uint32(v), nil
}

func (b *Board) resolveThermalZone(sensor sysclk.ThermalSensor) (string, error) {
	wantType := b.thermalZone[sensor]
	if wantType == "" {
		return "", fmt.Errorf("sysfs: no thermal zone type configured for %s", sensor)
	}
	entries, err := os.ReadDir(b.thermalBase)
	if err != nil {
		return "", fmt.Errorf("sysfs: listing thermal zones: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "thermal_zone") {
			continue
		}
		zonePath := filepath.Join(b.thermalBase, e.Name())
		content, err := readFile(filepath.Join(zonePath, "type"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(content)) == wantType {
			return zonePath, nil
		}
	}
	return "", fmt.Errorf("sysfs: no thermal zone of type %q found", wantType)
}

func (b *Board) GetPowerMw(sensor sysclk.PowerSensor) (int32, error) {
	var file string
	switch sensor {
	case sysclk.PowerNow:
		file = "power_now"
	case sysclk.PowerAvg:
		file = "power_avg"
	default:
		return 0, fmt.Errorf("sysfs: unknown power sensor %v", sensor)
	}
	v, err := readInt(filepath.Join(b.powerSupply, file))
	if err != nil {
		// power_avg is commonly absent; fall back to the instantaneous reading.
		if sensor == sysclk.PowerAvg {
			return b.GetPowerMw(sysclk.PowerNow)
		}
		return 0, fmt.Errorf("sysfs: reading power for %s: %w", sensor, err)
	}
	return int32(v / 1000), nil // power_supply reports microwatts
}

func (b *Board) GetRAMLoad(sensor sysclk.RAMLoadSensor, pid int) (uint32, error) {
	switch sensor {
	case sysclk.RAMLoadAll:
		return readMeminfoLoad()
	case sysclk.RAMLoadCPU:
		return readProcessLoad(pid)
	default:
		return 0, fmt.Errorf("sysfs: unknown RAM load sensor %v", sensor)
	}
}

func readMeminfoLoad() (uint32, error) {
	content, err := readFile("/proc/meminfo")
	if err != nil {
		return 0, fmt.Errorf("sysfs: reading /proc/meminfo: %w", err)
	}
	var total, available uint64
	for _, line := range strings.Split(string(content), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			total = v
		case "MemAvailable":
			available = v
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("sysfs: MemTotal missing from /proc/meminfo")
	}
	used := total - available
	return uint32(used * 100 / total), nil
}

func readProcessLoad(pid int) (uint32, error) {
	if pid <= 0 {
		return 0, nil
	}
	content, err := readFile(fmt.Sprintf("/proc/%d/statm", pid))
	if err != nil {
		return 0, nil //nolint:nilerr // unresolved PID is best-effort per design.
	}
	fields := strings.Fields(string(content))
	if len(fields) < 2 {
		return 0, nil
	}
	totalPages, err1 := strconv.ParseUint(fields[0], 10, 64)
	residentPages, err2 := strconv.ParseUint(fields[1], 10, 64)
	if err1 != nil || err2 != nil || totalPages == 0 {
		return 0, nil
	}
	return uint32(residentPages * 100 / totalPages), nil
}

func (b *Board) ResetToStock() error {
	for _, m := range sysclk.Modules {
		if b.stockHz[m] == 0 {
			continue
		}
		if err := b.SetHz(m, b.stockHz[m]); err != nil {
			return fmt.Errorf("sysfs: resetting %s to stock: %w", m, err)
		}
	}
	return nil
}

func (b *Board) GetSocType() (sysclk.SocType, error) {
	return b.socType, nil
}

// SPDX-License-Identifier: Apache-2.0

// Package board defines the external hardware-driver collaborator the
// core consumes: clock session, thermal/power/RAM-load sensors and the
// performance-mode probe (the process probe is manager.ProcessProbe). Everything in this package is out of the core's
// scope per design; the core only depends on the Driver interface.
package board

import "github.com/retronx-team/sys-clk-sub000/internal/sysclk"

// Driver is the capability set the clock manager and frequency table
// consume from the vendor clock/thermal/power services. Every method may
// block on a round-trip to the underlying service; any error is fatal to
// the daemon.
type Driver interface {
	// GetHz reads the hardware's currently commanded frequency for module.
	GetHz(module sysclk.Module) (uint32, error)

	// SetHz commands module to hz. Blocks until acknowledged.
	SetHz(module sysclk.Module, hz uint32) error

	// GetRealHz reads the effective running frequency via a secondary path
	// (e.g. a PLL counter). May return 0 if the path is unavailable.
	GetRealHz(module sysclk.Module) (uint32, error)

	// GetFreqList enumerates module's discrete supported frequencies in
	// vendor order.
	GetFreqList(module sysclk.Module) ([]uint32, error)

	// GetProfile reads the performance mode and charger type and returns
	// the derived Profile.
	GetProfile() (sysclk.Profile, error)

	// GetTemperatureMilli reads sensor in millicelsius.
	GetTemperatureMilli(sensor sysclk.ThermalSensor) (uint32, error)

	// GetPowerMw reads sensor in milliwatts; negative values mean
	// discharging.
	GetPowerMw(sensor sysclk.PowerSensor) (int32, error)

	// GetRAMLoad reads sensor as a 0-100 percentage.
	GetRAMLoad(sensor sysclk.RAMLoadSensor, pid int) (uint32, error)

	// ResetToStock restores the vendor's default frequency triple for the
	// currently active performance configuration.
	ResetToStock() error

	// GetSocType is read once at init and affects the GPU cap table.
	GetSocType() (sysclk.SocType, error)
}

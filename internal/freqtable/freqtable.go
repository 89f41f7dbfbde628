// SPDX-License-Identifier: Apache-2.0

// Package freqtable holds the per-module cache of assignable hardware
// frequencies, the is-assignable filters, the safety cap table and the
// nearest-Hz quantizer. Grounded on the teacher's small, single-purpose
// reader types (cpufreq.go, uncorefreq.go) generalized to a shared,
// module-indexed table instead of one struct per metric.
package freqtable

import (
	"fmt"

	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

// gpuHandheldCapHz is the SoC-family-dependent handheld GPU cap.
var gpuHandheldCapHz = map[sysclk.SocType]uint32{
	sysclk.SocErista: 460800000,
	sysclk.SocMariko: 614400000,
}

// gpuUSBChargingCapHz is the flat GPU cap while charging over USB.
const gpuUSBChargingCapHz uint32 = 768000000

// IsAssignable reports whether hz passes module's minimum-frequency filter,
// exactly as specified for the frequency table's init-time filtering.
func IsAssignable(module sysclk.Module, hz uint32) bool {
	switch module {
	case sysclk.ModuleCPU:
		return hz >= 612000000
	case sysclk.ModuleMEM:
		return hz == 204000000 || hz >= 665600000
	case sysclk.ModuleGPU:
		return true
	default:
		return false
	}
}

// MaxAllowedHz returns the safety cap in Hz for module under profile, or 0
// if there is no cap. Only GPU is ever capped.
func MaxAllowedHz(module sysclk.Module, profile sysclk.Profile, soc sysclk.SocType) uint32 {
	if module != sysclk.ModuleGPU {
		return 0
	}
	switch {
	case profile < sysclk.ProfileHandheldChargingUSB:
		return gpuHandheldCapHz[soc]
	case profile <= sysclk.ProfileHandheldChargingUSB:
		return gpuUSBChargingCapHz
	default:
		return 0
	}
}

// FreqEnumerator is the subset of the board driver the table needs at init:
// enumerate the hardware's discrete supported frequencies for a module.
type FreqEnumerator interface {
	GetFreqList(module sysclk.Module) ([]uint32, error)
}

// Table is the per-module cache of assignable frequencies, populated once
// at startup and never refreshed (the hardware list is immutable per boot).
type Table struct {
	entries [3][]uint32
}

// Build enumerates board's frequency lists for every module and retains the
// assignable subset, in ascending hardware-reported order, capped at
// sysclk.FreqListMax entries per module.
func Build(board FreqEnumerator) (*Table, error) {
	t := &Table{}
	for _, m := range sysclk.Modules {
		raw, err := board.GetFreqList(m)
		if err != nil {
			return nil, fmt.Errorf("freqtable: enumerating %s: %w", m, err)
		}
		var kept []uint32
		for _, hz := range raw {
			if !IsAssignable(m, hz) {
				continue
			}
			kept = append(kept, hz)
			if len(kept) == sysclk.FreqListMax {
				break
			}
		}
		t.entries[m] = kept
	}
	return t, nil
}

// List returns the assignable frequency list for module, ascending.
func (t *Table) List(module sysclk.Module) []uint32 {
	return t.entries[module]
}

// NearestHz walks the table for module in ascending order and returns the
// nearest assignable entry to inHz, honoring cap-first semantics: a nonzero
// maxHz short-circuits at the first entry that meets the cap, even if a
// closer unmapped value would otherwise have won. Returns 0 if the table is
// empty (only possible if the board reports nothing assignable for module).
func (t *Table) NearestHz(module sysclk.Module, inHz, maxHz uint32) uint32 {
	entries := t.entries[module]
	if len(entries) == 0 {
		return 0
	}
	for i, cur := range entries {
		if maxHz > 0 && cur >= maxHz {
			return cur
		}
		if i == len(entries)-1 {
			return cur
		}
		next := entries[i+1]
		// 64-bit widened midpoint comparison avoids overflow for Hz-scale values.
		// Strict "<" so an exact midpoint rounds to the higher entry.
		if uint64(inHz) < (uint64(cur)+uint64(next))/2 {
			return cur
		}
	}
	return entries[len(entries)-1]
}

// SPDX-License-Identifier: Apache-2.0

package sysfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

func testBoard() *Board {
	b := New(
		WithCPUFreqPath("testdata/cpufreq"),
		WithThermalBasePath("testdata/thermal"),
		WithThermalZoneType(sysclk.ThermalSOC, "soc-thermal"),
		WithThermalZoneType(sysclk.ThermalSkin, "skin-thermal"),
		WithPowerSupply("battery"),
	)
	b.devfreqPath[sysclk.ModuleGPU] = "testdata/devfreq-gpu"
	b.powerSupply = "testdata/power/battery"
	return b
}

func TestGetHz(t *testing.T) {
	b := testBoard()

	hz, err := b.GetHz(sysclk.ModuleCPU)
	require.NoError(t, err)
	require.Equal(t, uint32(1200000000), hz)

	hz, err = b.GetHz(sysclk.ModuleGPU)
	require.NoError(t, err)
	require.Equal(t, uint32(307200000), hz)

	_, err = b.GetHz(sysclk.ModuleMEM)
	require.Error(t, err)
}

func TestGetFreqList(t *testing.T) {
	b := testBoard()

	list, err := b.GetFreqList(sysclk.ModuleCPU)
	require.NoError(t, err)
	require.Equal(t, []uint32{612000000, 714000000, 816000000, 918000000, 1020000000}, list)

	list, err = b.GetFreqList(sysclk.ModuleGPU)
	require.NoError(t, err)
	require.Equal(t, []uint32{76800000, 153600000, 230400000, 307200000, 460800000}, list)
}

func TestGetTemperatureMilli(t *testing.T) {
	b := testBoard()

	milli, err := b.GetTemperatureMilli(sysclk.ThermalSOC)
	require.NoError(t, err)
	require.Equal(t, uint32(42000), milli)

	milli, err = b.GetTemperatureMilli(sysclk.ThermalSkin)
	require.NoError(t, err)
	require.Equal(t, uint32(35500), milli)

	// PCB has no configured zone type: saturates at 0, no error.
	milli, err = b.GetTemperatureMilli(sysclk.ThermalPCB)
	require.NoError(t, err)
	require.Zero(t, milli)
}

func TestGetPowerMw(t *testing.T) {
	b := testBoard()

	mw, err := b.GetPowerMw(sysclk.PowerNow)
	require.NoError(t, err)
	require.Equal(t, int32(1500), mw)

	// power_avg is absent in the fixture; falls back to power_now.
	mw, err = b.GetPowerMw(sysclk.PowerAvg)
	require.NoError(t, err)
	require.Equal(t, int32(1500), mw)
}

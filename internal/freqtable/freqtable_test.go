// SPDX-License-Identifier: Apache-2.0

package freqtable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

type fakeEnumerator struct {
	lists map[sysclk.Module][]uint32
	err   error
}

func (f *fakeEnumerator) GetFreqList(module sysclk.Module) ([]uint32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.lists[module], nil
}

func TestBuild(t *testing.T) {
	testCases := []struct {
		name     string
		lists    map[sysclk.Module][]uint32
		err      error
		expected map[sysclk.Module][]uint32
	}{
		{
			name: "filters below CPU minimum and keeps GPU and MEM rules",
			lists: map[sysclk.Module][]uint32{
				sysclk.ModuleCPU: {204000000, 612000000, 714000000},
				sysclk.ModuleGPU: {76800000, 153600000},
				sysclk.ModuleMEM: {204000000, 665600000, 800000000, 400000000},
			},
			expected: map[sysclk.Module][]uint32{
				sysclk.ModuleCPU: {612000000, 714000000},
				sysclk.ModuleGPU: {76800000, 153600000},
				sysclk.ModuleMEM: {204000000, 665600000, 800000000},
			},
		},
		{
			name: "single element table",
			lists: map[sysclk.Module][]uint32{
				sysclk.ModuleCPU: {612000000},
				sysclk.ModuleGPU: {76800000},
				sysclk.ModuleMEM: {204000000},
			},
			expected: map[sysclk.Module][]uint32{
				sysclk.ModuleCPU: {612000000},
				sysclk.ModuleGPU: {76800000},
				sysclk.ModuleMEM: {204000000},
			},
		},
		{
			name: "enumerator error is fatal",
			err:  errors.New("clkrst: no session"),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := Build(&fakeEnumerator{lists: tc.lists, err: tc.err})
			if tc.err != nil {
				require.Error(t, err)
				require.ErrorContains(t, err, tc.err.Error())
				return
			}
			require.NoError(t, err)
			for _, m := range sysclk.Modules {
				require.Equal(t, tc.expected[m], table.List(m), "module %s", m)
			}
		})
	}
}

func TestNearestHz(t *testing.T) {
	table := &Table{}
	table.entries[sysclk.ModuleGPU] = []uint32{76800000, 153600000, 230400000, 307200000, 460800000, 614400000, 768000000, 921600000}
	table.entries[sysclk.ModuleCPU] = []uint32{612000000}

	testCases := []struct {
		name     string
		module   sysclk.Module
		inHz     uint32
		maxHz    uint32
		expected uint32
	}{
		{"in_hz zero returns smallest entry", sysclk.ModuleGPU, 0, 0, 76800000},
		{"exact match", sysclk.ModuleGPU, 307200000, 0, 307200000},
		{"midpoint rounds to higher entry", sysclk.ModuleGPU, 268800000, 0, 307200000},
		{"above last entry clamps to last", sysclk.ModuleGPU, 2_000_000_000, 0, 921600000},
		{"cap between two entries returns first entry at or above cap", sysclk.ModuleGPU, 921600000, 500000000, 614400000},
		{"single element table always returns it", sysclk.ModuleCPU, 999000000, 0, 612000000},
		{"single element table ignores cap below it", sysclk.ModuleCPU, 0, 1, 612000000},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := table.NearestHz(tc.module, tc.inHz, tc.maxHz)
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestNearestHz_Monotone(t *testing.T) {
	table := &Table{}
	table.entries[sysclk.ModuleGPU] = []uint32{76800000, 153600000, 230400000, 307200000, 460800000, 614400000, 768000000, 921600000}

	var prev uint32
	for in := uint32(0); in <= 1_000_000_000; in += 1_000_000 {
		got := table.NearestHz(sysclk.ModuleGPU, in, 0)
		require.GreaterOrEqual(t, got, prev)
		require.Contains(t, table.entries[sysclk.ModuleGPU], got)
		prev = got
	}
}

func TestMaxAllowedHz(t *testing.T) {
	testCases := []struct {
		name     string
		module   sysclk.Module
		profile  sysclk.Profile
		soc      sysclk.SocType
		expected uint32
	}{
		{"CPU is never capped", sysclk.ModuleCPU, sysclk.ProfileHandheld, sysclk.SocMariko, 0},
		{"MEM is never capped", sysclk.ModuleMEM, sysclk.ProfileDocked, sysclk.SocMariko, 0},
		{"GPU handheld Mariko", sysclk.ModuleGPU, sysclk.ProfileHandheld, sysclk.SocMariko, 614400000},
		{"GPU handheld Erista", sysclk.ModuleGPU, sysclk.ProfileHandheld, sysclk.SocErista, 460800000},
		{"GPU handheld charging generic", sysclk.ModuleGPU, sysclk.ProfileHandheldCharging, sysclk.SocMariko, 614400000},
		{"GPU USB charging", sysclk.ModuleGPU, sysclk.ProfileHandheldChargingUSB, sysclk.SocMariko, 768000000},
		{"GPU official charging uncapped", sysclk.ModuleGPU, sysclk.ProfileHandheldChargingOfficial, sysclk.SocMariko, 0},
		{"GPU docked uncapped", sysclk.ModuleGPU, sysclk.ProfileDocked, sysclk.SocMariko, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := MaxAllowedHz(tc.module, tc.profile, tc.soc)
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestIsAssignable(t *testing.T) {
	require.True(t, IsAssignable(sysclk.ModuleCPU, 612000000))
	require.False(t, IsAssignable(sysclk.ModuleCPU, 611999999))
	require.True(t, IsAssignable(sysclk.ModuleMEM, 204000000))
	require.False(t, IsAssignable(sysclk.ModuleMEM, 400000000))
	require.True(t, IsAssignable(sysclk.ModuleMEM, 665600000))
	require.True(t, IsAssignable(sysclk.ModuleGPU, 1))
}

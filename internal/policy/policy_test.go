// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

type fakeStore struct {
	values map[[3]interface{}]uint32
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[[3]interface{}]uint32{}}
}

func (f *fakeStore) set(appID uint64, profile sysclk.Profile, module sysclk.Module, mhz uint32) {
	f.values[[3]interface{}{appID, profile, module}] = mhz
}

func (f *fakeStore) ClockMhz(appID uint64, profile sysclk.Profile, module sysclk.Module) uint32 {
	return f.values[[3]interface{}{appID, profile, module}]
}

func TestAutoClockHz(t *testing.T) {
	const appID = uint64(0x0100000000ABCDEF)

	t.Run("scenario B: profile fallback from handheld to USB charging", func(t *testing.T) {
		store := newFakeStore()
		store.set(appID, sysclk.ProfileHandheld, sysclk.ModuleGPU, 307)
		r := New(store)

		got := r.AutoClockHz(appID, sysclk.ModuleGPU, sysclk.ProfileHandheldChargingUSB)
		require.Equal(t, uint32(307_000_000), got)
	})

	t.Run("more specific profile wins over fallback", func(t *testing.T) {
		store := newFakeStore()
		store.set(appID, sysclk.ProfileHandheld, sysclk.ModuleGPU, 307)
		store.set(appID, sysclk.ProfileHandheldChargingUSB, sysclk.ModuleGPU, 460)
		r := New(store)

		got := r.AutoClockHz(appID, sysclk.ModuleGPU, sysclk.ProfileHandheldChargingUSB)
		require.Equal(t, uint32(460_000_000), got)
	})

	t.Run("no entry anywhere in chain returns zero", func(t *testing.T) {
		store := newFakeStore()
		r := New(store)

		got := r.AutoClockHz(appID, sysclk.ModuleCPU, sysclk.ProfileDocked)
		require.Zero(t, got)
	})

	t.Run("docked and handheld chains do not leak into each other", func(t *testing.T) {
		store := newFakeStore()
		store.set(appID, sysclk.ProfileDocked, sysclk.ModuleCPU, 1785)
		r := New(store)

		require.Equal(t, uint32(1_785_000_000), r.AutoClockHz(appID, sysclk.ModuleCPU, sysclk.ProfileDocked))
		require.Zero(t, r.AutoClockHz(appID, sysclk.ModuleCPU, sysclk.ProfileHandheld))
	})

	t.Run("handheld_charging_official falls back through generic charging then handheld", func(t *testing.T) {
		store := newFakeStore()
		store.set(appID, sysclk.ProfileHandheldCharging, sysclk.ModuleCPU, 1224)
		r := New(store)

		got := r.AutoClockHz(appID, sysclk.ModuleCPU, sysclk.ProfileHandheldChargingOfficial)
		require.Equal(t, uint32(1_224_000_000), got)
	})
}

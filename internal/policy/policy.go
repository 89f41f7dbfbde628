// SPDX-License-Identifier: Apache-2.0

// Package policy implements the (application_id, profile, module) -> target
// Hz resolution, including the profile fallback chains.
package policy

import "github.com/retronx-team/sys-clk-sub000/internal/sysclk"

// fallbackChains gives, for each queried profile, the ordered list of
// profiles to probe in the config store (high to low priority); the first
// non-zero entry wins.
var fallbackChains = map[sysclk.Profile][]sysclk.Profile{
	sysclk.ProfileHandheld: {sysclk.ProfileHandheld},
	sysclk.ProfileHandheldCharging: {
		sysclk.ProfileHandheldChargingUSB,
		sysclk.ProfileHandheldCharging,
		sysclk.ProfileHandheld,
	},
	sysclk.ProfileHandheldChargingUSB: {
		sysclk.ProfileHandheldChargingUSB,
		sysclk.ProfileHandheldCharging,
		sysclk.ProfileHandheld,
	},
	sysclk.ProfileHandheldChargingOfficial: {
		sysclk.ProfileHandheldChargingOfficial,
		sysclk.ProfileHandheldCharging,
		sysclk.ProfileHandheld,
	},
	sysclk.ProfileDocked: {sysclk.ProfileDocked},
}

// ProfileStore is the subset of the config store the resolver reads.
type ProfileStore interface {
	// ClockMhz returns the stored MHz value for (appID, profile, module), or
	// 0 if there is no entry.
	ClockMhz(appID uint64, profile sysclk.Profile, module sysclk.Module) uint32
}

// Resolver resolves target clock frequencies from a ProfileStore.
type Resolver struct {
	store ProfileStore
}

// New builds a Resolver over store.
func New(store ProfileStore) *Resolver {
	return &Resolver{store: store}
}

// AutoClockHz returns the resolved target Hz for (appID, module, profile),
// or 0 if no entry exists anywhere in the fallback chain ("do not override
// the platform default").
func (r *Resolver) AutoClockHz(appID uint64, module sysclk.Module, profile sysclk.Profile) uint32 {
	for _, candidate := range fallbackChains[profile] {
		mhz := r.store.ClockMhz(appID, candidate, module)
		if mhz != 0 {
			return mhz * 1_000_000
		}
	}
	return 0
}

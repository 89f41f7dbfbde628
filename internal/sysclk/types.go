// SPDX-License-Identifier: Apache-2.0

// Package sysclk holds the small finite enums and the Context snapshot
// shared by every core component: frequency table, policy resolver,
// config store, clock manager, telemetry sink and IPC service.
package sysclk

import "fmt"

// Module is a clockable SoC subsystem exposed by the board driver.
type Module int

const (
	ModuleCPU Module = iota
	ModuleGPU
	ModuleMEM
)

// Modules lists every Module in declaration order; every per-module table
// is indexed by this order.
var Modules = [...]Module{ModuleCPU, ModuleGPU, ModuleMEM}

// Code returns the lowercase canonical name used in INI keys and CSV headers.
func (m Module) Code() string {
	switch m {
	case ModuleCPU:
		return "cpu"
	case ModuleGPU:
		return "gpu"
	case ModuleMEM:
		return "mem"
	default:
		return "unknown"
	}
}

func (m Module) String() string {
	switch m {
	case ModuleCPU:
		return "CPU"
	case ModuleGPU:
		return "GPU"
	case ModuleMEM:
		return "MEM"
	default:
		return fmt.Sprintf("Module(%d)", int(m))
	}
}

// Valid reports whether m is one of the three declared modules.
func (m Module) Valid() bool {
	return m >= ModuleCPU && m <= ModuleMEM
}

// ModuleFromCode parses a code returned by Module.Code.
func ModuleFromCode(code string) (Module, bool) {
	for _, m := range Modules {
		if m.Code() == code {
			return m, true
		}
	}
	return 0, false
}

// Profile is the derived power state governing policy lookup and the
// safety cap. Declared in the fallback-chain precedence order used when
// resolving policy entries.
type Profile int

const (
	ProfileHandheld Profile = iota
	ProfileHandheldCharging
	ProfileHandheldChargingUSB
	ProfileHandheldChargingOfficial
	ProfileDocked
)

// Profiles lists every Profile in declaration order.
var Profiles = [...]Profile{
	ProfileHandheld,
	ProfileHandheldCharging,
	ProfileHandheldChargingUSB,
	ProfileHandheldChargingOfficial,
	ProfileDocked,
}

// Code returns the lowercase canonical name used in INI keys.
func (p Profile) Code() string {
	switch p {
	case ProfileHandheld:
		return "handheld"
	case ProfileHandheldCharging:
		return "handheld_charging"
	case ProfileHandheldChargingUSB:
		return "handheld_charging_usb"
	case ProfileHandheldChargingOfficial:
		return "handheld_charging_official"
	case ProfileDocked:
		return "docked"
	default:
		return "unknown"
	}
}

func (p Profile) String() string {
	switch p {
	case ProfileHandheld:
		return "Handheld"
	case ProfileHandheldCharging:
		return "HandheldCharging"
	case ProfileHandheldChargingUSB:
		return "HandheldChargingUSB"
	case ProfileHandheldChargingOfficial:
		return "HandheldChargingOfficial"
	case ProfileDocked:
		return "Docked"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// Valid reports whether p is one of the five declared profiles.
func (p Profile) Valid() bool {
	return p >= ProfileHandheld && p <= ProfileDocked
}

// ProfileFromCode parses a code returned by Profile.Code.
func ProfileFromCode(code string) (Profile, bool) {
	for _, p := range Profiles {
		if p.Code() == code {
			return p, true
		}
	}
	return 0, false
}

// ChargerType is one of the two inputs (together with docked/handheld)
// that determine Profile.
type ChargerType int

const (
	ChargerNone ChargerType = iota
	ChargerUSB
	ChargerOfficial
)

// DeriveProfile maps (docked, charger) to a Profile exactly as the board's
// performance-mode and charger-type probes would.
func DeriveProfile(docked bool, charger ChargerType) Profile {
	if docked {
		return ProfileDocked
	}
	switch charger {
	case ChargerUSB:
		return ProfileHandheldChargingUSB
	case ChargerOfficial:
		return ProfileHandheldChargingOfficial
	default:
		return ProfileHandheld
	}
}

// ThermalSensor identifies a temperature probe.
type ThermalSensor int

const (
	ThermalSOC ThermalSensor = iota
	ThermalPCB
	ThermalSkin
)

var ThermalSensors = [...]ThermalSensor{ThermalSOC, ThermalPCB, ThermalSkin}

func (s ThermalSensor) Code() string {
	switch s {
	case ThermalSOC:
		return "soc"
	case ThermalPCB:
		return "pcb"
	case ThermalSkin:
		return "skin"
	default:
		return "unknown"
	}
}

func (s ThermalSensor) String() string {
	switch s {
	case ThermalSOC:
		return "SOC"
	case ThermalPCB:
		return "PCB"
	case ThermalSkin:
		return "Skin"
	default:
		return fmt.Sprintf("ThermalSensor(%d)", int(s))
	}
}

// PowerSensor identifies a power reading.
type PowerSensor int

const (
	PowerNow PowerSensor = iota
	PowerAvg
)

var PowerSensors = [...]PowerSensor{PowerNow, PowerAvg}

func (s PowerSensor) Code() string {
	switch s {
	case PowerNow:
		return "now"
	case PowerAvg:
		return "avg"
	default:
		return "unknown"
	}
}

func (s PowerSensor) String() string {
	switch s {
	case PowerNow:
		return "Now"
	case PowerAvg:
		return "Avg"
	default:
		return fmt.Sprintf("PowerSensor(%d)", int(s))
	}
}

// RAMLoadSensor identifies a memory-load reading, restored from the
// original SysClkRamLoad enum dropped by the distilled spec.
type RAMLoadSensor int

const (
	RAMLoadAll RAMLoadSensor = iota
	RAMLoadCPU
)

var RAMLoadSensors = [...]RAMLoadSensor{RAMLoadAll, RAMLoadCPU}

func (s RAMLoadSensor) Code() string {
	switch s {
	case RAMLoadAll:
		return "all"
	case RAMLoadCPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// SocType distinguishes SoC families with different GPU handheld caps.
type SocType int

const (
	SocErista SocType = iota
	SocMariko
)

func (s SocType) String() string {
	switch s {
	case SocErista:
		return "Erista"
	case SocMariko:
		return "Mariko"
	default:
		return fmt.Sprintf("SocType(%d)", int(s))
	}
}

// FreqListMax bounds the length of any per-module frequency table, mirroring
// SYSCLK_FREQ_LIST_MAX in the original board header.
const FreqListMax = 32

// Context is the single observable snapshot of the system, copied under the
// manager's context mutex on every read.
type Context struct {
	Enabled       bool
	ApplicationID uint64
	Profile       Profile
	Freqs         [3]uint32
	RealFreqs     [3]uint32
	OverrideFreqs [3]uint32
	Temps         [3]uint32
	Power         [2]int32
	RAMLoad       [2]uint32
}

// Clone returns a value copy of ctx. Array fields copy by value already;
// Clone exists so call sites read intent rather than relying on that fact.
func (c Context) Clone() Context {
	return c
}

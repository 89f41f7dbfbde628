// SPDX-License-Identifier: Apache-2.0

// Package config implements the INI-backed configuration store: per-app
// per-profile per-module MHz entries, global tunables, runtime-only enabled
// flag and overrides, live reload via mtime polling, and atomic persistence.
// Grounded on the teacher's file-reading helpers (file.go) for the mtime
// check and on gopkg.in/ini.v1 for parsing/serialization instead of a
// hand-rolled INI walker.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"gopkg.in/ini.v1"

	"github.com/retronx-team/sys-clk-sub000/internal/log"
	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

const valuesSectionName = "values"

// Value identifies one global tunable in ConfigValueList.
type Value int

const (
	ValueCsvWriteIntervalMs Value = iota
	ValueTempLogIntervalMs
	ValueFreqLogIntervalMs
	ValuePowerLogIntervalMs
	ValuePollingIntervalMs
)

var valueKeys = map[Value]string{
	ValueCsvWriteIntervalMs: "csv_write_interval_ms",
	ValueTempLogIntervalMs:  "temp_log_interval_ms",
	ValueFreqLogIntervalMs:  "freq_log_interval_ms",
	ValuePowerLogIntervalMs: "power_log_interval_ms",
	ValuePollingIntervalMs:  "polling_interval_ms",
}

// defaultPollingIntervalMs is the vendor-chosen default cadence.
const defaultPollingIntervalMs = 300

func defaultFor(v Value) uint64 {
	if v == ValuePollingIntervalMs {
		return defaultPollingIntervalMs
	}
	return 0
}

// isValid enforces each value's documented constraint: every interval may
// be 0 (disabled) except the polling interval, which must be > 0.
func isValid(v Value, val uint64) bool {
	if v == ValuePollingIntervalMs {
		return val > 0
	}
	return true
}

// ConfigValueList is the set of global tunables, keyed by Value.
type ConfigValueList [5]uint64

// Default returns a ConfigValueList with every entry at its default.
func Default() ConfigValueList {
	var l ConfigValueList
	for v := ValueCsvWriteIntervalMs; v <= ValuePollingIntervalMs; v++ {
		l[v] = defaultFor(v)
	}
	return l
}

// TitleProfileList is a 5x3 matrix of MHz values, profile x module; 0 means
// "no entry at this cell".
type TitleProfileList [5][3]uint32

type profileKey struct {
	appID   uint64
	profile sysclk.Profile
	module  sysclk.Module
}

// Store is the INI-backed configuration store.
type Store struct {
	path string

	profileMu    sync.RWMutex
	profileMap   map[profileKey]uint32
	profileCount map[uint64]int
	values       ConfigValueList

	overrideMu sync.RWMutex
	overrides  [3]uint32

	loadMu sync.Mutex
	mtime  time.Time
	loaded bool

	enabledMu sync.RWMutex
	enabled   bool
}

// New builds an unloaded Store over the INI file at path. Call Refresh (or
// let the manager's first Tick do so) to load it.
func New(path string) *Store {
	return &Store{
		path:         path,
		profileMap:   make(map[profileKey]uint32),
		profileCount: make(map[uint64]int),
		values:       Default(),
	}
}

// HasLoaded reports whether the INI file has ever been successfully found
// and parsed.
func (s *Store) HasLoaded() bool {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.loaded
}

// Refresh reloads the store if the file's mtime has changed (or it has
// never been loaded). Returns whether a reload occurred. Parse failures are
// logged and leave the store in its previous state rather than propagating
// an error, matching the "silently handled" config failure class.
func (s *Store) Refresh() bool {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	info, statErr := os.Stat(s.path)
	if statErr != nil {
		if !s.loaded {
			log.Errorf("config: %v", statErr)
		}
		return false
	}
	if s.loaded && info.ModTime().Equal(s.mtime) {
		return false
	}
	if err := s.load(info.ModTime()); err != nil {
		log.Errorf("config: %v", err)
		return false
	}
	return true
}

// load parses the INI file. Must be called with loadMu held.
func (s *Store) load(mtime time.Time) error {
	file, err := ini.Load(s.path)
	if err != nil {
		return fmt.Errorf("config: parsing %q: %w", s.path, err)
	}

	profileMap := make(map[profileKey]uint32)
	profileCount := make(map[uint64]int)
	values := Default()

	for _, section := range file.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		if name == valuesSectionName {
			parseValues(section, &values)
			continue
		}
		appID, ok := parseAppID(name)
		if !ok {
			log.Errorf("config: section %q is not a valid 16-hex application id, skipping", name)
			continue
		}
		for _, key := range section.Keys() {
			profile, module, ok := parseProfileModuleKey(key.Name())
			if !ok {
				log.Errorf("config: key %q in section %q is not recognized, skipping", key.Name(), name)
				continue
			}
			mhz, err := strconv.ParseUint(key.Value(), 10, 32)
			if err != nil || mhz == 0 {
				log.Errorf("config: value %q for key %q in section %q is invalid, skipping", key.Value(), key.Name(), name)
				continue
			}
			profileMap[profileKey{appID, profile, module}] = uint32(mhz)
			profileCount[appID]++
		}
	}

	s.profileMu.Lock()
	s.profileMap = profileMap
	s.profileCount = profileCount
	s.values = values
	s.profileMu.Unlock()

	s.mtime = mtime
	s.loaded = true
	return nil
}

func parseValues(section *ini.Section, values *ConfigValueList) {
	for v, key := range valueKeys {
		raw, err := section.GetKey(key)
		if err != nil {
			continue
		}
		parsed, err := strconv.ParseUint(raw.Value(), 10, 64)
		if err != nil || !isValid(v, parsed) {
			log.Errorf("config: value %q for %q is invalid, using default", raw.Value(), key)
			continue
		}
		values[v] = parsed
	}
}

func parseAppID(section string) (uint64, bool) {
	if len(section) != 16 {
		return 0, false
	}
	appID, err := strconv.ParseUint(section, 16, 64)
	if err != nil || appID == 0 {
		return 0, false
	}
	return appID, true
}

func parseProfileModuleKey(key string) (sysclk.Profile, sysclk.Module, bool) {
	for _, p := range sysclk.Profiles {
		prefix := p.Code() + "_"
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			if m, ok := sysclk.ModuleFromCode(key[len(prefix):]); ok {
				return p, m, true
			}
		}
	}
	return 0, 0, false
}

// ClockMhz returns the stored MHz for (appID, profile, module), or 0.
// Implements policy.ProfileStore.
func (s *Store) ClockMhz(appID uint64, profile sysclk.Profile, module sysclk.Module) uint32 {
	s.profileMu.RLock()
	defer s.profileMu.RUnlock()
	return s.profileMap[profileKey{appID, profile, module}]
}

// GetProfiles fills out with all 15 cells for appID (0 where absent).
func (s *Store) GetProfiles(appID uint64) TitleProfileList {
	s.profileMu.RLock()
	defer s.profileMu.RUnlock()
	var out TitleProfileList
	for _, p := range sysclk.Profiles {
		for _, m := range sysclk.Modules {
			out[p][m] = s.profileMap[profileKey{appID, p, m}]
		}
	}
	return out
}

// ProfileCount returns the number of non-zero cells stored for appID.
func (s *Store) ProfileCount(appID uint64) int {
	s.profileMu.RLock()
	defer s.profileMu.RUnlock()
	return s.profileCount[appID]
}

// SetProfiles replaces all 15 (appID, profile, module) entries from list.
// If persist is true, the whole store is serialized back to the INI file
// atomically; an IO error leaves the file unchanged and returns false.
func (s *Store) SetProfiles(appID uint64, list TitleProfileList, persist bool) bool {
	s.profileMu.Lock()
	count := 0
	for _, p := range sysclk.Profiles {
		for _, m := range sysclk.Modules {
			key := profileKey{appID, p, m}
			if mhz := list[p][m]; mhz > 0 {
				s.profileMap[key] = mhz
				count++
			} else {
				delete(s.profileMap, key)
			}
		}
	}
	if count > 0 {
		s.profileCount[appID] = count
	} else {
		delete(s.profileCount, appID)
	}
	s.profileMu.Unlock()

	if !persist {
		return true
	}
	if err := s.save(); err != nil {
		log.Errorf("config: persisting profiles for %016x: %v", appID, err)
		return false
	}
	return true
}

// GetConfigValues returns a copy of the global tunables.
func (s *Store) GetConfigValues() ConfigValueList {
	s.profileMu.RLock()
	defer s.profileMu.RUnlock()
	return s.values
}

// SetConfigValues validates and stores values as a whole; an invalid entry
// rejects the entire call.
func (s *Store) SetConfigValues(values ConfigValueList, persist bool) bool {
	for v := ValueCsvWriteIntervalMs; v <= ValuePollingIntervalMs; v++ {
		if !isValid(v, values[v]) {
			return false
		}
	}
	s.profileMu.Lock()
	s.values = values
	s.profileMu.Unlock()

	if !persist {
		return true
	}
	if err := s.save(); err != nil {
		log.Errorf("config: persisting config values: %v", err)
		return false
	}
	return true
}

// save serializes the whole store back to s.path atomically: write to a
// temp file in the same directory, fsync, then rename over the original.
func (s *Store) save() error {
	s.profileMu.RLock()
	defer s.profileMu.RUnlock()

	file := ini.Empty()

	byApp := make(map[uint64]TitleProfileList)
	for k, mhz := range s.profileMap {
		list := byApp[k.appID]
		list[k.profile][k.module] = mhz
		byApp[k.appID] = list
	}
	appIDs := make([]uint64, 0, len(byApp))
	for id := range byApp {
		appIDs = append(appIDs, id)
	}
	sort.Slice(appIDs, func(i, j int) bool { return appIDs[i] < appIDs[j] })

	for _, appID := range appIDs {
		section, err := file.NewSection(fmt.Sprintf("%016x", appID))
		if err != nil {
			return fmt.Errorf("config: building section for %016x: %w", appID, err)
		}
		list := byApp[appID]
		for _, p := range sysclk.Profiles {
			for _, m := range sysclk.Modules {
				if mhz := list[p][m]; mhz > 0 {
					section.NewKey(p.Code()+"_"+m.Code(), strconv.FormatUint(uint64(mhz), 10))
				}
			}
		}
	}

	valuesSection, err := file.NewSection(valuesSectionName)
	if err != nil {
		return fmt.Errorf("config: building values section: %w", err)
	}
	for v := ValueCsvWriteIntervalMs; v <= ValuePollingIntervalMs; v++ {
		valuesSection.NewKey(valueKeys[v], strconv.FormatUint(s.values[v], 10))
	}

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("config: opening temp file %q: %w", tmpPath, err)
	}
	if _, err := file.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("config: writing temp file %q: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("config: syncing temp file %q: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("config: closing temp file %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("config: renaming temp file into place: %w", err)
	}
	return nil
}

// OverrideHz returns the runtime override for module, or 0.
func (s *Store) OverrideHz(module sysclk.Module) uint32 {
	s.overrideMu.RLock()
	defer s.overrideMu.RUnlock()
	return s.overrides[module]
}

// SetOverrideHz sets the runtime override for module; 0 clears it. Not
// persisted.
func (s *Store) SetOverrideHz(module sysclk.Module, hz uint32) {
	s.overrideMu.Lock()
	defer s.overrideMu.Unlock()
	s.overrides[module] = hz
}

// Enabled returns the runtime master switch.
func (s *Store) Enabled() bool {
	s.enabledMu.RLock()
	defer s.enabledMu.RUnlock()
	return s.enabled
}

// SetEnabled sets the runtime master switch. Not persisted.
func (s *Store) SetEnabled(enabled bool) {
	s.enabledMu.Lock()
	defer s.enabledMu.Unlock()
	s.enabled = enabled
}

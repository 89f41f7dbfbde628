// SPDX-License-Identifier: Apache-2.0

// Package telemetry implements the CSV context sink and the rate-limited,
// flag-gated text log, grounded on the original's file_utils.cpp (header
// format, 5-second flag-file recheck interval, empty-file header gating)
// and on the teacher's fake-clock injection pattern (clock.go) for
// deterministic interval tests.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmhodges/clock"

	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

// flagCheckInterval gates how often the log flag file's existence is
// rechecked, mirroring FILE_FLAG_CHECK_INTERVAL_NS in the original.
const flagCheckInterval = 5 * time.Second

// Sink owns the CSV file and the rate-limited log file.
type Sink struct {
	csvPath  string
	logPath  string
	flagPath string

	clk clock.Clock

	csvMu sync.Mutex

	logMu           sync.Mutex
	flagExists      bool
	lastFlagCheck   time.Time
	haveCheckedFlag bool
}

// New builds a Sink writing under dir (context.csv, log.txt, log.flag).
func New(dir string) *Sink {
	return &Sink{
		csvPath:  filepath.Join(dir, "context.csv"),
		logPath:  filepath.Join(dir, "log.txt"),
		flagPath: filepath.Join(dir, "log.flag"),
		clk:      clock.New(),
	}
}

// csvHeader lists the columns in the exact order the original emits them.
var csvHeader = buildCSVHeader()

func buildCSVHeader() string {
	cols := []string{"timestamp", "profile", "app_tid"}
	for _, m := range sysclk.Modules {
		cols = append(cols, m.Code()+"_hz")
	}
	for _, s := range sysclk.ThermalSensors {
		cols = append(cols, s.Code()+"_millic")
	}
	for _, m := range sysclk.Modules {
		cols = append(cols, m.Code()+"_real_hz")
	}
	for _, s := range sysclk.PowerSensors {
		cols = append(cols, s.Code()+"_mw")
	}
	for _, s := range sysclk.RAMLoadSensors {
		cols = append(cols, s.Code()+"_ram_load")
	}
	return strings.Join(cols, ",")
}

// WriteContextToCSV appends one row for ctx, emitting the header first if
// the file is currently empty.
func (s *Sink) WriteContextToCSV(ctx sysclk.Context) error {
	s.csvMu.Lock()
	defer s.csvMu.Unlock()

	f, err := os.OpenFile(s.csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("telemetry: opening csv file %q: %w", s.csvPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("telemetry: stating csv file %q: %w", s.csvPath, err)
	}
	if info.Size() == 0 {
		if _, err := f.WriteString(csvHeader + "\n"); err != nil {
			return fmt.Errorf("telemetry: writing csv header: %w", err)
		}
	}

	row := s.buildRow(ctx)
	if _, err := f.WriteString(row + "\n"); err != nil {
		return fmt.Errorf("telemetry: writing csv row: %w", err)
	}
	return nil
}

func (s *Sink) buildRow(ctx sysclk.Context) string {
	ts := s.clk.Now()
	millis := ts.Unix()*1000 + int64(ts.Nanosecond())/int64(time.Millisecond)

	fields := []string{
		fmt.Sprintf("%d", millis),
		ctx.Profile.Code(),
		fmt.Sprintf("%016x", ctx.ApplicationID),
	}
	for _, m := range sysclk.Modules {
		fields = append(fields, fmt.Sprintf("%d", ctx.Freqs[m]))
	}
	for _, sensor := range sysclk.ThermalSensors {
		fields = append(fields, fmt.Sprintf("%d", ctx.Temps[sensor]))
	}
	for _, m := range sysclk.Modules {
		fields = append(fields, fmt.Sprintf("%d", ctx.RealFreqs[m]))
	}
	for _, sensor := range sysclk.PowerSensors {
		fields = append(fields, fmt.Sprintf("%d", ctx.Power[sensor]))
	}
	for _, sensor := range sysclk.RAMLoadSensors {
		fields = append(fields, fmt.Sprintf("%d", ctx.RAMLoad[sensor]))
	}
	return strings.Join(fields, ",")
}

// LogLine appends a timestamp-prefixed line to the log file, but only if
// the flag file currently exists. The flag file's existence is itself
// rechecked at most once every flagCheckInterval.
func (s *Sink) LogLine(format string, args ...interface{}) error {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	now := s.clk.Now()
	if !s.haveCheckedFlag || now.Sub(s.lastFlagCheck) >= flagCheckInterval {
		_, err := os.Stat(s.flagPath)
		s.flagExists = err == nil
		s.lastFlagCheck = now
		s.haveCheckedFlag = true
	}
	if !s.flagExists {
		return nil
	}

	f, err := os.OpenFile(s.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("telemetry: opening log file %q: %w", s.logPath, err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s\n", now.Format("2006-01-02 15:04:05.000"), fmt.Sprintf(format, args...))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("telemetry: writing log line: %w", err)
	}
	return nil
}

// SetClock overrides the sink's time source; used by tests.
func (s *Sink) SetClock(c clock.Clock) {
	s.clk = c
}

// IntervalElapsed reports whether at least intervalMs milliseconds have
// passed since last (the zero time counts as "never"), and 0 disables the
// gate entirely (never elapsed). This is the shared helper behind every
// interval-gated telemetry action in the manager (CSV write, per-sensor log
// lines), mirroring ConfigIntervalTimeout in the original.
func IntervalElapsed(clk clock.Clock, last time.Time, intervalMs uint64) bool {
	if intervalMs == 0 {
		return false
	}
	if last.IsZero() {
		return true
	}
	return clk.Now().Sub(last) >= time.Duration(intervalMs)*time.Millisecond
}

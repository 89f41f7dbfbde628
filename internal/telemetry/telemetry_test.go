// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/require"

	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

func TestWriteContextToCSV_HeaderOnlyOnFirstWrite(t *testing.T) {
	dir := t.TempDir()
	sink := New(dir)
	fc := clock.NewFake()
	sink.SetClock(fc)

	ctx := sysclk.Context{
		ApplicationID: 0x0100000000ABCDEF,
		Profile:       sysclk.ProfileDocked,
		Freqs:         [3]uint32{1020000000, 768000000, 1600000000},
	}

	require.NoError(t, sink.WriteContextToCSV(ctx))
	fc.Add(time.Second)
	require.NoError(t, sink.WriteContextToCSV(ctx))

	content, err := os.ReadFile(filepath.Join(dir, "context.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, csvHeader, lines[0])
	require.Contains(t, lines[1], "0100000000abcdef")
	require.Contains(t, lines[1], "docked")
}

func TestLogLine_GatedByFlagFile(t *testing.T) {
	dir := t.TempDir()
	sink := New(dir)
	fc := clock.NewFake()
	sink.SetClock(fc)

	require.NoError(t, sink.LogLine("no flag yet"))
	_, err := os.Stat(filepath.Join(dir, "log.txt"))
	require.True(t, os.IsNotExist(err))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "log.flag"), nil, 0o644))
	// flag existence is cached until flagCheckInterval elapses
	require.NoError(t, sink.LogLine("still gated by cache"))
	_, err = os.Stat(filepath.Join(dir, "log.txt"))
	require.True(t, os.IsNotExist(err))

	fc.Add(flagCheckInterval)
	require.NoError(t, sink.LogLine("now visible"))
	content, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	require.NoError(t, err)
	require.Contains(t, string(content), "now visible")
	require.NotContains(t, string(content), "no flag yet")
}

func TestIntervalElapsed(t *testing.T) {
	fc := clock.NewFake()

	require.False(t, IntervalElapsed(fc, time.Time{}, 0))
	require.True(t, IntervalElapsed(fc, time.Time{}, 1000))

	last := fc.Now()
	require.False(t, IntervalElapsed(fc, last, 1000))
	fc.Add(999 * time.Millisecond)
	require.False(t, IntervalElapsed(fc, last, 1000))
	fc.Add(1 * time.Millisecond)
	require.True(t, IntervalElapsed(fc, last, 1000))
}

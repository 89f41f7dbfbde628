// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retronx-team/sys-clk-sub000/internal/board/boardsim"
	"github.com/retronx-team/sys-clk-sub000/internal/config"
	"github.com/retronx-team/sys-clk-sub000/internal/manager"
	"github.com/retronx-team/sys-clk-sub000/internal/policy"
	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
	"github.com/retronx-team/sys-clk-sub000/internal/telemetry"
)

// TestDispatch_ConcurrentSetCallsNeverTearContext drives concurrent
// SetOverride/SetProfiles Dispatch calls, and a running tick loop, against
// one manager while other goroutines call GetCurrentContext, and asserts
// every read reports, for each module, an override that is 0 or a value
// some writer set for that module. Run with -race; the
// manager's own mutex (internal/manager/manager.go) is what's under test
// here, exercised through the IPC surface rather than called directly.
func TestDispatch_ConcurrentSetCallsNeverTearContext(t *testing.T) {
	b := boardsim.New(
		boardsim.WithFreqList(sysclk.ModuleCPU, 612000000, 918000000, 1224000000),
		boardsim.WithFreqList(sysclk.ModuleGPU, 307200000, 614400000),
		boardsim.WithFreqList(sysclk.ModuleMEM, 204000000, 1600000000),
		boardsim.WithSocType(sysclk.SocMariko),
	)

	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	cfg := config.New(path)
	require.True(t, cfg.Refresh())
	cfg.SetEnabled(true)

	mgr, err := manager.New(b, policy.New(cfg), cfg, telemetry.New(t.TempDir()), &constProc{},
		manager.WithWaitFunc(func(time.Duration) {}),
	)
	require.NoError(t, err)
	mgr.SetRunning(true)

	s := NewServer(mgr)

	const (
		workers  = 8
		duration = 200 * time.Millisecond
	)

	// allowed[m] holds every override Hz the SetOverride writers below set
	// for module m, plus 0 (no override yet).
	var allowed [3]map[uint32]bool
	for m := range allowed {
		allowed[m] = map[uint32]bool{0: true}
	}
	for i := 0; i < workers; i++ {
		allowed[i%3][uint32(600000000+i*1000)] = true
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var reads, writes int64

	// One goroutine keeps ticking the manager, the same mutex-guarded path
	// GetCurrentContext and SetOverride/SetProfiles also go through.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				require.NoError(t, mgr.Tick())
			}
		}
	}()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				resp, err := s.Dispatch(context.Background(), &Request{
					Cmd: CmdSetOverride, Module: sysclk.Module(i % 3), Hz: uint32(600000000 + i*1000),
				})
				require.NoError(t, err)
				require.True(t, resp.Ok)
				atomic.AddInt64(&writes, 1)
			}
		}(i)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var list config.TitleProfileList
			list[sysclk.ProfileHandheld][sysclk.ModuleCPU] = uint32(612 + i)
			for {
				select {
				case <-stop:
					return
				default:
				}
				resp, err := s.Dispatch(context.Background(), &Request{
					Cmd: CmdSetProfiles, AppID: uint64(i), Profiles: list, Persist: false,
				})
				require.NoError(t, err)
				require.True(t, resp.Ok)
				atomic.AddInt64(&writes, 1)
			}
		}(i)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				resp, err := s.Dispatch(context.Background(), &Request{Cmd: CmdGetCurrentContext})
				require.NoError(t, err)
				require.True(t, resp.Ok)
				for _, m := range sysclk.Modules {
					hz := resp.Context.OverrideFreqs[m]
					require.True(t, allowed[m][hz], "module %s override %d was never written", m, hz)
				}
				atomic.AddInt64(&reads, 1)
			}
		}()
	}

	time.Sleep(duration)
	close(stop)
	wg.Wait()

	require.Greater(t, atomic.LoadInt64(&reads), int64(0))
	require.Greater(t, atomic.LoadInt64(&writes), int64(0))
}

type constProc struct{}

func (constProc) CurrentApplicationID() (uint64, error) { return 0, nil }

// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retronx-team/sys-clk-sub000/internal/config"
	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

type fakeHandle struct {
	ctx     sysclk.Context
	cfg     *config.Store
	freqs   [3][]uint32
	running bool
}

func (f *fakeHandle) GetCurrentContext() sysclk.Context { return f.ctx }
func (f *fakeHandle) GetConfig() *config.Store          { return f.cfg }
func (f *fakeHandle) GetFreqList(module sysclk.Module) []uint32 {
	return f.freqs[module]
}
func (f *fakeHandle) SetRunning(running bool) { f.running = running }

func newFakeHandle(t *testing.T) *fakeHandle {
	t.Helper()
	cfg := config.New(t.TempDir() + "/config.ini")
	return &fakeHandle{cfg: cfg, running: true}
}

func newLoadedFakeHandle(t *testing.T) *fakeHandle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	cfg := config.New(path)
	require.True(t, cfg.Refresh())
	return &fakeHandle{cfg: cfg, running: true}
}

func TestDispatch_GetAPIVersion(t *testing.T) {
	s := NewServer(newFakeHandle(t))
	resp, err := s.Dispatch(context.Background(), &Request{Cmd: CmdGetAPIVersion})
	require.NoError(t, err)
	require.True(t, resp.Ok)
	require.Equal(t, APIVersion, resp.APIVersion)
}

func TestDispatch_Exit(t *testing.T) {
	h := newFakeHandle(t)
	s := NewServer(h)
	resp, err := s.Dispatch(context.Background(), &Request{Cmd: CmdExit})
	require.NoError(t, err)
	require.True(t, resp.Ok)
	require.False(t, h.running)
}

func TestDispatch_GetCurrentContext(t *testing.T) {
	h := newFakeHandle(t)
	h.ctx.ApplicationID = 0x0100000000000001
	s := NewServer(h)
	resp, err := s.Dispatch(context.Background(), &Request{Cmd: CmdGetCurrentContext})
	require.NoError(t, err)
	require.Equal(t, h.ctx, resp.Context)
}

func TestDispatch_ProfileCommands_FailWhenConfigNotLoaded(t *testing.T) {
	s := NewServer(newFakeHandle(t))

	resp, err := s.Dispatch(context.Background(), &Request{Cmd: CmdGetProfileCount, AppID: 1})
	require.NoError(t, err)
	require.False(t, resp.Ok)
	require.Equal(t, sysclk.ErrorConfigNotLoaded, resp.Err.Code)

	resp, err = s.Dispatch(context.Background(), &Request{Cmd: CmdGetProfiles, AppID: 1})
	require.NoError(t, err)
	require.False(t, resp.Ok)
	require.Equal(t, sysclk.ErrorConfigNotLoaded, resp.Err.Code)
}

func TestDispatch_SetProfilesRoundTrip(t *testing.T) {
	h := newLoadedFakeHandle(t)
	s := NewServer(h)

	var list config.TitleProfileList
	list[sysclk.ProfileHandheld][sysclk.ModuleCPU] = 1020

	resp, err := s.Dispatch(context.Background(), &Request{
		Cmd: CmdSetProfiles, AppID: 7, Profiles: list, Persist: false,
	})
	require.NoError(t, err)
	require.True(t, resp.Ok)

	resp, err = s.Dispatch(context.Background(), &Request{Cmd: CmdGetProfiles, AppID: 7})
	require.NoError(t, err)
	require.Equal(t, list, resp.Profiles)
}

func TestDispatch_SetOverride_InvalidModule(t *testing.T) {
	s := NewServer(newFakeHandle(t))
	resp, err := s.Dispatch(context.Background(), &Request{Cmd: CmdSetOverride, Module: sysclk.Module(99), Hz: 100})
	require.NoError(t, err)
	require.False(t, resp.Ok)
	require.Equal(t, sysclk.ErrorGeneric, resp.Err.Code)
}

func TestDispatch_GetFreqList_TruncatesToMaxCount(t *testing.T) {
	h := newFakeHandle(t)
	h.freqs[sysclk.ModuleCPU] = []uint32{1, 2, 3, 4, 5, 6}
	s := NewServer(h)

	resp, err := s.Dispatch(context.Background(), &Request{Cmd: CmdGetFreqList, Module: sysclk.ModuleCPU, MaxCount: 4})
	require.NoError(t, err)
	require.True(t, resp.Ok)
	require.Equal(t, []uint32{1, 2, 3, 4}, resp.FreqList)
}

func TestDispatch_GetFreqList_InvalidModule(t *testing.T) {
	s := NewServer(newFakeHandle(t))
	resp, err := s.Dispatch(context.Background(), &Request{Cmd: CmdGetFreqList, Module: sysclk.Module(99)})
	require.NoError(t, err)
	require.False(t, resp.Ok)
	require.Equal(t, sysclk.ErrorGeneric, resp.Err.Code)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	s := NewServer(newFakeHandle(t))
	resp, err := s.Dispatch(context.Background(), &Request{Cmd: Cmd(999)})
	require.NoError(t, err)
	require.False(t, resp.Ok)
	require.Equal(t, sysclk.ErrorGeneric, resp.Err.Code)
}

// SPDX-License-Identifier: Apache-2.0

// Package ipc carries the command set of spec.md §4.8 over a single gRPC
// method, Dispatch, using a gob-based wire codec instead of generated
// protobuf stubs (see codec.go). Request/Response are the wire types; every
// other package only sees the typed client wrapper in internal/ipc/client.
package ipc

import (
	"github.com/retronx-team/sys-clk-sub000/internal/config"
	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

// Cmd identifies an IPC operation, carrying over §4.8's cmd_id dispatch.
type Cmd int

const (
	CmdGetAPIVersion Cmd = iota
	CmdGetVersionString
	CmdGetCurrentContext
	CmdExit
	CmdGetProfileCount
	CmdGetProfiles
	CmdSetProfiles
	CmdSetEnabled
	CmdSetOverride
	CmdGetConfigValues
	CmdSetConfigValues
	CmdGetFreqList
)

// APIVersion is the compile-time protocol version GetApiVersion reports.
const APIVersion uint32 = 1

// Request is the single wire-level request message for every command; only
// the fields relevant to Cmd are populated.
type Request struct {
	Cmd Cmd

	AppID    uint64
	Module   sysclk.Module
	Hz       uint32
	Enabled  bool
	Profiles config.TitleProfileList
	Persist  bool
	Values   config.ConfigValueList
	MaxCount uint32
}

// Response is the single wire-level reply message for every command; Err is
// non-nil exactly when the command failed.
type Response struct {
	APIVersion    uint32
	VersionString string
	Context       sysclk.Context
	ProfileCount  uint8
	Profiles      config.TitleProfileList
	Values        config.ConfigValueList
	FreqList      []uint32
	Ok            bool
	Err           *sysclk.IPCError
}

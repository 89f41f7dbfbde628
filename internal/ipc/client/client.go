// SPDX-License-Identifier: Apache-2.0

// Package client is the typed wrapper around internal/ipc's single Dispatch
// RPC, the Go analogue of spec.md's client/ipc.h: callers never see the raw
// Request/Response wire types.
package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/retronx-team/sys-clk-sub000/internal/config"
	"github.com/retronx-team/sys-clk-sub000/internal/ipc"
	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

// Client dials a running daemon's Unix domain socket and issues typed
// Dispatch calls.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to socketPath, grounded on the example corpus's
// grpc.DialContext/grpc.WithInsecure dial pattern (no transport security
// over a local Unix socket).
func Dial(socketPath string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(ctx, "unix:"+socketPath,
		grpc.WithInsecure(), //nolint:staticcheck // local unix socket, no TLS needed
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(ipc.Codec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("ipc client: dialing %q: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) dispatch(ctx context.Context, req *ipc.Request) (*ipc.Response, error) {
	resp := new(ipc.Response)
	if err := c.conn.Invoke(ctx, "/sysclk.IPC/Dispatch", req, resp); err != nil {
		return nil, fmt.Errorf("ipc client: dispatch %d: %w", req.Cmd, err)
	}
	if !resp.Ok && resp.Err != nil {
		return resp, resp.Err
	}
	return resp, nil
}

// GetAPIVersion returns the daemon's compile-time protocol version.
func (c *Client) GetAPIVersion(ctx context.Context) (uint32, error) {
	resp, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdGetAPIVersion})
	if err != nil {
		return 0, err
	}
	return resp.APIVersion, nil
}

// GetVersionString returns the daemon's human-readable version string.
func (c *Client) GetVersionString(ctx context.Context) (string, error) {
	resp, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdGetVersionString})
	if err != nil {
		return "", err
	}
	return resp.VersionString, nil
}

// GetCurrentContext returns a snapshot of the daemon's observed state.
func (c *Client) GetCurrentContext(ctx context.Context) (sysclk.Context, error) {
	resp, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdGetCurrentContext})
	if err != nil {
		return sysclk.Context{}, err
	}
	return resp.Context, nil
}

// Exit requests the daemon stop its outer loop.
func (c *Client) Exit(ctx context.Context) error {
	_, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdExit})
	return err
}

// GetProfileCount returns how many (profile, module) cells are configured
// for appID.
func (c *Client) GetProfileCount(ctx context.Context, appID uint64) (uint8, error) {
	resp, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdGetProfileCount, AppID: appID})
	if err != nil {
		return 0, err
	}
	return resp.ProfileCount, nil
}

// GetProfiles returns the full 5x3 profile matrix for appID.
func (c *Client) GetProfiles(ctx context.Context, appID uint64) (config.TitleProfileList, error) {
	resp, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdGetProfiles, AppID: appID})
	if err != nil {
		return config.TitleProfileList{}, err
	}
	return resp.Profiles, nil
}

// SetProfiles replaces appID's profile matrix, persisting to disk if
// persist is true.
func (c *Client) SetProfiles(ctx context.Context, appID uint64, profiles config.TitleProfileList, persist bool) error {
	_, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdSetProfiles, AppID: appID, Profiles: profiles, Persist: persist})
	return err
}

// SetEnabled flips the daemon's master switch.
func (c *Client) SetEnabled(ctx context.Context, enabled bool) error {
	_, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdSetEnabled, Enabled: enabled})
	return err
}

// SetOverride sets (or, with hz == 0, clears) the runtime override for
// module.
func (c *Client) SetOverride(ctx context.Context, module sysclk.Module, hz uint32) error {
	_, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdSetOverride, Module: module, Hz: hz})
	return err
}

// GetConfigValues returns the daemon's global tunables.
func (c *Client) GetConfigValues(ctx context.Context) (config.ConfigValueList, error) {
	resp, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdGetConfigValues})
	if err != nil {
		return config.ConfigValueList{}, err
	}
	return resp.Values, nil
}

// SetConfigValues replaces the daemon's global tunables as a whole.
func (c *Client) SetConfigValues(ctx context.Context, values config.ConfigValueList, persist bool) error {
	_, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdSetConfigValues, Values: values, Persist: persist})
	return err
}

// GetFreqList returns up to maxCount assignable frequencies for module (0
// means "no limit").
func (c *Client) GetFreqList(ctx context.Context, module sysclk.Module, maxCount uint32) ([]uint32, error) {
	resp, err := c.dispatch(ctx, &ipc.Request{Cmd: ipc.CmdGetFreqList, Module: module, MaxCount: maxCount})
	if err != nil {
		return nil, err
	}
	return resp.FreqList, nil
}

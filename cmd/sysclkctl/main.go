// SPDX-License-Identifier: Apache-2.0

// Command sysclkctl is the operator CLI for a running sysclkd daemon. Each
// subcommand opens one connection, issues one Dispatch call through
// internal/ipc/client, and exits; grounded on the subcommand-per-file cobra
// layout in the ebpf_edge example's cmd/ package.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/retronx-team/sys-clk-sub000/internal/ipc/client"
)

var socketPath string

var rootCmd = &cobra.Command{
	Use:   "sysclkctl",
	Short: "query and control a running sysclkd daemon over its IPC socket",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "/run/sysclk.sock", "sysclkd's Unix domain socket")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// dial connects to socketPath or prints a clear error and exits; it never
// returns a nil *client.Client.
func dial() *client.Client {
	c, err := client.Dial(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sysclkctl: %v\n", err)
		os.Exit(1)
	}
	return c
}

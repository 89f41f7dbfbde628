// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/retronx-team/sys-clk-sub000/internal/sysclk"
)

const callTimeout = 5 * time.Second

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "sysclkctl: %v\n", err)
	os.Exit(1)
}

func parseModule(s string) sysclk.Module {
	m, ok := sysclk.ModuleFromCode(s)
	if !ok {
		fail(fmt.Errorf("unknown module %q, want one of cpu, gpu, mem", s))
	}
	return m
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "print the daemon's current observed Context",
	Run: func(cmd *cobra.Command, args []string) {
		c := dial()
		defer c.Close()

		ctx, cancel := withTimeout()
		defer cancel()

		got, err := c.GetCurrentContext(ctx)
		if err != nil {
			fail(err)
		}
		fmt.Printf("enabled=%t application_id=%#x profile=%s\n", got.Enabled, got.ApplicationID, got.Profile)
		for _, mod := range sysclk.Modules {
			fmt.Printf("  %-3s hz=%-10d real_hz=%-10d override=%d\n", mod.Code(), got.Freqs[mod], got.RealFreqs[mod], got.OverrideFreqs[mod])
		}
		fmt.Printf("  temps soc=%dmC pcb=%dmC skin=%dmC\n", got.Temps[sysclk.ThermalSOC], got.Temps[sysclk.ThermalPCB], got.Temps[sysclk.ThermalSkin])
		fmt.Printf("  power now=%dmW avg=%dmW\n", got.Power[sysclk.PowerNow], got.Power[sysclk.PowerAvg])
	},
}

var freqListCmd = &cobra.Command{
	Use:   "freqs <cpu|gpu|mem>",
	Short: "list a module's assignable frequencies",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		maxCount, _ := cmd.Flags().GetUint32("max")

		c := dial()
		defer c.Close()

		ctx, cancel := withTimeout()
		defer cancel()

		list, err := c.GetFreqList(ctx, parseModule(args[0]), maxCount)
		if err != nil {
			fail(err)
		}
		for _, hz := range list {
			fmt.Println(hz)
		}
	},
}

func init() {
	freqListCmd.Flags().Uint32("max", 0, "cap the number of entries returned (0 means no limit)")
}

var setOverrideCmd = &cobra.Command{
	Use:   "set-override <cpu|gpu|mem> <hz>",
	Short: "pin a module to an exact frequency; hz=0 clears the override",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		hz, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			fail(fmt.Errorf("parsing hz %q: %w", args[1], err))
		}

		c := dial()
		defer c.Close()

		ctx, cancel := withTimeout()
		defer cancel()

		if err := c.SetOverride(ctx, parseModule(args[0]), uint32(hz)); err != nil {
			fail(err)
		}
	},
}

var setEnabledCmd = &cobra.Command{
	Use:   "set-enabled <true|false>",
	Short: "flip the daemon's master switch",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		enabled, err := strconv.ParseBool(args[0])
		if err != nil {
			fail(fmt.Errorf("parsing %q as bool: %w", args[0], err))
		}

		c := dial()
		defer c.Close()

		ctx, cancel := withTimeout()
		defer cancel()

		if err := c.SetEnabled(ctx, enabled); err != nil {
			fail(err)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the daemon's API version and build string",
	Run: func(cmd *cobra.Command, args []string) {
		c := dial()
		defer c.Close()

		ctx, cancel := withTimeout()
		defer cancel()

		apiVersion, err := c.GetAPIVersion(ctx)
		if err != nil {
			fail(err)
		}
		full, err := c.GetVersionString(ctx)
		if err != nil {
			fail(err)
		}
		fmt.Printf("api version: %d\n%s\n", apiVersion, full)
	},
}

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "ask the daemon to stop its tick loop and shut down",
	Run: func(cmd *cobra.Command, args []string) {
		c := dial()
		defer c.Close()

		ctx, cancel := withTimeout()
		defer cancel()

		if err := c.Exit(ctx); err != nil {
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(contextCmd, freqListCmd, setOverrideCmd, setEnabledCmd, versionCmd, exitCmd)
}

// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/sandbox"
)

var (
	runTimeoutMs  int
	runAllowHosts []string
	runPassphrase string
)

var runCmd = &cobra.Command{
	Use:   "run <archive.sync>",
	Short: "Execute an archive's sync.wasm module in the sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := archive.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		if !a.HasWasm() {
			return fmt.Errorf("archive has no sync.wasm entry")
		}

		runner := sandbox.NewRunner()
		result, err := sandbox.Execute(a, runner, sandbox.ExecuteOptions{
			AllowedHosts:    runAllowHosts,
			Timeout:         time.Duration(runTimeoutMs) * time.Millisecond,
			VaultPassphrase: runPassphrase,
		})
		if err != nil {
			return fmt.Errorf("executing: %w", err)
		}
		if result.PayloadUpdated {
			fmt.Printf("Executed %s — payload updated (%d bytes)\n", args[0], len(result.UpdatedPayload))
		} else {
			fmt.Printf("Executed %s — payload unchanged\n", args[0])
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runTimeoutMs, "timeout-ms", 5000, "execution timeout in milliseconds")
	runCmd.Flags().StringSliceVar(&runAllowHosts, "allow-host", nil, "host to permit for brokered HTTP (repeatable)")
	runCmd.Flags().StringVar(&runPassphrase, "passphrase", "", "vault passphrase, if the archive's payload is encrypted")
	rootCmd.AddCommand(runCmd)
}

// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koh0920/syncarchive/pkg/anchor"
	"github.com/koh0920/syncarchive/pkg/archive"
)

var anchorVerifyOnly bool

var anchorCmd = &cobra.Command{
	Use:   "anchor <archive.sync>",
	Short: "Anchor (or verify) an archive's content hash via OpenTimestamps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := archive.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}

		if anchorVerifyOnly {
			result, err := anchor.Verify(a)
			if err != nil {
				return fmt.Errorf("verifying anchor: %w", err)
			}
			if !result.HashMatches {
				return fmt.Errorf("proof does not match archive — archive may have been modified after anchoring")
			}
			fmt.Printf("OK — proof matches archive hash %s (%d bytes)\n", result.ArchiveHash, result.ProofSize)
			return nil
		}

		result, err := anchor.Anchor(a)
		if err != nil {
			return fmt.Errorf("anchoring: %w", err)
		}
		fmt.Printf("Anchored %s\n", args[0])
		fmt.Printf("  Hash:   %s\n", result.ArchiveHash)
		fmt.Printf("  Server: %s\n", result.Server)
		return nil
	},
}

func init() {
	anchorCmd.Flags().BoolVar(&anchorVerifyOnly, "verify", false, "verify an existing proof instead of submitting a new one")
	rootCmd.AddCommand(anchorCmd)
}

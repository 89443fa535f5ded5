// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koh0920/syncarchive/pkg/verifier"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <archive.sync>",
	Short: "Verify an archive's embedded manifest signature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := verifier.VerifyEmbedded(args[0])
		if err != nil {
			return fmt.Errorf("verifying: %w", err)
		}
		if !result.Valid {
			fmt.Printf("FAILED: %s\n", result.FailureReason)
			for k, v := range result.ComputedHashes {
				fmt.Printf("  %s: %s\n", k, v)
			}
			return fmt.Errorf("signature verification failed")
		}
		fmt.Println("OK — signature and integrity verified")
		for k, v := range result.ComputedHashes {
			fmt.Printf("  %s: %s\n", k, v)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

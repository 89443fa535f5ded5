// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/koh0920/syncarchive/pkg/archive"
)

var updatePassphrase string

var updateCmd = &cobra.Command{
	Use:   "update-payload <archive.sync> <file>",
	Short: "Replace an archive's payload, preserving every other entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading replacement payload: %w", err)
		}
		a, err := archive.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		if a.IsVault() {
			if updatePassphrase == "" {
				return fmt.Errorf("archive is a vault, --passphrase is required")
			}
			if err := a.WritePayloadWithPassword(data, updatePassphrase); err != nil {
				return fmt.Errorf("encrypting and writing payload: %w", err)
			}
		} else if err := a.UpdatePayload(data); err != nil {
			return fmt.Errorf("writing payload: %w", err)
		}
		fmt.Printf("Updated payload in %s\n", args[0])
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updatePassphrase, "passphrase", "", "encryption passphrase for vault archives")
	rootCmd.AddCommand(updateCmd)
}

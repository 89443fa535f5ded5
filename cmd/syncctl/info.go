// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koh0920/syncarchive/pkg/archive"
)

var infoCmd = &cobra.Command{
	Use:   "info <archive.sync>",
	Short: "Show an archive's manifest metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := archive.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		m := a.Manifest()
		fmt.Printf("Content type:  %s\n", m.Sync.ContentType)
		fmt.Printf("Display ext:   %s\n", m.Sync.DisplayExt)
		fmt.Printf("Variant:       %s\n", m.Sync.Variant)
		fmt.Printf("Created by:    %s\n", m.Meta.CreatedBy)
		fmt.Printf("Created at:    %s\n", m.Meta.CreatedAt)
		fmt.Printf("Hash algo:     %s\n", m.Meta.HashAlgo)
		fmt.Printf("TTL:           %ds\n", m.Policy.TTL)
		fmt.Printf("Timeout:       %ds\n", m.Policy.Timeout)
		fmt.Printf("Allow hosts:   %v\n", m.Permissions.AllowHosts)
		fmt.Printf("Allow env:     %v\n", m.Permissions.AllowEnv)
		fmt.Printf("Vault:         %t\n", m.IsVault())
		fmt.Printf("Has wasm:      %t\n", a.HasWasm())
		fmt.Printf("Has context:   %t\n", a.HasContext())
		fmt.Printf("Has proof:     %t\n", a.HasProof())
		fmt.Printf("Signed:        %t\n", m.Signature != nil)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

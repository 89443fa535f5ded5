// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koh0920/syncarchive/pkg/archive"
)

var listCmd = &cobra.Command{
	Use:   "list <archive.sync>",
	Short: "List an archive's entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := archive.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		for _, e := range a.Entries() {
			fmt.Printf("%-16s %8d bytes  offset %d\n", e.Name, e.Size, e.Offset)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/koh0920/syncarchive/pkg/builder"
	"github.com/koh0920/syncarchive/pkg/manifest"
)

var (
	createPayloadPath string
	createWasmPath    string
	createContentType string
	createDisplayExt  string
	createVariant     string
)

var createCmd = &cobra.Command{
	Use:   "create <archive.sync>",
	Short: "Create a new sync archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		payload := []byte{}
		if createPayloadPath != "" {
			data, err := os.ReadFile(createPayloadPath)
			if err != nil {
				return fmt.Errorf("reading payload: %w", err)
			}
			payload = data
		}

		wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
		if createWasmPath != "" {
			data, err := os.ReadFile(createWasmPath)
			if err != nil {
				return fmt.Errorf("reading wasm module: %w", err)
			}
			wasm = data
		}

		m := manifest.New(createContentType, createDisplayExt)
		if createVariant != "" {
			m.Sync.Variant = manifest.Variant(createVariant)
		}

		b := builder.New(m).WithPayload(payload).WithWasm(wasm)
		if _, err := b.Build(path); err != nil {
			return fmt.Errorf("building archive: %w", err)
		}
		fmt.Printf("Created %s\n", path)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createPayloadPath, "payload", "", "path to the payload file")
	createCmd.Flags().StringVar(&createWasmPath, "wasm", "", "path to the sync.wasm module (default: minimal stub)")
	createCmd.Flags().StringVar(&createContentType, "content-type", "application/octet-stream", "payload MIME type")
	createCmd.Flags().StringVar(&createDisplayExt, "display-ext", "", "display extension for the payload")
	createCmd.Flags().StringVar(&createVariant, "variant", "plain", "sync.variant: plain, vault, app, or data")
	rootCmd.AddCommand(createCmd)
}

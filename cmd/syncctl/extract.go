// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/koh0920/syncarchive/pkg/archive"
)

var (
	extractOutDir     string
	extractPassphrase string
)

var extractCmd = &cobra.Command{
	Use:   "extract <archive.sync>",
	Short: "Extract an archive's payload to disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		a, err := archive.Open(path)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}

		if a.Manifest().IsExpired(time.Now()) {
			return fmt.Errorf("archive has expired")
		}

		pp := extractPassphrase
		if pp == "" && a.IsVault() {
			pp = promptPassphrase("Decryption passphrase: ")
			if pp == "" {
				return fmt.Errorf("archive is a vault, passphrase required")
			}
		}

		var payload []byte
		if a.IsVault() {
			payload, err = a.ReadPayloadWithPassword(pp)
		} else {
			payload, err = a.ReadPayload()
		}
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}

		if err := os.MkdirAll(extractOutDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if ext := a.Manifest().Sync.DisplayExt; ext != "" && !strings.HasSuffix(base, "."+ext) {
			base += "." + ext
		}
		outPath := filepath.Join(extractOutDir, base)
		if err := os.WriteFile(outPath, payload, 0o644); err != nil {
			return fmt.Errorf("writing payload: %w", err)
		}
		fmt.Printf("Extracted to %s\n", outPath)
		return nil
	},
}

func promptPassphrase(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func init() {
	extractCmd.Flags().StringVar(&extractOutDir, "out", ".", "output directory")
	extractCmd.Flags().StringVar(&extractPassphrase, "passphrase", "", "decryption passphrase for vault archives")
	rootCmd.AddCommand(extractCmd)
}

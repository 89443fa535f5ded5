// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package main

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/hashing"
	"github.com/koh0920/syncarchive/pkg/identity"
	"github.com/koh0920/syncarchive/pkg/verifier"
)

var signKeyPath string

var signCmd = &cobra.Command{
	Use:   "sign <archive.sync>",
	Short: "Sign an archive's manifest with an Ed25519 private key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if signKeyPath == "" {
			return fmt.Errorf("--key is required")
		}
		keyData, err := os.ReadFile(signKeyPath)
		if err != nil {
			return fmt.Errorf("reading key: %w", err)
		}
		priv, err := identity.ParsePrivateKeyPEM(keyData)
		if err != nil {
			return fmt.Errorf("parsing key: %w", err)
		}
		pub := priv.Public().(ed25519.PublicKey)

		path := args[0]
		a, err := archive.Open(path)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}

		payload, err := a.ReadEntry(archive.PayloadEntry)
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
		payloadHash, err := hashing.Sum(hashing.DefaultAlgo, payload)
		if err != nil {
			return fmt.Errorf("hashing payload: %w", err)
		}

		m := a.Manifest()
		m.Meta.CreatedBy = identity.EncodeDID(pub)
		m.Meta.HashAlgo = hashing.DefaultAlgo
		timestamp := time.Now().UTC().Format(time.RFC3339)

		if err := verifier.Sign(m, priv, hashing.DefaultAlgo, payloadHash, timestamp); err != nil {
			return fmt.Errorf("signing manifest: %w", err)
		}

		manifestBytes, err := m.Marshal()
		if err != nil {
			return fmt.Errorf("serializing manifest: %w", err)
		}
		if err := a.UpdateEntry(archive.ManifestEntry, manifestBytes); err != nil {
			return fmt.Errorf("writing signed manifest: %w", err)
		}

		fmt.Printf("Signed %s\n", path)
		fmt.Printf("  Signer: %s\n", m.Meta.CreatedBy)
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signKeyPath, "key", "", "path to Ed25519 private key (PEM)")
	rootCmd.AddCommand(signCmd)
}

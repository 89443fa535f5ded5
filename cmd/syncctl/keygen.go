// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/koh0920/syncarchive/pkg/identity"
)

var keygenOutDir string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an Ed25519 signing key pair and print its DID",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := identity.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("generating key pair: %w", err)
		}

		privPEM := identity.MarshalPrivateKeyPEM(kp.PrivateKey)
		pubPEM := identity.MarshalPublicKeyPEM(kp.PublicKey)

		privPath := filepath.Join(keygenOutDir, "sync_private.pem")
		pubPath := filepath.Join(keygenOutDir, "sync_public.pem")
		if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
			return fmt.Errorf("writing private key: %w", err)
		}
		if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
			return fmt.Errorf("writing public key: %w", err)
		}

		fmt.Printf("Private key: %s\n", privPath)
		fmt.Printf("Public key:  %s\n", pubPath)
		fmt.Printf("DID:         %s\n", kp.DID())
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenOutDir, "out-dir", ".", "directory to write the key pair into")
	rootCmd.AddCommand(keygenCmd)
}

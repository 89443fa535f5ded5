// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// syncctl is a command-line tool for creating and inspecting sync
// archives: cryptographically signed, content-addressed containers
// pairing a payload with an in-process sandboxed program.
//
// Typical workflow:
//
//	syncctl keygen --out-dir .                        # generate signing keys
//	syncctl create archive.sync --payload data.json   # create an archive
//	syncctl sign archive.sync --key sync_private.pem  # sign the manifest
//	syncctl verify archive.sync                       # verify embedded signature
//	syncctl extract archive.sync --out ./out          # extract the payload
//	syncctl run archive.sync                          # execute sync.wasm
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "syncctl",
	Short: "Create, sign, and inspect sync archives",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package hashing implements the tagged content-hash scheme used across
// manifests and signatures: "<algo>:<lowercase-hex>".
package hashing

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"lukechampine.com/blake3"
)

// DefaultAlgo is the hash algorithm recorded in manifest.meta.hash_algo
// when a new manifest is built and no algorithm is explicitly chosen.
const DefaultAlgo = "blake3"

// Sum hashes data with the named algorithm and returns a tagged hash
// string of the form "algo:hex". Only "blake3" is currently supported;
// unknown algorithms return an error rather than silently falling back.
func Sum(algo string, data []byte) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return Tag(algo, h.Sum(nil)), nil
}

// SumReader streams data from r instead of buffering it in memory, for
// hashing whole archive files.
func SumReader(algo string, r io.Reader) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing: %w", err)
	}
	return Tag(algo, h.Sum(nil)), nil
}

// Tag formats raw digest bytes as "algo:hex".
func Tag(algo string, digest []byte) string {
	return algo + ":" + hex.EncodeToString(digest)
}

// Parse splits a tagged hash string into its algorithm and hex digest.
func Parse(tagged string) (algo string, hexDigest string, err error) {
	parts := strings.SplitN(tagged, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("hashing: malformed tagged hash %q", tagged)
	}
	return parts[0], parts[1], nil
}

func newHasher(algo string) (hash.Hash, error) {
	switch algo {
	case "blake3", "":
		return blake3.New(32, nil), nil
	default:
		return nil, fmt.Errorf("hashing: unsupported algorithm %q", algo)
	}
}

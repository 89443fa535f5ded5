// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package anchor provides blockchain timestamping for sync archives via
// OpenTimestamps.
//
// OpenTimestamps (https://opentimestamps.org) anchors SHA-256 digests to the
// Bitcoin blockchain. The process:
//
//  1. Submit: POST the archive's content hash to an OTS calendar server
//  2. Receive: get back a compact proof proving the timestamp
//  3. Verify: anyone can independently verify the proof against Bitcoin
//
// The proof is written as the archive's own sync.proof entry, so the
// receipt travels with the container rather than living beside it as a
// separate sidecar file.
package anchor

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/hashing"
)

// Default OpenTimestamps calendar servers, tried in order for redundancy.
var calendarServers = []string{
	"https://a.pool.opentimestamps.org",
	"https://b.pool.opentimestamps.org",
	"https://a.pool.eternitywall.com",
}

// Result is the outcome of anchoring an archive's whole-file content hash.
type Result struct {
	ArchiveHash string // tagged hash, e.g. "blake3:...", of every entry except sync.proof
	Server      string // calendar server that accepted the submission
	ProofSize   int
	Timestamp   time.Time
}

// Anchor computes the whole-archive content hash, submits it to an
// OpenTimestamps calendar server, and rewrites the archive with the
// resulting proof stored in its sync.proof entry.
func Anchor(a *archive.Archive) (*Result, error) {
	digest, err := wholeFileDigest(a)
	if err != nil {
		return nil, err
	}

	var proof []byte
	var usedServer string
	for _, server := range calendarServers {
		proof, err = submitDigest(server+"/digest", digest.raw)
		if err == nil {
			usedServer = server
			break
		}
	}
	if proof == nil {
		return nil, errors.New("anchor: all OpenTimestamps servers failed")
	}

	if err := a.UpdateEntry(archive.ProofEntry, proof); err != nil {
		return nil, fmt.Errorf("anchor: writing proof entry: %w", err)
	}

	return &Result{
		ArchiveHash: digest.tagged,
		Server:      usedServer,
		ProofSize:   len(proof),
		Timestamp:   time.Now(),
	}, nil
}

// VerifyResult is the outcome of a local anchor check: it confirms the
// proof embeds this archive's own content hash, not that Bitcoin has
// confirmed it — full confirmation requires an independent OTS verifier.
type VerifyResult struct {
	ArchiveHash string
	ProofSize   int
	HashMatches bool
}

// Verify checks that the archive's sync.proof entry embeds its own content
// hash digest.
func Verify(a *archive.Archive) (*VerifyResult, error) {
	if !a.HasProof() {
		return nil, errors.New("anchor: archive has no sync.proof entry")
	}
	digest, err := wholeFileDigest(a)
	if err != nil {
		return nil, err
	}
	proof, err := a.Proof()
	if err != nil {
		return nil, fmt.Errorf("anchor: reading proof: %w", err)
	}
	return &VerifyResult{
		ArchiveHash: digest.tagged,
		ProofSize:   len(proof),
		HashMatches: bytes.Contains(proof, digest.raw),
	}, nil
}

type fileDigest struct {
	raw    []byte
	tagged string
}

// wholeFileDigest hashes every entry in the archive except sync.proof
// itself, concatenated in envelope order, so anchoring is idempotent
// across re-anchors.
func wholeFileDigest(a *archive.Archive) (fileDigest, error) {
	var buf bytes.Buffer
	for _, e := range a.Entries() {
		if e.Name == archive.ProofEntry {
			continue
		}
		data, err := a.ReadEntry(e.Name)
		if err != nil {
			return fileDigest{}, fmt.Errorf("anchor: reading entry %q: %w", e.Name, err)
		}
		buf.WriteString(e.Name)
		buf.Write(data)
	}
	sum, err := hashing.Sum(hashing.DefaultAlgo, buf.Bytes())
	if err != nil {
		return fileDigest{}, fmt.Errorf("anchor: hashing archive: %w", err)
	}
	_, hexDigest, err := hashing.Parse(sum)
	if err != nil {
		return fileDigest{}, err
	}
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		return fileDigest{}, fmt.Errorf("anchor: decoding hash hex: %w", err)
	}
	return fileDigest{raw: raw, tagged: sum}, nil
}

// submitDigest POSTs a raw digest to an OTS calendar server, returning the
// binary proof on success.
func submitDigest(url string, digest []byte) ([]byte, error) {
	client := &http.Client{Timeout: 15 * time.Second}

	req, err := http.NewRequest("POST", url, bytes.NewReader(digest))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/vnd.opentimestamps.v1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server %s returned status %d", url, resp.StatusCode)
	}

	proof, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(proof) == 0 {
		return nil, errors.New("empty proof received")
	}
	return proof, nil
}

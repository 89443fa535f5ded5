// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package verifier implements the two signature-verification paths of
// a detached signature over a whole archive file, and an embedded
// manifest signature. Both return a structured Result rather than
// raising for hash or signature mismatches; only malformed inputs raise.
package verifier

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/hashing"
	"github.com/koh0920/syncarchive/pkg/identity"
	"github.com/koh0920/syncarchive/pkg/manifest"
)

// DetachedSignature is a signature record carried alongside (not inside)
// an archive (the detached-signature path).
type DetachedSignature struct {
	Algo        string
	Signer      string // did:key:...
	Value       string // base64
	ContentHash string // "<algo>:<hex>" over the whole archive file
	Timestamp   string
}

// Result is the structured outcome of either verification path.
type Result struct {
	Valid          bool
	ComputedHashes map[string]string
	FailureReason  string
}

func fail(reason string, computed map[string]string) *Result {
	return &Result{Valid: false, FailureReason: reason, ComputedHashes: computed}
}

// VerifyDetached checks a detached signature against an archive file on
// disk. It only returns an error for malformed inputs (bad algorithm
// name, unreadable file); hash and signature mismatches are reported
// through the returned Result.
func VerifyDetached(archivePath string, sig DetachedSignature) (*Result, error) {
	if sig.Algo != manifest.SignatureAlgo {
		return nil, fmt.Errorf("verifier: unsupported signature algorithm %q", sig.Algo)
	}

	algo, hexDigest, err := hashing.Parse(sig.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("verifier: malformed content hash: %w", err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("verifier: opening archive: %w", err)
	}
	defer f.Close()

	computedHash, err := hashing.SumReader(algo, f)
	if err != nil {
		return nil, fmt.Errorf("verifier: hashing archive: %w", err)
	}
	computed := map[string]string{"content_hash": computedHash}

	if computedHash != sig.ContentHash {
		return fail("hash mismatch", computed), nil
	}

	pub, err := identity.DecodeDID(sig.Signer)
	if err != nil {
		return fail(fmt.Sprintf("invalid signer DID: %v", err), computed), nil
	}

	digest, err := hex.DecodeString(hexDigest)
	if err != nil {
		return fail("malformed content hash hex", computed), nil
	}

	sigBytes, err := base64.StdEncoding.DecodeString(sig.Value)
	if err != nil {
		return fail("malformed signature encoding", computed), nil
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return fail("signature has wrong length", computed), nil
	}

	if !identity.Verify(pub, digest, sigBytes) {
		return fail("signature verification failed", computed), nil
	}
	return &Result{Valid: true, ComputedHashes: computed}, nil
}

// VerifyEmbedded checks an archive's own manifest.signature section
// against its own manifest and payload (the embedded-signature path).
func VerifyEmbedded(archivePath string) (*Result, error) {
	a, err := archive.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("verifier: opening archive: %w", err)
	}
	m := a.Manifest()
	if m.Signature == nil {
		return nil, fmt.Errorf("verifier: manifest has no signature section")
	}
	sig := m.Signature

	canonicalManifest, err := CanonicalJSON(m.CanonicalFields())
	if err != nil {
		return nil, fmt.Errorf("verifier: canonicalizing manifest: %w", err)
	}

	manifestAlgo, _, err := hashing.Parse(sig.ManifestHash)
	if err != nil {
		return nil, fmt.Errorf("verifier: malformed manifest_hash: %w", err)
	}
	computedManifestHash, err := hashing.Sum(manifestAlgo, canonicalManifest)
	if err != nil {
		return nil, fmt.Errorf("verifier: hashing manifest: %w", err)
	}
	computed := map[string]string{"manifest_hash": computedManifestHash}

	if computedManifestHash != sig.ManifestHash {
		return fail("manifest hash mismatch", computed), nil
	}

	if sig.PayloadHash != "" {
		payloadAlgo, _, err := hashing.Parse(sig.PayloadHash)
		if err != nil {
			return nil, fmt.Errorf("verifier: malformed payload_hash: %w", err)
		}
		payload, err := a.ReadEntry(archive.PayloadEntry)
		if err != nil {
			return nil, fmt.Errorf("verifier: reading payload: %w", err)
		}
		computedPayloadHash, err := hashing.Sum(payloadAlgo, payload)
		if err != nil {
			return nil, fmt.Errorf("verifier: hashing payload: %w", err)
		}
		computed["payload_hash"] = computedPayloadHash
		if computedPayloadHash != sig.PayloadHash {
			return fail("payload hash mismatch", computed), nil
		}
	}

	signingBytes, err := signingPayloadBytes(sig.ManifestHash, sig.PayloadHash, sig.Timestamp, m.Meta.CreatedBy)
	if err != nil {
		return nil, err
	}

	signingAlgo, _, err := hashing.Parse(sig.ManifestHash)
	if err != nil {
		return nil, err
	}
	signingHash, err := hashing.Sum(signingAlgo, signingBytes)
	if err != nil {
		return nil, fmt.Errorf("verifier: hashing signing payload: %w", err)
	}
	_, signingHex, _ := hashing.Parse(signingHash)
	digest, err := hex.DecodeString(signingHex)
	if err != nil {
		return nil, fmt.Errorf("verifier: decoding signing hash: %w", err)
	}

	pub, err := identity.DecodeDID(m.Meta.CreatedBy)
	if err != nil {
		return fail(fmt.Sprintf("invalid signer DID: %v", err), computed), nil
	}
	sigBytes, err := base64.StdEncoding.DecodeString(sig.Value)
	if err != nil {
		return fail("malformed signature encoding", computed), nil
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return fail("signature has wrong length", computed), nil
	}
	if !identity.Verify(pub, digest, sigBytes) {
		return fail("signature verification failed", computed), nil
	}
	return &Result{Valid: true, ComputedHashes: computed}, nil
}

// Sign computes and installs the manifest.signature section for m: the
// manifest hash over its canonicalized remainder, an optional payload
// hash, and an Ed25519 signature over the hash of the canonicalized
// signing payload {manifest_hash, payload_hash, timestamp, signer}.
func Sign(m *manifest.Manifest, priv ed25519.PrivateKey, algo string, payloadHash string, timestamp string) error {
	canonicalManifest, err := CanonicalJSON(m.CanonicalFields())
	if err != nil {
		return fmt.Errorf("verifier: canonicalizing manifest: %w", err)
	}
	manifestHash, err := hashing.Sum(algo, canonicalManifest)
	if err != nil {
		return fmt.Errorf("verifier: hashing manifest: %w", err)
	}

	signingBytes, err := signingPayloadBytes(manifestHash, payloadHash, timestamp, m.Meta.CreatedBy)
	if err != nil {
		return err
	}
	signingHash, err := hashing.Sum(algo, signingBytes)
	if err != nil {
		return fmt.Errorf("verifier: hashing signing payload: %w", err)
	}
	_, signingHex, _ := hashing.Parse(signingHash)
	digest, err := hex.DecodeString(signingHex)
	if err != nil {
		return fmt.Errorf("verifier: decoding signing hash: %w", err)
	}

	sigBytes := identity.Sign(priv, digest)

	m.Signature = &manifest.Signature{
		Algo:         manifest.SignatureAlgo,
		ManifestHash: manifestHash,
		PayloadHash:  payloadHash,
		Timestamp:    timestamp,
		Value:        base64.StdEncoding.EncodeToString(sigBytes),
	}
	return nil
}

func signingPayloadBytes(manifestHash, payloadHash, timestamp, signer string) ([]byte, error) {
	doc := map[string]interface{}{
		"manifest_hash": manifestHash,
		"payload_hash":  payloadHash,
		"timestamp":     timestamp,
		"signer":        signer,
	}
	b, err := CanonicalJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("verifier: canonicalizing signing payload: %w", err)
	}
	return b, nil
}

// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package manifest defines the declarative manifest.toml schema carried by
// every sync archive: policy, permissions, ownership, verification,
// capabilities, encryption, and signature metadata.
package manifest

import (
	"bytes"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/koh0920/syncarchive/pkg/vault"
)

// Variant enumerates the sync.variant field.
type Variant string

const (
	VariantPlain Variant = "plain"
	VariantVault Variant = "vault"
	VariantApp   Variant = "app"
	VariantData  Variant = "data"
)

// Sync carries the archive's identity and content-shape fields.
type Sync struct {
	Version     string  `toml:"version"`
	ContentType string  `toml:"content_type"`
	DisplayExt  string  `toml:"display_ext"`
	Variant     Variant `toml:"variant"`
}

// Meta carries provenance fields.
type Meta struct {
	CreatedBy string    `toml:"created_by"`
	CreatedAt time.Time `toml:"created_at"`
	HashAlgo  string    `toml:"hash_algo"`
}

// Policy carries TTL and execution timeout, both in seconds.
type Policy struct {
	TTL     int64 `toml:"ttl"`
	Timeout int64 `toml:"timeout"`
}

// Permissions carries the manifest-declared allowlists that bound every
// session's effective permissions.
type Permissions struct {
	AllowHosts []string `toml:"allow_hosts"`
	AllowEnv   []string `toml:"allow_env"`
}

// Ownership carries optional owning-capsule metadata.
type Ownership struct {
	OwnerCapsule string `toml:"owner_capsule,omitempty"`
	WriteAllowed bool   `toml:"write_allowed"`
}

// Verification declares whether and how the archive is meant to be
// verified at runtime.
type Verification struct {
	Enabled   bool   `toml:"enabled"`
	VMType    string `toml:"vm_type,omitempty"`
	ProofType string `toml:"proof_type,omitempty"`
}

// Encryption declares whether the payload is passphrase-encrypted and,
// if so, the non-authoritative metadata needed to re-derive the key.
type Encryption struct {
	Enabled   bool            `toml:"enabled"`
	Algorithm string          `toml:"algorithm,omitempty"`
	Metadata  *vault.Metadata `toml:"metadata,omitempty"`
}

// Signature carries a detached Ed25519 signature over the rest of the
// manifest, keyed to the signer named in meta.created_by.
type Signature struct {
	Algo         string `toml:"algo"`
	ManifestHash string `toml:"manifest_hash"`
	PayloadHash  string `toml:"payload_hash,omitempty"`
	Timestamp    string `toml:"timestamp"`
	Value        string `toml:"value"`
}

// SignatureAlgo is the only supported signature algorithm.
const SignatureAlgo = "ed25519"

// Manifest is the full parsed manifest.toml document. Unknown top-level
// sections (tables) and unknown keys within known sections are preserved
// in Extra and re-emitted on Marshal, per the "preserved on rewrite when
// feasible" contract; unknown top-level scalar keys are not preserved.
type Manifest struct {
	Sync         Sync         `toml:"sync"`
	Meta         Meta         `toml:"meta"`
	Policy       Policy       `toml:"policy"`
	Permissions  Permissions  `toml:"permissions"`
	Ownership    Ownership    `toml:"ownership"`
	Verification Verification `toml:"verification"`
	Capabilities []string     `toml:"capabilities"`
	Encryption   Encryption   `toml:"encryption"`
	Signature    *Signature   `toml:"signature,omitempty"`

	// Extra preserves fields this version of the schema does not know
	// about, keyed by section name then field name, so round-tripping a
	// manifest written by a newer version doesn't silently drop data.
	Extra map[string]map[string]interface{} `toml:"-"`
}

// New returns a manifest with sensible defaults: plain variant, current
// timestamp, and the default hash algorithm.
func New(contentType, displayExt string) *Manifest {
	return &Manifest{
		Sync: Sync{
			Version:     "1",
			ContentType: contentType,
			DisplayExt:  displayExt,
			Variant:     VariantPlain,
		},
		Meta: Meta{
			CreatedAt: time.Now().UTC(),
			HashAlgo:  "blake3",
		},
	}
}

// IsVault reports whether this manifest describes a vault archive, per
// true iff sync.variant == vault OR encryption.enabled.
func (m *Manifest) IsVault() bool {
	return m.Sync.Variant == VariantVault || m.Encryption.Enabled
}

// IsExpired reports whether the manifest's TTL has elapsed since creation.
// A zero TTL means the archive never expires.
func (m *Manifest) IsExpired(now time.Time) bool {
	if m.Policy.TTL <= 0 {
		return false
	}
	return now.After(m.Meta.CreatedAt.Add(time.Duration(m.Policy.TTL) * time.Second))
}

// CanonicalFields returns the manifest's section map with the signature
// section removed, for hashing under the canonicalization rule below. The
// caller is responsible for serializing this map with sorted keys.
func (m *Manifest) CanonicalFields() map[string]interface{} {
	clone := *m
	clone.Signature = nil
	doc := clone.toRaw()
	delete(doc, "signature")
	return doc
}

// Marshal serializes the manifest to its TOML textual form.
func (m *Manifest) Marshal() ([]byte, error) {
	doc := m.toRaw()
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("manifest: encoding: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a manifest.toml document, preserving any fields this
// schema version does not recognize.
func Unmarshal(data []byte) (*Manifest, error) {
	var raw map[string]map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("manifest: parsing: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parsing: %w", err)
	}
	m.Extra = extractExtra(raw)
	return &m, nil
}

// knownFields lists the struct-tag field names handled by each section so
// Unmarshal can compute the unknown remainder.
var knownFields = map[string]map[string]bool{
	"sync":         {"version": true, "content_type": true, "display_ext": true, "variant": true},
	"meta":         {"created_by": true, "created_at": true, "hash_algo": true},
	"policy":       {"ttl": true, "timeout": true},
	"permissions":  {"allow_hosts": true, "allow_env": true},
	"ownership":    {"owner_capsule": true, "write_allowed": true},
	"verification": {"enabled": true, "vm_type": true, "proof_type": true},
	"encryption":   {"enabled": true, "algorithm": true, "metadata": true},
	"signature":    {"algo": true, "manifest_hash": true, "payload_hash": true, "timestamp": true, "value": true},
}

func extractExtra(raw map[string]map[string]interface{}) map[string]map[string]interface{} {
	extra := make(map[string]map[string]interface{})
	for section, fields := range raw {
		if section == "capabilities" {
			continue
		}
		known := knownFields[section]
		for key, val := range fields {
			if known != nil && known[key] {
				continue
			}
			if extra[section] == nil {
				extra[section] = make(map[string]interface{})
			}
			extra[section][key] = val
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

// toRaw flattens the typed manifest plus any preserved Extra fields into a
// generic map suitable for TOML encoding, so unknown fields survive a
// read-modify-write cycle.
func (m *Manifest) toRaw() map[string]interface{} {
	merge := func(section string, known map[string]interface{}) map[string]interface{} {
		if extra, ok := m.Extra[section]; ok {
			for k, v := range extra {
				if _, exists := known[k]; !exists {
					known[k] = v
				}
			}
		}
		return known
	}

	doc := map[string]interface{}{
		"sync": merge("sync", map[string]interface{}{
			"version":      m.Sync.Version,
			"content_type": m.Sync.ContentType,
			"display_ext":  m.Sync.DisplayExt,
			"variant":      string(m.Sync.Variant),
		}),
		"meta": merge("meta", map[string]interface{}{
			"created_by": m.Meta.CreatedBy,
			"created_at": m.Meta.CreatedAt,
			"hash_algo":  m.Meta.HashAlgo,
		}),
		"policy": merge("policy", map[string]interface{}{
			"ttl":     m.Policy.TTL,
			"timeout": m.Policy.Timeout,
		}),
		"permissions": merge("permissions", map[string]interface{}{
			"allow_hosts": nonNilStrings(m.Permissions.AllowHosts),
			"allow_env":   nonNilStrings(m.Permissions.AllowEnv),
		}),
		"ownership": merge("ownership", map[string]interface{}{
			"owner_capsule": m.Ownership.OwnerCapsule,
			"write_allowed": m.Ownership.WriteAllowed,
		}),
		"verification": merge("verification", map[string]interface{}{
			"enabled":    m.Verification.Enabled,
			"vm_type":    m.Verification.VMType,
			"proof_type": m.Verification.ProofType,
		}),
		"capabilities": nonNilStrings(m.Capabilities),
		"encryption":   merge("encryption", encryptionRaw(m.Encryption)),
	}
	if m.Signature != nil {
		doc["signature"] = merge("signature", map[string]interface{}{
			"algo":          m.Signature.Algo,
			"manifest_hash": m.Signature.ManifestHash,
			"payload_hash":  m.Signature.PayloadHash,
			"timestamp":     m.Signature.Timestamp,
			"value":         m.Signature.Value,
		})
	}
	return doc
}

func encryptionRaw(e Encryption) map[string]interface{} {
	raw := map[string]interface{}{
		"enabled":   e.Enabled,
		"algorithm": e.Algorithm,
	}
	if e.Metadata != nil {
		raw["metadata"] = map[string]interface{}{
			"kdf":        e.Metadata.KDF,
			"salt":       e.Metadata.Salt,
			"iterations": e.Metadata.Iterations,
			"user_hint":  e.Metadata.UserHint,
		}
	}
	return raw
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

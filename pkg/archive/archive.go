// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package archive implements the sync archive container: a zip envelope
// with a fixed entry layout (manifest.toml, payload, sync.wasm, and
// optional context.json/sync.proof), opened with byte-offset tracking so
// the payload can be read with a single positioned read, and mutated only
// through an atomic tempfile-and-rename rewrite.
package archive

import (
	"archive/zip"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/koh0920/syncarchive/pkg/manifest"
	"github.com/koh0920/syncarchive/pkg/vault"
)

// Fixed entry names.
const (
	ManifestEntry = "manifest.toml"
	PayloadEntry  = "payload"
	WasmEntry     = "sync.wasm"
	ContextEntry  = "context.json"
	ProofEntry    = "sync.proof"
)

// Entry describes one zip entry's position within the outer file.
type Entry struct {
	Name   string
	Method uint16
	Size   uint64
	Offset int64
}

// Archive is an opened sync archive: the entry index plus the parsed
// manifest. It holds no open file handles between calls.
type Archive struct {
	path     string
	entries  map[string]Entry
	order    []string
	manifest *manifest.Manifest
}

// Open parses the envelope at path, validating the required-entry and
// stored-payload invariants of the container format.
func Open(path string) (*Archive, error) {
	a := &Archive{path: path}
	if err := a.reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Path returns the archive's on-disk path.
func (a *Archive) Path() string { return a.path }

// Manifest returns the parsed manifest.
func (a *Archive) Manifest() *manifest.Manifest { return a.manifest }

// Entries returns every entry in the archive, in envelope order.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.entries[name])
	}
	return out
}

// Entry returns the named entry's index record.
func (a *Archive) Entry(name string) (Entry, bool) {
	e, ok := a.entries[name]
	return e, ok
}

// PayloadEntry returns the payload entry's index record.
func (a *Archive) PayloadEntry() (Entry, bool) { return a.Entry(PayloadEntry) }

// PayloadOffset returns the absolute byte offset of the payload entry's
// data region within the outer file.
func (a *Archive) PayloadOffset() int64 {
	e, _ := a.PayloadEntry()
	return e.Offset
}

// PayloadSize returns the payload entry's uncompressed size.
func (a *Archive) PayloadSize() int64 {
	e, _ := a.PayloadEntry()
	return int64(e.Size)
}

// HasWasm reports whether the archive carries a sync.wasm entry.
func (a *Archive) HasWasm() bool { _, ok := a.Entry(WasmEntry); return ok }

// HasProof reports whether the archive carries a sync.proof entry.
func (a *Archive) HasProof() bool { _, ok := a.Entry(ProofEntry); return ok }

// HasContext reports whether the archive carries a context.json entry.
func (a *Archive) HasContext() bool { _, ok := a.Entry(ContextEntry); return ok }

// IsVault reports whether this archive's manifest describes a vault
// archive.
func (a *Archive) IsVault() bool { return a.manifest.IsVault() }

// ReadPayload returns the full payload bytes via a positioned read at the
// recorded offset, satisfying the offset-stability invariant
// without re-parsing the envelope.
func (a *Archive) ReadPayload() ([]byte, error) {
	return a.readEntryAtOffset(PayloadEntry)
}

// ReadEntry returns the full decompressed bytes of any named entry.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	if name == PayloadEntry {
		return a.readEntryAtOffset(name)
	}
	zr, f, err := a.openZip()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	for _, zf := range zr.File {
		if zf.Name == name {
			rc, err := zf.Open()
			if err != nil {
				return nil, fmt.Errorf("archive: opening entry %q: %w", name, err)
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("archive: entry %q not found", name)
}

// ReadPayloadWithPassword decrypts a vault archive's payload using a
// passphrase-derived key. Non-vault archives fall through to ReadPayload.
func (a *Archive) ReadPayloadWithPassword(passphrase string) ([]byte, error) {
	raw, err := a.ReadPayload()
	if err != nil {
		return nil, err
	}
	if !a.IsVault() {
		return raw, nil
	}
	key, err := a.vaultKey(passphrase)
	if err != nil {
		return nil, err
	}
	plain, err := vault.Decrypt(key, raw)
	if err != nil {
		return nil, fmt.Errorf("archive: decrypting payload: %w", err)
	}
	return plain, nil
}

// WritePayloadWithPassword encrypts plaintext and commits it as the new
// payload for a vault archive. Non-vault archives fall through to
// UpdatePayload.
func (a *Archive) WritePayloadWithPassword(plaintext []byte, passphrase string) error {
	if !a.IsVault() {
		return a.UpdatePayload(plaintext)
	}
	key, err := a.vaultKey(passphrase)
	if err != nil {
		return err
	}
	ciphertext, err := vault.Encrypt(key, plaintext)
	if err != nil {
		return fmt.Errorf("archive: encrypting payload: %w", err)
	}
	return a.UpdatePayload(ciphertext)
}

// Proof returns the raw bytes of the sync.proof entry.
func (a *Archive) Proof() ([]byte, error) {
	return a.ReadEntry(ProofEntry)
}

func (a *Archive) vaultKey(passphrase string) ([]byte, error) {
	enc := a.manifest.Encryption
	if enc.Metadata == nil || enc.Metadata.Salt == "" {
		return nil, fmt.Errorf("archive: vault archive has no key-derivation salt recorded")
	}
	salt, err := hex.DecodeString(enc.Metadata.Salt)
	if err != nil {
		return nil, fmt.Errorf("archive: decoding vault salt: %w", err)
	}
	return vault.DeriveKey(passphrase, salt), nil
}

// UpdatePayload atomically rewrites the archive with a new payload,
// preserving every other entry's name, compression method, and raw bytes
// unchanged. Implements the crash-safe tempfile-and-rename contract:
// on success the archive is reopened so offsets reflect the new file.
func (a *Archive) UpdatePayload(data []byte) error {
	return a.rewriteEntry(PayloadEntry, data, zip.Store)
}

// UpdateEntry atomically rewrites (or adds) a non-payload entry, deflating
// it, preserving every other entry's name, compression method, and raw
// bytes unchanged. Used by proof anchoring to add/replace sync.proof
// without disturbing the rest of the envelope.
func (a *Archive) UpdateEntry(name string, data []byte) error {
	if name == PayloadEntry {
		return fmt.Errorf("archive: use UpdatePayload to rewrite %q", PayloadEntry)
	}
	return a.rewriteEntry(name, data, zip.Deflate)
}

// rewriteEntry atomically rewrites the archive, replacing (or adding) the
// named entry with data written under method, preserving every other
// entry's raw bytes unchanged. Implements the crash-safe
// tempfile-and-rename contract: on success the archive is reopened so
// offsets reflect the new file.
func (a *Archive) rewriteEntry(name string, data []byte, method uint16) error {
	dir := filepath.Dir(a.path)
	tmp, err := os.CreateTemp(dir, ".tmp-sync-*.sync")
	if err != nil {
		return fmt.Errorf("archive: creating tempfile: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath) // no-op once renamed away
	}()

	zr, f, err := a.openZip()
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(tmp)
	for _, zf := range zr.File {
		if zf.Name == name {
			continue
		}
		if err := copyRawEntry(zw, zf); err != nil {
			return fmt.Errorf("archive: copying entry %q: %w", zf.Name, err)
		}
	}

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return fmt.Errorf("archive: writing %q header: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("archive: writing %q: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive: finishing envelope: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("archive: closing tempfile: %w", err)
	}
	f.Close()

	if err := os.Rename(tmpPath, a.path); err != nil {
		return fmt.Errorf("archive: renaming into place: %w", err)
	}
	return a.reload()
}

// copyRawEntry copies a zip entry's raw (still-compressed) bytes into a
// new writer without recompression, so non-payload entries are byte-for-
// byte preserved across an UpdatePayload rewrite.
func copyRawEntry(zw *zip.Writer, zf *zip.File) error {
	rc, err := zf.OpenRaw()
	if err != nil {
		return err
	}
	header := zf.FileHeader
	w, err := zw.CreateRaw(&header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, rc)
	return err
}

func (a *Archive) readEntryAtOffset(name string) ([]byte, error) {
	e, ok := a.Entry(name)
	if !ok {
		return nil, fmt.Errorf("archive: entry %q not found", name)
	}
	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("archive: opening file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, e.Size)
	if _, err := f.ReadAt(buf, e.Offset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("archive: positioned read of %q: %w", name, err)
	}
	return buf, nil
}

func (a *Archive) openZip() (*zip.Reader, *os.File, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: opening file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("archive: stat: %w", err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("archive: invalid envelope: %w", err)
	}
	return zr, f, nil
}

// reload re-parses the envelope and manifest, refreshing the entry index
// and its offsets. Called after Open and after every UpdatePayload.
func (a *Archive) reload() error {
	zr, f, err := a.openZip()
	if err != nil {
		return err
	}
	defer f.Close()

	entries := make(map[string]Entry, len(zr.File))
	order := make([]string, 0, len(zr.File))
	for _, zf := range zr.File {
		if _, dup := entries[zf.Name]; dup {
			return fmt.Errorf("archive: duplicate entry name %q", zf.Name)
		}
		offset, err := zf.DataOffset()
		if err != nil {
			return fmt.Errorf("archive: resolving offset of %q: %w", zf.Name, err)
		}
		entries[zf.Name] = Entry{
			Name:   zf.Name,
			Method: zf.Method,
			Size:   zf.UncompressedSize64,
			Offset: offset,
		}
		order = append(order, zf.Name)
	}

	if _, ok := entries[ManifestEntry]; !ok {
		return fmt.Errorf("archive: missing required entry %q", ManifestEntry)
	}
	if _, ok := entries[WasmEntry]; !ok {
		return fmt.Errorf("archive: missing required entry %q", WasmEntry)
	}
	if payload, ok := entries[PayloadEntry]; ok && payload.Method != zip.Store {
		return fmt.Errorf("archive: payload entry must be stored uncompressed, got method %d", payload.Method)
	}

	manifestBytes, err := readZipEntry(zr, ManifestEntry)
	if err != nil {
		return fmt.Errorf("archive: reading manifest: %w", err)
	}
	m, err := manifest.Unmarshal(manifestBytes)
	if err != nil {
		return fmt.Errorf("archive: parsing manifest: %w", err)
	}

	a.entries = entries
	a.order = order
	a.manifest = m
	return nil
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, zf := range zr.File {
		if zf.Name == name {
			rc, err := zf.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %q not found", name)
}

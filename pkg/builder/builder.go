// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package builder produces sync archive files from their components, per
// a manifest, required payload and module bytes, and optional
// context/proof sidecars.
package builder

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"

	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/manifest"
)

// Builder accumulates the components of a sync archive before writing it.
type Builder struct {
	manifest *manifest.Manifest
	payload  []byte
	wasm     []byte
	context  []byte
	proof    []byte
}

// New starts a builder for the given manifest.
func New(m *manifest.Manifest) *Builder {
	return &Builder{manifest: m}
}

// WithPayload sets the required opaque payload bytes.
func (b *Builder) WithPayload(data []byte) *Builder {
	b.payload = data
	return b
}

// WithWasm sets the required embedded program module bytes.
func (b *Builder) WithWasm(data []byte) *Builder {
	b.wasm = data
	return b
}

// WithContext sets the optional auxiliary context bytes.
func (b *Builder) WithContext(data []byte) *Builder {
	b.context = data
	return b
}

// WithProof sets the optional provenance proof bytes.
func (b *Builder) WithProof(data []byte) *Builder {
	b.proof = data
	return b
}

// Build writes the archive to path, creating parent directories as
// needed, and returns it opened. Entries are written manifest.toml,
// payload, sync.wasm, then optional context.json, sync.proof — payload
// stored uncompressed, everything else deflated.
func (b *Builder) Build(path string) (*archive.Archive, error) {
	if b.payload == nil {
		return nil, fmt.Errorf("builder: payload is required")
	}
	if b.wasm == nil {
		return nil, fmt.Errorf("builder: module bytes are required")
	}
	if b.manifest == nil {
		return nil, fmt.Errorf("builder: manifest is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("builder: creating parent directories: %w", err)
		}
	}

	manifestBytes, err := b.manifest.Marshal()
	if err != nil {
		return nil, fmt.Errorf("builder: serializing manifest: %w", err)
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".tmp-sync-*.sync")
	if err != nil {
		return nil, fmt.Errorf("builder: creating tempfile: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath) // no-op once renamed away

	zw := zip.NewWriter(f)
	if err := writeDeflated(zw, archive.ManifestEntry, manifestBytes); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeStored(zw, archive.PayloadEntry, b.payload); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeDeflated(zw, archive.WasmEntry, b.wasm); err != nil {
		f.Close()
		return nil, err
	}
	if b.context != nil {
		if err := writeDeflated(zw, archive.ContextEntry, b.context); err != nil {
			f.Close()
			return nil, err
		}
	}
	if b.proof != nil {
		if err := writeDeflated(zw, archive.ProofEntry, b.proof); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return nil, fmt.Errorf("builder: finishing envelope: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("builder: closing tempfile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("builder: renaming into place: %w", err)
	}

	return archive.Open(path)
}

func writeStored(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("builder: writing %q header: %w", name, err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("builder: writing %q: %w", name, err)
	}
	return nil
}

func writeDeflated(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("builder: writing %q header: %w", name, err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("builder: writing %q: %w", name, err)
	}
	return nil
}

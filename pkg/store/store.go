// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package store implements a directory of sync archives keyed by
// relative path, with atomic create/update/remove/list operations.
// Grounded on original_source's sync_store.rs, adapted from Rust's
// tempfile+zip-crate idiom to Go's archive/zip plus the archive/builder
// packages.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/builder"
	"github.com/koh0920/syncarchive/pkg/manifest"
)

const syncSuffix = ".sync"

// ManifestTemplate supplies the defaults used to build a fresh manifest
// for every new archive the store creates.
type ManifestTemplate struct {
	CreatedBy   string
	TTL         int64
	Timeout     int64
	AllowHosts  []string
	AllowEnv    []string
	MinimalWasm []byte
}

// DefaultManifestTemplate returns a template with no allowlists, no TTL,
// and the smallest possible valid wasm module header as its placeholder
// program.
func DefaultManifestTemplate() ManifestTemplate {
	return ManifestTemplate{
		MinimalWasm: []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
	}
}

// ToManifest builds a fresh manifest from the template for a new archive.
func (t ManifestTemplate) ToManifest(contentType, displayExt string) *manifest.Manifest {
	m := manifest.New(contentType, displayExt)
	m.Meta.CreatedBy = t.CreatedBy
	m.Policy.TTL = t.TTL
	m.Policy.Timeout = t.Timeout
	m.Permissions.AllowHosts = t.AllowHosts
	m.Permissions.AllowEnv = t.AllowEnv
	return m
}

// Store is a directory of sync archives.
type Store struct {
	baseDir  string
	template ManifestTemplate
}

// New returns a store rooted at baseDir with the default manifest template.
func New(baseDir string) *Store {
	return WithTemplate(baseDir, DefaultManifestTemplate())
}

// WithTemplate returns a store rooted at baseDir using the given template.
func WithTemplate(baseDir string, template ManifestTemplate) *Store {
	return &Store{baseDir: baseDir, template: template}
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string { return s.baseDir }

// Template returns the store's manifest template.
func (s *Store) Template() ManifestTemplate { return s.template }

// SyncPathFor resolves a logical name to the on-disk .sync path, without
// creating anything.
func (s *Store) SyncPathFor(name string) (string, error) {
	rel, err := normalizeRelativePath(name)
	if err != nil {
		return "", err
	}
	dir, base := filepath.Split(rel)
	return filepath.Join(s.baseDir, dir, ensureSyncExtension(base)), nil
}

// ResolveSyncPath resolves an already-relative-or-absolute .sync path
// against the store. Absolute paths are returned unchanged.
func (s *Store) ResolveSyncPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	rel, err := normalizeRelativePath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, rel), nil
}

// CreateFromPath builds a new archive named name from the payload file at
// payloadPath, with the given content type, and returns its final path.
func (s *Store) CreateFromPath(name, payloadPath, contentType string) (string, error) {
	syncPath, err := s.SyncPathFor(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(syncPath), 0o755); err != nil {
		return "", fmt.Errorf("store: creating parent directories: %w", err)
	}

	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return "", fmt.Errorf("store: reading payload: %w", err)
	}

	m := s.template.ToManifest(contentType, displayExtFromName(name))
	b := builder.New(m).WithPayload(payload).WithWasm(s.template.MinimalWasm)
	if _, err := b.Build(syncPath); err != nil {
		return "", fmt.Errorf("store: building archive: %w", err)
	}
	return syncPath, nil
}

// UpdatePayloadFromPath rewrites an existing archive's payload from a
// source file, preserving every other entry.
func (s *Store) UpdatePayloadFromPath(syncPath, payloadPath string) error {
	resolved, err := s.ResolveSyncPath(syncPath)
	if err != nil {
		return err
	}
	a, err := archive.Open(resolved)
	if err != nil {
		return fmt.Errorf("store: opening archive: %w", err)
	}
	payloadFile, err := os.Open(payloadPath)
	if err != nil {
		return fmt.Errorf("store: opening payload: %w", err)
	}
	defer payloadFile.Close()
	payload, err := io.ReadAll(payloadFile)
	if err != nil {
		return fmt.Errorf("store: reading payload: %w", err)
	}
	if err := a.UpdatePayload(payload); err != nil {
		return fmt.Errorf("store: updating payload: %w", err)
	}
	return nil
}

// RemoveSync deletes an archive, if present.
func (s *Store) RemoveSync(syncPath string) error {
	resolved, err := s.ResolveSyncPath(syncPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(resolved); os.IsNotExist(err) {
		return nil
	}
	if err := os.Remove(resolved); err != nil {
		return fmt.Errorf("store: removing archive: %w", err)
	}
	return nil
}

// ListSyncs walks the store recursively, returning every .sync file path.
func (s *Store) ListSyncs() ([]string, error) {
	var out []string
	if _, err := os.Stat(s.baseDir); os.IsNotExist(err) {
		return out, nil
	}
	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, syncSuffix) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: listing archives: %w", err)
	}
	return out, nil
}

func ensureSyncExtension(name string) string {
	if strings.HasSuffix(name, syncSuffix) {
		return name
	}
	return name + syncSuffix
}

func displayExtFromName(name string) string {
	trimmed := strings.TrimPrefix(name, "/")
	withoutSync := strings.TrimSuffix(trimmed, syncSuffix)
	ext := filepath.Ext(withoutSync)
	return strings.TrimPrefix(ext, ".")
}

// normalizeRelativePath strips a single leading slash, so "/a/b" is read
// as the store-relative "a/b", then rejects an empty result, any ".." or
// empty segment, and a platform drive prefix.
func normalizeRelativePath(name string) (string, error) {
	trimmed := strings.TrimPrefix(name, "/")
	if trimmed == "" {
		return "", fmt.Errorf("store: invalid name %q", name)
	}
	if len(trimmed) >= 2 && trimmed[1] == ':' {
		return "", fmt.Errorf("store: invalid path %q: drive prefix not allowed", name)
	}
	for _, seg := range strings.Split(trimmed, "/") {
		switch seg {
		case "..", "":
			return "", fmt.Errorf("store: invalid path %q", name)
		}
	}
	return filepath.FromSlash(trimmed), nil
}

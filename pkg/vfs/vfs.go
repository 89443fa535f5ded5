// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package vfs exposes sync archives over WebDAV (golang.org/x/net/webdav),
// in two modes: a read-only single-archive mount that surfaces
// one archive's payload as a single file at the mount root, and a
// writable store mount (writable.go) backed by a directory of archives.
//
// Grounded on original_source's crates/sync-fs/src/vfs.rs (single-archive
// mount, display-name construction) and
// crates/sync-fs/src/webdav/writable.rs (the writable multi-archive
// adapter), translated from dav_server's async trait methods to
// golang.org/x/net/webdav's synchronous FileSystem/File interfaces.
package vfs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/webdav"

	"github.com/koh0920/syncarchive/pkg/archive"
)

// ArchiveFileSystem mounts a single archive's payload read-only at the
// webdav root under its display name.
type ArchiveFileSystem struct {
	archivePath string
	displayName string
	contentType string
	offset      int64
	size        int64
	mountedAt   time.Time
}

// NewArchiveFileSystem builds a read-only mount exposing a's payload.
func NewArchiveFileSystem(a *archive.Archive) (*ArchiveFileSystem, error) {
	payload, ok := a.PayloadEntry()
	if !ok {
		return nil, fs.ErrNotExist
	}
	base := archiveFileStem(a.Path())
	m := a.Manifest()
	return &ArchiveFileSystem{
		archivePath: a.Path(),
		displayName: buildDisplayName(base, m.Sync.DisplayExt),
		contentType: m.Sync.ContentType,
		offset:      payload.Offset,
		size:        int64(payload.Size),
		mountedAt:   time.Now(),
	}, nil
}

func (f *ArchiveFileSystem) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	return fs.ErrPermission
}

func (f *ArchiveFileSystem) RemoveAll(ctx context.Context, name string) error {
	return fs.ErrPermission
}

func (f *ArchiveFileSystem) Rename(ctx context.Context, oldName, newName string) error {
	return fs.ErrPermission
}

func (f *ArchiveFileSystem) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) != 0 {
		return nil, fs.ErrPermission
	}
	clean := strings.TrimPrefix(name, "/")
	if clean == "" {
		return newRootDirFile(f), nil
	}
	if clean != f.displayName {
		return nil, fs.ErrNotExist
	}
	handle, err := os.Open(f.archivePath)
	if err != nil {
		return nil, err
	}
	return &archivePayloadFile{
		handle: handle,
		info:   f.fileInfo(),
		offset: f.offset,
		size:   f.size,
	}, nil
}

func (f *ArchiveFileSystem) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	clean := strings.TrimPrefix(name, "/")
	if clean == "" {
		return rootDirInfo(f.mountedAt), nil
	}
	if clean != f.displayName {
		return nil, fs.ErrNotExist
	}
	return f.fileInfo(), nil
}

func (f *ArchiveFileSystem) fileInfo() os.FileInfo {
	return staticFileInfo{name: f.displayName, size: f.size, modTime: f.mountedAt}
}

// archiveFileStem returns the archive's display base name: its filename
// without the .sync suffix.
func archiveFileStem(archivePath string) string {
	base := filepath.Base(archivePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// buildDisplayName appends displayExt to baseName unless displayExt is
// empty or baseName already ends with it, per vfs.rs's build_display_name.
func buildDisplayName(baseName, displayExt string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(displayExt), ".")
	if normalized == "" {
		return baseName
	}
	suffix := "." + normalized
	if strings.HasSuffix(baseName, suffix) {
		return baseName
	}
	return baseName + suffix
}

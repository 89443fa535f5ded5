// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package vfs

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/webdav"

	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/store"
)

// StoreFileSystem exposes a store.Store's directory of .sync archives as
// a writable WebDAV tree: each archive's display name appears as a
// regular file; writes go through a tempfile and commit into the store on
// Close, grounded on writable.rs's WritableSyncFs.
type StoreFileSystem struct {
	store   *store.Store
	created time.Time
}

// NewStoreFileSystem wraps s for writable WebDAV access.
func NewStoreFileSystem(s *store.Store) *StoreFileSystem {
	return &StoreFileSystem{store: s, created: time.Now()}
}

func isIgnoredName(name string) bool {
	return strings.HasPrefix(name, "._") || name == ".DS_Store"
}

// relPath rejects any parent-directory or absolute-root escape and
// returns the slash-trimmed relative path.
func relPath(name string) (string, error) {
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", fs.ErrPermission
		}
	}
	return strings.TrimPrefix(path.Clean("/"+name), "/"), nil
}

func (s *StoreFileSystem) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	rel, err := relPath(name)
	if err != nil {
		return err
	}
	if rel == "" {
		return nil
	}
	return os.MkdirAll(filepath.Join(s.store.BaseDir(), filepath.FromSlash(rel)), 0o755)
}

func (s *StoreFileSystem) RemoveAll(ctx context.Context, name string) error {
	rel, err := relPath(name)
	if err != nil {
		return err
	}
	if rel == "" {
		return fs.ErrPermission
	}
	dirPath := filepath.Join(s.store.BaseDir(), filepath.FromSlash(rel))
	if info, statErr := os.Stat(dirPath); statErr == nil && info.IsDir() {
		return os.Remove(dirPath)
	}
	syncPath, err := s.resolveSyncPath(rel)
	if err != nil {
		return err
	}
	if syncPath == "" {
		return fs.ErrNotExist
	}
	return s.store.RemoveSync(syncPath)
}

func (s *StoreFileSystem) Rename(ctx context.Context, oldName, newName string) error {
	fromRel, err := relPath(oldName)
	if err != nil {
		return err
	}
	toRel, err := relPath(newName)
	if err != nil {
		return err
	}
	fromDir := filepath.Join(s.store.BaseDir(), filepath.FromSlash(fromRel))
	if info, statErr := os.Stat(fromDir); statErr == nil && info.IsDir() {
		toDir := filepath.Join(s.store.BaseDir(), filepath.FromSlash(toRel))
		return os.Rename(fromDir, toDir)
	}
	if isIgnoredName(path.Base(fromRel)) || isIgnoredName(path.Base(toRel)) {
		return nil
	}
	fromSync, err := s.resolveSyncPath(fromRel)
	if err != nil {
		return err
	}
	if fromSync == "" {
		return fs.ErrNotExist
	}
	toSync, err := s.store.SyncPathFor(toRel)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(toSync); statErr == nil {
		os.Remove(toSync)
	}
	if err := os.MkdirAll(filepath.Dir(toSync), 0o755); err != nil {
		return err
	}
	return os.Rename(fromSync, toSync)
}

func (s *StoreFileSystem) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	rel, err := relPath(name)
	if err != nil {
		return nil, err
	}
	if rel == "" {
		if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
			return nil, fs.ErrPermission
		}
		return s.openRootDir()
	}
	if isIgnoredName(path.Base(rel)) {
		return newNoopFile(), nil
	}

	wantsWrite := flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC) != 0
	if wantsWrite {
		existing, err := s.resolveSyncPath(rel)
		if err != nil {
			return nil, err
		}
		if flag&os.O_EXCL != 0 && existing != "" {
			return nil, fs.ErrExist
		}
		if existing == "" && flag&os.O_CREATE == 0 {
			return nil, fs.ErrNotExist
		}
		tmp, err := os.CreateTemp("", "vfs-write-*")
		if err != nil {
			return nil, err
		}
		return &storeWriteFile{
			store:       s.store,
			tmp:         tmp,
			existing:    existing,
			name:        rel,
			contentType: guessContentType(rel),
			created:     time.Now(),
		}, nil
	}

	syncPath, err := s.resolveSyncPath(rel)
	if err != nil {
		return nil, err
	}
	if syncPath == "" {
		return nil, fs.ErrNotExist
	}
	return s.openArchiveFile(syncPath)
}

func (s *StoreFileSystem) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	rel, err := relPath(name)
	if err != nil {
		return nil, err
	}
	if rel == "" {
		return rootDirInfo(s.created), nil
	}
	dirPath := filepath.Join(s.store.BaseDir(), filepath.FromSlash(rel))
	if info, statErr := os.Stat(dirPath); statErr == nil && info.IsDir() {
		return staticFileInfo{name: path.Base(rel), modTime: info.ModTime(), dir: true}, nil
	}
	if isIgnoredName(path.Base(rel)) {
		return staticFileInfo{name: path.Base(rel), modTime: time.Now()}, nil
	}
	syncPath, err := s.resolveSyncPath(rel)
	if err != nil {
		return nil, err
	}
	if syncPath == "" {
		return nil, fs.ErrNotExist
	}
	entry, err := s.entryFromPath(syncPath)
	if err != nil {
		return nil, err
	}
	return staticFileInfo{name: entry.displayName, size: entry.size, modTime: entry.modTime}, nil
}

// resolveSyncPath maps a display-path relative name back to its on-disk
// .sync path, trying the direct mapping first, then scanning the parent
// directory for an archive whose display name matches.
func (s *StoreFileSystem) resolveSyncPath(rel string) (string, error) {
	candidate, err := s.store.SyncPathFor(rel)
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(candidate); statErr == nil {
		return candidate, nil
	}

	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	base := path.Base(rel)
	dirPath := filepath.Join(s.store.BaseDir(), filepath.FromSlash(dir))
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return "", nil
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sync" {
			continue
		}
		full := filepath.Join(dirPath, e.Name())
		entry, err := s.entryFromPath(full)
		if err != nil {
			continue
		}
		if entry.displayName == base {
			return full, nil
		}
	}
	return "", nil
}

type syncFileEntry struct {
	displayName string
	offset      int64
	size        int64
	modTime     time.Time
}

func (s *StoreFileSystem) entryFromPath(syncPath string) (syncFileEntry, error) {
	a, err := archive.Open(syncPath)
	if err != nil {
		return syncFileEntry{}, err
	}
	payload, ok := a.PayloadEntry()
	if !ok {
		return syncFileEntry{}, fs.ErrNotExist
	}
	info, err := os.Stat(syncPath)
	if err != nil {
		return syncFileEntry{}, err
	}
	base := archiveFileStem(syncPath)
	return syncFileEntry{
		displayName: buildDisplayName(base, a.Manifest().Sync.DisplayExt),
		offset:      payload.Offset,
		size:        int64(payload.Size),
		modTime:     info.ModTime(),
	}, nil
}

func (s *StoreFileSystem) openArchiveFile(syncPath string) (webdav.File, error) {
	entry, err := s.entryFromPath(syncPath)
	if err != nil {
		return nil, err
	}
	handle, err := os.Open(syncPath)
	if err != nil {
		return nil, err
	}
	return &archivePayloadFile{
		handle: handle,
		info:   staticFileInfo{name: entry.displayName, size: entry.size, modTime: entry.modTime},
		offset: entry.offset,
		size:   entry.size,
	}, nil
}

func (s *StoreFileSystem) openRootDir() (webdav.File, error) {
	syncs, err := s.store.ListSyncs()
	if err != nil {
		return nil, err
	}
	var entries []os.FileInfo
	for _, p := range syncs {
		entry, err := s.entryFromPath(p)
		if err != nil {
			continue
		}
		if isIgnoredName(entry.displayName) {
			continue
		}
		entries = append(entries, staticFileInfo{name: entry.displayName, size: entry.size, modTime: entry.modTime})
	}
	return &rootDirFile{info: rootDirInfo(s.created), entries: entries}, nil
}

// storeWriteFile buffers writes to a tempfile and commits them into the
// store on Close, mirroring writable.rs's WriteBuffer/commit_write.
type storeWriteFile struct {
	store       *store.Store
	tmp         *os.File
	existing    string // on-disk .sync path, empty for a new archive
	name        string // relative display name for a new archive
	contentType string
	created     time.Time
	committed   bool
}

func (w *storeWriteFile) Write(p []byte) (int, error) { return w.tmp.Write(p) }
func (w *storeWriteFile) Read(p []byte) (int, error)  { return 0, io.EOF }
func (w *storeWriteFile) Seek(int64, int) (int64, error) { return 0, nil }

func (w *storeWriteFile) Stat() (os.FileInfo, error) {
	info, err := w.tmp.Stat()
	if err != nil {
		return nil, err
	}
	return staticFileInfo{name: w.name, size: info.Size(), modTime: w.created}, nil
}

func (w *storeWriteFile) Readdir(count int) ([]os.FileInfo, error) { return nil, fs.ErrInvalid }

func (w *storeWriteFile) Close() error {
	defer os.Remove(w.tmp.Name())
	if w.committed {
		return w.tmp.Close()
	}
	if err := w.tmp.Sync(); err != nil {
		w.tmp.Close()
		return err
	}
	if err := w.tmp.Close(); err != nil {
		return err
	}

	var err error
	if w.existing != "" {
		err = w.store.UpdatePayloadFromPath(w.existing, w.tmp.Name())
	} else {
		_, err = w.store.CreateFromPath(w.name, w.tmp.Name(), w.contentType)
	}
	if err != nil {
		return err
	}
	w.committed = true
	return nil
}

// noopFile silently discards everything, matching writable.rs's handling
// of macOS metadata sidecar files (._*, .DS_Store).
type noopFile struct{ created time.Time }

func newNoopFile() *noopFile { return &noopFile{created: time.Now()} }

func (n *noopFile) Write(p []byte) (int, error) { return len(p), nil }
func (n *noopFile) Read(p []byte) (int, error)  { return 0, io.EOF }
func (n *noopFile) Seek(int64, int) (int64, error) { return 0, nil }
func (n *noopFile) Close() error                { return nil }
func (n *noopFile) Stat() (os.FileInfo, error) {
	return staticFileInfo{name: "", modTime: n.created}, nil
}
func (n *noopFile) Readdir(count int) ([]os.FileInfo, error) { return nil, fs.ErrInvalid }

// guessContentType maps a display name's extension to a MIME type, per
// writable.rs's guess_content_type.
func guessContentType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "txt":
		return "text/plain"
	case "csv":
		return "text/csv"
	case "json":
		return "application/json"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "svg":
		return "image/svg+xml"
	case "html", "htm":
		return "text/html"
	case "md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}

// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package vfs

import (
	"io"
	"io/fs"
	"os"
	"time"
)

// staticFileInfo is a fixed os.FileInfo for a single file or directory, used
// wherever a webdav mount needs to answer Stat/Readdir without a backing
// *os.File (archives have no directory entry of their own — their
// metadata is read from the .sync file they're carried in).
type staticFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

func (s staticFileInfo) Name() string       { return s.name }
func (s staticFileInfo) Size() int64        { return s.size }
func (s staticFileInfo) ModTime() time.Time { return s.modTime }
func (s staticFileInfo) IsDir() bool        { return s.dir }
func (s staticFileInfo) Sys() interface{}   { return nil }
func (s staticFileInfo) Mode() fs.FileMode {
	if s.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

func rootDirInfo(modTime time.Time) os.FileInfo {
	return staticFileInfo{name: "/", modTime: modTime, dir: true}
}

// archivePayloadFile serves read-only positioned reads of one archive's
// payload region through the webdav.File interface.
type archivePayloadFile struct {
	handle *os.File
	info   os.FileInfo
	offset int64
	size   int64
	pos    int64
}

func (a *archivePayloadFile) Read(p []byte) (int, error) {
	remaining := a.size - a.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := a.handle.ReadAt(p, a.offset+a.pos)
	a.pos += int64(n)
	return n, err
}

func (a *archivePayloadFile) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = a.pos + offset
	case io.SeekEnd:
		target = a.size + offset
	}
	if target < 0 {
		return 0, fs.ErrInvalid
	}
	a.pos = target
	return a.pos, nil
}

func (a *archivePayloadFile) Write(p []byte) (int, error) { return 0, fs.ErrPermission }
func (a *archivePayloadFile) Close() error                { return a.handle.Close() }
func (a *archivePayloadFile) Stat() (os.FileInfo, error)  { return a.info, nil }
func (a *archivePayloadFile) Readdir(count int) ([]os.FileInfo, error) {
	return nil, fs.ErrInvalid
}

// rootDirFile is a synthetic directory handle listing a fixed set of
// entries, returned for webdav root/collection reads.
type rootDirFile struct {
	info    os.FileInfo
	entries []os.FileInfo
}

func newRootDirFile(f *ArchiveFileSystem) *rootDirFile {
	return &rootDirFile{
		info:    rootDirInfo(f.mountedAt),
		entries: []os.FileInfo{f.fileInfo()},
	}
}

func (r *rootDirFile) Read(p []byte) (int, error)         { return 0, io.EOF }
func (r *rootDirFile) Seek(int64, int) (int64, error)     { return 0, nil }
func (r *rootDirFile) Write(p []byte) (int, error)        { return 0, fs.ErrPermission }
func (r *rootDirFile) Close() error                       { return nil }
func (r *rootDirFile) Stat() (os.FileInfo, error)         { return r.info, nil }
func (r *rootDirFile) Readdir(count int) ([]os.FileInfo, error) {
	return r.entries, nil
}

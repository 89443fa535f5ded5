package vfs_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/builder"
	"github.com/koh0920/syncarchive/pkg/manifest"
	"github.com/koh0920/syncarchive/pkg/vfs"
)

func buildArchiveAt(t *testing.T, path string, payload []byte, contentType, displayExt string) *archive.Archive {
	t.Helper()
	m := manifest.New(contentType, displayExt)
	a, err := builder.New(m).WithPayload(payload).WithWasm([]byte("\x00asm")).Build(path)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return a
}

func TestArchiveFileSystemServesPayloadAtDisplayName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.sync")
	payload := []byte("quarterly figures go here")
	a := buildArchiveAt(t, path, payload, "text/plain", "txt")

	fsys, err := vfs.NewArchiveFileSystem(a)
	if err != nil {
		t.Fatalf("NewArchiveFileSystem: %v", err)
	}

	ctx := context.Background()
	f, err := fsys.OpenFile(ctx, "/report.txt", os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("served payload mismatch: got %q, want %q", got, payload)
	}
}

func TestArchiveFileSystemRejectsUnknownPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.sync")
	a := buildArchiveAt(t, path, []byte("x"), "text/plain", "txt")

	fsys, err := vfs.NewArchiveFileSystem(a)
	if err != nil {
		t.Fatalf("NewArchiveFileSystem: %v", err)
	}

	if _, err := fsys.OpenFile(context.Background(), "/nonexistent.txt", os.O_RDONLY, 0); err == nil {
		t.Fatal("expected an error opening a path other than the archive's display name")
	}
}

func TestArchiveFileSystemRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.sync")
	a := buildArchiveAt(t, path, []byte("x"), "text/plain", "txt")

	fsys, err := vfs.NewArchiveFileSystem(a)
	if err != nil {
		t.Fatalf("NewArchiveFileSystem: %v", err)
	}

	ctx := context.Background()
	if _, err := fsys.OpenFile(ctx, "/report.txt", os.O_WRONLY, 0); err == nil {
		t.Fatal("expected OpenFile with O_WRONLY to be rejected")
	}
	if err := fsys.Mkdir(ctx, "/sub", 0o755); err == nil {
		t.Fatal("expected Mkdir to be rejected on a read-only mount")
	}
	if err := fsys.RemoveAll(ctx, "/report.txt"); err == nil {
		t.Fatal("expected RemoveAll to be rejected on a read-only mount")
	}
	if err := fsys.Rename(ctx, "/report.txt", "/other.txt"); err == nil {
		t.Fatal("expected Rename to be rejected on a read-only mount")
	}
}

func TestArchiveFileSystemRootListsOneEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.sync")
	a := buildArchiveAt(t, path, []byte("x"), "text/plain", "txt")

	fsys, err := vfs.NewArchiveFileSystem(a)
	if err != nil {
		t.Fatalf("NewArchiveFileSystem: %v", err)
	}

	root, err := fsys.OpenFile(context.Background(), "/", os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("OpenFile(/): %v", err)
	}
	defer root.Close()

	entries, err := root.Readdir(-1)
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "report.txt" {
		t.Fatalf("expected a single report.txt entry, got %v", entries)
	}
}

func TestArchiveFileSystemDoesNotDuplicateDisplayExt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "already.txt.sync")
	a := buildArchiveAt(t, path, []byte("x"), "text/plain", "txt")

	fsys, err := vfs.NewArchiveFileSystem(a)
	if err != nil {
		t.Fatalf("NewArchiveFileSystem: %v", err)
	}
	info, err := fsys.Stat(context.Background(), "/already.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Name() != "already.txt" {
		t.Fatalf("expected display name already.txt without duplication, got %q", info.Name())
	}
}

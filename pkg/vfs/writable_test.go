package vfs_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/koh0920/syncarchive/pkg/store"
	"github.com/koh0920/syncarchive/pkg/vfs"
)

func TestStoreFileSystemCreateThenReadBack(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))
	fsys := vfs.NewStoreFileSystem(s)
	ctx := context.Background()

	f, err := fsys.OpenFile(ctx, "/notes/first.txt", os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("OpenFile (create): %v", err)
	}
	content := []byte("first note content")
	if _, err := f.Write(content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close (commit): %v", err)
	}

	readFile, err := fsys.OpenFile(ctx, "/notes/first.txt", os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("OpenFile (read): %v", err)
	}
	defer readFile.Close()
	got, err := io.ReadAll(readFile)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("roundtrip mismatch: got %q, want %q", got, content)
	}
}

func TestStoreFileSystemUpdateExistingArchive(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))
	fsys := vfs.NewStoreFileSystem(s)
	ctx := context.Background()

	create := func(content string) {
		f, err := fsys.OpenFile(ctx, "/doc.txt", os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			t.Fatalf("OpenFile: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	create("version one")
	create("version two, now longer than before")

	readFile, err := fsys.OpenFile(ctx, "/doc.txt", os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("OpenFile (read): %v", err)
	}
	defer readFile.Close()
	got, err := io.ReadAll(readFile)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "version two, now longer than before" {
		t.Fatalf("expected the second write to win, got %q", got)
	}

	syncs, err := s.ListSyncs()
	if err != nil {
		t.Fatalf("ListSyncs: %v", err)
	}
	if len(syncs) != 1 {
		t.Fatalf("expected exactly one archive after an update, got %d: %v", len(syncs), syncs)
	}
}

func TestStoreFileSystemOpenMissingFileFails(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))
	fsys := vfs.NewStoreFileSystem(s)

	if _, err := fsys.OpenFile(context.Background(), "/nope.txt", os.O_RDONLY, 0); err == nil {
		t.Fatal("expected an error reading a file that was never created")
	}
}

func TestStoreFileSystemIgnoresSidecarFiles(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))
	fsys := vfs.NewStoreFileSystem(s)
	ctx := context.Background()

	f, err := fsys.OpenFile(ctx, "/._hidden", os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("OpenFile on a sidecar file should not error: %v", err)
	}
	if _, err := f.Write([]byte("should be discarded")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	syncs, err := s.ListSyncs()
	if err != nil {
		t.Fatalf("ListSyncs: %v", err)
	}
	if len(syncs) != 0 {
		t.Fatalf("expected the sidecar write to create no archive, got %v", syncs)
	}
}

func TestStoreFileSystemRejectsPathEscape(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))
	fsys := vfs.NewStoreFileSystem(s)

	if _, err := fsys.OpenFile(context.Background(), "/../../etc/passwd", os.O_RDONLY, 0); err == nil {
		t.Fatal("expected an error opening a path that escapes the store root")
	}
}

func TestStoreFileSystemRootListing(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))
	fsys := vfs.NewStoreFileSystem(s)
	ctx := context.Background()

	for _, name := range []string{"/a.txt", "/b.txt"} {
		f, err := fsys.OpenFile(ctx, name, os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			t.Fatalf("OpenFile(%q): %v", name, err)
		}
		if _, err := f.Write([]byte("x")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	root, err := fsys.OpenFile(ctx, "/", os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("OpenFile(/): %v", err)
	}
	defer root.Close()
	entries, err := root.Readdir(-1)
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(entries), entries)
	}
}

func TestStoreFileSystemRemoveAll(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))
	fsys := vfs.NewStoreFileSystem(s)
	ctx := context.Background()

	f, err := fsys.OpenFile(ctx, "/gone.txt", os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := fsys.RemoveAll(ctx, "/gone.txt"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := fsys.OpenFile(ctx, "/gone.txt", os.O_RDONLY, 0); err == nil {
		t.Fatal("expected the removed archive to no longer be readable")
	}
}

package store_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/store"
)

func writeTempFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestCreateFromPathAndOpen(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))

	payloadPath := writeTempFile(t, tmp, "note.txt", []byte("hello store"))
	syncPath, err := s.CreateFromPath("notes/first.txt", payloadPath, "text/plain")
	if err != nil {
		t.Fatalf("CreateFromPath: %v", err)
	}

	a, err := archive.Open(syncPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := a.ReadPayload()
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	if !bytes.Equal(got, []byte("hello store")) {
		t.Fatalf("payload mismatch: %q", got)
	}
	if a.Manifest().Sync.DisplayExt != "txt" {
		t.Fatalf("expected display ext txt, got %q", a.Manifest().Sync.DisplayExt)
	}
}

func TestUpdatePayloadFromPath(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))

	payloadPath := writeTempFile(t, tmp, "note.txt", []byte("version one"))
	syncPath, err := s.CreateFromPath("doc.txt", payloadPath, "text/plain")
	if err != nil {
		t.Fatalf("CreateFromPath: %v", err)
	}

	newPayloadPath := writeTempFile(t, tmp, "note2.txt", []byte("version two"))
	if err := s.UpdatePayloadFromPath(syncPath, newPayloadPath); err != nil {
		t.Fatalf("UpdatePayloadFromPath: %v", err)
	}

	a, err := archive.Open(syncPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := a.ReadPayload()
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	if !bytes.Equal(got, []byte("version two")) {
		t.Fatalf("expected updated payload, got %q", got)
	}
}

func TestRemoveSyncIsIdempotent(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))
	payloadPath := writeTempFile(t, tmp, "note.txt", []byte("x"))
	syncPath, err := s.CreateFromPath("gone.txt", payloadPath, "text/plain")
	if err != nil {
		t.Fatalf("CreateFromPath: %v", err)
	}

	if err := s.RemoveSync(syncPath); err != nil {
		t.Fatalf("RemoveSync: %v", err)
	}
	if _, err := os.Stat(syncPath); !os.IsNotExist(err) {
		t.Fatal("expected archive file to be removed")
	}
	// Removing again should be a no-op, not an error.
	if err := s.RemoveSync(syncPath); err != nil {
		t.Fatalf("RemoveSync on an already-removed archive: %v", err)
	}
}

func TestListSyncsWalksRecursively(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "archives"))

	p1 := writeTempFile(t, tmp, "a.txt", []byte("a"))
	p2 := writeTempFile(t, tmp, "b.txt", []byte("b"))
	if _, err := s.CreateFromPath("top.txt", p1, "text/plain"); err != nil {
		t.Fatalf("CreateFromPath: %v", err)
	}
	if _, err := s.CreateFromPath("nested/deep.txt", p2, "text/plain"); err != nil {
		t.Fatalf("CreateFromPath: %v", err)
	}

	list, err := s.ListSyncs()
	if err != nil {
		t.Fatalf("ListSyncs: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 archives, got %d: %v", len(list), list)
	}
}

func TestListSyncsOnMissingBaseDirReturnsEmpty(t *testing.T) {
	tmp := t.TempDir()
	s := store.New(filepath.Join(tmp, "does-not-exist"))
	list, err := s.ListSyncs()
	if err != nil {
		t.Fatalf("ListSyncs: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no archives, got %v", list)
	}
}

func TestSyncPathForRejectsEscape(t *testing.T) {
	s := store.New(t.TempDir())
	cases := []string{"../escape.txt", "a/../../b.txt", "", "/"}
	for _, c := range cases {
		if _, err := s.SyncPathFor(c); err == nil {
			t.Fatalf("expected SyncPathFor(%q) to reject path traversal", c)
		}
	}
}

func TestSyncPathForAddsExtension(t *testing.T) {
	s := store.New(t.TempDir())
	p, err := s.SyncPathFor("docs/readme")
	if err != nil {
		t.Fatalf("SyncPathFor: %v", err)
	}
	if filepath.Ext(p) != ".sync" {
		t.Fatalf("expected .sync extension appended, got %q", p)
	}

	p2, err := s.SyncPathFor("docs/readme.sync")
	if err != nil {
		t.Fatalf("SyncPathFor: %v", err)
	}
	if p2[len(p2)-11:] != "readme.sync" {
		t.Fatalf("extension should not be duplicated, got %q", p2)
	}
}

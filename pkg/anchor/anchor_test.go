package anchor_test

import (
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/koh0920/syncarchive/pkg/anchor"
	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/builder"
	"github.com/koh0920/syncarchive/pkg/hashing"
	"github.com/koh0920/syncarchive/pkg/manifest"
)

func buildPlainArchive(t *testing.T, dir string) *archive.Archive {
	t.Helper()
	m := manifest.New("text/plain", ".txt")
	path := filepath.Join(dir, "anchor.sync")
	a, err := builder.New(m).WithPayload([]byte("anchor me")).WithWasm([]byte("\x00asm")).Build(path)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return a
}

func TestVerifyRejectsArchiveWithNoProof(t *testing.T) {
	dir := t.TempDir()
	a := buildPlainArchive(t, dir)
	if _, err := anchor.Verify(a); err == nil {
		t.Fatal("expected an error verifying an archive with no sync.proof entry")
	}
}

// buildWholeFileBytes mirrors anchor's own whole-file digest input (every
// non-proof entry's name and bytes, in envelope order), so the test can
// fabricate a proof blob without making a network call to a calendar server.
func buildWholeFileBytes(t *testing.T, a *archive.Archive) []byte {
	t.Helper()
	var buf []byte
	for _, e := range a.Entries() {
		if e.Name == archive.ProofEntry {
			continue
		}
		data, err := a.ReadEntry(e.Name)
		if err != nil {
			t.Fatalf("ReadEntry(%q): %v", e.Name, err)
		}
		buf = append(buf, []byte(e.Name)...)
		buf = append(buf, data...)
	}
	return buf
}

func TestVerifyDetectsMatchingAndMismatchedProof(t *testing.T) {
	dir := t.TempDir()
	a := buildPlainArchive(t, dir)

	digestTagged, err := hashing.Sum(hashing.DefaultAlgo, buildWholeFileBytes(t, a))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	_, hexDigest, err := hashing.Parse(digestTagged)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rawDigest, err := hex.DecodeString(hexDigest)
	if err != nil {
		t.Fatalf("hex.DecodeString: %v", err)
	}

	matchingProof := append([]byte("OTSv1-proof-envelope-"), rawDigest...)
	if err := a.UpdateEntry(archive.ProofEntry, matchingProof); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}

	result, err := anchor.Verify(a)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.HashMatches {
		t.Fatal("expected the proof to be recognized as matching the archive's digest")
	}
	if result.ProofSize != len(matchingProof) {
		t.Fatalf("ProofSize = %d, want %d", result.ProofSize, len(matchingProof))
	}

	// Tamper with the payload: the digest the proof embeds no longer
	// matches the archive's current content.
	if err := a.UpdatePayload([]byte("a different payload entirely")); err != nil {
		t.Fatalf("UpdatePayload: %v", err)
	}
	result2, err := anchor.Verify(a)
	if err != nil {
		t.Fatalf("Verify after tamper: %v", err)
	}
	if result2.HashMatches {
		t.Fatal("expected the proof to no longer match after the payload changed")
	}
}

package verifier_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/koh0920/syncarchive/pkg/archive"
	"github.com/koh0920/syncarchive/pkg/builder"
	"github.com/koh0920/syncarchive/pkg/hashing"
	"github.com/koh0920/syncarchive/pkg/identity"
	"github.com/koh0920/syncarchive/pkg/manifest"
	"github.com/koh0920/syncarchive/pkg/verifier"
)

func buildSignedArchive(t *testing.T, dir string) (*archive.Archive, *identity.KeyPair, []byte) {
	t.Helper()
	kp, err := identity.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	payload := []byte("the payload this manifest's signature is bound to")
	m := manifest.New("application/octet-stream", ".bin")
	m.Meta.CreatedBy = kp.DID()

	payloadHash, err := hashing.Sum(hashing.DefaultAlgo, payload)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339)
	if err := verifier.Sign(m, kp.PrivateKey, hashing.DefaultAlgo, payloadHash, timestamp); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	path := filepath.Join(dir, "signed.sync")
	a, err := builder.New(m).WithPayload(payload).WithWasm([]byte("\x00asm")).Build(path)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return a, kp, payload
}

func TestSignAndVerifyEmbedded(t *testing.T) {
	dir := t.TempDir()
	a, _, _ := buildSignedArchive(t, dir)

	result, err := verifier.VerifyEmbedded(a.Path())
	if err != nil {
		t.Fatalf("VerifyEmbedded: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid signature, got failure reason %q", result.FailureReason)
	}
}

func TestVerifyEmbeddedDetectsPayloadTamper(t *testing.T) {
	dir := t.TempDir()
	a, _, _ := buildSignedArchive(t, dir)

	if err := a.UpdatePayload([]byte("a payload the signature was never computed over")); err != nil {
		t.Fatalf("UpdatePayload: %v", err)
	}

	result, err := verifier.VerifyEmbedded(a.Path())
	if err != nil {
		t.Fatalf("VerifyEmbedded: %v", err)
	}
	if result.Valid {
		t.Fatal("expected signature verification to fail after payload tamper")
	}
	if result.FailureReason == "" {
		t.Fatal("expected a non-empty failure reason")
	}
}

func TestVerifyEmbeddedRequiresSignature(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unsigned.sync")
	m := manifest.New("text/plain", ".txt")
	a, err := builder.New(m).WithPayload([]byte("p")).WithWasm([]byte("\x00asm")).Build(path)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := verifier.VerifyEmbedded(a.Path()); err == nil {
		t.Fatal("expected an error verifying a manifest with no signature section")
	}
}

func TestVerifyDetachedRejectsUnsupportedAlgo(t *testing.T) {
	_, err := verifier.VerifyDetached("/nonexistent", verifier.DetachedSignature{Algo: "rsa-4096"})
	if err == nil {
		t.Fatal("expected error for an unsupported signature algorithm")
	}
}

func TestVerifyDetachedHashMismatch(t *testing.T) {
	dir := t.TempDir()
	a, kp, _ := buildSignedArchive(t, dir)

	sig := verifier.DetachedSignature{
		Algo:        manifest.SignatureAlgo,
		Signer:      kp.DID(),
		Value:       "AAAA",
		ContentHash: "blake3:" + "00000000000000000000000000000000000000000000000000000000000000",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	result, err := verifier.VerifyDetached(a.Path(), sig)
	if err != nil {
		t.Fatalf("VerifyDetached: %v", err)
	}
	if result.Valid {
		t.Fatal("expected hash mismatch to invalidate the detached signature")
	}
}

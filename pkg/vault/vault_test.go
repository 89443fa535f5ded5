package vault_test

import (
	"bytes"
	"testing"

	"github.com/koh0920/syncarchive/pkg/vault"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := vault.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	key := vault.DeriveKey("correct horse battery staple", salt)

	plaintext := []byte("payload bytes that must stay confidential")
	ciphertext, err := vault.Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := vault.Decrypt(key, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("roundtrip mismatch: got %q, want %q", decrypted, plaintext)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	salt, _ := vault.GenerateSalt()
	key := vault.DeriveKey("right-passphrase", salt)
	ciphertext, err := vault.Encrypt(key, []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	wrongKey := vault.DeriveKey("wrong-passphrase", salt)
	if _, err := vault.Decrypt(wrongKey, ciphertext); err == nil {
		t.Fatal("decryption with wrong key should fail")
	}
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	salt, _ := vault.GenerateSalt()
	key := vault.DeriveKey("passphrase", salt)
	ciphertext, err := vault.Encrypt(key, []byte("secret payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF
	if _, err := vault.Decrypt(key, ciphertext); err == nil {
		t.Fatal("tampered ciphertext should fail authentication")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, _ := vault.GenerateSalt()
	k1 := vault.DeriveKey("same-passphrase", salt)
	k2 := vault.DeriveKey("same-passphrase", salt)
	if !bytes.Equal(k1, k2) {
		t.Fatal("same passphrase+salt should derive the same key")
	}

	k3 := vault.DeriveKey("different-passphrase", salt)
	if bytes.Equal(k1, k3) {
		t.Fatal("different passphrases should derive different keys")
	}
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	salt, _ := vault.GenerateSalt()
	key := vault.DeriveKey("x", salt)
	if _, err := vault.Decrypt(key, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decrypting data shorter than the nonce")
	}
}

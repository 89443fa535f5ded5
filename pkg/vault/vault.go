// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package vault implements passphrase-based authenticated encryption for
// vault-variant archive payloads (AES-256-GCM, key derived with PBKDF2).
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the AES-256 key size in bytes.
	KeySize = 32
	// SaltSize is the PBKDF2 salt size in bytes.
	SaltSize = 32
	// NonceSize is the GCM nonce size in bytes.
	NonceSize = 12
	// Iterations is the PBKDF2 iteration count.
	Iterations = 600000
)

// GenerateSalt returns a fresh random salt for key derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("vault: generating salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 256-bit AES key from a passphrase and salt using
// PBKDF2-HMAC-SHA256.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, Iterations, KeySize, sha256.New)
}

// Encrypt seals plaintext under the given key using AES-256-GCM, returning
// nonce||ciphertext.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: creating GCM: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("vault: generating nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt reverses Encrypt, verifying the GCM authentication tag.
func Decrypt(key, data []byte) ([]byte, error) {
	if len(data) < NonceSize {
		return nil, fmt.Errorf("vault: ciphertext too short")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: creating GCM: %w", err)
	}
	nonce, ciphertext := data[:NonceSize], data[NonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("vault: decryption failed: %w", err)
	}
	return plaintext, nil
}

// Metadata is the non-authoritative encryption metadata recorded in a
// manifest's encryption section: enough to re-derive the key from a
// passphrase, but never the passphrase itself.
type Metadata struct {
	KDF        string `toml:"kdf"`
	Salt       string `toml:"salt"` // hex-encoded
	Iterations int    `toml:"iterations"`
	UserHint   string `toml:"user_hint,omitempty"`
}

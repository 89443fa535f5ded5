// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package identity handles signer key pairs and the did:key identity
// scheme used to name a manifest's signer.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"

	"github.com/mr-tron/base58"
)

// multicodecEd25519Pub is the two-byte multicodec prefix for an
// Edwards25519 public key, fixed by the did:key specification.
var multicodecEd25519Pub = [2]byte{0xED, 0x01}

const (
	privateKeyPEMType = "SYNC ARCHIVE ED25519 PRIVATE KEY"
	publicKeyPEMType  = "SYNC ARCHIVE ED25519 PUBLIC KEY"
)

// KeyPair is a signer's Ed25519 key pair.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh Ed25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generating key pair: %w", err)
	}
	return &KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// DID returns the did:key identifier for this key pair's public key.
func (kp *KeyPair) DID() string {
	return EncodeDID(kp.PublicKey)
}

// EncodeDID encodes an Ed25519 public key as a did:key:z<base58> string.
func EncodeDID(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, 2+ed25519.PublicKeySize)
	buf = append(buf, multicodecEd25519Pub[:]...)
	buf = append(buf, pub...)
	return "did:key:z" + base58.Encode(buf)
}

// DecodeDID extracts the 32-byte Ed25519 public key from a did:key
// string. It never panics: any malformed input returns an error.
func DecodeDID(did string) (ed25519.PublicKey, error) {
	const prefix = "did:key:z"
	if len(did) <= len(prefix) || did[:len(prefix)] != prefix {
		return nil, fmt.Errorf("identity: DID %q missing %q prefix", did, prefix)
	}
	decoded, err := base58.Decode(did[len(prefix):])
	if err != nil {
		return nil, fmt.Errorf("identity: base58 decode failed: %w", err)
	}
	if len(decoded) != 2+ed25519.PublicKeySize {
		return nil, fmt.Errorf("identity: decoded DID has wrong length %d", len(decoded))
	}
	if decoded[0] != multicodecEd25519Pub[0] || decoded[1] != multicodecEd25519Pub[1] {
		return nil, fmt.Errorf("identity: unexpected multicodec prefix 0x%02x%02x", decoded[0], decoded[1])
	}
	return ed25519.PublicKey(decoded[2:]), nil
}

// Sign produces an Ed25519 signature over raw bytes (typically a hash digest).
func Sign(priv ed25519.PrivateKey, data []byte) []byte {
	return ed25519.Sign(priv, data)
}

// Verify checks an Ed25519 signature over raw bytes.
func Verify(pub ed25519.PublicKey, data, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, data, sig)
}

// MarshalPrivateKeyPEM encodes a private key as a PEM block.
func MarshalPrivateKeyPEM(priv ed25519.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: privateKeyPEMType, Bytes: priv})
}

// MarshalPublicKeyPEM encodes a public key as a PEM block.
func MarshalPublicKeyPEM(pub ed25519.PublicKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: publicKeyPEMType, Bytes: pub})
}

// ParsePrivateKeyPEM decodes a PEM-encoded private key.
func ParsePrivateKeyPEM(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != privateKeyPEMType {
		return nil, fmt.Errorf("identity: not a valid private key PEM block")
	}
	if len(block.Bytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("identity: private key has wrong length %d", len(block.Bytes))
	}
	return ed25519.PrivateKey(block.Bytes), nil
}

// ParsePublicKeyPEM decodes a PEM-encoded public key.
func ParsePublicKeyPEM(data []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != publicKeyPEMType {
		return nil, fmt.Errorf("identity: not a valid public key PEM block")
	}
	if len(block.Bytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("identity: public key has wrong length %d", len(block.Bytes))
	}
	return ed25519.PublicKey(block.Bytes), nil
}

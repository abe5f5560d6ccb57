// Package cryptoutil holds the cryptographic primitives the ledger core is
// built on: master-key generation, Argon2id password derivation/verification,
// and Ed25519 keypair generation, signing and verification. Malformed inputs
// (wrong key/signature sizes) fail as errors; a cryptographically invalid
// signature or password is reported as a plain false, not an error.
package cryptoutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/kislikjeka/famcore/internal/ferrors"
)

// MasterKeySize is the size in bytes of a generated master encryption key.
const MasterKeySize = 32

// GenerateMasterKey returns 32 bytes of cryptographically strong randomness
// suitable for use as a store encryption key.
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, MasterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, ferrors.Crypto("failed to read random master key", err)
	}
	return key, nil
}

// Ed25519Keypair is a generated signing identity.
type Ed25519Keypair struct {
	Private []byte // 32 bytes, ed25519 seed form
	Public  []byte // 32 bytes
}

// GenerateEd25519Keypair generates a fresh Ed25519 signing identity. The
// private half is stored in its 32-byte seed form (not the 64-byte expanded
// form ed25519.GenerateKey returns), so that on-disk keystore entries are a
// predictable, minimal size.
func GenerateEd25519Keypair() (*Ed25519Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, ferrors.Crypto("failed to generate ed25519 keypair", err)
	}
	seed := priv.Seed()
	return &Ed25519Keypair{
		Private: seed,
		Public:  []byte(pub),
	}, nil
}

// Sign signs message with privateKey, which must be a 32-byte ed25519 seed.
// A malformed key length is an InvalidKeyLength error.
func Sign(privateKey, message []byte) ([]byte, error) {
	if len(privateKey) != ed25519.SeedSize {
		return nil, ferrors.Crypto("invalid private key length",
			fmt.Errorf("InvalidKeyLength: want %d bytes, got %d", ed25519.SeedSize, len(privateKey)))
	}
	priv := ed25519.NewKeyFromSeed(privateKey)
	return ed25519.Sign(priv, message), nil
}

// Verify reports whether signature is a valid Ed25519 signature of message
// under publicKey. A malformed key or signature size is an error; a
// cryptographically invalid signature returns (false, nil).
func Verify(publicKey, message, signature []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, ferrors.Crypto("invalid public key length",
			fmt.Errorf("InvalidKeyLength: want %d bytes, got %d", ed25519.PublicKeySize, len(publicKey)))
	}
	if len(signature) != ed25519.SignatureSize {
		return false, ferrors.Crypto("invalid signature length",
			fmt.Errorf("InvalidSignatureLength: want %d bytes, got %d", ed25519.SignatureSize, len(signature)))
	}
	return ed25519.Verify(publicKey, message, signature), nil
}

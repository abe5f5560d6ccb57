package cryptoutil

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/kislikjeka/famcore/internal/ferrors"
)

// Argon2id parameters fixed by the spec: m=65536 KiB, t=3, p=4.
const (
	argonMemoryKiB = 65536
	argonTime      = 3
	argonThreads   = 4
	argonKeyLen    = 32
	argonSaltLen   = 16
)

const argon2idVersion = argon2.Version

// DeriveKey hashes password with Argon2id using a fresh random salt and
// returns a PHC-encoded verifier string of the form:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func DeriveKey(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", ferrors.Crypto("failed to read random salt", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemoryKiB, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idVersion, argonMemoryKiB, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// VerifyDerived performs a constant-time comparison of password against a
// PHC-encoded hash produced by DeriveKey. Non-matching input or a malformed
// hash string returns false, never an error.
func VerifyDerived(password, hashString string) bool {
	params, salt, hash, err := parsePHC(hashString)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, params.time, params.memoryKiB, params.threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}

type phcParams struct {
	version   int
	memoryKiB uint32
	time      uint32
	threads   uint8
}

func parsePHC(encoded string) (phcParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	// "$argon2id$v=19$m=...,t=...,p=...$salt$hash" splits into
	// ["", "argon2id", "v=19", "m=...,t=...,p=...", "salt", "hash"].
	if len(parts) != 6 || parts[1] != "argon2id" {
		return phcParams{}, nil, nil, fmt.Errorf("malformed argon2id hash string")
	}

	var p phcParams
	if _, err := fmt.Sscanf(parts[2], "v=%d", &p.version); err != nil {
		return phcParams{}, nil, nil, err
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return phcParams{}, nil, nil, err
	}
	p.memoryKiB, p.time, p.threads = memory, time, uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return phcParams{}, nil, nil, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return phcParams{}, nil, nil, err
	}

	return p, salt, hash, nil
}

// Package ferrors defines the closed set of error kinds the ledger core can
// surface to its caller, per the error handling design: StorageError,
// MigrationError, CryptoError, SigningIdentityMissing, SerializationError
// and NotFound.
package ferrors

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds the core contract promises.
type Kind string

const (
	KindStorage        Kind = "STORAGE_ERROR"
	KindMigration      Kind = "MIGRATION_ERROR"
	KindCrypto         Kind = "CRYPTO_ERROR"
	KindSigningMissing Kind = "SIGNING_IDENTITY_MISSING"
	KindSerialization  Kind = "SERIALIZATION_ERROR"
	KindNotFound       Kind = "NOT_FOUND"
)

// AppError is a tagged error carrying a Kind, a human-readable message and
// an optional wrapped cause.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func newError(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// Storage wraps a failure of the underlying encrypted store (IO, decrypt,
// constraint violation).
func Storage(message string, err error) *AppError { return newError(KindStorage, message, err) }

// Migration reports an unparseable version or forward-incompatible schema.
func Migration(message string, err error) *AppError { return newError(KindMigration, message, err) }

// Crypto reports a KDF parameter failure, RNG failure, or key-size mismatch.
func Crypto(message string, err error) *AppError { return newError(KindCrypto, message, err) }

// SigningMissing reports that the keystore lacks the expected Ed25519
// entries despite bootstrap having run.
func SigningMissing(message string) *AppError { return newError(KindSigningMissing, message, nil) }

// Serialization reports that a canonical payload could not be produced.
func Serialization(message string, err error) *AppError {
	return newError(KindSerialization, message, err)
}

// NotFound reports that an audit or signature row referenced by id does not
// exist.
func NotFound(resource string) *AppError {
	return newError(KindNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// As extracts an *AppError from err, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the Kind of err, or "" if err is not an *AppError.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}

// IsNotFound reports whether err is a NotFound AppError.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

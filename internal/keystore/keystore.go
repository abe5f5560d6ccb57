// Package keystore stores named byte blobs inside the encrypted database and
// guarantees a signing identity exists after every open. Everything here
// runs against a *sql.Tx so it composes with the caller's transaction rather
// than opening its own.
package keystore

import (
	"database/sql"
	"errors"

	"github.com/kislikjeka/famcore/internal/cryptoutil"
	"github.com/kislikjeka/famcore/internal/ferrors"
	"github.com/kislikjeka/famcore/pkg/logger"
)

const (
	NameEd25519Private = "ed25519_private"
	NameEd25519Public  = "ed25519_public"
)

// Put upserts name -> value.
func Put(tx *sql.Tx, name string, value []byte) error {
	_, err := tx.Exec(`
		INSERT INTO keystore (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, name, value)
	if err != nil {
		return ferrors.Storage("failed to put keystore entry "+name, err)
	}
	return nil
}

// Get returns the stored value, or (nil, false) if name is absent.
func Get(tx *sql.Tx, name string) ([]byte, bool, error) {
	var value []byte
	err := tx.QueryRow(`SELECT value FROM keystore WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ferrors.Storage("failed to read keystore entry "+name, err)
	}
	return value, true, nil
}

// Exists reports whether name has a stored value.
func Exists(tx *sql.Tx, name string) (bool, error) {
	_, ok, err := Get(tx, name)
	return ok, err
}

// Delete removes name if present; deleting an absent name is a no-op.
func Delete(tx *sql.Tx, name string) error {
	if _, err := tx.Exec(`DELETE FROM keystore WHERE name = ?`, name); err != nil {
		return ferrors.Storage("failed to delete keystore entry "+name, err)
	}
	return nil
}

// EnsureSigningIdentity generates and persists a fresh Ed25519 keypair if
// either half is missing. Called on every open, immediately after
// migrations, so audit writers are always guaranteed a signing key.
func EnsureSigningIdentity(tx *sql.Tx, log *logger.Logger) error {
	if log == nil {
		log = logger.Discard()
	}

	hasPrivate, err := Exists(tx, NameEd25519Private)
	if err != nil {
		return err
	}
	hasPublic, err := Exists(tx, NameEd25519Public)
	if err != nil {
		return err
	}
	if hasPrivate && hasPublic {
		return nil
	}

	kp, err := cryptoutil.GenerateEd25519Keypair()
	if err != nil {
		return ferrors.Crypto("failed to generate signing identity", err)
	}
	if err := Put(tx, NameEd25519Private, kp.Private); err != nil {
		return err
	}
	if err := Put(tx, NameEd25519Public, kp.Public); err != nil {
		return err
	}

	log.Info("generated signing identity")
	return nil
}

// LoadSigningIdentity reads both halves of the signing keypair, failing with
// SigningIdentityMissing if either is absent.
func LoadSigningIdentity(tx *sql.Tx) (private, public []byte, err error) {
	private, ok, err := Get(tx, NameEd25519Private)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ferrors.SigningMissing("ed25519_private not present in keystore")
	}

	public, ok, err = Get(tx, NameEd25519Public)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ferrors.SigningMissing("ed25519_public not present in keystore")
	}

	return private, public, nil
}

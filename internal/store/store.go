// Package store opens the single-file, page-encrypted database the rest of
// the ledger core is built on. It delegates encryption to SQLCipher via
// github.com/mutecomm/go-sqlcipher/v4, registered under the "sqlite3" driver
// name, and exposes only the transactional surface the core needs: a plain
// *sql.DB for reads and a WithTx helper for the single ACID transaction each
// mutation runs inside.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/kislikjeka/famcore/internal/ferrors"
	"github.com/kislikjeka/famcore/pkg/logger"
)

// Store wraps the encrypted single-file database handle.
type Store struct {
	db   *sql.DB
	path string
	log  *logger.Logger
}

// Open creates the database file at path if it does not exist, applies key
// as the page-encryption key before any other operation, and enforces
// referential integrity. A wrong key is not detected by opening the
// connection — it surfaces on the first statement that touches the
// encrypted pages, which is why Open immediately probes sqlite_master and
// returns a StorageError when that probe fails.
func Open(path, key string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Discard()
	}

	dsn := fmt.Sprintf("%s?_pragma_key=%s&_foreign_keys=on", path, url.QueryEscape(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, ferrors.Storage("failed to open encrypted store", err)
	}

	// SQLCipher only attempts to decrypt the file header on the first real
	// read of the btree; a bad key is invisible until then.
	if _, err := db.Exec(`SELECT count(*) FROM sqlite_master;`); err != nil {
		db.Close()
		return nil, ferrors.Storage("failed to open encrypted store: wrong key or corrupt file", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, ferrors.Storage("failed to enable foreign key enforcement", err)
	}

	return &Store{db: db, path: path, log: log}, nil
}

// DB returns the underlying *sql.DB for read-only queries that don't need
// the atomic-coupling guarantee WithTx provides.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return ferrors.Storage("failed to close encrypted store", err)
	}
	return nil
}

// WithTx runs fn inside a single serializable transaction. If fn returns an
// error, or a panic propagates out of fn, the transaction is rolled back and
// nothing fn did is durable; a rollback error from an already-failed
// transaction is never the one surfaced to the caller.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, txErr := s.db.BeginTx(ctx, nil)
	if txErr != nil {
		return ferrors.Storage("failed to begin transaction", txErr)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return ferrors.Storage("failed to commit transaction", err)
	}
	committed = true
	return nil
}

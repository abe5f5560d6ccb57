// Package migrate applies the ledger core's forward-only schema migrations.
// Every open ensures a meta singleton row exists, reads its recorded
// version, and applies — in order, each in its own transaction — every
// migration whose target is greater than that version. Downgrades are not
// supported; an unparseable version string is fatal.
package migrate

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/kislikjeka/famcore/internal/ferrors"
)

// Latest is the schema version a fresh store ends up at.
const Latest = 7

// Migration is one forward step of the schema, self-contained DDL plus any
// data backfill, applied in its own transaction.
type Migration struct {
	Target      int
	Description string
	Apply       func(tx *sql.Tx) error
}

var migrations = []Migration{
	{1, "meta singleton present", migrateMeta},
	{2, "accounts table + index on type", migrateAccounts},
	{3, "operations table + indexes on account_id, ts", migrateOperations},
	{4, "states table + indexes + unique(account_id, ts)", migrateStates},
	{5, "version_log table + indexes on (entity, entity_id), ts, action", migrateVersionLog},
	{6, "keystore table", migrateKeystore},
	{7, "version_signatures table + fk cascade + indexes", migrateVersionSignatures},
}

// Up brings db up to Latest and returns the resulting version.
func Up(ctx context.Context, db *sql.DB) (int, error) {
	if err := bootstrapMeta(ctx, db); err != nil {
		return 0, err
	}

	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	for _, m := range migrations {
		if m.Target <= current {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return current, ferrors.Storage("failed to begin migration transaction", err)
		}

		if err := m.Apply(tx); err != nil {
			_ = tx.Rollback()
			return current, ferrors.Migration("failed to apply migration "+m.Description, err)
		}
		if _, err := tx.Exec(`UPDATE meta SET version = ?`, strconv.Itoa(m.Target)); err != nil {
			_ = tx.Rollback()
			return current, ferrors.Migration("failed to record migration version", err)
		}
		if err := tx.Commit(); err != nil {
			return current, ferrors.Migration("failed to commit migration "+m.Description, err)
		}

		current = m.Target
	}

	return current, nil
}

// CurrentVersion reads and parses the meta singleton's recorded version.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v string
	if err := db.QueryRowContext(ctx, `SELECT version FROM meta LIMIT 1`).Scan(&v); err != nil {
		return 0, ferrors.Storage("failed to read meta version", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, ferrors.Migration("unparseable meta version "+strconv.Quote(v), err)
	}
	return n, nil
}

// bootstrapMeta creates the meta table if absent and seeds the singleton
// row with "0" if the table is empty. This runs before version-numbered
// migrations because migration 1 itself can't be applied until there is
// somewhere to read the current version from.
func bootstrapMeta(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (version TEXT NOT NULL)`); err != nil {
		return ferrors.Storage("failed to create meta table", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM meta`).Scan(&count); err != nil {
		return ferrors.Storage("failed to count meta rows", err)
	}
	if count == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO meta (version) VALUES ('0')`); err != nil {
			return ferrors.Storage("failed to seed meta row", err)
		}
	}
	return nil
}

func migrateMeta(tx *sql.Tx) error {
	// The meta table itself is bootstrapped before any versioned migration
	// runs (see bootstrapMeta); this step just records that version 1 has
	// been reached.
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS meta (version TEXT NOT NULL)`)
	return err
}

func migrateAccounts(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE accounts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			type       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return err
	}
	_, err := tx.Exec(`CREATE INDEX idx_accounts_type ON accounts (type)`)
	return err
}

func migrateOperations(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE operations (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id  INTEGER NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
			amount      REAL NOT NULL,
			description TEXT NOT NULL,
			ts          INTEGER NOT NULL
		)
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX idx_operations_account_id ON operations (account_id)`); err != nil {
		return err
	}
	_, err := tx.Exec(`CREATE INDEX idx_operations_ts ON operations (ts)`)
	return err
}

func migrateStates(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE states (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
			balance    REAL NOT NULL,
			ts         INTEGER NOT NULL
		)
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX idx_states_account_id ON states (account_id)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX idx_states_ts ON states (ts)`); err != nil {
		return err
	}
	_, err := tx.Exec(`CREATE UNIQUE INDEX idx_states_account_ts ON states (account_id, ts)`)
	return err
}

func migrateVersionLog(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE version_log (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			entity    TEXT NOT NULL,
			entity_id INTEGER NOT NULL,
			action    TEXT NOT NULL,
			payload   BLOB NOT NULL,
			ts        INTEGER NOT NULL
		)
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX idx_version_log_entity ON version_log (entity, entity_id)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX idx_version_log_ts ON version_log (ts)`); err != nil {
		return err
	}
	_, err := tx.Exec(`CREATE INDEX idx_version_log_action ON version_log (action)`)
	return err
}

func migrateKeystore(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE keystore (
			name  TEXT PRIMARY KEY,
			value BLOB NOT NULL
		)
	`)
	return err
}

func migrateVersionSignatures(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE version_signatures (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			version_id INTEGER NOT NULL REFERENCES version_log (id) ON DELETE CASCADE,
			signature  BLOB NOT NULL,
			public_key BLOB NOT NULL,
			ts         INTEGER NOT NULL
		)
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX idx_version_signatures_version_id ON version_signatures (version_id)`); err != nil {
		return err
	}
	_, err := tx.Exec(`CREATE INDEX idx_version_signatures_ts ON version_signatures (ts)`)
	return err
}

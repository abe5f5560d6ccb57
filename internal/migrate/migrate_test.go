package migrate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/famcore/internal/store"
)

func TestUp_FreshStoreReachesLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	s, err := store.Open(path, "k", nil)
	require.NoError(t, err)
	defer s.Close()

	v, err := Up(context.Background(), s.DB())
	require.NoError(t, err)
	assert.Equal(t, Latest, v)

	current, err := CurrentVersion(context.Background(), s.DB())
	require.NoError(t, err)
	assert.Equal(t, Latest, current)

	for _, table := range []string{"accounts", "operations", "states", "version_log", "keystore", "version_signatures"} {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestUp_ReopenIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	s, err := store.Open(path, "k", nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = Up(context.Background(), s.DB())
	require.NoError(t, err)

	_, err = s.DB().Exec(`INSERT INTO accounts (name, type, created_at) VALUES ('cash', 'asset', 0)`)
	require.NoError(t, err)

	v, err := Up(context.Background(), s.DB())
	require.NoError(t, err)
	assert.Equal(t, Latest, v)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT count(*) FROM accounts`).Scan(&count))
	assert.Equal(t, 1, count, "reapplying Up must not touch existing data")
}

func TestCurrentVersion_UnparseableIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	s, err := store.Open(path, "k", nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.DB().Exec(`CREATE TABLE meta (version TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = s.DB().Exec(`INSERT INTO meta (version) VALUES ('not-a-number')`)
	require.NoError(t, err)

	_, err = CurrentVersion(context.Background(), s.DB())
	assert.Error(t, err)
}

func TestUp_ForeignKeyCascadeDeletesOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	s, err := store.Open(path, "k", nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = Up(context.Background(), s.DB())
	require.NoError(t, err)

	res, err := s.DB().Exec(`INSERT INTO accounts (name, type, created_at) VALUES ('cash', 'asset', 0)`)
	require.NoError(t, err)
	accountID, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = s.DB().Exec(`INSERT INTO operations (account_id, amount, description, ts) VALUES (?, 10.0, 'seed', 0)`, accountID)
	require.NoError(t, err)

	_, err = s.DB().Exec(`DELETE FROM accounts WHERE id = ?`, accountID)
	require.NoError(t, err)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT count(*) FROM operations`).Scan(&count))
	assert.Equal(t, 0, count, "deleting an account must cascade-delete its operations")
}

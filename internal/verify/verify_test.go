package verify

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/famcore/internal/audit"
	"github.com/kislikjeka/famcore/internal/ferrors"
	"github.com/kislikjeka/famcore/internal/keystore"
	"github.com/kislikjeka/famcore/internal/migrate"
	"github.com/kislikjeka/famcore/internal/store"
)

func openReady(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallet.db")
	s, err := store.Open(path, "k", nil)
	require.NoError(t, err)
	_, err = migrate.Up(context.Background(), s.DB())
	require.NoError(t, err)
	require.NoError(t, s.WithTx(context.Background(), func(tx *sql.Tx) error {
		return keystore.EnsureSigningIdentity(tx, nil)
	}))
	return s
}

func TestVersionSignature_ValidForFreshRecord(t *testing.T) {
	s := openReady(t)
	defer s.Close()

	var versionID int64
	err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
		payload, err := audit.AccountPayload(1, "cash", "cash", 1000)
		if err != nil {
			return err
		}
		versionID, err = audit.Append(tx, nil, audit.EntityAccount, 1, audit.ActionCreate, payload, 1000)
		return err
	})
	require.NoError(t, err)

	valid, err := VersionSignature(s.DB(), versionID)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestVersionSignature_TamperedPayloadIsFalseNotError(t *testing.T) {
	s := openReady(t)
	defer s.Close()

	var versionID int64
	err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
		payload, err := audit.AccountPayload(1, "cash", "cash", 1000)
		if err != nil {
			return err
		}
		versionID, err = audit.Append(tx, nil, audit.EntityAccount, 1, audit.ActionCreate, payload, 1000)
		return err
	})
	require.NoError(t, err)

	_, err = s.DB().Exec(`UPDATE version_log SET payload = ? WHERE id = ?`, []byte(`{"tampered":true}`), versionID)
	require.NoError(t, err)

	valid, err := VersionSignature(s.DB(), versionID)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVersionSignature_MissingRecordIsNotFound(t *testing.T) {
	s := openReady(t)
	defer s.Close()

	_, err := VersionSignature(s.DB(), 99999)
	require.Error(t, err)
	assert.True(t, ferrors.IsNotFound(err))
}

func TestVersionSignature_OnlyTamperedIDIsAffected(t *testing.T) {
	s := openReady(t)
	defer s.Close()

	var id1, id2 int64
	err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
		p1, err := audit.AccountPayload(1, "cash1", "cash", 1000)
		if err != nil {
			return err
		}
		id1, err = audit.Append(tx, nil, audit.EntityAccount, 1, audit.ActionCreate, p1, 1000)
		if err != nil {
			return err
		}
		p2, err := audit.AccountPayload(2, "cash2", "cash", 1001)
		if err != nil {
			return err
		}
		id2, err = audit.Append(tx, nil, audit.EntityAccount, 2, audit.ActionCreate, p2, 1001)
		return err
	})
	require.NoError(t, err)

	_, err = s.DB().Exec(`UPDATE version_log SET payload = ? WHERE id = ?`, []byte(`{"tampered":true}`), id1)
	require.NoError(t, err)

	valid1, err := VersionSignature(s.DB(), id1)
	require.NoError(t, err)
	assert.False(t, valid1)

	valid2, err := VersionSignature(s.DB(), id2)
	require.NoError(t, err)
	assert.True(t, valid2)
}

package audit

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/famcore/internal/cryptoutil"
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

func TestAccountPayload_FieldOrderAndContent(t *testing.T) {
	payload, err := AccountPayload(1, "cash", "cash", 1000)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"cash","type":"cash","created_at":1000}`, string(payload))
	assert.Equal(t, `{"id":1,"name":"cash","type":"cash","created_at":1000}`, string(payload), "field order must be byte-stable for signing")
}

func TestAppend_InsertsAuditAndSignatureRows(t *testing.T) {
	s := openReady(t)
	defer s.Close()

	var versionID int64
	err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
		payload, err := AccountPayload(1, "cash", "cash", 1000)
		if err != nil {
			return err
		}
		versionID, err = Append(tx, nil, EntityAccount, 1, ActionCreate, payload, 1000)
		return err
	})
	require.NoError(t, err)
	assert.NotZero(t, versionID)

	record, err := GetRecord(s.DB(), versionID)
	require.NoError(t, err)
	assert.Equal(t, EntityAccount, record.Entity)
	assert.Equal(t, int64(1), record.EntityID)

	sig, err := GetSignature(s.DB(), versionID)
	require.NoError(t, err)
	assert.Len(t, sig.Signature, 64)
	assert.Len(t, sig.PublicKey, 32)

	valid, err := cryptoutil.Verify(sig.PublicKey, record.Payload, sig.Signature)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestAppend_WithoutSigningIdentityFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	s, err := store.Open(path, "k", nil)
	require.NoError(t, err)
	defer s.Close()
	_, err = migrate.Up(context.Background(), s.DB())
	require.NoError(t, err)

	err = s.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := Append(tx, nil, EntityAccount, 1, ActionCreate, []byte(`{}`), 1000)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, ferrors.KindSigningMissing, ferrors.KindOf(err))
}

func TestGetRecord_MissingIsNotFound(t *testing.T) {
	s := openReady(t)
	defer s.Close()

	_, err := GetRecord(s.DB(), 9999)
	require.Error(t, err)
	assert.True(t, ferrors.IsNotFound(err))
}

func TestList_OrderedNewestFirst(t *testing.T) {
	s := openReady(t)
	defer s.Close()

	for i, ts := range []int64{100, 200, 300} {
		err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
			payload, err := AccountPayload(int64(i+1), "a", "cash", ts)
			if err != nil {
				return err
			}
			_, err = Append(tx, nil, EntityAccount, int64(i+1), ActionCreate, payload, ts)
			return err
		})
		require.NoError(t, err)
	}

	records, err := List(s.DB(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(300), records[0].Ts)
	assert.Equal(t, int64(100), records[2].Ts)

	chrono, err := GetChronological(s.DB(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(100), chrono[0].Ts)
	assert.Equal(t, int64(300), chrono[2].Ts)
}

func TestList_FiltersByEntityAndID(t *testing.T) {
	s := openReady(t)
	defer s.Close()

	err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
		payload, _ := AccountPayload(1, "a", "cash", 100)
		if _, err := Append(tx, nil, EntityAccount, 1, ActionCreate, payload, 100); err != nil {
			return err
		}
		opPayload, _ := OperationPayload(1, 1, 50, "seed", 100)
		_, err := Append(tx, nil, EntityOperation, 1, ActionCreate, opPayload, 100)
		return err
	})
	require.NoError(t, err)

	accountOnly, err := List(s.DB(), Filter{Entity: EntityAccount})
	require.NoError(t, err)
	assert.Len(t, accountOnly, 1)
	assert.Equal(t, EntityAccount, accountOnly[0].Entity)

	byID, err := List(s.DB(), Filter{EntityID: 1})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
}

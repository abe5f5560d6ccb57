// Package audit appends one immutable version_log row plus one detached
// version_signatures row per domain mutation, all inside the caller's
// transaction, so the audit trail can never diverge from the data it
// describes.
package audit

import (
	"database/sql"
	"errors"

	"github.com/kislikjeka/famcore/internal/cryptoutil"
	"github.com/kislikjeka/famcore/internal/ferrors"
	"github.com/kislikjeka/famcore/internal/keystore"
	"github.com/kislikjeka/famcore/pkg/logger"
)

// Record is a persisted version_log row.
type Record struct {
	ID       int64
	Entity   string
	EntityID int64
	Action   string
	Payload  []byte
	Ts       int64
}

// Signature is a persisted version_signatures row.
type Signature struct {
	ID        int64
	VersionID int64
	Signature []byte
	PublicKey []byte
	Ts        int64
}

// Append inserts the audit row and its detached signature inside tx, and
// returns the new version_log id. It loads the signing key from the
// keystore, failing with SigningIdentityMissing if absent — the core relies
// on EnsureSigningIdentity having already run during open.
func Append(tx *sql.Tx, log *logger.Logger, entity string, entityID int64, action string, payload []byte, ts int64) (int64, error) {
	if log == nil {
		log = logger.Discard()
	}

	res, err := tx.Exec(`
		INSERT INTO version_log (entity, entity_id, action, payload, ts) VALUES (?, ?, ?, ?, ?)
	`, entity, entityID, action, payload, ts)
	if err != nil {
		return 0, ferrors.Storage("failed to insert audit row", err)
	}
	versionID, err := res.LastInsertId()
	if err != nil {
		return 0, ferrors.Storage("failed to read audit row id", err)
	}

	private, public, err := keystore.LoadSigningIdentity(tx)
	if err != nil {
		return 0, err
	}

	signature, err := cryptoutil.Sign(private, payload)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(`
		INSERT INTO version_signatures (version_id, signature, public_key, ts) VALUES (?, ?, ?, ?)
	`, versionID, signature, public, ts); err != nil {
		return 0, ferrors.Storage("failed to insert signature row", err)
	}

	log.WithField("entity", entity).WithField("entity_id", entityID).WithField("action", action).Info("appended audit record")
	return versionID, nil
}

// Filter narrows List/GetChronological to a single entity and/or entity id.
// A zero value for either field means "no filter on that dimension".
type Filter struct {
	Entity   string
	EntityID int64
}

func (f Filter) whereClause() (string, []any) {
	var clauses []string
	var args []any
	if f.Entity != "" {
		clauses = append(clauses, "entity = ?")
		args = append(args, f.Entity)
	}
	if f.EntityID != 0 {
		clauses = append(clauses, "entity_id = ?")
		args = append(args, f.EntityID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

// List returns audit records matching filter ordered by (ts desc, id desc).
func List(db *sql.DB, filter Filter) ([]Record, error) {
	where, args := filter.whereClause()
	rows, err := db.Query(`
		SELECT id, entity, entity_id, action, payload, ts FROM version_log`+where+`
		ORDER BY ts DESC, id DESC
	`, args...)
	if err != nil {
		return nil, ferrors.Storage("failed to list audit records", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// GetChronological returns audit records matching filter ordered by
// (ts asc, id asc), suitable for replay.
func GetChronological(db *sql.DB, filter Filter) ([]Record, error) {
	where, args := filter.whereClause()
	rows, err := db.Query(`
		SELECT id, entity, entity_id, action, payload, ts FROM version_log`+where+`
		ORDER BY ts ASC, id ASC
	`, args...)
	if err != nil {
		return nil, ferrors.Storage("failed to list audit records", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Entity, &r.EntityID, &r.Action, &r.Payload, &r.Ts); err != nil {
			return nil, ferrors.Storage("failed to scan audit record", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.Storage("failed to iterate audit records", err)
	}
	return out, nil
}

// GetRecord fetches a single audit row by id. Absence is NotFound.
func GetRecord(db *sql.DB, versionID int64) (Record, error) {
	var r Record
	err := db.QueryRow(`
		SELECT id, entity, entity_id, action, payload, ts FROM version_log WHERE id = ?
	`, versionID).Scan(&r.ID, &r.Entity, &r.EntityID, &r.Action, &r.Payload, &r.Ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ferrors.NotFound("audit record")
	}
	if err != nil {
		return Record{}, ferrors.Storage("failed to read audit record", err)
	}
	return r, nil
}

// GetSignature fetches the signature row for versionID. Absence is NotFound.
func GetSignature(db *sql.DB, versionID int64) (Signature, error) {
	var s Signature
	err := db.QueryRow(`
		SELECT id, version_id, signature, public_key, ts FROM version_signatures WHERE version_id = ?
	`, versionID).Scan(&s.ID, &s.VersionID, &s.Signature, &s.PublicKey, &s.Ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Signature{}, ferrors.NotFound("signature record")
	}
	if err != nil {
		return Signature{}, ferrors.Storage("failed to read signature record", err)
	}
	return s, nil
}

// Package verify recomputes the Ed25519 signature check for a single audit
// record, independent of however it was originally signed. A structural
// problem (missing rows, malformed sizes) is an error; a cryptographic
// mismatch is simply a false result.
package verify

import (
	"database/sql"

	"github.com/kislikjeka/famcore/internal/audit"
	"github.com/kislikjeka/famcore/internal/cryptoutil"
)

// VersionSignature fetches the audit record and its detached signature by
// versionID and reports whether the signature validates against the
// recorded payload and pinned public key.
func VersionSignature(db *sql.DB, versionID int64) (bool, error) {
	record, err := audit.GetRecord(db, versionID)
	if err != nil {
		return false, err
	}

	sig, err := audit.GetSignature(db, versionID)
	if err != nil {
		return false, err
	}

	return cryptoutil.Verify(sig.PublicKey, record.Payload, sig.Signature)
}

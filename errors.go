package famcore

import "github.com/kislikjeka/famcore/internal/ferrors"

// Kind identifies the closed set of error categories this module returns.
type Kind = ferrors.Kind

// Error kinds surfaced to callers of the public API. These mirror the
// closed set internal/ferrors defines; callers should branch on KindOf
// rather than matching error strings.
const (
	KindStorage        = ferrors.KindStorage
	KindMigration      = ferrors.KindMigration
	KindCrypto         = ferrors.KindCrypto
	KindSigningMissing = ferrors.KindSigningMissing
	KindSerialization  = ferrors.KindSerialization
	KindNotFound       = ferrors.KindNotFound
)

// KindOf reports the error kind of err, or "" if err did not originate
// from this module.
func KindOf(err error) Kind {
	return ferrors.KindOf(err)
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return ferrors.IsNotFound(err)
}

// Package famcore is the encrypted auditable ledger core of a personal
// finance wallet: account definitions, monetary operations and their
// derived balance snapshots, all under a single encryption key and backed
// by a per-mutation Ed25519 signed audit trail.
//
// Every exported function takes the database path and encryption key
// explicitly, opens a fresh store handle, brings the schema up to date,
// and closes the handle before returning — there is no long-lived
// connection and no background goroutine. Callers that need
// non-blocking behavior are expected to offload these calls to their own
// worker pool.
package famcore

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/kislikjeka/famcore/internal/audit"
	"github.com/kislikjeka/famcore/internal/keystore"
	"github.com/kislikjeka/famcore/internal/ledger"
	"github.com/kislikjeka/famcore/internal/migrate"
	"github.com/kislikjeka/famcore/internal/store"
	"github.com/kislikjeka/famcore/internal/verify"
	"github.com/kislikjeka/famcore/pkg/logger"
)

var log = logger.NewDefault("production")

// SetLogger replaces the package-level logger used by every subsequent
// call. Passing nil discards all log output.
func SetLogger(l *logger.Logger) {
	if l == nil {
		log = logger.Discard()
		return
	}
	log = l
}

// Account, Operation, State and Allocation mirror the ledger domain types
// one to one; re-exported here so callers never import internal/ledger.
type (
	Account    = ledger.Account
	Operation  = ledger.Operation
	State      = ledger.State
	Allocation = ledger.Allocation
	VersionLog = audit.Record
)

func withStore(path, key string, fn func(ctx context.Context, s *store.Store) error) error {
	s, err := store.Open(path, key, log)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if _, err := migrate.Up(ctx, s.DB()); err != nil {
		return err
	}
	if err := s.WithTx(ctx, func(tx *sql.Tx) error {
		return keystore.EnsureSigningIdentity(tx, log)
	}); err != nil {
		return err
	}

	return fn(ctx, s)
}

func withService(path, key string, fn func(ctx context.Context, svc *ledger.Service) error) error {
	return withStore(path, key, func(ctx context.Context, s *store.Store) error {
		return fn(ctx, ledger.NewService(s, log))
	})
}

// InitDatabase creates the database file at path if needed, brings its
// schema to the latest version, and ensures a signing identity exists.
func InitDatabase(path, key string) error {
	return withStore(path, key, func(ctx context.Context, s *store.Store) error {
		return nil
	})
}

// CheckConnection opens the database and returns its current schema
// version, proving the key and file are usable together.
func CheckConnection(path, key string) (string, error) {
	var version string
	err := withStore(path, key, func(ctx context.Context, s *store.Store) error {
		v, err := migrate.CurrentVersion(ctx, s.DB())
		if err != nil {
			return err
		}
		version = strconv.Itoa(v)
		return nil
	})
	return version, err
}

// GetVersion returns the database's current recorded schema version.
func GetVersion(path, key string) (string, error) {
	return CheckConnection(path, key)
}

// SetVersion overwrites the recorded schema version without running or
// reverting any migration. It exists for diagnostics and test fixtures
// only; no domain mutation ever calls it, and a value that does not match
// the actual schema will make the next open behave unpredictably.
func SetVersion(path, key, value string) (string, error) {
	err := withStore(path, key, func(ctx context.Context, s *store.Store) error {
		_, err := s.DB().ExecContext(ctx, `UPDATE meta SET version = ?`, value)
		return err
	})
	return value, err
}

// CreateAccount inserts a new account and returns its id.
func CreateAccount(path, key, name, accountType string) (int64, error) {
	var id int64
	err := withService(path, key, func(ctx context.Context, svc *ledger.Service) error {
		var err error
		id, err = svc.CreateAccount(ctx, name, accountType)
		return err
	})
	return id, err
}

// ListAccounts returns every account, newest first.
func ListAccounts(path, key string) ([]Account, error) {
	var accounts []Account
	err := withService(path, key, func(ctx context.Context, svc *ledger.Service) error {
		var err error
		accounts, err = svc.ListAccounts(ctx)
		return err
	})
	return accounts, err
}

// AddOperation records a monetary movement against accountID and returns
// the new operation's id.
func AddOperation(path, key string, accountID int64, amount float64, description string) (int64, error) {
	var id int64
	err := withService(path, key, func(ctx context.Context, svc *ledger.Service) error {
		var err error
		id, err = svc.AddOperation(ctx, accountID, amount, description)
		return err
	})
	return id, err
}

// GetOperations returns accountID's operations, most recent first.
func GetOperations(path, key string, accountID int64) ([]Operation, error) {
	var ops []Operation
	err := withService(path, key, func(ctx context.Context, svc *ledger.Service) error {
		var err error
		ops, err = svc.GetOperations(ctx, accountID)
		return err
	})
	return ops, err
}

// GetAccountBalance returns accountID's latest balance, or 0.0 if it has
// no states yet (including when accountID does not exist).
func GetAccountBalance(path, key string, accountID int64) (float64, error) {
	var balance float64
	err := withService(path, key, func(ctx context.Context, svc *ledger.Service) error {
		var err error
		balance, err = svc.GetAccountBalance(ctx, accountID)
		return err
	})
	return balance, err
}

// GetNetWorth sums every account's latest balance.
func GetNetWorth(path, key string) (float64, error) {
	var netWorth float64
	err := withService(path, key, func(ctx context.Context, svc *ledger.Service) error {
		var err error
		netWorth, err = svc.GetNetWorth(ctx)
		return err
	})
	return netWorth, err
}

// GetBalanceHistory returns accountID's states in chronological order.
func GetBalanceHistory(path, key string, accountID int64) ([]State, error) {
	var states []State
	err := withService(path, key, func(ctx context.Context, svc *ledger.Service) error {
		var err error
		states, err = svc.GetBalanceHistory(ctx, accountID)
		return err
	})
	return states, err
}

// GetAssetAllocation groups accounts with at least one state by type,
// sorted by total balance descending.
func GetAssetAllocation(path, key string) ([]Allocation, error) {
	var allocations []Allocation
	err := withService(path, key, func(ctx context.Context, svc *ledger.Service) error {
		var err error
		allocations, err = svc.GetAssetAllocation(ctx)
		return err
	})
	return allocations, err
}

// ListVersionLog returns audit records matching the optional entity/entityID
// filter, newest first. Pass "" and 0 to leave a dimension unfiltered.
func ListVersionLog(path, key, entity string, entityID int64) ([]VersionLog, error) {
	var records []VersionLog
	err := withService(path, key, func(ctx context.Context, svc *ledger.Service) error {
		var err error
		records, err = svc.ListVersionLog(ctx, entity, entityID)
		return err
	})
	return records, err
}

// GetVersionLog returns audit records matching the optional entity/entityID
// filter, oldest first — suitable for replay.
func GetVersionLog(path, key, entity string, entityID int64) ([]VersionLog, error) {
	var records []VersionLog
	err := withService(path, key, func(ctx context.Context, svc *ledger.Service) error {
		var err error
		records, err = svc.GetVersionLog(ctx, entity, entityID)
		return err
	})
	return records, err
}

// VerifyVersionSignature recomputes the signature check for versionID.
func VerifyVersionSignature(path, key string, versionID int64) (bool, error) {
	var valid bool
	err := withStore(path, key, func(ctx context.Context, s *store.Store) error {
		var err error
		valid, err = verify.VersionSignature(s.DB(), versionID)
		return err
	})
	return valid, err
}

// Package ledger implements the domain mutations and queries of the wallet
// core: accounts, operations, and the derived balance snapshots (states)
// that make point-in-time reads O(1). Every mutation runs inside one
// transaction shared with the audit log, so the primary data and its
// signed audit trail can never drift apart.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kislikjeka/famcore/internal/audit"
	"github.com/kislikjeka/famcore/internal/ferrors"
	"github.com/kislikjeka/famcore/internal/store"
	"github.com/kislikjeka/famcore/pkg/logger"
)

// Service coordinates the encrypted store and the audit log for all ledger
// operations.
type Service struct {
	store *store.Store
	log   *logger.Logger
	now   func() int64
}

// NewService builds a Service over an already-migrated, identity-bootstrapped
// store.
func NewService(s *store.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store: s,
		log:   log,
		now:   func() int64 { return time.Now().Unix() },
	}
}

// CreateAccount inserts a new account and its audit record in one
// transaction and returns the new account id.
func (s *Service) CreateAccount(ctx context.Context, name, typ string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("account name must not be empty")
	}
	if typ == "" {
		return 0, fmt.Errorf("account type must not be empty")
	}

	var accountID int64
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		createdAt := s.now()

		res, err := tx.Exec(`INSERT INTO accounts (name, type, created_at) VALUES (?, ?, ?)`, name, typ, createdAt)
		if err != nil {
			return ferrors.Storage("failed to insert account", err)
		}
		accountID, err = res.LastInsertId()
		if err != nil {
			return ferrors.Storage("failed to read account id", err)
		}

		payload, err := audit.AccountPayload(accountID, name, typ, createdAt)
		if err != nil {
			return err
		}
		_, err = audit.Append(tx, s.log, audit.EntityAccount, accountID, audit.ActionCreate, payload, createdAt)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.WithField("account_id", accountID).WithField("type", typ).Info("created account")
	return accountID, nil
}

// ListAccounts returns every account, newest first.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id, name, type, created_at FROM accounts ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, ferrors.Storage("failed to list accounts", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.CreatedAt); err != nil {
			return nil, ferrors.Storage("failed to scan account", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.Storage("failed to iterate accounts", err)
	}
	return out, nil
}

// AddOperation inserts an operation, derives the new balance, and writes
// the matching state snapshot, appending an audit record for each of the
// two rows inside one transaction. If the clock's ts is not later than the
// account's latest state ts, it is set to that latest ts plus one second,
// so both rows share a ts no other state of the account has.
func (s *Service) AddOperation(ctx context.Context, accountID int64, amount float64, description string) (int64, error) {
	var exists bool
	if err := s.store.DB().QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = ?)`, accountID).Scan(&exists); err != nil {
		return 0, ferrors.Storage("failed to check account existence", err)
	}
	if !exists {
		return 0, ferrors.NotFound("account")
	}

	var operationID int64
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		var lastTs int64
		if err := tx.QueryRow(`SELECT COALESCE(MAX(ts), 0) FROM states WHERE account_id = ?`, accountID).Scan(&lastTs); err != nil {
			return ferrors.Storage("failed to read last state ts", err)
		}

		ts := s.now()
		if ts <= lastTs {
			s.log.WithField("account_id", accountID).Warn("ts collision, advancing past last recorded state")
			ts = lastTs + 1
		}

		res, err := tx.Exec(`
			INSERT INTO operations (account_id, amount, description, ts) VALUES (?, ?, ?, ?)
		`, accountID, amount, description, ts)
		if err != nil {
			return ferrors.Storage("failed to insert operation", err)
		}
		operationID, err = res.LastInsertId()
		if err != nil {
			return ferrors.Storage("failed to read operation id", err)
		}

		opPayload, err := audit.OperationPayload(operationID, accountID, amount, description, ts)
		if err != nil {
			return err
		}
		if _, err := audit.Append(tx, s.log, audit.EntityOperation, operationID, audit.ActionCreate, opPayload, ts); err != nil {
			return err
		}

		var currentBalance float64
		err = tx.QueryRow(`
			SELECT balance FROM states WHERE account_id = ? ORDER BY ts DESC, id DESC LIMIT 1
		`, accountID).Scan(&currentBalance)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return ferrors.Storage("failed to read current balance", err)
		}

		newBalance := currentBalance + amount

		stateRes, err := tx.Exec(`
			INSERT INTO states (account_id, balance, ts) VALUES (?, ?, ?)
		`, accountID, newBalance, ts)
		if err != nil {
			return ferrors.Storage("failed to insert state", err)
		}
		stateID, err := stateRes.LastInsertId()
		if err != nil {
			return ferrors.Storage("failed to read state id", err)
		}

		statePayload, err := audit.StatePayload(stateID, accountID, newBalance, ts)
		if err != nil {
			return err
		}
		_, err = audit.Append(tx, s.log, audit.EntityState, stateID, audit.ActionCreate, statePayload, ts)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.WithField("operation_id", operationID).WithField("account_id", accountID).Info("added operation")
	return operationID, nil
}

// GetOperations returns account's operations, most recent first.
func (s *Service) GetOperations(ctx context.Context, accountID int64) ([]Operation, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id, account_id, amount, description, ts FROM operations
		WHERE account_id = ? ORDER BY ts DESC
	`, accountID)
	if err != nil {
		return nil, ferrors.Storage("failed to list operations", err)
	}
	defer rows.Close()

	var out []Operation
	for rows.Next() {
		var o Operation
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Amount, &o.Description, &o.Ts); err != nil {
			return nil, ferrors.Storage("failed to scan operation", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.Storage("failed to iterate operations", err)
	}
	return out, nil
}

// GetAccountBalance returns the balance of accountID's latest state, or
// 0.0 if it has none — including when accountID does not exist. This
// mirrors the source design rather than erroring on an unknown account.
func (s *Service) GetAccountBalance(ctx context.Context, accountID int64) (float64, error) {
	var balance float64
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT balance FROM states WHERE account_id = ? ORDER BY ts DESC, id DESC LIMIT 1
	`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0.0, nil
	}
	if err != nil {
		return 0, ferrors.Storage("failed to read account balance", err)
	}
	return balance, nil
}

// GetNetWorth sums every account's latest-state balance. Accounts with no
// state contribute nothing.
func (s *Service) GetNetWorth(ctx context.Context) (float64, error) {
	var netWorth float64
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance), 0) FROM (
			SELECT balance, ROW_NUMBER() OVER (PARTITION BY account_id ORDER BY ts DESC, id DESC) AS rn
			FROM states
		) WHERE rn = 1
	`).Scan(&netWorth)
	if err != nil {
		return 0, ferrors.Storage("failed to compute net worth", err)
	}
	return netWorth, nil
}

// GetBalanceHistory returns accountID's states in chronological order.
func (s *Service) GetBalanceHistory(ctx context.Context, accountID int64) ([]State, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id, account_id, balance, ts FROM states
		WHERE account_id = ? ORDER BY ts ASC, id ASC
	`, accountID)
	if err != nil {
		return nil, ferrors.Storage("failed to list balance history", err)
	}
	defer rows.Close()

	var out []State
	for rows.Next() {
		var st State
		if err := rows.Scan(&st.ID, &st.AccountID, &st.Balance, &st.Ts); err != nil {
			return nil, ferrors.Storage("failed to scan state", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.Storage("failed to iterate balance history", err)
	}
	return out, nil
}

// GetAssetAllocation groups accounts with at least one state by type,
// summing each group's latest balances and counting its accounts, sorted
// by total balance descending.
func (s *Service) GetAssetAllocation(ctx context.Context) ([]Allocation, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT a.type, SUM(latest.balance) AS total_balance, COUNT(*) AS account_count
		FROM accounts a
		JOIN (
			SELECT account_id, balance,
			       ROW_NUMBER() OVER (PARTITION BY account_id ORDER BY ts DESC, id DESC) AS rn
			FROM states
		) latest ON latest.account_id = a.id AND latest.rn = 1
		GROUP BY a.type
		ORDER BY total_balance DESC
	`)
	if err != nil {
		return nil, ferrors.Storage("failed to compute asset allocation", err)
	}
	defer rows.Close()

	var out []Allocation
	for rows.Next() {
		var al Allocation
		if err := rows.Scan(&al.Type, &al.TotalBalance, &al.AccountCount); err != nil {
			return nil, ferrors.Storage("failed to scan allocation row", err)
		}
		out = append(out, al)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.Storage("failed to iterate allocation rows", err)
	}
	return out, nil
}

// ListVersionLog returns audit records matching the optional entity/entityID
// filter, newest first. An empty entity or zero entityID means "no filter
// on that dimension".
func (s *Service) ListVersionLog(ctx context.Context, entity string, entityID int64) ([]audit.Record, error) {
	return audit.List(s.store.DB(), audit.Filter{Entity: entity, EntityID: entityID})
}

// GetVersionLog returns audit records matching the optional entity/entityID
// filter, oldest first — suitable for replay.
func (s *Service) GetVersionLog(ctx context.Context, entity string, entityID int64) ([]audit.Record, error) {
	return audit.GetChronological(s.store.DB(), audit.Filter{Entity: entity, EntityID: entityID})
}

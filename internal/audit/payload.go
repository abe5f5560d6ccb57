package audit

import (
	"encoding/json"

	"github.com/kislikjeka/famcore/internal/ferrors"
)

// Entity kinds recorded in version_log.entity.
const (
	EntityAccount   = "account"
	EntityOperation = "operation"
	EntityState     = "state"
)

// Actions recorded in version_log.action. The core only ever appends, so
// Update and Delete exist for completeness with the data model but are
// unused by any current mutation.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// accountPayload, operationPayload and statePayload mirror the persisted
// columns of their entity verbatim, in declaration order, so that
// json.Marshal emits a byte-stable canonical snapshot: Go encodes struct
// fields in declaration order regardless of map iteration, which is what
// signature verification depends on.
type accountPayload struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreatedAt int64  `json:"created_at"`
}

type operationPayload struct {
	ID          int64   `json:"id"`
	AccountID   int64   `json:"account_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Ts          int64   `json:"ts"`
}

type statePayload struct {
	ID        int64   `json:"id"`
	AccountID int64   `json:"account_id"`
	Balance   float64 `json:"balance"`
	Ts        int64   `json:"ts"`
}

// AccountPayload serializes an account snapshot for the audit log.
func AccountPayload(id int64, name, typ string, createdAt int64) ([]byte, error) {
	b, err := json.Marshal(accountPayload{ID: id, Name: name, Type: typ, CreatedAt: createdAt})
	if err != nil {
		return nil, ferrors.Serialization("failed to serialize account payload", err)
	}
	return b, nil
}

// OperationPayload serializes an operation snapshot for the audit log.
func OperationPayload(id, accountID int64, amount float64, description string, ts int64) ([]byte, error) {
	b, err := json.Marshal(operationPayload{ID: id, AccountID: accountID, Amount: amount, Description: description, Ts: ts})
	if err != nil {
		return nil, ferrors.Serialization("failed to serialize operation payload", err)
	}
	return b, nil
}

// StatePayload serializes a state snapshot for the audit log.
func StatePayload(id, accountID int64, balance float64, ts int64) ([]byte, error) {
	b, err := json.Marshal(statePayload{ID: id, AccountID: accountID, Balance: balance, Ts: ts})
	if err != nil {
		return nil, ferrors.Serialization("failed to serialize state payload", err)
	}
	return b, nil
}

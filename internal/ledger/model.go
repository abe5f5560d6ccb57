package ledger

// Account is a named, typed container for operations. Created once, never
// mutated or deleted by the core.
type Account struct {
	ID        int64
	Name      string
	Type      string
	CreatedAt int64
}

// Operation is an immutable signed monetary movement against an account.
// Amount's sign encodes direction: positive inflow, negative outflow.
type Operation struct {
	ID          int64
	AccountID   int64
	Amount      float64
	Description string
	Ts          int64
}

// State is a balance snapshot produced exactly once per operation.
type State struct {
	ID        int64
	AccountID int64
	Balance   float64
	Ts        int64
}

// Allocation summarizes accounts grouped by type for the asset-allocation
// query: accounts without any State are excluded from every group.
type Allocation struct {
	Type         string
	TotalBalance float64
	AccountCount int
}

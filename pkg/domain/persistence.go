package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Requests have no delete and ledger
// entries have no update or delete: those mutations do not exist in the
// domain, by contract as well as by rule.
type Transaction interface {
	Snapshot() TransactionView
	CreateUser(User) (User, error)
	UpdateUser(id string, mutator func(*User) error) (User, error)
	DeleteUser(id string) error
	CreateRequest(BloodRequest) (BloodRequest, error)
	UpdateRequest(id string, mutator func(*BloodRequest) error) (BloodRequest, error)
	CreateLot(InventoryLot) (InventoryLot, error)
	UpdateLot(id string, mutator func(*InventoryLot) error) (InventoryLot, error)
	DeleteLot(id string) error
	AppendLedgerEntry(LedgerEntry) (LedgerEntry, error)
	CreateCamp(BloodCamp) (BloodCamp, error)
	UpdateCamp(id string, mutator func(*BloodCamp) error) (BloodCamp, error)
	DeleteCamp(id string) error
	FindUser(id string) (User, bool)
	FindRequest(id string) (BloodRequest, bool)
	FindLot(id string) (InventoryLot, bool)
	FindCamp(id string) (BloodCamp, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// read-side projections.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetUser(id string) (User, bool)
	GetRequest(id string) (BloodRequest, bool)
	GetLot(id string) (InventoryLot, bool)
	GetCamp(id string) (BloodCamp, bool)
	ListUsers() []User
	ListRequests() []BloodRequest
	ListLots() []InventoryLot
	ListLedgerEntries() []LedgerEntry
	ListCamps() []BloodCamp
}

// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hemocore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
)

// Exported aliases keep method signatures concise while still exposing domain
// types from this infra package.
type (
	// User is an alias of domain.User.
	User = domain.User
	// BloodRequest is an alias of domain.BloodRequest.
	BloodRequest = domain.BloodRequest
	// InventoryLot is an alias of domain.InventoryLot.
	InventoryLot = domain.InventoryLot
	// LedgerEntry is an alias of domain.LedgerEntry.
	LedgerEntry = domain.LedgerEntry
	// BloodCamp is an alias of domain.BloodCamp.
	BloodCamp = domain.BloodCamp
	// Change is an alias of domain.Change.
	Change = domain.Change
	// Result is an alias of domain.Result.
	Result = domain.Result
	// RulesEngine is an alias of domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction is an alias of domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView is an alias of domain.TransactionView.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	users    map[string]User
	requests map[string]BloodRequest
	lots     map[string]InventoryLot
	ledger   map[string]LedgerEntry
	camps    map[string]BloodCamp
}

// Snapshot captures a point-in-time clone of the store state. It is the
// serialisable representation persisted by the durable backends.
type Snapshot struct {
	Users    map[string]User         `json:"users"`
	Requests map[string]BloodRequest `json:"requests"`
	Lots     map[string]InventoryLot `json:"lots"`
	Ledger   map[string]LedgerEntry  `json:"ledger"`
	Camps    map[string]BloodCamp    `json:"camps"`
}

func newMemoryState() memoryState {
	return memoryState{
		users:    map[string]User{},
		requests: map[string]BloodRequest{},
		lots:     map[string]InventoryLot{},
		ledger:   map[string]LedgerEntry{},
		camps:    map[string]BloodCamp{},
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Users:    make(map[string]User, len(state.users)),
		Requests: make(map[string]BloodRequest, len(state.requests)),
		Lots:     make(map[string]InventoryLot, len(state.lots)),
		Ledger:   make(map[string]LedgerEntry, len(state.ledger)),
		Camps:    make(map[string]BloodCamp, len(state.camps)),
	}
	for k, v := range state.users {
		s.Users[k] = cloneUser(v)
	}
	for k, v := range state.requests {
		s.Requests[k] = cloneRequest(v)
	}
	for k, v := range state.lots {
		s.Lots[k] = cloneLot(v)
	}
	for k, v := range state.ledger {
		s.Ledger[k] = cloneLedgerEntry(v)
	}
	for k, v := range state.camps {
		s.Camps[k] = cloneCamp(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Users {
		state.users[k] = cloneUser(v)
	}
	for k, v := range s.Requests {
		state.requests[k] = cloneRequest(v)
	}
	for k, v := range s.Lots {
		state.lots[k] = cloneLot(v)
	}
	for k, v := range s.Ledger {
		state.ledger[k] = cloneLedgerEntry(v)
	}
	for k, v := range s.Camps {
		state.camps[k] = cloneCamp(v)
	}
	return state
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.users {
		cloned.users[k] = cloneUser(v)
	}
	for k, v := range s.requests {
		cloned.requests[k] = cloneRequest(v)
	}
	for k, v := range s.lots {
		cloned.lots[k] = cloneLot(v)
	}
	for k, v := range s.ledger {
		cloned.ledger[k] = cloneLedgerEntry(v)
	}
	for k, v := range s.camps {
		cloned.camps[k] = cloneCamp(v)
	}
	return cloned
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneUser(u User) User {
	cp := u
	cp.LastDonation = cloneTimePtr(u.LastDonation)
	return cp
}

func cloneRequest(r BloodRequest) BloodRequest {
	cp := r
	cp.OrganizationID = cloneStringPtr(r.OrganizationID)
	cp.RequiredBy = cloneTimePtr(r.RequiredBy)
	return cp
}

func cloneLot(l InventoryLot) InventoryLot {
	cp := l
	cp.DonorID = cloneStringPtr(l.DonorID)
	return cp
}

func cloneLedgerEntry(e LedgerEntry) LedgerEntry {
	cp := e
	cp.DonorID = cloneStringPtr(e.DonorID)
	cp.RecipientID = cloneStringPtr(e.RecipientID)
	return cp
}

func cloneCamp(c BloodCamp) BloodCamp {
	cp := c
	cp.Registrations = append([]domain.CampRegistration(nil), c.Registrations...)
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine for integration points.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

// SetNowFunc overrides the time provider. Intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListUsers returns all users within the transaction snapshot.
func (v transactionView) ListUsers() []User {
	out := make([]User, 0, len(v.state.users))
	for _, u := range v.state.users {
		out = append(out, cloneUser(u))
	}
	return out
}

// ListRequests returns all blood requests.
func (v transactionView) ListRequests() []BloodRequest {
	out := make([]BloodRequest, 0, len(v.state.requests))
	for _, r := range v.state.requests {
		out = append(out, cloneRequest(r))
	}
	return out
}

// ListLots returns all inventory lots.
func (v transactionView) ListLots() []InventoryLot {
	out := make([]InventoryLot, 0, len(v.state.lots))
	for _, l := range v.state.lots {
		out = append(out, cloneLot(l))
	}
	return out
}

// ListLedgerEntries returns all ledger entries.
func (v transactionView) ListLedgerEntries() []LedgerEntry {
	out := make([]LedgerEntry, 0, len(v.state.ledger))
	for _, e := range v.state.ledger {
		out = append(out, cloneLedgerEntry(e))
	}
	return out
}

// ListCamps returns all blood camps.
func (v transactionView) ListCamps() []BloodCamp {
	out := make([]BloodCamp, 0, len(v.state.camps))
	for _, c := range v.state.camps {
		out = append(out, cloneCamp(c))
	}
	return out
}

// FindUser retrieves a user by ID from the snapshot.
func (v transactionView) FindUser(id string) (User, bool) {
	u, ok := v.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// FindRequest retrieves a blood request by ID from the snapshot.
func (v transactionView) FindRequest(id string) (BloodRequest, bool) {
	r, ok := v.state.requests[id]
	if !ok {
		return BloodRequest{}, false
	}
	return cloneRequest(r), true
}

// FindLot retrieves an inventory lot by ID from the snapshot.
func (v transactionView) FindLot(id string) (InventoryLot, bool) {
	l, ok := v.state.lots[id]
	if !ok {
		return InventoryLot{}, false
	}
	return cloneLot(l), true
}

// FindCamp retrieves a blood camp by ID from the snapshot.
func (v transactionView) FindCamp(id string) (BloodCamp, bool) {
	c, ok := v.state.camps[id]
	if !ok {
		return BloodCamp{}, false
	}
	return cloneCamp(c), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The cloned state is swapped in only when fn and every registered rule
// succeed, so a failed transaction leaves the store untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(entity domain.EntityType, action domain.Action, before, after any) {
	change := Change{Entity: entity, Action: action}
	if before != nil {
		if payload, err := domain.NewChangePayloadFromValue(before); err == nil {
			change.Before = payload
		}
	}
	if after != nil {
		if payload, err := domain.NewChangePayloadFromValue(after); err == nil {
			change.After = payload
		}
	}
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state for reads within fn.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// CreateUser stores a new user within the transaction.
func (tx *transaction) CreateUser(u User) (User, error) {
	if u.ID == "" {
		u.ID = tx.store.newID()
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, fmt.Errorf("user %q already exists", u.ID)
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = cloneUser(u)
	tx.recordChange(domain.EntityUser, domain.ActionCreate, nil, cloneUser(u))
	return cloneUser(u), nil
}

// UpdateUser mutates a user using the provided mutator function.
func (tx *transaction) UpdateUser(id string, mutator func(*User) error) (User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %q not found", id)
	}
	before := cloneUser(current)
	if err := mutator(&current); err != nil {
		return User{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.users[id] = cloneUser(current)
	tx.recordChange(domain.EntityUser, domain.ActionUpdate, before, cloneUser(current))
	return cloneUser(current), nil
}

// DeleteUser removes a user from the transaction state.
func (tx *transaction) DeleteUser(id string) error {
	current, ok := tx.state.users[id]
	if !ok {
		return fmt.Errorf("user %q not found", id)
	}
	delete(tx.state.users, id)
	tx.recordChange(domain.EntityUser, domain.ActionDelete, cloneUser(current), nil)
	return nil
}

// CreateRequest stores a new blood request.
func (tx *transaction) CreateRequest(r BloodRequest) (BloodRequest, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.requests[r.ID]; exists {
		return BloodRequest{}, fmt.Errorf("request %q already exists", r.ID)
	}
	if !r.BloodGroup.Valid() {
		return BloodRequest{}, fmt.Errorf("invalid blood group %q", r.BloodGroup)
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.requests[r.ID] = cloneRequest(r)
	tx.recordChange(domain.EntityRequest, domain.ActionCreate, nil, cloneRequest(r))
	return cloneRequest(r), nil
}

// UpdateRequest mutates a blood request. Requests are never deleted.
func (tx *transaction) UpdateRequest(id string, mutator func(*BloodRequest) error) (BloodRequest, error) {
	current, ok := tx.state.requests[id]
	if !ok {
		return BloodRequest{}, fmt.Errorf("request %q not found", id)
	}
	before := cloneRequest(current)
	if err := mutator(&current); err != nil {
		return BloodRequest{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.requests[id] = cloneRequest(current)
	tx.recordChange(domain.EntityRequest, domain.ActionUpdate, before, cloneRequest(current))
	return cloneRequest(current), nil
}

// CreateLot stores a new inventory lot.
func (tx *transaction) CreateLot(l InventoryLot) (InventoryLot, error) {
	if l.ID == "" {
		l.ID = tx.store.newID()
	}
	if _, exists := tx.state.lots[l.ID]; exists {
		return InventoryLot{}, fmt.Errorf("lot %q already exists", l.ID)
	}
	if l.Units < 0 {
		return InventoryLot{}, errors.New("lot units must not be negative")
	}
	if !l.BloodGroup.Valid() {
		return InventoryLot{}, fmt.Errorf("invalid blood group %q", l.BloodGroup)
	}
	if l.Status == "" {
		l.Status = domain.LotAvailable
	}
	if l.CollectedAt.IsZero() {
		l.CollectedAt = tx.now
	}
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.lots[l.ID] = cloneLot(l)
	tx.recordChange(domain.EntityLot, domain.ActionCreate, nil, cloneLot(l))
	return cloneLot(l), nil
}

// UpdateLot mutates an inventory lot.
func (tx *transaction) UpdateLot(id string, mutator func(*InventoryLot) error) (InventoryLot, error) {
	current, ok := tx.state.lots[id]
	if !ok {
		return InventoryLot{}, fmt.Errorf("lot %q not found", id)
	}
	before := cloneLot(current)
	if err := mutator(&current); err != nil {
		return InventoryLot{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.lots[id] = cloneLot(current)
	tx.recordChange(domain.EntityLot, domain.ActionUpdate, before, cloneLot(current))
	return cloneLot(current), nil
}

// DeleteLot removes an inventory lot.
func (tx *transaction) DeleteLot(id string) error {
	current, ok := tx.state.lots[id]
	if !ok {
		return fmt.Errorf("lot %q not found", id)
	}
	delete(tx.state.lots, id)
	tx.recordChange(domain.EntityLot, domain.ActionDelete, cloneLot(current), nil)
	return nil
}

// AppendLedgerEntry stores a new ledger entry. The ledger is append-only:
// no update or delete operation exists for it.
func (tx *transaction) AppendLedgerEntry(e LedgerEntry) (LedgerEntry, error) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if _, exists := tx.state.ledger[e.ID]; exists {
		return LedgerEntry{}, fmt.Errorf("ledger entry %q already exists", e.ID)
	}
	if e.Units <= 0 {
		return LedgerEntry{}, errors.New("ledger entry units must be positive")
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = tx.now
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.ledger[e.ID] = cloneLedgerEntry(e)
	tx.recordChange(domain.EntityLedger, domain.ActionCreate, nil, cloneLedgerEntry(e))
	return cloneLedgerEntry(e), nil
}

// CreateCamp stores a new blood camp.
func (tx *transaction) CreateCamp(c BloodCamp) (BloodCamp, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.camps[c.ID]; exists {
		return BloodCamp{}, fmt.Errorf("camp %q already exists", c.ID)
	}
	if c.Status == "" {
		c.Status = domain.CampUpcoming
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.camps[c.ID] = cloneCamp(c)
	tx.recordChange(domain.EntityCamp, domain.ActionCreate, nil, cloneCamp(c))
	return cloneCamp(c), nil
}

// UpdateCamp mutates a blood camp.
func (tx *transaction) UpdateCamp(id string, mutator func(*BloodCamp) error) (BloodCamp, error) {
	current, ok := tx.state.camps[id]
	if !ok {
		return BloodCamp{}, fmt.Errorf("camp %q not found", id)
	}
	before := cloneCamp(current)
	if err := mutator(&current); err != nil {
		return BloodCamp{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.camps[id] = cloneCamp(current)
	tx.recordChange(domain.EntityCamp, domain.ActionUpdate, before, cloneCamp(current))
	return cloneCamp(current), nil
}

// DeleteCamp removes a blood camp.
func (tx *transaction) DeleteCamp(id string) error {
	current, ok := tx.state.camps[id]
	if !ok {
		return fmt.Errorf("camp %q not found", id)
	}
	delete(tx.state.camps, id)
	tx.recordChange(domain.EntityCamp, domain.ActionDelete, cloneCamp(current), nil)
	return nil
}

// FindUser retrieves a user by ID from the transactional state.
func (tx *transaction) FindUser(id string) (User, bool) {
	u, ok := tx.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// FindRequest retrieves a blood request by ID from the transactional state.
func (tx *transaction) FindRequest(id string) (BloodRequest, bool) {
	r, ok := tx.state.requests[id]
	if !ok {
		return BloodRequest{}, false
	}
	return cloneRequest(r), true
}

// FindLot retrieves an inventory lot by ID from the transactional state.
func (tx *transaction) FindLot(id string) (InventoryLot, bool) {
	l, ok := tx.state.lots[id]
	if !ok {
		return InventoryLot{}, false
	}
	return cloneLot(l), true
}

// FindCamp retrieves a blood camp by ID from the transactional state.
func (tx *transaction) FindCamp(id string) (BloodCamp, bool) {
	c, ok := tx.state.camps[id]
	if !ok {
		return BloodCamp{}, false
	}
	return cloneCamp(c), true
}

// Read helpers ---------------------------------------------------------------

// GetUser retrieves a user by ID from committed state.
func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// GetRequest retrieves a blood request by ID from committed state.
func (s *Store) GetRequest(id string) (BloodRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.requests[id]
	if !ok {
		return BloodRequest{}, false
	}
	return cloneRequest(r), true
}

// GetLot retrieves an inventory lot by ID from committed state.
func (s *Store) GetLot(id string) (InventoryLot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.lots[id]
	if !ok {
		return InventoryLot{}, false
	}
	return cloneLot(l), true
}

// GetCamp retrieves a blood camp by ID from committed state.
func (s *Store) GetCamp(id string) (BloodCamp, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.camps[id]
	if !ok {
		return BloodCamp{}, false
	}
	return cloneCamp(c), true
}

// ListUsers returns all users from committed state.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.state.users))
	for _, u := range s.state.users {
		out = append(out, cloneUser(u))
	}
	return out
}

// ListRequests returns all blood requests from committed state.
func (s *Store) ListRequests() []BloodRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BloodRequest, 0, len(s.state.requests))
	for _, r := range s.state.requests {
		out = append(out, cloneRequest(r))
	}
	return out
}

// ListLots returns all inventory lots from committed state.
func (s *Store) ListLots() []InventoryLot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]InventoryLot, 0, len(s.state.lots))
	for _, l := range s.state.lots {
		out = append(out, cloneLot(l))
	}
	return out
}

// ListLedgerEntries returns all ledger entries from committed state.
func (s *Store) ListLedgerEntries() []LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LedgerEntry, 0, len(s.state.ledger))
	for _, e := range s.state.ledger {
		out = append(out, cloneLedgerEntry(e))
	}
	return out
}

// ListCamps returns all blood camps from committed state.
func (s *Store) ListCamps() []BloodCamp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BloodCamp, 0, len(s.state.camps))
	for _, c := range s.state.camps {
		out = append(out, cloneCamp(c))
	}
	return out
}

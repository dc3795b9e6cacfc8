// Package ledger owns the khata: the customer collection, its mutations, and
// the totals derived from it.
//
// Every mutation:
//  1. Validates its input before touching any state
//  2. Builds the next collection as a copy of the current one
//  3. Writes the whole collection through the store
//  4. Swaps it into memory only after the write succeeds
//
// A failed write therefore leaves memory and store in agreement.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/udhar-khata/khata/internal/domain"
)

// StorageKey is the single key under which the collection is stored. Import
// and export use the same key and shape.
const StorageKey = "udhar-khata-customers"

// Mutation names reported to the Recorder.
const (
	OpAddCustomer       = "add_customer"
	OpDeleteCustomer    = "delete_customer"
	OpAddTransaction    = "add_transaction"
	OpDeleteTransaction = "delete_transaction"
	OpEditTransaction   = "edit_transaction"
	OpImport            = "import"
)

// Recorder receives ledger activity (see observability.Metrics).
type Recorder interface {
	ObserveMutation(op string, err error)
	ObserveSave(d time.Duration)
	ObserveState(customers int, totals domain.Totals)
}

// TransactionEdit names the fields an edit may change. Nil fields are left
// untouched.
type TransactionEdit struct {
	Amount      *string
	Description *string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for createdAt and date.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDs overrides id generation.
func WithIDs(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(l *Ledger) { l.rec = r }
}

// WithKey stores the collection under a different key.
func WithKey(key string) Option {
	return func(l *Ledger) { l.key = key }
}

// Ledger is the sole owner of the in-memory customer collection.
type Ledger struct {
	mu        sync.RWMutex
	store     domain.KVStore
	key       string
	customers []domain.Customer
	now       func() time.Time
	newID     func() string
	rec       Recorder
}

// Open creates a Ledger over store and loads the stored collection. A missing
// or undecodable value yields an empty ledger; only a store failure errors.
func Open(ctx context.Context, store domain.KVStore, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store: store,
		key:   StorageKey,
		now:   defaultNow,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Reload replaces the in-memory collection with what the store holds.
func (l *Ledger) Reload(ctx context.Context) error {
	data, ok, err := l.store.Load(ctx, l.key)
	if err != nil {
		return fmt.Errorf("load %s: %w", l.key, err)
	}

	customers := []domain.Customer{}
	if ok {
		customers, err = decodeCollection(data)
		if err != nil {
			log.Printf("[ledger] stored %s is unreadable, starting empty: %v", l.key, err)
			customers = []domain.Customer{}
		}
	}

	l.mu.Lock()
	l.customers = customers
	l.observeState()
	l.mu.Unlock()
	return nil
}

func decodeCollection(data []byte) ([]domain.Customer, error) {
	var customers []domain.Customer
	if err := json.Unmarshal(data, &customers); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImport, err)
	}
	if err := domain.ValidateCollection(customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Customers returns a copy of the collection in insertion order.
func (l *Ledger) Customers() []domain.Customer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneCustomers(l.customers)
}

// Customer returns a copy of one customer.
func (l *Ledger) Customer(id string) (domain.Customer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := domain.IndexCustomer(l.customers, id)
	if i < 0 {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return l.customers[i].Clone(), nil
}

// Search returns customers matching term by name or phone, sorted by name.
func (l *Ledger) Search(term string) []domain.Customer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.Search(l.customers, term)
}

// Balance returns one customer's balance.
func (l *Ledger) Balance(customerID string) (decimal.Decimal, error) {
	c, err := l.Customer(customerID)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Balance(), nil
}

// Totals returns the aggregate totals across all customers.
func (l *Ledger) Totals() domain.Totals {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.ComputeTotals(l.customers)
}

// ─── Customer Mutations ─────────────────────────────────────────────────────

// AddCustomer appends a customer with an empty history. Name and phone are
// stored as given.
func (l *Ledger) AddCustomer(ctx context.Context, name, phone string) (c domain.Customer, err error) {
	defer l.observe(OpAddCustomer, &err)

	l.mu.Lock()
	defer l.mu.Unlock()

	c = domain.Customer{
		ID:           l.newID(),
		Name:         name,
		Phone:        phone,
		Transactions: []domain.Transaction{},
		CreatedAt:    l.now(),
	}
	next := append(domain.CloneCustomers(l.customers), c)
	if err := l.commit(ctx, next); err != nil {
		return domain.Customer{}, err
	}
	return c.Clone(), nil
}

// DeleteCustomer removes a customer together with its transactions. A
// missing id is a no-op.
func (l *Ledger) DeleteCustomer(ctx context.Context, customerID string) (err error) {
	defer l.observe(OpDeleteCustomer, &err)

	l.mu.Lock()
	defer l.mu.Unlock()

	i := domain.IndexCustomer(l.customers, customerID)
	if i < 0 {
		return nil
	}
	next := domain.CloneCustomers(l.customers)
	next = append(next[:i], next[i+1:]...)
	return l.commit(ctx, next)
}

// ─── Transaction Mutations ──────────────────────────────────────────────────

// AddTransaction appends a transaction to a customer's history. Type and
// amount are validated first; invalid input returns ErrInvalidType or
// ErrInvalidAmount and nothing changes. ok is false when the customer does
// not exist (a no-op, not an error).
func (l *Ledger) AddTransaction(ctx context.Context, customerID string, typ domain.TransactionType, amount, description string) (tx domain.Transaction, ok bool, err error) {
	defer l.observe(OpAddTransaction, &err)

	if !typ.Valid() {
		return domain.Transaction{}, false, fmt.Errorf("%w: %q", domain.ErrInvalidType, typ)
	}
	amt, err := domain.ParseAmount(amount)
	if err != nil {
		return domain.Transaction{}, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := domain.IndexCustomer(l.customers, customerID)
	if i < 0 {
		return domain.Transaction{}, false, nil
	}
	tx = domain.Transaction{
		ID:          l.newID(),
		Type:        typ,
		Amount:      amt,
		Description: description,
		Date:        l.now(),
	}
	next := domain.CloneCustomers(l.customers)
	next[i].Transactions = append(next[i].Transactions, tx)
	if err := l.commit(ctx, next); err != nil {
		return domain.Transaction{}, false, err
	}
	return tx, true, nil
}

// DeleteTransaction removes one transaction. Missing ids are a no-op.
func (l *Ledger) DeleteTransaction(ctx context.Context, customerID, transactionID string) (err error) {
	defer l.observe(OpDeleteTransaction, &err)

	l.mu.Lock()
	defer l.mu.Unlock()

	i := domain.IndexCustomer(l.customers, customerID)
	if i < 0 {
		return nil
	}
	j := l.customers[i].TransactionIndex(transactionID)
	if j < 0 {
		return nil
	}
	next := domain.CloneCustomers(l.customers)
	txs := next[i].Transactions
	next[i].Transactions = append(txs[:j], txs[j+1:]...)
	return l.commit(ctx, next)
}

// EditTransaction changes the amount and/or description of one transaction
// in place. The id, type and date never change. A new amount is validated
// like AddTransaction's. Missing ids are a no-op.
func (l *Ledger) EditTransaction(ctx context.Context, customerID, transactionID string, edit TransactionEdit) (err error) {
	defer l.observe(OpEditTransaction, &err)

	var amt *decimal.Decimal
	if edit.Amount != nil {
		d, err := domain.ParseAmount(*edit.Amount)
		if err != nil {
			return err
		}
		amt = &d
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := domain.IndexCustomer(l.customers, customerID)
	if i < 0 {
		return nil
	}
	j := l.customers[i].TransactionIndex(transactionID)
	if j < 0 {
		return nil
	}
	next := domain.CloneCustomers(l.customers)
	tx := &next[i].Transactions[j]
	if amt != nil {
		tx.Amount = *amt
	}
	if edit.Description != nil {
		tx.Description = *edit.Description
	}
	return l.commit(ctx, next)
}

// ─── Persistence ────────────────────────────────────────────────────────────

// commit writes next through the store and, on success, makes it current.
// Caller holds l.mu.
func (l *Ledger) commit(ctx context.Context, next []domain.Customer) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode customers: %w", err)
	}

	start := time.Now()
	err = l.store.Save(ctx, l.key, data)
	if l.rec != nil {
		l.rec.ObserveSave(time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", l.key, err)
	}

	l.customers = next
	l.observeState()
	return nil
}

func (l *Ledger) observe(op string, err *error) {
	if l.rec != nil {
		l.rec.ObserveMutation(op, *err)
	}
}

// observeState must be called with l.mu held.
func (l *Ledger) observeState() {
	if l.rec != nil {
		l.rec.ObserveState(len(l.customers), domain.ComputeTotals(l.customers))
	}
}

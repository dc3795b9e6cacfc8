// Package domain contains pure khata types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture: it depends on nothing
// but the decimal type used for money.
package domain

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Customer ───────────────────────────────────────────────────────────────

// Customer is a person the ledger owner lends to or collects from.
// Transactions are kept in creation order.
type Customer struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone"`
	Transactions []Transaction `json:"transactions"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Balance returns the customer's signed balance.
func (c Customer) Balance() decimal.Decimal {
	return Balance(c.Transactions)
}

// TransactionIndex returns the position of the transaction with id, or -1.
func (c Customer) TransactionIndex(id string) int {
	return slices.IndexFunc(c.Transactions, func(tx Transaction) bool { return tx.ID == id })
}

// History returns the transactions newest first.
func (c Customer) History() []Transaction {
	h := slices.Clone(c.Transactions)
	slices.Reverse(h)
	return h
}

// Initials returns up to two leading characters of the name, upper-cased.
func (c Customer) Initials() string {
	r := []rune(c.Name)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// Clone returns a copy that shares no slices with c.
func (c Customer) Clone() Customer {
	c.Transactions = slices.Clone(c.Transactions)
	return c
}

// CloneCustomers deep-copies a collection.
func CloneCustomers(cs []Customer) []Customer {
	if cs == nil {
		return nil
	}
	out := make([]Customer, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}

// IndexCustomer returns the position of the customer with id, or -1.
func IndexCustomer(cs []Customer, id string) int {
	return slices.IndexFunc(cs, func(c Customer) bool { return c.ID == id })
}

// ─── Search ─────────────────────────────────────────────────────────────────

// Search returns customers whose name contains term (case-insensitive) or
// whose phone contains term, sorted by name. An empty term matches all.
func Search(cs []Customer, term string) []Customer {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]Customer, 0, len(cs))
	for _, c := range cs {
		if needle == "" ||
			strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(c.Phone, needle) {
			out = append(out, c.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// ─── Collection Validation ──────────────────────────────────────────────────

// ValidateCollection checks a decoded collection before it replaces the
// stored one. Nil transaction slices are normalized to empty ones so the
// collection re-encodes with "transactions": [].
func ValidateCollection(cs []Customer) error {
	if cs == nil {
		return fmt.Errorf("%w: expected a list of customers", ErrInvalidImport)
	}
	customerIDs := make(map[string]struct{}, len(cs))
	for i := range cs {
		c := &cs[i]
		if c.ID == "" {
			return fmt.Errorf("%w: customer %d has no id", ErrInvalidImport, i)
		}
		if _, dup := customerIDs[c.ID]; dup {
			return fmt.Errorf("%w: duplicate customer id %s", ErrInvalidImport, c.ID)
		}
		customerIDs[c.ID] = struct{}{}
		if c.CreatedAt.IsZero() {
			return fmt.Errorf("%w: customer %s has no createdAt", ErrInvalidImport, c.ID)
		}
		if c.Transactions == nil {
			c.Transactions = []Transaction{}
		}

		txIDs := make(map[string]struct{}, len(c.Transactions))
		for j, tx := range c.Transactions {
			if tx.ID == "" {
				return fmt.Errorf("%w: customer %s transaction %d has no id", ErrInvalidImport, c.ID, j)
			}
			if _, dup := txIDs[tx.ID]; dup {
				return fmt.Errorf("%w: customer %s has duplicate transaction id %s", ErrInvalidImport, c.ID, tx.ID)
			}
			txIDs[tx.ID] = struct{}{}
			if !tx.Type.Valid() {
				return fmt.Errorf("%w: transaction %s has type %q", ErrInvalidImport, tx.ID, tx.Type)
			}
			if tx.Amount.IsNegative() {
				return fmt.Errorf("%w: transaction %s has negative amount", ErrInvalidImport, tx.ID)
			}
			if err := CheckAmountRange(tx.Amount); err != nil {
				return fmt.Errorf("%w: transaction %s: %v", ErrInvalidImport, tx.ID, err)
			}
			if tx.Date.IsZero() {
				return fmt.Errorf("%w: transaction %s has no date", ErrInvalidImport, tx.ID)
			}
		}
	}
	return nil
}

package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Transaction Types ──────────────────────────────────────────────────────

// TransactionType is the direction of a khata entry. The string values are
// the tokens written to storage and export files.
type TransactionType string

const (
	TxUdhar  TransactionType = "udhar"  // money given; the customer owes more
	TxVasuli TransactionType = "vasuli" // money received; the customer owes less
)

// Valid reports whether t is one of the two stored tokens.
func (t TransactionType) Valid() bool {
	return t == TxUdhar || t == TxVasuli
}

// Label returns the English name of the entry kind.
func (t TransactionType) Label() string {
	switch t {
	case TxUdhar:
		return "debt"
	case TxVasuli:
		return "payment"
	default:
		return string(t)
	}
}

// ParseTransactionType accepts the stored tokens as well as the English
// aliases "debt"/"given" and "payment"/"received", case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "udhar", "debt", "given":
		return TxUdhar, nil
	case "vasuli", "payment", "received":
		return TxVasuli, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// ─── Amounts ────────────────────────────────────────────────────────────────

// Amount bounds. Amounts are money typed by hand, so anything outside these
// limits is treated as invalid input rather than expanded.
const (
	MaxAmountScale    = 8  // decimal places
	maxAmountExponent = 15 // 10^15 is MaxAmount
)

// MaxAmount is the largest amount the ledger accepts.
var MaxAmount = decimal.New(1, maxAmountExponent)

// ParseAmount converts user input into a ledger amount. It rejects empty,
// non-numeric, negative and out-of-range input. The result is in canonical
// form, so an amount survives a JSON round-trip unchanged.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, s)
	}
	if err := CheckAmountRange(d); err != nil {
		return decimal.Zero, err
	}
	return canonical(d), nil
}

// CheckAmountRange rejects amounts with more than MaxAmountScale decimal
// places or a magnitude above MaxAmount. It inspects only the exponent and
// coefficient, so it is cheap even for inputs like "1e50000000" whose
// expanded form would be enormous.
func CheckAmountRange(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < -MaxAmountScale {
		return fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, MaxAmountScale)
	}
	if exp > maxAmountExponent || d.Abs().GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: larger than %s", ErrInvalidAmount, MaxAmount)
	}
	return nil
}

// canonical strips trailing zeros from the internal representation so that
// equal values also compare equal with reflect.DeepEqual. Callers must have
// checked the range first.
func canonical(d decimal.Decimal) decimal.Decimal {
	return decimal.RequireFromString(d.String())
}

// ─── Transaction ────────────────────────────────────────────────────────────

// Transaction is one dated entry in a customer's khata.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

// Signed returns the amount as it contributes to the customer's balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TxUdhar {
		return t.Amount
	}
	return t.Amount.Neg()
}

// MarshalJSON writes the amount as a JSON number rather than decimal's
// default quoted string, matching the export format.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(struct {
		alias
		Amount json.Number `json:"amount"`
	}{alias(t), json.Number(t.Amount.String())})
}

// UnmarshalJSON accepts amounts written either as numbers or strings and
// normalizes them the same way ParseAmount does.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if err := CheckAmountRange(a.Amount); err != nil {
		return fmt.Errorf("transaction %s: %w", a.ID, err)
	}
	a.Amount = canonical(a.Amount)
	*t = Transaction(a)
	return nil
}

// ─── Balance Folds ──────────────────────────────────────────────────────────

// SumByType folds a history into its udhar and vasuli sums.
func SumByType(txs []Transaction) (udhar, vasuli decimal.Decimal) {
	udhar, vasuli = decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.Type == TxUdhar {
			udhar = udhar.Add(tx.Amount)
		} else {
			vasuli = vasuli.Add(tx.Amount)
		}
	}
	return udhar, vasuli
}

// Balance returns Σ udhar − Σ vasuli over txs. Positive means the customer
// owes the ledger owner.
func Balance(txs []Transaction) decimal.Decimal {
	udhar, vasuli := SumByType(txs)
	return udhar.Sub(vasuli)
}

// Totals aggregates every customer's history.
type Totals struct {
	TotalDebt    decimal.Decimal `json:"totalDebt"`
	TotalPayment decimal.Decimal `json:"totalPayment"`
	NetBalance   decimal.Decimal `json:"netBalance"`
}

// ComputeTotals folds all transactions of all customers.
func ComputeTotals(customers []Customer) Totals {
	debt, payment := decimal.Zero, decimal.Zero
	for _, c := range customers {
		u, v := SumByType(c.Transactions)
		debt = debt.Add(u)
		payment = payment.Add(v)
	}
	return Totals{
		TotalDebt:    debt,
		TotalPayment: payment,
		NetBalance:   debt.Sub(payment),
	}
}

// ─── Standing ───────────────────────────────────────────────────────────────

// Standing classifies a signed balance from the ledger owner's side.
type Standing string

const (
	StandingOwes    Standing = "owes"    // customer owes the ledger owner
	StandingOwed    Standing = "owed"    // ledger owner owes the customer
	StandingSettled Standing = "settled" // balance is zero
)

// StandingOf classifies balance.
func StandingOf(balance decimal.Decimal) Standing {
	switch balance.Sign() {
	case 1:
		return StandingOwes
	case -1:
		return StandingOwed
	default:
		return StandingSettled
	}
}

// Label returns the phrase shown next to a balance.
func (s Standing) Label() string {
	switch s {
	case StandingOwes:
		return "you will pay"
	case StandingOwed:
		return "you will get"
	default:
		return "settled"
	}
}

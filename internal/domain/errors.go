package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency.

var (
	// Validation errors. A mutation that returns one of these has not
	// touched the stored collection.
	ErrInvalidAmount = errors.New("amount must be a non-negative number")
	ErrInvalidType   = errors.New("transaction type must be udhar or vasuli")

	// Lookup errors (read paths only; mutations treat a missing id as a no-op)
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Import errors
	ErrInvalidImport = errors.New("import file does not match the khata format")

	// Store errors
	ErrUnknownBackend = errors.New("unknown store backend")
)

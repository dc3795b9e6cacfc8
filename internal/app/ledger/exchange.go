package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/udhar-khata/khata/internal/domain"
)

// MaxImportSize bounds the size of an import file.
const MaxImportSize = 32 << 20

// ─── Export / Import ────────────────────────────────────────────────────────
// The export file is the stored collection verbatim (indented for humans).
// Import replaces the stored collection wholesale; the decoded collection
// becomes current under the same lock as the write.

// Export writes the current collection as JSON.
func (l *Ledger) Export(w io.Writer) error {
	l.mu.RLock()
	data, err := json.MarshalIndent(l.customers, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Import validates r as a complete collection and writes it to the store in
// place of the current one. A malformed file returns
// ErrInvalidImport and leaves both store and memory untouched.
func (l *Ledger) Import(ctx context.Context, r io.Reader) (n int, err error) {
	defer l.observe(OpImport, &err)

	raw, err := io.ReadAll(io.LimitReader(r, MaxImportSize+1))
	if err != nil {
		return 0, fmt.Errorf("read import: %w", err)
	}
	if len(raw) > MaxImportSize {
		return 0, fmt.Errorf("%w: file larger than %d bytes", domain.ErrInvalidImport, MaxImportSize)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return 0, fmt.Errorf("%w: expected a JSON array", domain.ErrInvalidImport)
	}

	customers, err := decodeCollection(raw)
	if err != nil {
		return 0, err
	}

	// The store gets commit's canonical encoding, not the file bytes, and the
	// swap happens under the same lock as the write.
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.commit(ctx, customers); err != nil {
		return 0, err
	}
	return len(customers), nil
}

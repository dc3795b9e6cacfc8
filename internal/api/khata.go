package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/udhar-khata/khata/internal/app/ledger"
	"github.com/udhar-khata/khata/internal/domain"
)

// ─── Khata API ──────────────────────────────────────────────────────────────
//
// GET    /api/customers?q=                       list, or search by name/phone
// POST   /api/customers                          add a customer
// GET    /api/customers/{id}                     detail with newest-first history
// DELETE /api/customers/{id}                     remove customer and history
// GET    /api/customers/{id}/remind              WhatsApp reminder link
// POST   /api/customers/{id}/transactions        record udhar or vasuli
// PATCH  /api/customers/{id}/transactions/{txID} change amount/description
// DELETE /api/customers/{id}/transactions/{txID} remove one entry
// GET    /api/totals                             aggregate totals
// GET    /api/export, POST /api/import           backup file

// ExportFilename is suggested to browsers downloading /api/export.
const ExportFilename = "udhar-khata-backup.json"

// ─── Request / Response Types ───────────────────────────────────────────────

type addCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"max=32"`
}

type addTransactionRequest struct {
	Type        string      `json:"type" validate:"required"`
	Amount      amountField `json:"amount" validate:"required"`
	Description string      `json:"description" validate:"max=500"`
}

type editTransactionRequest struct {
	Amount      *amountField `json:"amount"`
	Description *string      `json:"description" validate:"omitempty,max=500"`
}

// amountField accepts an amount written as either a JSON number or a string;
// the ledger parses and validates it.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountField(n)
	return nil
}

type customerSummary struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Phone            string          `json:"phone"`
	Initials         string          `json:"initials"`
	CreatedAt        time.Time       `json:"createdAt"`
	Balance          json.Number     `json:"balance"`
	Standing         domain.Standing `json:"standing"`
	Label            string          `json:"label"`
	TransactionCount int             `json:"transactionCount"`
}

type customerDetail struct {
	customerSummary
	Transactions []domain.Transaction `json:"transactions"`
}

type totalsResponse struct {
	Customers    int             `json:"customers"`
	TotalDebt    json.Number     `json:"totalDebt"`
	TotalPayment json.Number     `json:"totalPayment"`
	NetBalance   json.Number     `json:"netBalance"`
	Standing     domain.Standing `json:"standing"`
}

func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

func summarize(c domain.Customer) customerSummary {
	bal := c.Balance()
	st := domain.StandingOf(bal)
	return customerSummary{
		ID:               c.ID,
		Name:             c.Name,
		Phone:            c.Phone,
		Initials:         c.Initials(),
		CreatedAt:        c.CreatedAt,
		Balance:          number(bal),
		Standing:         st,
		Label:            st.Label(),
		TransactionCount: len(c.Transactions),
	}
}

func detail(c domain.Customer) customerDetail {
	return customerDetail{customerSummary: summarize(c), Transactions: c.History()}
}

// ─── Customer Handlers ──────────────────────────────────────────────────────

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	var customers []domain.Customer
	if q := r.URL.Query().Get("q"); q != "" {
		customers = s.ledger.Search(q)
	} else {
		customers = s.ledger.Customers()
	}

	out := make([]customerSummary, 0, len(customers))
	for _, c := range customers {
		out = append(out, summarize(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customers": out,
	})
}

func (s *Server) handleAddCustomer(w http.ResponseWriter, r *http.Request) {
	var req addCustomerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	c, err := s.ledger.AddCustomer(r.Context(), req.Name, req.Phone)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail(c))
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := s.ledger.Customer(chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail(c))
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ledger.Customer(id); err != nil {
		writeLedgerError(w, err)
		return
	}
	if err := s.ledger.DeleteCustomer(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemind(w http.ResponseWriter, r *http.Request) {
	c, err := s.ledger.Customer(chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	bal := c.Balance()
	writeJSON(w, http.StatusOK, map[string]string{
		"link":    s.reminder.Link(c.Phone, c.Name, bal),
		"message": s.reminder.Message(c.Name, bal),
	})
}

// ─── Transaction Handlers ───────────────────────────────────────────────────

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	typ, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	tx, ok, err := s.ledger.AddTransaction(r.Context(), chi.URLParam(r, "id"), typ, string(req.Amount), req.Description)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !ok {
		writeLedgerError(w, domain.ErrCustomerNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	custID, txID := chi.URLParam(r, "id"), chi.URLParam(r, "txID")

	var req editTransactionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Amount == nil && req.Description == nil {
		writeErrorType(w, http.StatusBadRequest, "nothing to change: send amount and/or description", "invalid_request")
		return
	}
	if _, err := s.findTransaction(custID, txID); err != nil {
		writeLedgerError(w, err)
		return
	}

	edit := ledger.TransactionEdit{Description: req.Description}
	if req.Amount != nil {
		amount := string(*req.Amount)
		edit.Amount = &amount
	}
	if err := s.ledger.EditTransaction(r.Context(), custID, txID, edit); err != nil {
		writeLedgerError(w, err)
		return
	}

	tx, err := s.findTransaction(custID, txID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	custID, txID := chi.URLParam(r, "id"), chi.URLParam(r, "txID")
	if _, err := s.findTransaction(custID, txID); err != nil {
		writeLedgerError(w, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), custID, txID); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) findTransaction(custID, txID string) (domain.Transaction, error) {
	c, err := s.ledger.Customer(custID)
	if err != nil {
		return domain.Transaction{}, err
	}
	i := c.TransactionIndex(txID)
	if i < 0 {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	return c.Transactions[i], nil
}

// ─── Totals / Export / Import ───────────────────────────────────────────────

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	t := s.ledger.Totals()
	writeJSON(w, http.StatusOK, totalsResponse{
		Customers:    len(s.ledger.Customers()),
		TotalDebt:    number(t.TotalDebt),
		TotalPayment: number(t.TotalPayment),
		NetBalance:   number(t.NetBalance),
		Standing:     domain.StandingOf(t.NetBalance),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	if err := s.ledger.Export(w); err != nil {
		log.Printf("[api] export failed: %v", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.Import(r.Context(), r.Body)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"imported": n,
	})
}

// writeLedgerError maps ledger errors to HTTP statuses.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidType):
		writeErrorType(w, http.StatusBadRequest, err.Error(), "invalid_request")
	case errors.Is(err, domain.ErrInvalidImport):
		writeErrorType(w, http.StatusBadRequest, err.Error(), "invalid_import")
	case errors.Is(err, domain.ErrCustomerNotFound), errors.Is(err, domain.ErrTransactionNotFound):
		writeErrorType(w, http.StatusNotFound, err.Error(), "not_found")
	default:
		log.Printf("[api] %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

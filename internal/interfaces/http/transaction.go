package http

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/domain/transaction"
)

type TransactionService interface {
	List(ctx context.Context, userID int64, f transaction.Filter) ([]*transaction.Transaction, error)
	Get(ctx context.Context, id string, userID int64) (*transaction.Transaction, error)
	Create(ctx context.Context, userID int64, p transaction.Params) (*transaction.Transaction, error)
	Update(ctx context.Context, id string, userID int64, p transaction.Params) (*transaction.Transaction, error)
	Delete(ctx context.Context, id string, userID int64) error
}

type TransactionHandler struct {
	ledger TransactionService
}

func NewTransactionHandler(ledger TransactionService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// TransactionRequest is the body of create and update. Amount accepts a JSON
// string or number; date is YYYY-MM-DD.
type TransactionRequest struct {
	AccountID   string          `json:"accountId"`
	CategoryID  *string         `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
}

func (req TransactionRequest) params() (transaction.Params, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return transaction.Params{}, err
	}
	p := transaction.Params{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Date:        date,
		Description: req.Description,
	}
	if req.Type != "" {
		t, err := transaction.ParseType(req.Type)
		if err != nil {
			return transaction.Params{}, err
		}
		p.Type = t
	}
	return p, nil
}

// HandleTransactions lists with optional ?type=&from=&to=&accountId=&categoryId=
// filters, newest first, and creates transactions.
func (h *TransactionHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		f, err := filterFromQuery(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := h.ledger.List(r.Context(), userID, f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []*transaction.Transaction{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		p, err := decodeTransaction(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		tx, err := h.ledger.Create(r.Context(), userID, p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, tx)

	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleTransactionByID serves GET, PUT and DELETE. Deleting a transaction
// that does not exist succeeds.
func (h *TransactionHandler) HandleTransactionByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		tx, err := h.ledger.Get(r.Context(), id, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx)

	case http.MethodPut:
		p, err := decodeTransaction(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		tx, err := h.ledger.Update(r.Context(), id, userID, p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx)

	case http.MethodDelete:
		if err := h.ledger.Delete(r.Context(), id, userID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func decodeTransaction(r *http.Request) (transaction.Params, error) {
	var req TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return transaction.Params{}, err
	}
	return req.params()
}

func filterFromQuery(r *http.Request) (transaction.Filter, error) {
	q := r.URL.Query()
	var f transaction.Filter

	if t := q.Get("type"); t != "" {
		parsed, err := transaction.ParseType(t)
		if err != nil {
			return f, err
		}
		f.Type = parsed
	}

	var err error
	if f.From, err = parseDate("from", q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseDate("to", q.Get("to")); err != nil {
		return f, err
	}
	f.AccountID = q.Get("accountId")
	f.CategoryID = q.Get("categoryId")
	return f, nil
}

package http

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/domain/account"
)

type AccountService interface {
	ListAccountsByUserID(ctx context.Context, userID int64) ([]*account.Account, error)
	GetAccount(ctx context.Context, accountID string, userID int64) (*account.Account, error)
	CreateAccount(ctx context.Context, userID int64, fields account.Fields) (*account.Account, error)
	UpdateAccount(ctx context.Context, accountID string, userID int64, fields account.Fields) (*account.Account, error)
	DeleteAccount(ctx context.Context, accountID string, userID int64) error
}

type AccountHandler struct {
	accounts AccountService
}

func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// AccountRequest is the body of create and update. Update overwrites every
// field, balance included.
type AccountRequest struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

func (req AccountRequest) fields() account.Fields {
	return account.Fields{
		Name:     req.Name,
		Type:     req.Type,
		Balance:  req.Balance,
		Currency: req.Currency,
	}
}

// HandleAccounts serves GET (list) and POST (create) on the collection.
func (h *AccountHandler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		accounts, err := h.accounts.ListAccountsByUserID(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if accounts == nil {
			accounts = []*account.Account{}
		}
		writeJSON(w, http.StatusOK, accounts)

	case http.MethodPost:
		var req AccountRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		acc, err := h.accounts.CreateAccount(r.Context(), userID, req.fields())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, acc)

	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleAccountByID serves GET, PUT and DELETE on a single account.
func (h *AccountHandler) HandleAccountByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	accountID := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		acc, err := h.accounts.GetAccount(r.Context(), accountID, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, acc)

	case http.MethodPut:
		var req AccountRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		acc, err := h.accounts.UpdateAccount(r.Context(), accountID, userID, req.fields())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, acc)

	case http.MethodDelete:
		if err := h.accounts.DeleteAccount(r.Context(), accountID, userID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

package http

import (
	"context"
	"net/http"

	"fintrack/internal/domain/category"
)

type CategoryService interface {
	ListByUser(ctx context.Context, userID int64) ([]*category.Category, error)
	ListByUserAndType(ctx context.Context, userID int64, rawType string) ([]*category.Category, error)
	Get(ctx context.Context, categoryID string, userID int64) (*category.Category, error)
	Create(ctx context.Context, userID int64, params category.CreateParams) (*category.Category, error)
	Update(ctx context.Context, categoryID string, userID int64, params category.UpdateParams) (*category.Category, error)
	Delete(ctx context.Context, categoryID string, userID int64) error
}

type CategoryHandler struct {
	categories CategoryService
}

func NewCategoryHandler(categories CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type CategoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// HandleCategories lists (optionally ?type=INCOME|EXPENSE) and creates categories.
func (h *CategoryHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		var (
			list []*category.Category
			err  error
		)
		if t := r.URL.Query().Get("type"); t != "" {
			list, err = h.categories.ListByUserAndType(r.Context(), userID, t)
		} else {
			list, err = h.categories.ListByUser(r.Context(), userID)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []*category.Category{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var req CategoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		c, err := h.categories.Create(r.Context(), userID, category.CreateParams{
			Name:  req.Name,
			Type:  category.Type(req.Type),
			Icon:  req.Icon,
			Color: req.Color,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)

	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleCategoryByID serves GET, PUT and DELETE. The type is fixed at creation.
func (h *CategoryHandler) HandleCategoryByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		c, err := h.categories.Get(r.Context(), id, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)

	case http.MethodPut:
		var req CategoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		c, err := h.categories.Update(r.Context(), id, userID, category.UpdateParams{
			Name:  req.Name,
			Icon:  req.Icon,
			Color: req.Color,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)

	case http.MethodDelete:
		if err := h.categories.Delete(r.Context(), id, userID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

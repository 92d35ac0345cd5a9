package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cloud.google.com/go/civil"

	"fintrack/internal/domain/recurring"
	"fintrack/internal/shared/apperr"
	applog "fintrack/internal/shared/log"
)

type RecurringService interface {
	ListByUser(ctx context.Context, userID int64) ([]*recurring.Template, error)
	ListDueByUser(ctx context.Context, userID int64, asOf civil.Date) ([]*recurring.Template, error)
	Get(ctx context.Context, id string, userID int64) (*recurring.Template, error)
	Create(ctx context.Context, userID int64, params recurring.CreateParams) (*recurring.Template, error)
	Delete(ctx context.Context, id string, userID int64) error
}

// MaterializationRequester starts materialization of a user's due templates.
// The AMQP client queues the request; the Materializer runs it inline.
type MaterializationRequester interface {
	RequestMaterialization(ctx context.Context, userID int64, asOf civil.Date) error
}

type RecurringHandler struct {
	templates RecurringService
	requester MaterializationRequester
	today     func() civil.Date
}

func NewRecurringHandler(templates RecurringService, requester MaterializationRequester) *RecurringHandler {
	return &RecurringHandler{
		templates: templates,
		requester: requester,
		today:     func() civil.Date { return civil.DateOf(time.Now()) },
	}
}

// RecurringRequest creates a template. TransactionTemplate may be a JSON
// object or a string holding one; it is stored verbatim.
type RecurringRequest struct {
	TransactionTemplate json.RawMessage `json:"transactionTemplate"`
	Frequency           string          `json:"frequency"`
	NextDate            string          `json:"nextDate"`
	EndDate             *string         `json:"endDate"`
}

func (req RecurringRequest) params() (recurring.CreateParams, error) {
	raw, err := templateText(req.TransactionTemplate)
	if err != nil {
		return recurring.CreateParams{}, err
	}
	next, err := parseDate("nextDate", req.NextDate)
	if err != nil {
		return recurring.CreateParams{}, err
	}
	end, err := parseOptionalDate("endDate", req.EndDate)
	if err != nil {
		return recurring.CreateParams{}, err
	}
	return recurring.CreateParams{
		TransactionTemplate: raw,
		Frequency:           recurring.Frequency(req.Frequency),
		NextDate:            next,
		EndDate:             end,
	}, nil
}

func templateText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", apperr.Validation("transactionTemplate is invalid")
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", apperr.Validation("transactionTemplate is invalid")
	}
	return buf.String(), nil
}

// HandleRecurring lists templates (only those due by ?dueBy= when given) and
// creates new ones.
func (h *RecurringHandler) HandleRecurring(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		dueBy, err := parseDate("dueBy", r.URL.Query().Get("dueBy"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		var list []*recurring.Template
		if dueBy.IsZero() {
			list, err = h.templates.ListByUser(r.Context(), userID)
		} else {
			list, err = h.templates.ListDueByUser(r.Context(), userID, dueBy)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []*recurring.Template{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var req RecurringRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		params, err := req.params()
		if err != nil {
			writeError(w, r, err)
			return
		}
		t, err := h.templates.Create(r.Context(), userID, params)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)

	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleRecurringByID serves GET and DELETE on a template.
func (h *RecurringHandler) HandleRecurringByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		t, err := h.templates.Get(r.Context(), id, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)

	case http.MethodDelete:
		if err := h.templates.Delete(r.Context(), id, userID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

type materializeResponse struct {
	UserID int64      `json:"userId"`
	AsOf   civil.Date `json:"asOf"`
	Status string     `json:"status"`
}

// HandleMaterialize requests materialization of the caller's due templates as
// of today, or ?asOf=. Accepted requests answer 202.
func (h *RecurringHandler) HandleMaterialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	asOf, err := parseDate("asOf", r.URL.Query().Get("asOf"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if asOf.IsZero() {
		asOf = h.today()
	}

	if err := h.requester.RequestMaterialization(r.Context(), userID, asOf); err != nil {
		writeError(w, r, err)
		return
	}

	logger := applog.FromContext(r.Context())
	logger.Info().Str(applog.FieldAsOf, asOf.String()).Msg("materialization requested")

	writeJSON(w, http.StatusAccepted, materializeResponse{UserID: userID, AsOf: asOf, Status: "accepted"})
}

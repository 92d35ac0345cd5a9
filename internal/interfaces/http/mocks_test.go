package http

import (
	"context"
	"net/http"

	"cloud.google.com/go/civil"

	"fintrack/internal/domain/account"
	"fintrack/internal/domain/category"
	"fintrack/internal/domain/recurring"
	"fintrack/internal/domain/transaction"
	"fintrack/internal/domain/user"
	"fintrack/internal/shared/middleware"
)

// withUser returns r authenticated as userID, as middleware.Auth would.
func withUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, userID))
}

type mockUserService struct {
	RegisterFunc     func(ctx context.Context, params user.RegisterParams) (*user.User, error)
	AuthenticateFunc func(ctx context.Context, username, password string) (*user.User, error)
	GetByIDFunc      func(ctx context.Context, id int64) (*user.User, error)
}

func (m *mockUserService) Register(ctx context.Context, params user.RegisterParams) (*user.User, error) {
	return m.RegisterFunc(ctx, params)
}

func (m *mockUserService) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	return m.AuthenticateFunc(ctx, username, password)
}

func (m *mockUserService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return m.GetByIDFunc(ctx, id)
}

type mockAccountService struct {
	ListFunc   func(ctx context.Context, userID int64) ([]*account.Account, error)
	GetFunc    func(ctx context.Context, accountID string, userID int64) (*account.Account, error)
	CreateFunc func(ctx context.Context, userID int64, fields account.Fields) (*account.Account, error)
	UpdateFunc func(ctx context.Context, accountID string, userID int64, fields account.Fields) (*account.Account, error)
	DeleteFunc func(ctx context.Context, accountID string, userID int64) error
}

func (m *mockAccountService) ListAccountsByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	return m.ListFunc(ctx, userID)
}

func (m *mockAccountService) GetAccount(ctx context.Context, accountID string, userID int64) (*account.Account, error) {
	return m.GetFunc(ctx, accountID, userID)
}

func (m *mockAccountService) CreateAccount(ctx context.Context, userID int64, fields account.Fields) (*account.Account, error) {
	return m.CreateFunc(ctx, userID, fields)
}

func (m *mockAccountService) UpdateAccount(ctx context.Context, accountID string, userID int64, fields account.Fields) (*account.Account, error) {
	return m.UpdateFunc(ctx, accountID, userID, fields)
}

func (m *mockAccountService) DeleteAccount(ctx context.Context, accountID string, userID int64) error {
	return m.DeleteFunc(ctx, accountID, userID)
}

type mockCategoryService struct {
	ListFunc       func(ctx context.Context, userID int64) ([]*category.Category, error)
	ListByTypeFunc func(ctx context.Context, userID int64, rawType string) ([]*category.Category, error)
	GetFunc        func(ctx context.Context, id string, userID int64) (*category.Category, error)
	CreateFunc     func(ctx context.Context, userID int64, params category.CreateParams) (*category.Category, error)
	UpdateFunc     func(ctx context.Context, id string, userID int64, params category.UpdateParams) (*category.Category, error)
	DeleteFunc     func(ctx context.Context, id string, userID int64) error
}

func (m *mockCategoryService) ListByUser(ctx context.Context, userID int64) ([]*category.Category, error) {
	return m.ListFunc(ctx, userID)
}

func (m *mockCategoryService) ListByUserAndType(ctx context.Context, userID int64, rawType string) ([]*category.Category, error) {
	return m.ListByTypeFunc(ctx, userID, rawType)
}

func (m *mockCategoryService) Get(ctx context.Context, id string, userID int64) (*category.Category, error) {
	return m.GetFunc(ctx, id, userID)
}

func (m *mockCategoryService) Create(ctx context.Context, userID int64, params category.CreateParams) (*category.Category, error) {
	return m.CreateFunc(ctx, userID, params)
}

func (m *mockCategoryService) Update(ctx context.Context, id string, userID int64, params category.UpdateParams) (*category.Category, error) {
	return m.UpdateFunc(ctx, id, userID, params)
}

func (m *mockCategoryService) Delete(ctx context.Context, id string, userID int64) error {
	return m.DeleteFunc(ctx, id, userID)
}

type mockLedger struct {
	ListFunc   func(ctx context.Context, userID int64, f transaction.Filter) ([]*transaction.Transaction, error)
	GetFunc    func(ctx context.Context, id string, userID int64) (*transaction.Transaction, error)
	CreateFunc func(ctx context.Context, userID int64, p transaction.Params) (*transaction.Transaction, error)
	UpdateFunc func(ctx context.Context, id string, userID int64, p transaction.Params) (*transaction.Transaction, error)
	DeleteFunc func(ctx context.Context, id string, userID int64) error
}

func (m *mockLedger) List(ctx context.Context, userID int64, f transaction.Filter) ([]*transaction.Transaction, error) {
	return m.ListFunc(ctx, userID, f)
}

func (m *mockLedger) Get(ctx context.Context, id string, userID int64) (*transaction.Transaction, error) {
	return m.GetFunc(ctx, id, userID)
}

func (m *mockLedger) Create(ctx context.Context, userID int64, p transaction.Params) (*transaction.Transaction, error) {
	return m.CreateFunc(ctx, userID, p)
}

func (m *mockLedger) Update(ctx context.Context, id string, userID int64, p transaction.Params) (*transaction.Transaction, error) {
	return m.UpdateFunc(ctx, id, userID, p)
}

func (m *mockLedger) Delete(ctx context.Context, id string, userID int64) error {
	return m.DeleteFunc(ctx, id, userID)
}

type mockRecurringService struct {
	ListFunc    func(ctx context.Context, userID int64) ([]*recurring.Template, error)
	ListDueFunc func(ctx context.Context, userID int64, asOf civil.Date) ([]*recurring.Template, error)
	GetFunc     func(ctx context.Context, id string, userID int64) (*recurring.Template, error)
	CreateFunc  func(ctx context.Context, userID int64, params recurring.CreateParams) (*recurring.Template, error)
	DeleteFunc  func(ctx context.Context, id string, userID int64) error
}

func (m *mockRecurringService) ListByUser(ctx context.Context, userID int64) ([]*recurring.Template, error) {
	return m.ListFunc(ctx, userID)
}

func (m *mockRecurringService) ListDueByUser(ctx context.Context, userID int64, asOf civil.Date) ([]*recurring.Template, error) {
	return m.ListDueFunc(ctx, userID, asOf)
}

func (m *mockRecurringService) Get(ctx context.Context, id string, userID int64) (*recurring.Template, error) {
	return m.GetFunc(ctx, id, userID)
}

func (m *mockRecurringService) Create(ctx context.Context, userID int64, params recurring.CreateParams) (*recurring.Template, error) {
	return m.CreateFunc(ctx, userID, params)
}

func (m *mockRecurringService) Delete(ctx context.Context, id string, userID int64) error {
	return m.DeleteFunc(ctx, id, userID)
}

type requesterFunc func(ctx context.Context, userID int64, asOf civil.Date) error

func (f requesterFunc) RequestMaterialization(ctx context.Context, userID int64, asOf civil.Date) error {
	return f(ctx, userID, asOf)
}

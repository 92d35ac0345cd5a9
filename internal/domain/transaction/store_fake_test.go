package transaction

import (
	"context"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/domain/account"
	"fintrack/internal/domain/category"
	"fintrack/internal/domain/user"
)

// memStore is an in-memory Store. Writes made inside WithinTx land on a copy
// that only replaces the committed state when fn returns nil.
type memStore struct {
	mu         sync.Mutex
	accounts   map[string]account.Account
	categories map[string]category.Category
	txs        map[string]Transaction
	nextDates  map[string]civil.Date

	insertErr error
	lockLog   []string
}

func newMemStore() *memStore {
	return &memStore{
		accounts:   map[string]account.Account{},
		categories: map[string]category.Category{},
		txs:        map[string]Transaction{},
		nextDates:  map[string]civil.Date{},
	}
}

func (m *memStore) addAccount(id string, userID int64, balance string) {
	m.accounts[id] = account.Account{ID: id, UserID: userID, Name: id, Type: "CHECKING", Currency: "USD", Balance: decimal.RequireFromString(balance)}
}

func (m *memStore) addCategory(id string, userID int64) {
	m.categories[id] = category.Category{ID: id, UserID: userID, Name: id, Type: category.TypeExpense}
}

func (m *memStore) addTemplate(id string, next civil.Date) {
	m.nextDates[id] = next
}

func (m *memStore) nextDate(id string) civil.Date {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextDates[id]
}

func (m *memStore) balance(id string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

func (m *memStore) ListByUserID(ctx context.Context, userID int64, f Filter) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Transaction
	for _, t := range m.txs {
		if t.UserID != userID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if !f.From.IsZero() && t.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && t.Date.After(f.To) {
			continue
		}
		if f.AccountID != "" && t.AccountID != f.AccountID {
			continue
		}
		if f.CategoryID != "" && (t.CategoryID == nil || *t.CategoryID != f.CategoryID) {
			continue
		}
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &t, nil
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		store:    m,
		accounts: make(map[string]account.Account, len(m.accounts)),
		txs:      make(map[string]Transaction, len(m.txs)),
		next:     make(map[string]civil.Date, len(m.nextDates)),
	}
	for k, v := range m.accounts {
		tx.accounts[k] = v
	}
	for k, v := range m.txs {
		tx.txs[k] = v
	}
	for k, v := range m.nextDates {
		tx.next[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}
	m.accounts = tx.accounts
	m.txs = tx.txs
	m.nextDates = tx.next
	return nil
}

type memTx struct {
	store    *memStore
	accounts map[string]account.Account
	txs      map[string]Transaction
	next     map[string]civil.Date
}

func (t *memTx) LockAccount(ctx context.Context, id string) (*account.Account, error) {
	t.store.lockLog = append(t.store.lockLog, id)
	a, ok := t.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return &a, nil
}

func (t *memTx) SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	a, ok := t.accounts[id]
	if !ok {
		return account.ErrAccountNotFound
	}
	a.Balance = balance
	t.accounts[id] = a
	return nil
}

func (t *memTx) GetCategory(ctx context.Context, id string) (*category.Category, error) {
	c, ok := t.store.categories[id]
	if !ok {
		return nil, category.ErrCategoryNotFound
	}
	return &c, nil
}

func (t *memTx) GetForUpdate(ctx context.Context, id string) (*Transaction, error) {
	tr, ok := t.txs[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &tr, nil
}

func (t *memTx) Insert(ctx context.Context, tr *Transaction) error {
	if t.store.insertErr != nil {
		return t.store.insertErr
	}
	t.txs[tr.ID] = *tr
	return nil
}

func (t *memTx) Update(ctx context.Context, tr *Transaction) error {
	if _, ok := t.txs[tr.ID]; !ok {
		return ErrTransactionNotFound
	}
	t.txs[tr.ID] = *tr
	return nil
}

func (t *memTx) Delete(ctx context.Context, id string) error {
	delete(t.txs, id)
	return nil
}

func (t *memTx) ClaimOccurrence(ctx context.Context, o Occurrence) error {
	cur, ok := t.next[o.TemplateID]
	if !ok || cur != o.Date {
		return ErrOccurrenceClaimed
	}
	t.next[o.TemplateID] = o.Next
	return nil
}

type stubUsers map[int64]bool

func (s stubUsers) GetByID(ctx context.Context, id int64) (*user.User, error) {
	if !s[id] {
		return nil, user.ErrUserNotFound
	}
	return &user.User{ID: id}, nil
}

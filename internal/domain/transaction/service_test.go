package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/domain/account"
	"fintrack/internal/domain/category"
	"fintrack/internal/shared/apperr"
	applog "fintrack/internal/shared/log"
)

const (
	alice int64 = 1
	bob   int64 = 2
)

var may1 = civil.Date{Year: 2024, Month: 5, Day: 1}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	store.addAccount("acc-a", alice, "100")
	store.addAccount("acc-b", alice, "50")
	store.addAccount("acc-bob", bob, "1000")
	store.addCategory("cat-a", alice)
	store.addCategory("cat-bob", bob)

	svc := NewService(store, stubUsers{alice: true, bob: true}, applog.Nop())
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, store
}

func expense(accountID, amount string) Params {
	return Params{AccountID: accountID, Amount: dec(amount), Date: may1, Description: "test", Type: TypeExpense}
}

func income(accountID, amount string) Params {
	return Params{AccountID: accountID, Amount: dec(amount), Date: may1, Description: "test", Type: TypeIncome}
}

func TestCreate_AppliesEffect(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{name: "income adds", params: income("acc-a", "25.50"), want: "125.50"},
		{name: "expense subtracts", params: expense("acc-a", "0.01"), want: "99.99"},
		{name: "expense can go negative", params: expense("acc-a", "150"), want: "-50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)

			tr, err := svc.Create(context.Background(), alice, tt.params)
			require.NoError(t, err)
			assert.NotEmpty(t, tr.ID)
			assert.Equal(t, alice, tr.UserID)
			assert.True(t, store.balance("acc-a").Equal(dec(tt.want)), "balance = %s, want %s", store.balance("acc-a"), tt.want)
		})
	}
}

func TestLedger_CreateUpdateDeleteExample(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tr, err := svc.Create(ctx, alice, expense("acc-a", "30"))
	require.NoError(t, err)
	assert.True(t, store.balance("acc-a").Equal(dec("70")), "after create: %s", store.balance("acc-a"))

	_, err = svc.Update(ctx, tr.ID, alice, expense("acc-a", "10"))
	require.NoError(t, err)
	assert.True(t, store.balance("acc-a").Equal(dec("90")), "after update: %s", store.balance("acc-a"))

	require.NoError(t, svc.Delete(ctx, tr.ID, alice))
	assert.True(t, store.balance("acc-a").Equal(dec("100")), "after delete: %s", store.balance("acc-a"))
	assert.Equal(t, 0, store.count())
}

func TestUpdate_AmountDelta(t *testing.T) {
	tests := []struct {
		name      string
		typ       Type
		from, to  string
		wantDelta string
	}{
		{name: "income grows", typ: TypeIncome, from: "10", to: "25", wantDelta: "15"},
		{name: "income shrinks", typ: TypeIncome, from: "25", to: "10", wantDelta: "-15"},
		{name: "expense grows", typ: TypeExpense, from: "10", to: "25", wantDelta: "-15"},
		{name: "expense shrinks", typ: TypeExpense, from: "25", to: "10", wantDelta: "15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			ctx := context.Background()

			p := Params{AccountID: "acc-a", Amount: dec(tt.from), Date: may1, Type: tt.typ}
			tr, err := svc.Create(ctx, alice, p)
			require.NoError(t, err)
			before := store.balance("acc-a")

			p.Amount = dec(tt.to)
			_, err = svc.Update(ctx, tr.ID, alice, p)
			require.NoError(t, err)

			delta := store.balance("acc-a").Sub(before)
			assert.True(t, delta.Equal(dec(tt.wantDelta)), "delta = %s, want %s", delta, tt.wantDelta)
		})
	}
}

func TestUpdate_TypeFlip(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tr, err := svc.Create(ctx, alice, expense("acc-a", "20"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, tr.ID, alice, income("acc-a", "20"))
	require.NoError(t, err)
	assert.True(t, store.balance("acc-a").Equal(dec("120")), "balance = %s", store.balance("acc-a"))
}

func TestUpdate_MovesBetweenAccounts(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tr, err := svc.Create(ctx, alice, expense("acc-a", "30"))
	require.NoError(t, err)
	require.True(t, store.balance("acc-a").Equal(dec("70")))

	updated, err := svc.Update(ctx, tr.ID, alice, expense("acc-b", "40"))
	require.NoError(t, err)

	assert.Equal(t, "acc-b", updated.AccountID)
	assert.True(t, store.balance("acc-a").Equal(dec("100")), "old account = %s, want 100", store.balance("acc-a"))
	assert.True(t, store.balance("acc-b").Equal(dec("10")), "new account = %s, want 10", store.balance("acc-b"))
}

func TestUpdate_LocksAccountsInAscendingOrder(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tr, err := svc.Create(ctx, alice, expense("acc-b", "5"))
	require.NoError(t, err)

	store.lockLog = nil
	_, err = svc.Update(ctx, tr.ID, alice, expense("acc-a", "5"))
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-a", "acc-b"}, store.lockLog)
}

func TestUpdate_CategoryLink(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	cat := "cat-a"
	p := expense("acc-a", "5")
	p.CategoryID = &cat
	tr, err := svc.Create(ctx, alice, p)
	require.NoError(t, err)

	// a nil category keeps the existing link
	updated, err := svc.Update(ctx, tr.ID, alice, expense("acc-a", "6"))
	require.NoError(t, err)
	require.NotNil(t, updated.CategoryID)
	assert.Equal(t, "cat-a", *updated.CategoryID)

	foreign := "cat-bob"
	p.CategoryID = &foreign
	_, err = svc.Update(ctx, tr.ID, alice, p)
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "err = %v", err)
	assert.True(t, store.balance("acc-a").Equal(dec("94")), "balance = %s", store.balance("acc-a"))
}

func TestUpdate_Rejections(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tr, err := svc.Create(ctx, alice, expense("acc-a", "30"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		userID  int64
		params  Params
		wantErr error
	}{
		{name: "missing transaction", id: "nope", userID: alice, params: expense("acc-a", "1"), wantErr: ErrTransactionNotFound},
		{name: "foreign transaction", id: tr.ID, userID: bob, params: expense("acc-bob", "1"), wantErr: ErrForbidden},
		{name: "foreign target account", id: tr.ID, userID: alice, params: expense("acc-bob", "1"), wantErr: account.ErrForbidden},
		{name: "missing target account", id: tr.ID, userID: alice, params: expense("acc-zzz", "1"), wantErr: account.ErrAccountNotFound},
		{name: "invalid amount", id: tr.ID, userID: alice, params: expense("acc-a", "0"), wantErr: apperr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.id, tt.userID, tt.params)
			assert.True(t, errors.Is(err, tt.wantErr), "err = %v, want %v", err, tt.wantErr)

			assert.True(t, store.balance("acc-a").Equal(dec("70")))
			assert.True(t, store.balance("acc-bob").Equal(dec("1000")))
		})
	}
}

func TestCreate_Rejections(t *testing.T) {
	catBob := "cat-bob"
	catMissing := "cat-missing"

	tests := []struct {
		name     string
		userID   int64
		params   Params
		category *string
		wantErr  error
	}{
		{name: "unknown user", userID: 99, params: expense("acc-a", "1"), wantErr: apperr.ErrNotFound},
		{name: "missing account", userID: alice, params: expense("acc-zzz", "1"), wantErr: account.ErrAccountNotFound},
		{name: "foreign account", userID: alice, params: expense("acc-bob", "1"), wantErr: account.ErrForbidden},
		{name: "foreign category", userID: alice, params: expense("acc-a", "1"), category: &catBob, wantErr: category.ErrForbidden},
		{name: "missing category", userID: alice, params: expense("acc-a", "1"), category: &catMissing, wantErr: category.ErrCategoryNotFound},
		{name: "zero amount", userID: alice, params: expense("acc-a", "0"), wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			tt.params.CategoryID = tt.category

			_, err := svc.Create(context.Background(), tt.userID, tt.params)
			assert.True(t, errors.Is(err, tt.wantErr), "err = %v, want %v", err, tt.wantErr)

			assert.True(t, store.balance("acc-a").Equal(dec("100")))
			assert.True(t, store.balance("acc-bob").Equal(dec("1000")))
			assert.Equal(t, 0, store.count())
		})
	}
}

func TestCreate_InsertFailureRollsBack(t *testing.T) {
	svc, store := newTestService(t)
	store.insertErr = errors.New("disk full")

	_, err := svc.Create(context.Background(), alice, income("acc-a", "10"))
	require.Error(t, err)
	assert.True(t, store.balance("acc-a").Equal(dec("100")), "balance = %s, want untouched 100", store.balance("acc-a"))
	assert.Equal(t, 0, store.count())
}

// Only ownership is checked for a category, not its type.
func TestCreate_CategoryTypeNotMatched(t *testing.T) {
	svc, store := newTestService(t)
	cat := "cat-a" // EXPENSE

	p := income("acc-a", "5")
	p.CategoryID = &cat
	tr, err := svc.Create(context.Background(), alice, p)
	require.NoError(t, err)
	require.NotNil(t, tr.CategoryID)
	assert.Equal(t, cat, *tr.CategoryID)
	assert.True(t, store.balance("acc-a").Equal(dec("105")))
}

func TestCreate_BalanceOutOfRange(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.Create(context.Background(), alice, income("acc-a", "999999999999999"))
	assert.True(t, errors.Is(err, ErrBalanceOutOfRange), "err = %v", err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.True(t, store.balance("acc-a").Equal(dec("100")))
	assert.Equal(t, 0, store.count())
}

func TestCreate_ClaimsOccurrence(t *testing.T) {
	svc, store := newTestService(t)
	store.addTemplate("tpl", may1)
	jun1 := civil.Date{Year: 2024, Month: 6, Day: 1}

	p := expense("acc-a", "10")
	p.Occurrence = &Occurrence{TemplateID: "tpl", Date: may1, Next: jun1}

	_, err := svc.Create(context.Background(), alice, p)
	require.NoError(t, err)
	assert.Equal(t, jun1, store.nextDate("tpl"))

	_, err = svc.Create(context.Background(), alice, p)
	assert.True(t, errors.Is(err, ErrOccurrenceClaimed), "err = %v", err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, 1, store.count())
	assert.True(t, store.balance("acc-a").Equal(dec("90")), "balance = %s", store.balance("acc-a"))
}

func TestCreate_ConcurrentOccurrenceClaims(t *testing.T) {
	svc, store := newTestService(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	store.addTemplate("tpl", may1)
	occ := &Occurrence{TemplateID: "tpl", Date: may1, Next: may1.AddDays(1)}

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed int
	)
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := expense("acc-a", "10")
			p.Occurrence = occ
			<-start
			_, err := svc.Create(context.Background(), alice, p)
			if err == nil {
				mu.Lock()
				claimed++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, ErrOccurrenceClaimed), "err = %v", err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, claimed)
	assert.Equal(t, 1, store.count())
	assert.True(t, store.balance("acc-a").Equal(dec("90")), "balance = %s", store.balance("acc-a"))
}

func TestDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tr, err := svc.Create(ctx, alice, income("acc-a", "40"))
	require.NoError(t, err)

	t.Run("missing id is a no-op", func(t *testing.T) {
		assert.NoError(t, svc.Delete(ctx, "nope", alice))
		assert.True(t, store.balance("acc-a").Equal(dec("140")))
	})

	t.Run("foreign user is rejected", func(t *testing.T) {
		err := svc.Delete(ctx, tr.ID, bob)
		assert.True(t, errors.Is(err, ErrForbidden), "err = %v", err)
		assert.Equal(t, 1, store.count())
		assert.True(t, store.balance("acc-a").Equal(dec("140")))
	})

	t.Run("owner restores balance", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, tr.ID, alice))
		assert.Equal(t, 0, store.count())
		assert.True(t, store.balance("acc-a").Equal(dec("100")))
	})
}

// After any sequence of mutations the balance equals the opening balance
// plus the summed effect of the linked transactions.
func TestLedger_BalanceInvariant(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	opening := map[string]decimal.Decimal{"acc-a": dec("100"), "acc-b": dec("50")}

	var ids []string
	steps := []Params{
		income("acc-a", "12.34"),
		expense("acc-b", "99.99"),
		expense("acc-a", "0.01"),
		income("acc-b", "1000"),
	}
	for _, p := range steps {
		tr, err := svc.Create(ctx, alice, p)
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}

	_, err := svc.Update(ctx, ids[0], alice, expense("acc-b", "3.33"))
	require.NoError(t, err)
	_, err = svc.Update(ctx, ids[1], alice, income("acc-a", "7"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, ids[2], alice))

	all, err := svc.ListByUser(ctx, alice)
	require.NoError(t, err)

	expected := map[string]decimal.Decimal{}
	for id, b := range opening {
		expected[id] = b
	}
	for _, tr := range all {
		expected[tr.AccountID] = expected[tr.AccountID].Add(tr.Effect())
	}
	for id, want := range expected {
		assert.True(t, store.balance(id).Equal(want), "%s balance = %s, want %s", id, store.balance(id), want)
	}
}

func TestReads(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	early := expense("acc-a", "1")
	early.Date = civil.Date{Year: 2024, Month: 4, Day: 1}
	_, err := svc.Create(ctx, alice, early)
	require.NoError(t, err)
	first, err := svc.Create(ctx, alice, income("acc-a", "2"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, alice, expense("acc-b", "3"))
	require.NoError(t, err)

	t.Run("ordered by date then createdAt, newest first", func(t *testing.T) {
		all, err := svc.ListByUser(ctx, alice)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, second.ID, all[0].ID)
		assert.Equal(t, first.ID, all[1].ID)
	})

	t.Run("by type", func(t *testing.T) {
		got, err := svc.ListByUserAndType(ctx, alice, "income")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, first.ID, got[0].ID)

		_, err = svc.ListByUserAndType(ctx, alice, "gift")
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})

	t.Run("by inclusive date range", func(t *testing.T) {
		got, err := svc.ListByUserAndDateRange(ctx, alice, may1, may1)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		_, err = svc.ListByUserAndDateRange(ctx, alice, may1, civil.Date{Year: 2024, Month: 4, Day: 30})
		assert.True(t, errors.Is(err, ErrInvalidDateRange))
	})

	t.Run("by account", func(t *testing.T) {
		got, err := svc.List(ctx, alice, Filter{AccountID: "acc-b"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, second.ID, got[0].ID)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.ListByUser(ctx, 42)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("get enforces ownership", func(t *testing.T) {
		got, err := svc.Get(ctx, first.ID, alice)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(dec("2")))

		_, err = svc.Get(ctx, first.ID, bob)
		assert.True(t, errors.Is(err, ErrForbidden))
	})
}

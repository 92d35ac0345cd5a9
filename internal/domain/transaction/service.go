package transaction

import (
	"context"
	"errors"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fintrack/internal/domain/account"
	"fintrack/internal/domain/category"
	"fintrack/internal/domain/user"
	applog "fintrack/internal/shared/log"
	"fintrack/internal/shared/money"
)

type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Service is the ledger. It keeps every account balance equal to the
// opening balance plus the effect of the transactions linked to it.
type Service struct {
	store  Store
	users  UserFinder
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(store Store, users UserFinder, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		users:  users,
		logger: applog.Component(logger, applog.ComponentLedger),
		now:    time.Now,
	}
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*Transaction, error) {
	return s.List(ctx, userID, Filter{})
}

func (s *Service) ListByUserAndType(ctx context.Context, userID int64, rawType string) ([]*Transaction, error) {
	t, err := ParseType(rawType)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, userID, Filter{Type: t})
}

// ListByUserAndDateRange returns transactions dated within [from, to].
func (s *Service) ListByUserAndDateRange(ctx context.Context, userID int64, from, to civil.Date) ([]*Transaction, error) {
	if from.IsZero() || to.IsZero() {
		return nil, ErrDateRequired
	}
	return s.List(ctx, userID, Filter{From: from, To: to})
}

func (s *Service) List(ctx context.Context, userID int64, f Filter) ([]*Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListByUserID(ctx, userID, f)
}

func (s *Service) Get(ctx context.Context, id string, userID int64) (*Transaction, error) {
	if id == "" {
		return nil, ErrTransactionNotFound
	}
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	return t, nil
}

// Create records a transaction and applies its effect to the account in
// one DB transaction. With p.Occurrence set the template slot is claimed
// first and a lost claim fails with ErrOccurrenceClaimed.
func (s *Service) Create(ctx context.Context, userID int64, p Params) (*Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   p.AccountID,
		CategoryID:  p.CategoryID,
		Amount:      p.Amount,
		Date:        p.Date,
		Description: p.Description,
		Type:        p.Type,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if p.Occurrence != nil {
			if err := tx.ClaimOccurrence(ctx, *p.Occurrence); err != nil {
				return err
			}
		}
		acc, err := lockOwnedAccount(ctx, tx, t.AccountID, userID)
		if err != nil {
			return err
		}
		if t.CategoryID != nil {
			if err := checkCategory(ctx, tx, *t.CategoryID, userID); err != nil {
				return err
			}
		}
		if err := setBalance(ctx, tx, acc.ID, acc.Balance.Add(t.Effect())); err != nil {
			return err
		}
		return tx.Insert(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int64(applog.FieldUserID, userID).
		Str(applog.FieldTxID, t.ID).
		Str(applog.FieldAccountID, t.AccountID).
		Str("effect", t.Effect().String()).
		Msg("transaction created")
	return t, nil
}

// Update overwrites a transaction. The old effect is undone on the old
// account and the new effect applied to the (possibly different) new one.
func (s *Service) Update(ctx context.Context, id string, userID int64, p Params) (*Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrTransactionNotFound
	}

	var updated *Transaction
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !cur.OwnedBy(userID) {
			return ErrForbidden
		}

		locked, err := lockAccounts(ctx, tx, cur.AccountID, p.AccountID)
		if err != nil {
			return err
		}
		oldAcc, newAcc := locked[cur.AccountID], locked[p.AccountID]
		if !newAcc.OwnedBy(userID) {
			return account.ErrForbidden
		}

		next := *cur
		if p.CategoryID != nil {
			if err := checkCategory(ctx, tx, *p.CategoryID, userID); err != nil {
				return err
			}
			next.CategoryID = p.CategoryID
		}
		next.AccountID = newAcc.ID
		next.Amount = p.Amount
		next.Date = p.Date
		next.Description = p.Description
		next.Type = p.Type
		next.UpdatedAt = s.now().UTC()

		if oldAcc.ID == newAcc.ID {
			balance := oldAcc.Balance.Sub(cur.Effect()).Add(next.Effect())
			if err := setBalance(ctx, tx, oldAcc.ID, balance); err != nil {
				return err
			}
		} else {
			if err := setBalance(ctx, tx, oldAcc.ID, oldAcc.Balance.Sub(cur.Effect())); err != nil {
				return err
			}
			if err := setBalance(ctx, tx, newAcc.ID, newAcc.Balance.Add(next.Effect())); err != nil {
				return err
			}
		}

		if err := tx.Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a transaction and undoes its effect. Deleting an id that
// does not resolve is a no-op.
func (s *Service) Delete(ctx context.Context, id string, userID int64) error {
	if id == "" {
		return nil
	}
	return s.store.WithinTx(ctx, func(tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, ErrTransactionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !cur.OwnedBy(userID) {
			return ErrForbidden
		}

		acc, err := tx.LockAccount(ctx, cur.AccountID)
		if err != nil {
			return err
		}
		if err := setBalance(ctx, tx, acc.ID, acc.Balance.Sub(cur.Effect())); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
}

func lockOwnedAccount(ctx context.Context, tx Tx, id string, userID int64) (*account.Account, error) {
	acc, err := tx.LockAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acc.OwnedBy(userID) {
		return nil, account.ErrForbidden
	}
	return acc, nil
}

// lockAccounts locks each distinct id in ascending order so two updates
// touching the same pair of accounts cannot deadlock.
func lockAccounts(ctx context.Context, tx Tx, ids ...string) (map[string]*account.Account, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)

	locked := make(map[string]*account.Account, len(uniq))
	for _, id := range uniq {
		acc, err := tx.LockAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = acc
	}
	return locked, nil
}

// setBalance refuses a balance the account column cannot hold.
func setBalance(ctx context.Context, tx Tx, id string, balance decimal.Decimal) error {
	if !money.InRange(balance) {
		return ErrBalanceOutOfRange
	}
	return tx.SetAccountBalance(ctx, id, balance)
}

func checkCategory(ctx context.Context, tx Tx, id string, userID int64) error {
	c, err := tx.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if !c.OwnedBy(userID) {
		return category.ErrForbidden
	}
	return nil
}

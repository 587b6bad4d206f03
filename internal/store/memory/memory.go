// Package memory is the in-process record store. It is the default
// backend for local runs and the fixture the service and handler tests
// are built on.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"billfold/internal/core"
	"billfold/internal/store"
)

type Store struct {
	mu       sync.Mutex
	incomes  []core.Income
	expenses []core.Expense
	bills    []core.Bill
	hub      *store.Hub
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{hub: store.NewHub()}
}

func (s *Store) ListIncomes(_ context.Context) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIncomes(s.incomes), nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedExpenses(s.expenses), nil
}

func (s *Store) ListBills(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedBills(s.bills), nil
}

func (s *Store) LoadSnapshot(_ context.Context) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

func (s *Store) InsertIncome(_ context.Context, in core.Income) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	in.ID = uuid.NewString()
	s.incomes = append(s.incomes, in)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Broadcast(snap)
	return in.ID, nil
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	if e.Generated {
		for _, existing := range s.expenses {
			if existing.Generated && existing.BillID == e.BillID && existing.PaidFor == e.PaidFor {
				s.mu.Unlock()
				return "", store.ErrConflict
			}
		}
	}
	e.ID = uuid.NewString()
	s.expenses = append(s.expenses, e)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Broadcast(snap)
	return e.ID, nil
}

func (s *Store) InsertBill(_ context.Context, b core.Bill) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	b.ID = uuid.NewString()
	s.bills = append(s.bills, b)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Broadcast(snap)
	return b.ID, nil
}

func (s *Store) DeleteIncome(_ context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, in := range s.incomes {
		if in.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	s.incomes = append(s.incomes[:idx], s.incomes[idx+1:]...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Broadcast(snap)
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, e := range s.expenses {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	s.expenses = append(s.expenses[:idx], s.expenses[idx+1:]...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Broadcast(snap)
	return nil
}

func (s *Store) DeleteBill(_ context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, b := range s.bills {
		if b.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	// Generated expenses keep their BillID; deleting a bill orphans
	// them, it never cascades.
	s.bills = append(s.bills[:idx], s.bills[idx+1:]...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Broadcast(snap)
	return nil
}

func (s *Store) Subscribe(ctx context.Context) *store.Subscription {
	return s.hub.Subscribe(ctx)
}

func (s *Store) Close() error {
	s.hub.CloseAll()
	return nil
}

func (s *Store) snapshotLocked() core.Snapshot {
	return core.Snapshot{
		Incomes:  sortedIncomes(s.incomes),
		Expenses: sortedExpenses(s.expenses),
		Bills:    sortedBills(s.bills),
	}
}

func sortedIncomes(in []core.Income) []core.Income {
	out := append([]core.Income(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

func sortedExpenses(in []core.Expense) []core.Expense {
	out := append([]core.Expense(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

func sortedBills(in []core.Bill) []core.Bill {
	out := append([]core.Bill(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

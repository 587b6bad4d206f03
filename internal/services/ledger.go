// Package services holds the business operations between the HTTP
// boundary and the record store: the five mutating ledger intents, the
// recurring-bill payment resolver, and the reminder scanner.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"billfold/internal/amqp"
	"billfold/internal/core"
	"billfold/internal/store"
)

// LedgerService validates records, writes them through the store, and
// announces mutations on the event queue. Publishing is best effort:
// the write already succeeded, so a publish failure is logged and the
// request still succeeds.
type LedgerService struct {
	store  store.Store
	events *amqp.Client
}

func NewLedgerService(st store.Store, events *amqp.Client) *LedgerService {
	return &LedgerService{
		store:  st,
		events: events,
	}
}

func (s *LedgerService) AddIncome(ctx context.Context, in core.Income) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	id, err := s.store.InsertIncome(ctx, in)
	if err != nil {
		return "", fmt.Errorf("save income: %w", err)
	}

	s.publishEvent(ctx, amqp.CollectionIncomes, amqp.ActionInserted, id)
	return id, nil
}

func (s *LedgerService) AddExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	id, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("save expense: %w", err)
	}

	s.publishEvent(ctx, amqp.CollectionExpenses, amqp.ActionInserted, id)
	return id, nil
}

// AddBill saves a recurring-bill template. The due day is the
// day-of-month of the creation date; it is reported unchanged even for
// weekly and daily bills.
func (s *LedgerService) AddBill(ctx context.Context, b core.Bill, now time.Time) (string, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.DueDay == 0 {
		b.DueDay = b.CreatedAt.Day()
	}
	b.Frequency = b.Frequency.Normalize()
	if err := b.Validate(); err != nil {
		return "", err
	}

	id, err := s.store.InsertBill(ctx, b)
	if err != nil {
		return "", fmt.Errorf("save bill: %w", err)
	}

	s.publishEvent(ctx, amqp.CollectionBills, amqp.ActionInserted, id)
	return id, nil
}

func (s *LedgerService) DeleteIncome(ctx context.Context, id string) error {
	return s.delete(ctx, amqp.CollectionIncomes, id, s.store.DeleteIncome)
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id string) error {
	return s.delete(ctx, amqp.CollectionExpenses, id, s.store.DeleteExpense)
}

// DeleteBill removes a template. Expenses generated from it keep their
// back-reference and are left in place.
func (s *LedgerService) DeleteBill(ctx context.Context, id string) error {
	return s.delete(ctx, amqp.CollectionBills, id, s.store.DeleteBill)
}

func (s *LedgerService) delete(ctx context.Context, collection, id string, del func(context.Context, string) error) error {
	if err := del(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Already gone. The caller wanted it gone; nothing to report.
			slog.InfoContext(ctx, "Delete of missing record treated as no-op",
				"collection", collection, "id", id)
			return nil
		}
		return fmt.Errorf("delete from %s: %w", collection, err)
	}

	s.publishEvent(ctx, collection, amqp.ActionDeleted, id)
	return nil
}

func (s *LedgerService) publishEvent(ctx context.Context, collection, action, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, collection, action, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"collection", collection,
			"action", action,
			"id", id,
			"error", err)
	}
}

// Close closes the store and the event connection.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billfold/internal/amqp"
	"billfold/internal/core"
)

// ReminderScanner walks the bill templates and queues a reminder for
// every bill that is due but not yet paid for the current month.
type ReminderScanner struct {
	store  snapshotLoader
	events reminderPublisher
}

type snapshotLoader interface {
	LoadSnapshot(ctx context.Context) (core.Snapshot, error)
}

type reminderPublisher interface {
	PublishBillReminder(ctx context.Context, msg *amqp.BillReminderMessage) error
}

func NewReminderScanner(st snapshotLoader, events reminderPublisher) *ReminderScanner {
	return &ReminderScanner{
		store:  st,
		events: events,
	}
}

// Scan publishes reminders for all due unpaid bills and returns how
// many were queued. A publish failure aborts the scan; the next run
// picks up where this one failed since nothing is marked.
func (s *ReminderScanner) Scan(ctx context.Context, now time.Time) (int, error) {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}

	label := core.MonthLabel(now)
	queued := 0

	for _, bill := range snap.Bills {
		if IsPaid(bill, label, snap.Expenses) {
			continue
		}
		if !isDue(bill, now) {
			continue
		}

		msg := &amqp.BillReminderMessage{
			BillID:      bill.ID,
			Name:        bill.Name,
			AmountCents: bill.Amount.Cents,
			DueDay:      DueDay(bill),
			MonthLabel:  label,
			Timestamp:   now,
		}
		if err := s.events.PublishBillReminder(ctx, msg); err != nil {
			return queued, fmt.Errorf("publish reminder for bill %s: %w", bill.ID, err)
		}

		slog.InfoContext(ctx, "Queued bill reminder",
			"bill_id", bill.ID,
			"bill_name", bill.Name,
			"due_day", msg.DueDay,
			"month", label)
		queued++
	}

	return queued, nil
}

// isDue reports whether an unpaid bill should be reminded about at now.
// Monthly bills become due once the clamped due day is reached; weekly
// and daily bills are due whenever unpaid.
func isDue(bill core.Bill, now time.Time) bool {
	switch bill.Frequency.Normalize() {
	case core.Monthly:
		targetDay := DueDay(bill)
		lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
		if targetDay > lastDayOfMonth {
			targetDay = lastDayOfMonth
		}
		return now.Day() >= targetDay
	default:
		return true
	}
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"billfold/internal/amqp"
	"billfold/internal/core"
)

type fakeSnapshotLoader struct {
	snap core.Snapshot
	err  error
}

func (f *fakeSnapshotLoader) LoadSnapshot(context.Context) (core.Snapshot, error) {
	return f.snap, f.err
}

type fakeReminderPublisher struct {
	published []*amqp.BillReminderMessage
	err       error
}

func (f *fakeReminderPublisher) PublishBillReminder(_ context.Context, msg *amqp.BillReminderMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func TestScanQueuesDueBills(t *testing.T) {
	now := time.Date(2026, time.March, 15, 8, 0, 0, 0, time.UTC)
	loader := &fakeSnapshotLoader{snap: core.Snapshot{
		Bills: []core.Bill{
			{ID: "b1", Name: "rent", Amount: core.Money{Cents: 90000}, Frequency: core.Monthly, DueDay: 1},
			{ID: "b2", Name: "gym", Amount: core.Money{Cents: 3000}, Frequency: core.Monthly, DueDay: 20}, // not yet due
			{ID: "b3", Name: "cleaner", Amount: core.Money{Cents: 5000}, Frequency: core.Weekly},
		},
	}}
	pub := &fakeReminderPublisher{}

	queued, err := NewReminderScanner(loader, pub).Scan(context.Background(), now)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if queued != 2 || len(pub.published) != 2 {
		t.Fatalf("expected 2 reminders, got queued=%d published=%d", queued, len(pub.published))
	}

	first := pub.published[0]
	if first.BillID != "b1" || first.DueDay != 1 || first.MonthLabel != "Mar 2026" {
		t.Fatalf("unexpected reminder: %+v", first)
	}
	if pub.published[1].BillID != "b3" {
		t.Fatalf("expected weekly bill reminder, got %+v", pub.published[1])
	}
}

func TestScanSkipsPaidBills(t *testing.T) {
	now := time.Date(2026, time.March, 15, 8, 0, 0, 0, time.UTC)
	loader := &fakeSnapshotLoader{snap: core.Snapshot{
		Bills: []core.Bill{
			{ID: "b1", Name: "rent", Amount: core.Money{Cents: 90000}, Frequency: core.Monthly, DueDay: 1},
		},
		Expenses: []core.Expense{
			{Generated: true, BillID: "b1", PaidFor: "Mar 2026", Date: core.NewDate(2026, 3, 1)},
		},
	}}
	pub := &fakeReminderPublisher{}

	queued, err := NewReminderScanner(loader, pub).Scan(context.Background(), now)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if queued != 0 || len(pub.published) != 0 {
		t.Fatalf("expected no reminders for a paid bill, got %d", queued)
	}
}

func TestScanClampsDueDay(t *testing.T) {
	// Due day 31 in a 30-day month becomes due on the 30th.
	loader := &fakeSnapshotLoader{snap: core.Snapshot{
		Bills: []core.Bill{
			{ID: "b1", Name: "rent", Amount: core.Money{Cents: 1}, Frequency: core.Monthly, DueDay: 31},
		},
	}}
	pub := &fakeReminderPublisher{}
	scanner := NewReminderScanner(loader, pub)

	apr29 := time.Date(2026, time.April, 29, 0, 0, 0, 0, time.UTC)
	if queued, _ := scanner.Scan(context.Background(), apr29); queued != 0 {
		t.Fatalf("expected not due on the 29th")
	}

	apr30 := time.Date(2026, time.April, 30, 0, 0, 0, 0, time.UTC)
	if queued, _ := scanner.Scan(context.Background(), apr30); queued != 1 {
		t.Fatalf("expected due on the clamped last day")
	}
}

func TestScanAbortsOnPublishFailure(t *testing.T) {
	loader := &fakeSnapshotLoader{snap: core.Snapshot{
		Bills: []core.Bill{
			{ID: "b1", Name: "a", Amount: core.Money{Cents: 1}, Frequency: core.Daily},
			{ID: "b2", Name: "b", Amount: core.Money{Cents: 1}, Frequency: core.Daily},
		},
	}}
	pub := &fakeReminderPublisher{err: errors.New("broker down")}

	queued, err := NewReminderScanner(loader, pub).Scan(context.Background(), time.Now())
	if err == nil {
		t.Fatalf("expected publish error")
	}
	if queued != 0 {
		t.Fatalf("expected no reminders counted, got %d", queued)
	}
}

package amqp

import (
	"testing"
	"time"
)

func TestLedgerEventRoundTrip(t *testing.T) {
	data, err := wrap(TypeLedgerEvent, NewLedgerEventMessage(CollectionExpenses, ActionInserted, "e1"))
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	env, err := EnvelopeFromJSON(data)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Type != TypeLedgerEvent {
		t.Fatalf("expected type %q, got %q", TypeLedgerEvent, env.Type)
	}

	msg, err := env.LedgerEvent()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if msg.Collection != CollectionExpenses || msg.Action != ActionInserted || msg.ID != "e1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Fatalf("expected timestamp")
	}
}

func TestBillReminderRoundTrip(t *testing.T) {
	in := &BillReminderMessage{
		BillID:      "b1",
		Name:        "rent",
		AmountCents: 90000,
		DueDay:      1,
		MonthLabel:  "Mar 2026",
		Timestamp:   time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC),
	}
	data, err := wrap(TypeBillReminder, in)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	env, err := EnvelopeFromJSON(data)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	msg, err := env.BillReminder()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if msg.BillID != in.BillID || msg.AmountCents != in.AmountCents || msg.MonthLabel != in.MonthLabel {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if !msg.Timestamp.Equal(in.Timestamp) {
		t.Fatalf("timestamp mismatch: %v", msg.Timestamp)
	}
}

func TestEnvelopeTypeMismatch(t *testing.T) {
	data, err := wrap(TypeLedgerEvent, NewLedgerEventMessage(CollectionIncomes, ActionDeleted, "i1"))
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	env, err := EnvelopeFromJSON(data)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if _, err := env.BillReminder(); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestEnvelopeFromJSONRejectsBadInput(t *testing.T) {
	if _, err := EnvelopeFromJSON([]byte("not json")); err == nil {
		t.Fatalf("expected error for invalid json")
	}
	if _, err := EnvelopeFromJSON([]byte(`{"payload":{}}`)); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

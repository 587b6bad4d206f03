package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeLedgerEvent  = "ledger.event"
	TypeBillReminder = "bill.reminder"
)

const (
	ActionInserted = "inserted"
	ActionDeleted  = "deleted"
)

const (
	CollectionIncomes  = "incomes"
	CollectionExpenses = "expenses"
	CollectionBills    = "bills"
)

// Envelope wraps every message on the ledger queue with its type so one
// consumer loop can dispatch both kinds.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// LedgerEventMessage announces a record mutation. It carries only the
// coordinates; consumers fetch the record from the store themselves.
type LedgerEventMessage struct {
	Collection string    `json:"collection"`
	Action     string    `json:"action"`
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
}

// BillReminderMessage flags a recurring bill still unpaid for a month
// whose due day has been reached.
type BillReminderMessage struct {
	BillID      string    `json:"bill_id"`
	Name        string    `json:"name"`
	AmountCents int64     `json:"amount_cents"`
	DueDay      int       `json:"due_day"`
	MonthLabel  string    `json:"month_label"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates a mutation announcement stamped now.
func NewLedgerEventMessage(collection, action, id string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Collection: collection,
		Action:     action,
		ID:         id,
		Timestamp:  time.Now(),
	}
}

func wrap(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now(),
	})
}

// EnvelopeFromJSON decodes a raw queue delivery.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, fmt.Errorf("message missing type")
	}
	return &env, nil
}

// LedgerEvent decodes the payload of a ledger.event envelope.
func (e *Envelope) LedgerEvent() (*LedgerEventMessage, error) {
	if e.Type != TypeLedgerEvent {
		return nil, fmt.Errorf("envelope type %q is not a ledger event", e.Type)
	}
	var msg LedgerEventMessage
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BillReminder decodes the payload of a bill.reminder envelope.
func (e *Envelope) BillReminder() (*BillReminderMessage, error) {
	if e.Type != TypeBillReminder {
		return nil, fmt.Errorf("envelope type %q is not a bill reminder", e.Type)
	}
	var msg BillReminderMessage
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly Frequency = "monthly"
	Weekly  Frequency = "weekly"
	Daily   Frequency = "daily"
)

const (
	IncomeRetainer IncomeType = "retainer"
	IncomePayout   IncomeType = "payout"
	IncomeProject  IncomeType = "project"
)

const (
	CategoryHousing       Category = "housing"
	CategoryUtilities     Category = "utilities"
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategorySubscriptions Category = "subscriptions"
	CategoryHealth        Category = "health"
	CategoryOther         Category = "other"
)

type (
	// Frequency is the repetition cycle of a recurring bill.
	Frequency string

	// IncomeType distinguishes how an income entry was earned.
	IncomeType string

	// Category is one of the fixed expense categories.
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Income is a single earning entry. Immutable once created; removed
	// only by explicit deletion.
	Income struct {
		ID     string
		Client string
		Amount Money
		Date   Date
		Type   IncomeType
	}

	// Expense is a single spending entry, either entered directly or
	// generated by marking a bill paid. BillID links a generated expense
	// back to its bill for lookup only; deleting the bill orphans it.
	// PaidFor holds the month label the payment discharges.
	Expense struct {
		ID        string
		Name      string
		Amount    Money
		Date      Date
		Category  Category
		Recurring bool
		Generated bool
		BillID    string
		PaidFor   string
	}

	// Bill is a recurring obligation template. It never records its own
	// payment history; paid state is always derived from expenses that
	// reference it.
	Bill struct {
		ID        string
		Name      string
		Amount    Money
		Category  Category
		Frequency Frequency
		DueDay    int
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyClient      = errors.New("empty client name")
	ErrEmptyName        = errors.New("empty name")
	ErrUnknownType      = errors.New("unknown income type")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrUnknownFrequency = errors.New("unknown frequency")
)

// Categories lists every valid expense category.
func Categories() []Category {
	return []Category{
		CategoryHousing, CategoryUtilities, CategoryFood, CategoryTransport,
		CategorySubscriptions, CategoryHealth, CategoryOther,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

func (t IncomeType) Valid() bool {
	switch t {
	case IncomeRetainer, IncomePayout, IncomeProject:
		return true
	}
	return false
}

// Normalize maps an absent frequency to the monthly default.
func (f Frequency) Normalize() Frequency {
	if f == "" {
		return Monthly
	}
	return f
}

func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Weekly, Daily:
		return true
	}
	return false
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (in Income) Validate() error {
	if len(strings.TrimSpace(in.Client)) == 0 {
		return ErrEmptyClient
	}
	if len(in.Client) > 200 {
		return errors.New("client name too long (max 200 characters)")
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return ErrUnknownType
	}
	return nil
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrUnknownCategory
	}
	if e.Generated && e.BillID == "" {
		return errors.New("generated expense missing bill reference")
	}
	return nil
}

func (b Bill) Validate() error {
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Category.Valid() {
		return ErrUnknownCategory
	}
	if !b.Frequency.Normalize().Valid() {
		return ErrUnknownFrequency
	}
	// DueDay is a raw day-of-month taken from the creation date. It is
	// deliberately not checked against the calendar or the frequency.
	if b.DueDay < 0 || b.DueDay > 31 {
		return errors.New("due day out of range")
	}
	return nil
}

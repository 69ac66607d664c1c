package core

import (
	"strings"
	"time"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

type (
	EntryType string

	Savings struct {
		CurrentAmount float64 `json:"currentAmount" bson:"currentAmount"`
		TargetAmount  float64 `json:"targetAmount" bson:"targetAmount"`
		MonthlyGoal   float64 `json:"monthlyGoal" bson:"monthlyGoal"`
	}

	// LedgerEntry is one record of the transaction log. Amount is always a
	// magnitude; the direction is carried by Type.
	LedgerEntry struct {
		ID       string    `json:"id" bson:"id"`
		Date     time.Time `json:"date" bson:"date"`
		Category *string   `json:"category" bson:"category"`
		Amount   float64   `json:"amount" bson:"amount"`
		Type     EntryType `json:"type" bson:"type"`
	}

	// Profile is the single financial record kept per user email.
	Profile struct {
		Email        string             `json:"email" bson:"email"`
		Income       float64            `json:"income" bson:"income"`
		Expenses     map[string]float64 `json:"expenses" bson:"expenses"`
		Savings      Savings            `json:"savings" bson:"savings"`
		Transactions []LedgerEntry      `json:"transactions" bson:"transactions"`
		CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
		UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
	}

	// EntryInput is a ledger entry as submitted by a client, before
	// normalization. Amount holds whatever JSON value was sent.
	EntryInput struct {
		Date     string `json:"date"`
		Category string `json:"category"`
		Amount   any    `json:"amount"`
		Type     string `json:"type"`
	}

	// ProfileUpdate carries the sections of a bulk update. Nil sections are
	// left untouched; provided sections replace the stored ones wholesale.
	ProfileUpdate struct {
		Income   *float64
		Expenses map[string]float64
		Savings  *Savings
	}
)

// ParseEntryType maps client input to an EntryType. An empty value means
// expense.
func ParseEntryType(s string) (EntryType, error) {
	switch EntryType(strings.ToLower(strings.TrimSpace(s))) {
	case "", Expense:
		return Expense, nil
	case Income:
		return Income, nil
	default:
		return "", &ValidationError{Field: "type", Err: ErrInvalidType}
	}
}

// CategoryName returns the entry category or "" when it has none.
func (e LedgerEntry) CategoryName() string {
	if e.Category == nil {
		return ""
	}
	return *e.Category
}

// Normalize replaces nil collections with empty ones so the profile always
// serializes with an expenses object and a transactions array.
func (p *Profile) Normalize() {
	if p.Expenses == nil {
		p.Expenses = make(map[string]float64)
	}
	if p.Transactions == nil {
		p.Transactions = []LedgerEntry{}
	}
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Expenses = make(map[string]float64, len(p.Expenses))
	for k, v := range p.Expenses {
		c.Expenses[k] = v
	}
	c.Transactions = make([]LedgerEntry, len(p.Transactions))
	for i, e := range p.Transactions {
		if e.Category != nil {
			cat := *e.Category
			e.Category = &cat
		}
		c.Transactions[i] = e
	}
	return &c
}

package core

import (
	"strings"
	"time"
)

// Categories is the fixed set of expense categories every new profile starts
// with, in display order.
var Categories = []string{
	"rent",
	"loanRepayment",
	"insurance",
	"groceries",
	"transport",
	"eatingOut",
	"entertainment",
	"utilities",
	"healthcare",
	"education",
	"miscellaneous",
}

var defaultExpenses = map[string]float64{
	"rent":          1500,
	"loanRepayment": 500,
	"insurance":     200,
	"groceries":     400,
	"transport":     200,
	"eatingOut":     300,
	"entertainment": 200,
	"utilities":     150,
	"healthcare":    100,
	"education":     0,
	"miscellaneous": 100,
}

const (
	DefaultIncome = 5000
)

// DefaultSavings is the savings section of a lazily created profile.
var DefaultSavings = Savings{
	CurrentAmount: 1000,
	TargetAmount:  10000,
	MonthlyGoal:   500,
}

// IsKnownCategory reports whether name is one of the fixed categories.
func IsKnownCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// NormalizeCategory trims surrounding whitespace from a category key.
func NormalizeCategory(name string) string {
	return strings.TrimSpace(name)
}

// DefaultProfile builds the starting snapshot for a user seen for the first
// time.
func DefaultProfile(email string, now time.Time) *Profile {
	expenses := make(map[string]float64, len(defaultExpenses))
	for k, v := range defaultExpenses {
		expenses[k] = v
	}
	now = now.UTC()
	return &Profile{
		Email:        email,
		Income:       DefaultIncome,
		Expenses:     expenses,
		Savings:      DefaultSavings,
		Transactions: []LedgerEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

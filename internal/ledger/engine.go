// Package ledger keeps a profile's income and per-category expense totals in
// step with its transaction log.
package ledger

import (
	"fmt"
	"math"
	"strings"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

// Policy decides which expense category keys are accepted.
type Policy string

const (
	// OpenCategories accepts any non-empty category key.
	OpenCategories Policy = "open"
	// ClosedCategories accepts only core.Categories.
	ClosedCategories Policy = "closed"
)

// ParsePolicy maps a configuration value to a Policy. Empty means open.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OpenCategories:
		return OpenCategories, nil
	case ClosedCategories:
		return ClosedCategories, nil
	default:
		return "", fmt.Errorf("unknown category policy %q (want open or closed)", s)
	}
}

// Engine applies and retracts ledger entries against a profile.
type Engine struct {
	policy Policy
	newID  func() string
}

func NewEngine(policy Policy) *Engine {
	if policy == "" {
		policy = OpenCategories
	}
	return &Engine{policy: policy, newID: uuid.NewString}
}

func (e *Engine) Policy() Policy { return e.policy }

// CheckCategory validates an expense category key under the engine policy and
// returns it trimmed.
func (e *Engine) CheckCategory(name string) (string, error) {
	name = core.NormalizeCategory(name)
	if name == "" {
		return "", &core.ValidationError{Field: "category", Err: core.ErrMissingCategory}
	}
	if e.policy == ClosedCategories && !core.IsKnownCategory(name) {
		return "", &core.ValidationError{Field: "category", Err: core.ErrUnknownCategory}
	}
	return name, nil
}

// Apply validates in, folds it into the profile totals and appends it to the
// transaction log. The profile is not modified when an error is returned.
func (e *Engine) Apply(p *core.Profile, in core.EntryInput) (core.LedgerEntry, error) {
	raw, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.LedgerEntry{}, &core.ValidationError{Field: "amount", Err: err}
	}
	amount := magnitude(raw)

	typ, err := core.ParseEntryType(in.Type)
	if err != nil {
		return core.LedgerEntry{}, err
	}

	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.LedgerEntry{}, &core.ValidationError{Field: "date", Err: err}
	}

	entry := core.LedgerEntry{
		ID:     e.newID(),
		Date:   date,
		Amount: amount,
		Type:   typ,
	}

	if typ == core.Expense {
		cat, err := e.CheckCategory(in.Category)
		if err != nil {
			return core.LedgerEntry{}, err
		}
		entry.Category = &cat
	}

	var total float64
	switch typ {
	case core.Expense:
		total = add(p.Expenses[*entry.Category], amount)
	case core.Income:
		total = add(p.Income, amount)
	}
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return core.LedgerEntry{}, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	}

	p.Normalize()
	switch typ {
	case core.Expense:
		p.Expenses[*entry.Category] = total
	case core.Income:
		p.Income = total
	}
	p.Transactions = append(p.Transactions, entry)
	return entry, nil
}

// Retract removes the entry at index and subtracts its amount from the
// matching total, clamping at zero. Later entries shift down by one.
func (e *Engine) Retract(p *core.Profile, index int) (core.LedgerEntry, error) {
	if index < 0 || index >= len(p.Transactions) {
		return core.LedgerEntry{}, &core.ValidationError{Field: "index", Err: core.ErrIndexOutOfRange}
	}
	p.Normalize()
	entry := p.Transactions[index]

	switch entry.Type {
	case core.Expense:
		if entry.Category != nil {
			cat := *entry.Category
			p.Expenses[cat] = subClamp(p.Expenses[cat], entry.Amount)
		}
	case core.Income:
		p.Income = subClamp(p.Income, entry.Amount)
	}

	p.Transactions = append(p.Transactions[:index:index], p.Transactions[index+1:]...)
	return entry, nil
}

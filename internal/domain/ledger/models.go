package ledger

import (
	"time"
)

// EntryType classifies a ledger entry as money in or money out.
type EntryType string

const (
	EntryTypeIncome  EntryType = "INCOME"
	EntryTypeExpense EntryType = "EXPENSE"
)

// Closed category vocabularies per entry type. A (type, category) pair
// outside these sets is never written to the ledger; the transaction is
// parked as a pending entry instead.
var incomeCategories = map[string]bool{
	"Rent":            true,
	"Deposit":         true,
	"Late Fees":       true,
	"Recharges":       true,
	"Insurance Claim": true,
	"Other Income":    true,
}

var expenseCategories = map[string]bool{
	"Maintenance":     true,
	"Repairs":         true,
	"Insurance":       true,
	"Utilities":       true,
	"Mortgage":        true,
	"Management Fees": true,
	"Property Tax":    true,
	"Cleaning":        true,
	"Other Expense":   true,
}

// ValidType reports whether s is a known entry type.
func ValidType(s string) bool {
	return EntryType(s) == EntryTypeIncome || EntryType(s) == EntryTypeExpense
}

// ValidCategory reports whether category belongs to the closed vocabulary
// for the given entry type.
func ValidCategory(t EntryType, category string) bool {
	switch t {
	case EntryTypeIncome:
		return incomeCategories[category]
	case EntryTypeExpense:
		return expenseCategories[category]
	default:
		return false
	}
}

// Categories returns the allowed categories for an entry type.
func Categories(t EntryType) []string {
	var src map[string]bool
	switch t {
	case EntryTypeIncome:
		src = incomeCategories
	case EntryTypeExpense:
		src = expenseCategories
	default:
		return nil
	}
	out := make([]string, 0, len(src))
	for c := range src {
		out = append(out, c)
	}
	return out
}

// LedgerEntry is a fully classified financial event, ready for reporting.
type LedgerEntry struct {
	ID          string    `json:"id"`
	PropertyID  string    `json:"propertyId"`
	Type        EntryType `json:"type"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Imported    bool      `json:"imported"` // machine-imported provenance flag
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PendingEntry is a partially or unclassified transaction awaiting manual
// resolution. It carries whichever of {property, type, category} the rule
// engine inferred, with the rest nil.
type PendingEntry struct {
	ID          string     `json:"id"`
	PropertyID  *string    `json:"propertyId,omitempty"`
	Type        *EntryType `json:"type,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Amount      float64    `json:"amount"`
	Date        time.Time  `json:"date"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CreateLedgerEntryParams contains the parameters for creating a ledger entry
type CreateLedgerEntryParams struct {
	PropertyID  string
	Type        EntryType
	Category    string
	Amount      float64
	Date        time.Time
	Description string
	Imported    bool
}

// CreatePendingEntryParams contains the parameters for creating a pending entry
type CreatePendingEntryParams struct {
	PropertyID  *string
	Type        *EntryType
	Category    *string
	Amount      float64
	Date        time.Time
	Description string
}

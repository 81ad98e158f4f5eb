package rule

import (
	"sort"
	"strconv"
	"strings"
)

// TransactionAttributes is the view of an incoming transaction the engine
// evaluates conditions against.
type TransactionAttributes struct {
	Description  string
	Counterparty string
	MerchantName string
	Reference    string
	Amount       float64
}

// Outcome accumulates classification fields across matching rules. A nil
// field means no rule has set it yet.
type Outcome struct {
	PropertyID *string
	EntryType  *string
	Category   *string
}

// Complete reports whether every classification field has been set.
func (o Outcome) Complete() bool {
	return o.PropertyID != nil && o.EntryType != nil && o.Category != nil
}

// Engine evaluates matching rules against transaction attributes.
type Engine struct{}

// NewEngine creates a new rule engine
func NewEngine() *Engine {
	return &Engine{}
}

// SortRules orders rules for evaluation: account-scoped rules strictly
// before global rules, then ascending priority within each group. The sort
// is stable so rules with equal priority keep their input order.
func SortRules(rules []*MatchingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		iScoped := rules[i].LinkedAccountID != nil
		jScoped := rules[j].LinkedAccountID != nil
		if iScoped != jScoped {
			return iScoped
		}
		return rules[i].Priority < rules[j].Priority
	})
}

// Evaluate runs the rules in precedence order against the transaction.
// Each matching rule contributes only the outcome fields that are still
// unset, so an account-scoped rule's category survives a later global rule
// that would also set it. Evaluation stops once every field is set. The
// caller's slice is left untouched; ordering happens on a copy.
func (e *Engine) Evaluate(rules []*MatchingRule, txn TransactionAttributes) Outcome {
	ordered := make([]*MatchingRule, len(rules))
	copy(ordered, rules)
	SortRules(ordered)

	var outcome Outcome
	for _, r := range ordered {
		if !r.Enabled {
			continue
		}
		if !e.Matches(r.Conditions, txn) {
			continue
		}
		if outcome.PropertyID == nil && r.PropertyID != nil {
			outcome.PropertyID = r.PropertyID
		}
		if outcome.EntryType == nil && r.EntryType != nil {
			outcome.EntryType = r.EntryType
		}
		if outcome.Category == nil && r.Category != nil {
			outcome.Category = r.Category
		}
		if outcome.Complete() {
			break
		}
	}
	return outcome
}

// Matches reports whether the transaction satisfies the condition group.
func (e *Engine) Matches(group ConditionGroup, txn TransactionAttributes) bool {
	if len(group.Conditions) == 0 {
		return false
	}

	for _, c := range group.Conditions {
		matched := matchCondition(c, txn)
		if group.Logic == LogicOr && matched {
			return true
		}
		if group.Logic != LogicOr && !matched {
			return false
		}
	}
	// AND: every condition matched. OR: none did.
	return group.Logic != LogicOr
}

func matchCondition(c Condition, txn TransactionAttributes) bool {
	if c.Field == FieldAmount {
		return matchAmount(c, txn.Amount)
	}

	var value string
	switch c.Field {
	case FieldDescription:
		value = txn.Description
	case FieldCounterparty:
		value = txn.Counterparty
	case FieldMerchantName:
		value = txn.MerchantName
	case FieldReference:
		value = txn.Reference
	default:
		return false
	}

	target := c.Value
	if !c.CaseSensitive {
		value = strings.ToLower(value)
		target = strings.ToLower(target)
	}

	switch c.Operator {
	case OperatorEquals:
		return value == target
	case OperatorContains:
		return strings.Contains(value, target)
	case OperatorStartsWith:
		return strings.HasPrefix(value, target)
	case OperatorEndsWith:
		return strings.HasSuffix(value, target)
	default:
		return false
	}
}

func matchAmount(c Condition, amount float64) bool {
	target, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return false
	}

	switch c.Operator {
	case OperatorEquals:
		return amount == target
	case OperatorGreaterThan:
		return amount > target
	case OperatorLessThan:
		return amount < target
	default:
		return false
	}
}

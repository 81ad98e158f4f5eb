package rule

import (
	"testing"
)

func strPtr(s string) *string { return &s }

func descRule(id string, accountID *string, priority int, contains string, category string) *MatchingRule {
	return &MatchingRule{
		ID:              id,
		Name:            id,
		LinkedAccountID: accountID,
		Priority:        priority,
		Enabled:         true,
		Conditions: ConditionGroup{
			Logic: LogicAnd,
			Conditions: []Condition{
				{Field: FieldDescription, Operator: OperatorContains, Value: contains},
			},
		},
		Category: strPtr(category),
	}
}

func TestSortRules_AccountScopedBeforeGlobal(t *testing.T) {
	rules := []*MatchingRule{
		descRule("global-10", nil, 10, "x", "a"),
		descRule("scoped-50", strPtr("acct-1"), 50, "x", "b"),
		descRule("global-5", nil, 5, "x", "c"),
		descRule("scoped-20", strPtr("acct-1"), 20, "x", "d"),
	}

	SortRules(rules)

	wantOrder := []string{"scoped-20", "scoped-50", "global-5", "global-10"}
	for i, want := range wantOrder {
		if rules[i].ID != want {
			t.Errorf("rules[%d].ID = %s, want %s", i, rules[i].ID, want)
		}
	}
}

func TestSortRules_StableOnEqualPriority(t *testing.T) {
	rules := []*MatchingRule{
		descRule("first", nil, 10, "x", "a"),
		descRule("second", nil, 10, "x", "b"),
	}

	SortRules(rules)

	if rules[0].ID != "first" || rules[1].ID != "second" {
		t.Errorf("equal-priority order changed: got %s, %s", rules[0].ID, rules[1].ID)
	}
}

// An account-scoped rule wins over a global rule even when the global rule
// has a numerically better priority.
func TestEvaluate_AccountScopedBeatsGlobalPriority(t *testing.T) {
	rules := []*MatchingRule{
		descRule("global", nil, 10, "cleaning", "Other Expense"),
		descRule("scoped", strPtr("acct-1"), 50, "cleaning", "Cleaning"),
	}
	engine := NewEngine()

	outcome := engine.Evaluate(rules, TransactionAttributes{Description: "SPARKLE CLEANING LTD"})

	if outcome.Category == nil || *outcome.Category != "Cleaning" {
		t.Errorf("Category = %v, want Cleaning from the account-scoped rule", outcome.Category)
	}
}

func TestEvaluate_LaterRulesFillUnsetFields(t *testing.T) {
	first := descRule("first", strPtr("acct-1"), 10, "rent", "Rent")
	second := descRule("second", nil, 20, "rent", "Other Income")
	second.PropertyID = strPtr("prop-1")
	second.EntryType = strPtr("INCOME")
	rules := []*MatchingRule{first, second}
	engine := NewEngine()

	outcome := engine.Evaluate(rules, TransactionAttributes{Description: "RENT PAYMENT FLAT 2"})

	if outcome.Category == nil || *outcome.Category != "Rent" {
		t.Errorf("Category = %v, want Rent (first match keeps the field)", outcome.Category)
	}
	if outcome.PropertyID == nil || *outcome.PropertyID != "prop-1" {
		t.Errorf("PropertyID = %v, want prop-1 (filled by the later rule)", outcome.PropertyID)
	}
	if outcome.EntryType == nil || *outcome.EntryType != "INCOME" {
		t.Errorf("EntryType = %v, want INCOME (filled by the later rule)", outcome.EntryType)
	}
}

func TestEvaluate_LeavesInputOrderUntouched(t *testing.T) {
	global := descRule("global", nil, 5, "cleaning", "Other Expense")
	scoped := descRule("scoped", strPtr("acct-1"), 50, "cleaning", "Cleaning")
	rules := []*MatchingRule{global, scoped}

	NewEngine().Evaluate(rules, TransactionAttributes{Description: "SPARKLE CLEANING LTD"})

	if rules[0] != global || rules[1] != scoped {
		t.Errorf("input slice reordered: got %s, %s", rules[0].ID, rules[1].ID)
	}
}

func TestEvaluate_DisabledRuleSkipped(t *testing.T) {
	r := descRule("disabled", nil, 10, "rent", "Rent")
	r.Enabled = false
	engine := NewEngine()

	outcome := engine.Evaluate([]*MatchingRule{r}, TransactionAttributes{Description: "rent"})

	if outcome.Category != nil {
		t.Errorf("Category = %v, want nil from a disabled rule", outcome.Category)
	}
}

func TestEvaluate_NoMatch(t *testing.T) {
	rules := []*MatchingRule{descRule("r", nil, 10, "mortgage", "Mortgage")}
	engine := NewEngine()

	outcome := engine.Evaluate(rules, TransactionAttributes{Description: "COFFEE SHOP"})

	if outcome.PropertyID != nil || outcome.EntryType != nil || outcome.Category != nil {
		t.Error("expected empty outcome when no rule matches")
	}
	if outcome.Complete() {
		t.Error("Complete() = true for empty outcome")
	}
}

func TestMatches_AndLogic(t *testing.T) {
	engine := NewEngine()
	group := ConditionGroup{
		Logic: LogicAnd,
		Conditions: []Condition{
			{Field: FieldDescription, Operator: OperatorContains, Value: "rent"},
			{Field: FieldAmount, Operator: OperatorGreaterThan, Value: "500"},
		},
	}

	if !engine.Matches(group, TransactionAttributes{Description: "RENT JUNE", Amount: 950}) {
		t.Error("want match when both conditions hold")
	}
	if engine.Matches(group, TransactionAttributes{Description: "RENT JUNE", Amount: 100}) {
		t.Error("want no match when amount condition fails")
	}
}

func TestMatches_OrLogic(t *testing.T) {
	engine := NewEngine()
	group := ConditionGroup{
		Logic: LogicOr,
		Conditions: []Condition{
			{Field: FieldMerchantName, Operator: OperatorEquals, Value: "british gas"},
			{Field: FieldMerchantName, Operator: OperatorEquals, Value: "octopus energy"},
		},
	}

	if !engine.Matches(group, TransactionAttributes{MerchantName: "Octopus Energy"}) {
		t.Error("want match when one OR condition holds")
	}
	if engine.Matches(group, TransactionAttributes{MerchantName: "Thames Water"}) {
		t.Error("want no match when no OR condition holds")
	}
}

func TestMatchCondition_StringOperators(t *testing.T) {
	txn := TransactionAttributes{Description: "TESCO STORES 123", Reference: "INV-2025-001"}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals case insensitive", Condition{Field: FieldDescription, Operator: OperatorEquals, Value: "tesco stores 123"}, true},
		{"equals case sensitive fails", Condition{Field: FieldDescription, Operator: OperatorEquals, Value: "tesco stores 123", CaseSensitive: true}, false},
		{"contains", Condition{Field: FieldDescription, Operator: OperatorContains, Value: "stores"}, true},
		{"starts_with", Condition{Field: FieldDescription, Operator: OperatorStartsWith, Value: "TESCO"}, true},
		{"ends_with", Condition{Field: FieldReference, Operator: OperatorEndsWith, Value: "001"}, true},
		{"ends_with fails", Condition{Field: FieldReference, Operator: OperatorEndsWith, Value: "002"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchCondition(tt.cond, txn); got != tt.want {
				t.Errorf("matchCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestMatchCondition_AmountOperators(t *testing.T) {
	tests := []struct {
		name   string
		cond   Condition
		amount float64
		want   bool
	}{
		{"greater_than", Condition{Field: FieldAmount, Operator: OperatorGreaterThan, Value: "100"}, 150, true},
		{"greater_than equal fails", Condition{Field: FieldAmount, Operator: OperatorGreaterThan, Value: "100"}, 100, false},
		{"less_than negative", Condition{Field: FieldAmount, Operator: OperatorLessThan, Value: "0"}, -45.20, true},
		{"equals", Condition{Field: FieldAmount, Operator: OperatorEquals, Value: "-45.20"}, -45.20, true},
		{"unparseable value", Condition{Field: FieldAmount, Operator: OperatorGreaterThan, Value: "lots"}, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchCondition(tt.cond, TransactionAttributes{Amount: tt.amount}); got != tt.want {
				t.Errorf("matchCondition(%+v, amount=%v) = %v, want %v", tt.cond, tt.amount, got, tt.want)
			}
		})
	}
}

func TestConditionGroupValidate(t *testing.T) {
	tests := []struct {
		name    string
		group   ConditionGroup
		wantErr bool
	}{
		{
			"valid AND group",
			ConditionGroup{Logic: LogicAnd, Conditions: []Condition{{Field: FieldDescription, Operator: OperatorContains, Value: "x"}}},
			false,
		},
		{
			"invalid logic",
			ConditionGroup{Logic: "XOR", Conditions: []Condition{{Field: FieldDescription, Operator: OperatorContains, Value: "x"}}},
			true,
		},
		{
			"empty conditions",
			ConditionGroup{Logic: LogicAnd},
			true,
		},
		{
			"unknown field",
			ConditionGroup{Logic: LogicAnd, Conditions: []Condition{{Field: "memo", Operator: OperatorContains, Value: "x"}}},
			true,
		},
		{
			"string operator on amount",
			ConditionGroup{Logic: LogicAnd, Conditions: []Condition{{Field: FieldAmount, Operator: OperatorContains, Value: "5"}}},
			true,
		},
		{
			"numeric operator on description",
			ConditionGroup{Logic: LogicAnd, Conditions: []Condition{{Field: FieldDescription, Operator: OperatorGreaterThan, Value: "5"}}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.group.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

package rule

import (
	"errors"
	"fmt"
	"time"
)

var ErrRuleNotFound = errors.New("matching rule not found")

// Field identifies which attribute of an incoming transaction a condition
// inspects.
type Field string

const (
	FieldDescription  Field = "description"
	FieldCounterparty Field = "counterparty"
	FieldMerchantName Field = "merchant_name"
	FieldReference    Field = "reference"
	FieldAmount       Field = "amount"
)

// Operator is the comparison applied between the field value and the
// condition value.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorContains    Operator = "contains"
	OperatorStartsWith  Operator = "starts_with"
	OperatorEndsWith    Operator = "ends_with"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
)

// Logic combines the conditions of a group.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition is a single field comparison. String comparisons are
// case-insensitive unless CaseSensitive is set; numeric operators apply to
// the amount field only.
type Condition struct {
	Field         Field    `json:"field"`
	Operator      Operator `json:"operator"`
	Value         string   `json:"value"`
	CaseSensitive bool     `json:"caseSensitive,omitempty"`
}

// ConditionGroup is the serialized body of a rule: a set of conditions
// combined with AND or OR semantics.
type ConditionGroup struct {
	Logic      Logic       `json:"logic"`
	Conditions []Condition `json:"conditions"`
}

// MatchingRule classifies incoming transactions. A nil LinkedAccountID
// makes the rule global; account-scoped rules always take precedence over
// global ones regardless of priority. Outcome fields left nil leave the
// corresponding attribute unset, so later rules may still fill it.
type MatchingRule struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	LinkedAccountID *string        `json:"linkedAccountId,omitempty"`
	Priority        int            `json:"priority"`
	Enabled         bool           `json:"enabled"`
	Conditions      ConditionGroup `json:"conditions"`
	PropertyID      *string        `json:"propertyId,omitempty"`
	EntryType       *string        `json:"entryType,omitempty"`
	Category        *string        `json:"category,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// CreateMatchingRuleParams contains the parameters for creating a matching rule
type CreateMatchingRuleParams struct {
	Name            string
	LinkedAccountID *string
	Priority        int
	Enabled         bool
	Conditions      ConditionGroup
	PropertyID      *string
	EntryType       *string
	Category        *string
}

var validFields = map[Field]bool{
	FieldDescription:  true,
	FieldCounterparty: true,
	FieldMerchantName: true,
	FieldReference:    true,
	FieldAmount:       true,
}

var stringOperators = map[Operator]bool{
	OperatorEquals:     true,
	OperatorContains:   true,
	OperatorStartsWith: true,
	OperatorEndsWith:   true,
}

var numericOperators = map[Operator]bool{
	OperatorEquals:      true,
	OperatorGreaterThan: true,
	OperatorLessThan:    true,
}

// Validate checks the rule's condition group for structural errors before
// it is persisted. Rules with no conditions never match anything, so an
// empty group is rejected.
func (g ConditionGroup) Validate() error {
	if g.Logic != LogicAnd && g.Logic != LogicOr {
		return fmt.Errorf("invalid logic %q: must be AND or OR", g.Logic)
	}
	if len(g.Conditions) == 0 {
		return errors.New("condition group must contain at least one condition")
	}
	for i, c := range g.Conditions {
		if !validFields[c.Field] {
			return fmt.Errorf("condition %d: unknown field %q", i, c.Field)
		}
		if c.Field == FieldAmount {
			if !numericOperators[c.Operator] {
				return fmt.Errorf("condition %d: operator %q not valid for amount", i, c.Operator)
			}
		} else if !stringOperators[c.Operator] {
			return fmt.Errorf("condition %d: operator %q not valid for field %q", i, c.Operator, c.Field)
		}
	}
	return nil
}

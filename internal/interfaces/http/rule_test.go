package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"rentledger/internal/domain/rule"
)

func existingPropertyRepo() *MockPropertyRepo {
	return &MockPropertyRepo{
		ExistsFunc: func(ctx context.Context, id string) (bool, error) {
			return id == "prop-1", nil
		},
	}
}

func TestHandleCreateRule(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name: "Success",
			body: `{"name":"Rent in","priority":10,
				"conditions":{"logic":"AND","conditions":[{"field":"description","operator":"contains","value":"rent"}]},
				"propertyId":"prop-1","entryType":"INCOME","category":"Rent"}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing Name",
			body:           `{"conditions":{"logic":"AND","conditions":[{"field":"description","operator":"contains","value":"rent"}]}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Empty Conditions",
			body:           `{"name":"r","conditions":{"logic":"AND","conditions":[]}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Invalid Entry Type",
			body: `{"name":"r","conditions":{"logic":"AND","conditions":[{"field":"description","operator":"contains","value":"x"}]},
				"entryType":"TRANSFER"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Category Without Entry Type",
			body: `{"name":"r","conditions":{"logic":"AND","conditions":[{"field":"description","operator":"contains","value":"x"}]},
				"category":"Rent"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Category Outside Vocabulary",
			body: `{"name":"r","conditions":{"logic":"AND","conditions":[{"field":"description","operator":"contains","value":"x"}]},
				"entryType":"EXPENSE","category":"Rent"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Unknown Property",
			body: `{"name":"r","conditions":{"logic":"AND","conditions":[{"field":"description","operator":"contains","value":"x"}]},
				"propertyId":"prop-999"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Numeric Operator On String Field",
			body: `{"name":"r","conditions":{"logic":"AND","conditions":[{"field":"description","operator":"greater_than","value":"10"}]}}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := &MockRuleRepo{
				CreateFunc: func(ctx context.Context, params rule.CreateMatchingRuleParams) (*rule.MatchingRule, error) {
					return &rule.MatchingRule{
						ID:         "rule-1",
						Name:       params.Name,
						Priority:   params.Priority,
						Enabled:    params.Enabled,
						Conditions: params.Conditions,
					}, nil
				},
			}
			handler := NewRuleHandler(rules, existingPropertyRepo())

			req := httptest.NewRequest(http.MethodPost, "/api/rules", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			handler.HandleCreateRule(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v (body %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
		})
	}
}

func TestHandleCreateRule_EnabledDefaultsTrue(t *testing.T) {
	var created rule.CreateMatchingRuleParams
	rules := &MockRuleRepo{
		CreateFunc: func(ctx context.Context, params rule.CreateMatchingRuleParams) (*rule.MatchingRule, error) {
			created = params
			return &rule.MatchingRule{ID: "rule-1"}, nil
		},
	}
	handler := NewRuleHandler(rules, existingPropertyRepo())

	body := `{"name":"r","conditions":{"logic":"OR","conditions":[{"field":"reference","operator":"equals","value":"INV-1"}]}}`
	req := httptest.NewRequest(http.MethodPost, "/api/rules", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.HandleCreateRule(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusCreated)
	}
	if !created.Enabled {
		t.Error("rule should default to enabled when the payload omits the flag")
	}
}

func TestHandleGetRule_NotFound(t *testing.T) {
	handler := NewRuleHandler(&MockRuleRepo{}, existingPropertyRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/rules/rule-999", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "rule-999"})
	rr := httptest.NewRecorder()
	handler.HandleGetRule(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusNotFound)
	}
}

func TestHandleUpdateRule(t *testing.T) {
	var updated *rule.MatchingRule
	rules := &MockRuleRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*rule.MatchingRule, error) {
			return &rule.MatchingRule{ID: id, Name: "old", Priority: 5, Enabled: true}, nil
		},
		UpdateFunc: func(ctx context.Context, r *rule.MatchingRule) error {
			updated = r
			return nil
		},
	}
	handler := NewRuleHandler(rules, existingPropertyRepo())

	body := `{"name":"new name","priority":20,"enabled":false,
		"conditions":{"logic":"AND","conditions":[{"field":"amount","operator":"less_than","value":"0"}]},
		"entryType":"EXPENSE","category":"Maintenance"}`
	req := httptest.NewRequest(http.MethodPut, "/api/rules/rule-1", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "rule-1"})
	rr := httptest.NewRecorder()
	handler.HandleUpdateRule(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	if updated == nil {
		t.Fatal("Update was not called")
	}
	if updated.Name != "new name" || updated.Priority != 20 || updated.Enabled {
		t.Errorf("updated rule = %+v, want name/priority/enabled replaced", updated)
	}
	if updated.EntryType == nil || *updated.EntryType != "EXPENSE" {
		t.Errorf("updated entry type = %v, want EXPENSE", updated.EntryType)
	}
}

func TestHandleDeleteRule(t *testing.T) {
	tests := []struct {
		name           string
		rules          *MockRuleRepo
		expectedStatus int
	}{
		{
			name: "Success",
			rules: &MockRuleRepo{
				DeleteFunc: func(ctx context.Context, id string) error { return nil },
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name: "Not Found",
			rules: &MockRuleRepo{
				DeleteFunc: func(ctx context.Context, id string) error { return rule.ErrRuleNotFound },
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRuleHandler(tt.rules, existingPropertyRepo())

			req := httptest.NewRequest(http.MethodDelete, "/api/rules/rule-1", nil)
			req = mux.SetURLVars(req, map[string]string{"id": "rule-1"})
			rr := httptest.NewRecorder()
			handler.HandleDeleteRule(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}

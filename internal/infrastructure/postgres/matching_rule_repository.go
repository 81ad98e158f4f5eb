package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"rentledger/internal/domain/rule"
)

type MatchingRuleRepository struct {
	db *DB
}

func NewMatchingRuleRepository(db *DB) *MatchingRuleRepository {
	return &MatchingRuleRepository{db: db}
}

const matchingRuleColumns = `id, name, linked_account_id, priority, enabled, conditions,
       property_id, entry_type, category, created_at, updated_at`

func (r *MatchingRuleRepository) Create(ctx context.Context, params rule.CreateMatchingRuleParams) (*rule.MatchingRule, error) {
	if err := params.Conditions.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule conditions: %w", err)
	}
	conditions, err := json.Marshal(params.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize rule conditions: %w", err)
	}

	query := `
		INSERT INTO matching_rules (id, name, linked_account_id, priority, enabled, conditions,
		                            property_id, entry_type, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + matchingRuleColumns

	row := r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.Name, params.LinkedAccountID, params.Priority, params.Enabled,
		conditions, params.PropertyID, params.EntryType, params.Category,
	)

	created, err := scanMatchingRule(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create matching rule: %w", err)
	}
	return created, nil
}

func (r *MatchingRuleRepository) GetByID(ctx context.Context, id string) (*rule.MatchingRule, error) {
	query := `SELECT ` + matchingRuleColumns + ` FROM matching_rules WHERE id = $1`

	found, err := scanMatchingRule(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, rule.ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get matching rule: %w", err)
	}
	return found, nil
}

func (r *MatchingRuleRepository) List(ctx context.Context) ([]*rule.MatchingRule, error) {
	query := `SELECT ` + matchingRuleColumns + ` FROM matching_rules ORDER BY priority, created_at`
	return r.list(ctx, query)
}

// ListForAccount returns enabled rules scoped to the account plus enabled
// global rules. Precedence ordering is the engine's job; this query only
// narrows the set.
func (r *MatchingRuleRepository) ListForAccount(ctx context.Context, linkedAccountID string) ([]*rule.MatchingRule, error) {
	query := `
		SELECT ` + matchingRuleColumns + `
		FROM matching_rules
		WHERE enabled AND (linked_account_id = $1 OR linked_account_id IS NULL)
		ORDER BY priority, created_at
	`
	return r.list(ctx, query, linkedAccountID)
}

func (r *MatchingRuleRepository) list(ctx context.Context, query string, args ...any) ([]*rule.MatchingRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matching rules: %w", err)
	}
	defer rows.Close()

	var rules []*rule.MatchingRule
	for rows.Next() {
		matched, err := scanMatchingRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan matching rule: %w", err)
		}
		rules = append(rules, matched)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matching rules: %w", err)
	}
	return rules, nil
}

func (r *MatchingRuleRepository) Update(ctx context.Context, m *rule.MatchingRule) error {
	if err := m.Conditions.Validate(); err != nil {
		return fmt.Errorf("invalid rule conditions: %w", err)
	}
	conditions, err := json.Marshal(m.Conditions)
	if err != nil {
		return fmt.Errorf("failed to serialize rule conditions: %w", err)
	}

	query := `
		UPDATE matching_rules
		SET name = $1,
		    linked_account_id = $2,
		    priority = $3,
		    enabled = $4,
		    conditions = $5,
		    property_id = $6,
		    entry_type = $7,
		    category = $8,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $9
	`

	result, err := r.db.ExecContext(ctx, query,
		m.Name, m.LinkedAccountID, m.Priority, m.Enabled, conditions,
		m.PropertyID, m.EntryType, m.Category, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update matching rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rule update: %w", err)
	}
	if affected == 0 {
		return rule.ErrRuleNotFound
	}
	return nil
}

func (r *MatchingRuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matching_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete matching rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rule delete: %w", err)
	}
	if affected == 0 {
		return rule.ErrRuleNotFound
	}
	return nil
}

func scanMatchingRule(row rowScanner) (*rule.MatchingRule, error) {
	var m rule.MatchingRule
	var linkedAccountID, propertyID, entryType, category sql.NullString
	var conditions []byte

	err := row.Scan(
		&m.ID, &m.Name, &linkedAccountID, &m.Priority, &m.Enabled, &conditions,
		&propertyID, &entryType, &category, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(conditions, &m.Conditions); err != nil {
		return nil, fmt.Errorf("failed to deserialize rule conditions: %w", err)
	}
	if linkedAccountID.Valid {
		m.LinkedAccountID = &linkedAccountID.String
	}
	if propertyID.Valid {
		m.PropertyID = &propertyID.String
	}
	if entryType.Valid {
		m.EntryType = &entryType.String
	}
	if category.Valid {
		m.Category = &category.String
	}
	return &m, nil
}

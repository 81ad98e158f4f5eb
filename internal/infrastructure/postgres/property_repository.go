package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rentledger/internal/domain/property"
)

type PropertyRepository struct {
	db *DB
}

func NewPropertyRepository(db *DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*property.Property, error) {
	query := `
		SELECT id, name, address, created_at, updated_at
		FROM properties
		WHERE id = $1
	`

	var p property.Property
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Address, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &p, nil
}

func (r *PropertyRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM properties WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check property existence: %w", err)
	}
	return exists, nil
}

func (r *PropertyRepository) List(ctx context.Context) ([]*property.Property, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, address, created_at, updated_at FROM properties ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var properties []*property.Property
	for rows.Next() {
		var p property.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}
	return properties, nil
}

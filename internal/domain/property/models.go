package property

import (
	"context"
	"time"
)

// Property is a rental property that ledger entries are booked against.
// CRUD for properties lives outside this service; the ingestion pipeline
// only needs to resolve and validate references.
type Property struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository defines the interface for property data access
type Repository interface {
	GetByID(ctx context.Context, id string) (*Property, error)
	// Exists reports whether a property with the given id exists.
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*Property, error)
}

package rule

import "context"

// Repository defines the interface for matching rule data access
type Repository interface {
	Create(ctx context.Context, params CreateMatchingRuleParams) (*MatchingRule, error)
	GetByID(ctx context.Context, id string) (*MatchingRule, error)
	List(ctx context.Context) ([]*MatchingRule, error)
	// ListForAccount returns all enabled rules applicable to the given
	// account: rules scoped to that account plus global rules.
	ListForAccount(ctx context.Context, linkedAccountID string) ([]*MatchingRule, error)
	Update(ctx context.Context, r *MatchingRule) error
	Delete(ctx context.Context, id string) error
}

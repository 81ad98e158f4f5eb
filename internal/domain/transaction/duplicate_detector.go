package transaction

import (
	"context"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
)

const (
	// FuzzyDateWindow is the calendar-day window (either side of the
	// incoming date) scanned for fuzzy candidates.
	FuzzyDateWindow = 1

	// FuzzyCandidateLimit bounds the newest-first candidate scan. A genuine
	// duplicate outside this window is missed; the storage uniqueness
	// constraint still protects the exact tier.
	FuzzyCandidateLimit = 100

	// FuzzySimilarityThreshold is the minimum description similarity (in
	// percent) for a fuzzy duplicate verdict.
	FuzzySimilarityThreshold = 80.0
)

// MatchType distinguishes the two duplicate tiers.
type MatchType string

const (
	MatchTypeExact MatchType = "EXACT"
	MatchTypeFuzzy MatchType = "FUZZY"
)

// DuplicateCheckResult is the verdict for one incoming transaction.
type DuplicateCheckResult struct {
	IsDuplicate bool
	MatchType   MatchType
	Matched     *RawTransaction
}

// DuplicateDetector decides whether an incoming raw transaction already
// exists. Tier 1 is the authoritative exact (account, external id) lookup;
// tier 2 is a fuzzy content-similarity heuristic.
type DuplicateDetector struct {
	repo Repository
}

// NewDuplicateDetector creates a new duplicate detector
func NewDuplicateDetector(repo Repository) *DuplicateDetector {
	return &DuplicateDetector{repo: repo}
}

// Check runs the two-tier algorithm in order.
func (d *DuplicateDetector) Check(
	ctx context.Context,
	linkedAccountID, externalID string,
	amount float64,
	description string,
	date time.Time,
) (*DuplicateCheckResult, error) {
	// Tier 1: exact external id match
	existing, err := d.repo.GetByExternalID(ctx, linkedAccountID, externalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &DuplicateCheckResult{
			IsDuplicate: true,
			MatchType:   MatchTypeExact,
			Matched:     existing,
		}, nil
	}

	// Tier 2: fuzzy match on same amount, date +/- 1 calendar day
	day := date.Truncate(24 * time.Hour)
	criteria := FuzzyCandidateCriteria{
		LinkedAccountID: linkedAccountID,
		Amount:          amount,
		DateLowerBound:  day.AddDate(0, 0, -FuzzyDateWindow),
		DateUpperBound:  day.AddDate(0, 0, FuzzyDateWindow+1), // exclusive upper bound
		Limit:           FuzzyCandidateLimit,
	}

	candidates, err := d.repo.FindFuzzyCandidates(ctx, criteria)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		if DescriptionSimilarity(description, candidate.Description) >= FuzzySimilarityThreshold {
			return &DuplicateCheckResult{
				IsDuplicate: true,
				MatchType:   MatchTypeFuzzy,
				Matched:     candidate,
			}, nil
		}
	}

	return &DuplicateCheckResult{IsDuplicate: false}, nil
}

// DescriptionSimilarity returns the normalized edit-distance similarity of
// two descriptions as a percentage: (maxLen - distance) / maxLen * 100.
// Two empty strings are 100% similar; one empty and one non-empty are 0%.
func DescriptionSimilarity(a, b string) float64 {
	a = normalizeDescription(a)
	b = normalizeDescription(b)

	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}

	dist := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-dist) / float64(maxLen) * 100
}

// normalizeDescription lowercases and collapses all whitespace runs to a
// single space.
func normalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

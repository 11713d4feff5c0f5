package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/HendryAvila/linkmap/internal/mapping"
)

// DefaultSearchLimit caps Search results when the caller passes no limit.
const DefaultSearchLimit = 10

// Match tiers, best first.
const (
	MatchExact        = "exact"
	MatchIDPrefix     = "id_prefix"
	MatchIDSubstring  = "id_substring"
	MatchDisplayName  = "display_name"
	matchTierNotFound = -1
)

var matchNames = []string{MatchExact, MatchIDPrefix, MatchIDSubstring, MatchDisplayName}

// SearchResult is one ranked hit.
type SearchResult struct {
	mapping.Mapping
	Address string `json:"address"`
	Match   string `json:"match"`
}

// Search finds mappings whose logical id or display name contains query,
// case-insensitively. Exact id matches rank first, then id prefixes, then
// id substrings, then display-name matches; within a tier larger
// documents come first, then ids in ascending order.
func (r *Resolver) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, invalidf("search query is required")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFresh(ctx); err != nil {
		return nil, err
	}

	type hit struct {
		m    mapping.Mapping
		tier int
	}
	var hits []hit
	for _, m := range r.store.All() {
		if tier := matchTier(m, q); tier != matchTierNotFound {
			hits = append(hits, hit{m: m, tier: tier})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.m.WordCount != b.m.WordCount {
			return a.m.WordCount > b.m.WordCount
		}
		return a.m.LogicalID < b.m.LogicalID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = SearchResult{Mapping: h.m, Address: h.m.Address(), Match: matchNames[h.tier]}
	}
	return out, nil
}

func matchTier(m mapping.Mapping, q string) int {
	id := strings.ToLower(m.LogicalID)
	switch {
	case id == q:
		return 0
	case strings.HasPrefix(id, q):
		return 1
	case strings.Contains(id, q):
		return 2
	case strings.Contains(strings.ToLower(m.DisplayName), q):
		return 3
	}
	return matchTierNotFound
}

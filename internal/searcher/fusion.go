package searcher

import (
	"fmt"
	"strings"

	"github.com/dshills/archivesearch/internal/query"
	"github.com/dshills/archivesearch/internal/storage"
)

// intermediateLimit sizes each hybrid candidate list independently of the page:
// max(MinIntermediateLimit, pageSize*CandidateMultiplier)
func intermediateLimit(pageSize int, cfg Config) int {
	return max(cfg.MinIntermediateLimit, pageSize*cfg.CandidateMultiplier)
}

// maxDistance converts a similarity threshold into the cosine distance bound
// candidates must stay strictly below
func maxDistance(threshold float64) float64 {
	return 1 - threshold
}

// rrfScore renders the Reciprocal Rank Fusion score over nullable rank columns:
// the sum of 1/(k + rank) for each rank present. A missing rank adds 0.
func rrfScore(d storage.Dialect, k query.Param, ranks ...string) string {
	terms := make([]string, len(ranks))
	for i, rank := range ranks {
		terms[i] = fmt.Sprintf("COALESCE(1.0 / %s, 0)", d.Float(fmt.Sprintf("%s + %s", k, rank)))
	}
	return strings.Join(terms, " + ")
}

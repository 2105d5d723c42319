// Package types provides shared type definitions for the archive search engine.
//
// This package defines the domain types used across components: the Article
// retrieval unit, calendar-date helpers, and the error taxonomy returned by the
// search surface.
//
// # Articles
//
// Article is an immutable record read from the archive. Optional fields use the
// empty string for "absent":
//
//	article := types.Article{
//	    ID:          "0f8e4a4c-3b7e-4c55-9d4f-3f2b2f2f9b10",
//	    Publication: "felix",
//	    IssueNo:     873,
//	    PageNo:      4,
//	    Date:        types.MustParseDate("1990-10-12"),
//	    Headline:    "Union elections",
//	    Text:        body,
//	}
//
// Dates are calendar dates held as time.Time at midnight UTC. Use ParseDate and
// NormalizeDate rather than constructing them by hand.
//
// # Errors
//
// Failures surfaced to callers wrap one of four kinds:
//
//	ErrInvalidInput         // 400: rejected before any I/O
//	ErrNotFound             // 404: article lookups
//	ErrEmbeddingUnavailable // 503: semantic and hybrid search only
//	ErrRetrievalFailed      // 500: storage failure, details logged only
//
// Check with errors.Is and map to a status with StatusCode:
//
//	if errors.Is(err, types.ErrEmbeddingUnavailable) {
//	    // offer keyword search instead
//	}
package types

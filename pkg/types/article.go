package types

import (
	"errors"

	"github.com/google/uuid"
)

// Article represents a newspaper or magazine article in the archive
type Article struct {
	// Identification
	ID          string `json:"id"`
	Publication string `json:"publication"` // e.g. "felix", "phoenix"
	IssueNo     int    `json:"issue_no"`
	PageNo      int    `json:"page_no"` // 1-indexed

	// Date is the publication date at midnight UTC
	Date Date `json:"date"`

	// Optional metadata, empty when unknown
	Headline  string `json:"headline,omitempty"`
	Strapline string `json:"strapline,omitempty"`
	Author    string `json:"author,omitempty"`
	Category  string `json:"category,omitempty"`

	Text string `json:"text"`

	// Scoring, only set on search results.
	// Keyword mode: lexical relevance (higher is better).
	// Semantic mode: cosine distance (lower is better).
	// Hybrid mode: RRF fusion score (higher is better).
	Score       float64 `json:"score,omitempty"`
	KeywordRank int     `json:"keyword_rank,omitempty"` // hybrid only, 0 when absent from the keyword candidates
	VectorRank  int     `json:"vector_rank,omitempty"`  // hybrid only, 0 when absent from the vector candidates
}

// Validate checks the fields every stored article must have
func (a *Article) Validate() error {
	if a.ID == "" {
		return ErrInvalidArticleID
	}
	if a.Publication == "" {
		return ErrMissingPublication
	}
	if a.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// ValidateArticleID checks that id is a version 4 UUID
func ValidateArticleID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ErrInvalidArticleID
	}
	if parsed.Version() != 4 {
		return ErrInvalidArticleID
	}
	return nil
}

// Domain errors for article validation
var (
	ErrInvalidArticleID   = errors.New("invalid article ID format")
	ErrMissingPublication = errors.New("publication is required")
	ErrMissingDate        = errors.New("article date is required")
)

// YearPrevalence is the share of a year's articles that are relevant to a topic
type YearPrevalence struct {
	Year       int     `json:"year"`
	Prevalence float64 `json:"prevalence"` // relevant / total, in [0, 1]
}

package domain

import "time"

// HistoricalFix is a past (issue, merged fix) pair kept for retrieval.
// Unique per (IssueNumber, FixNumber, Repo); immutable once learned except
// for re-embedding when the configured model changes.
type HistoricalFix struct {
	ID            int64     `json:"id"`
	Repo          string    `json:"repo"`
	IssueNumber   int       `json:"issue_number"`
	FixNumber     int       `json:"fix_number"`
	IssueTitle    string    `json:"issue_title"`
	IssueBody     string    `json:"issue_body"`
	IssueLabels   []string  `json:"issue_labels"`
	Diff          string    `json:"diff"`
	ChangedFiles  []string  `json:"changed_files"`
	FixPatterns   []string  `json:"fix_patterns"`
	Subsystem     string    `json:"subsystem,omitempty"`
	ReviewOutcome string    `json:"review_outcome,omitempty"`
	ContentHash   string    `json:"content_hash"`
	CreatedAt     time.Time `json:"created_at"`
}

// Text returns the content the fix corpus is embedded over.
func (f HistoricalFix) Text() string {
	text := f.IssueTitle + "\n" + f.IssueBody
	for _, l := range f.IssueLabels {
		text += "\n" + l
	}
	return text
}

// SimilarFix is one retrieval result: a historical fix with the cosine
// similarity of its embedding to the query issue, and a diff bounded for
// response size.
type SimilarFix struct {
	Fix           HistoricalFix `json:"fix"`
	Similarity    float64       `json:"similarity"`
	TruncatedDiff string        `json:"truncated_diff"`
}

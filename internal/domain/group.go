package domain

import "time"

// GroupStatus represents the export lifecycle of a group.
type GroupStatus string

const (
	GroupStatusPending  GroupStatus = "pending"
	GroupStatusExported GroupStatus = "exported"
)

// GroupMember is one signal's membership in a group, carrying the pairwise
// similarity that admitted it.
type GroupMember struct {
	SignalID   int64   `json:"signal_id"`
	Similarity float64 `json:"similarity"`
}

// GroupCandidate is a set of related signals produced by a grouping pass.
// Every persisted group has at least two members; singletons are reported
// through Ungrouped instead.
type GroupCandidate struct {
	ID             int64         `json:"id"`
	Members        []GroupMember `json:"members"`
	CanonicalID    int64         `json:"canonical_id"`
	AvgSimilarity  float64       `json:"avg_similarity"`
	IsCrossCutting bool          `json:"is_cross_cutting"`
	Status         GroupStatus   `json:"status"`
	ExternalID     *string       `json:"external_id,omitempty"` // PM tool identifier once exported
	ExternalURL    *string       `json:"external_url,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Ungrouped records a signal that no grouping pass could place, with the
// reason it was left out.
type Ungrouped struct {
	SignalID int64  `json:"signal_id"`
	Reason   string `json:"reason"`
}

// GroupingResult is the full outcome of one grouping pass: every input
// signal is accounted for either in a group or in Ungrouped.
type GroupingResult struct {
	Groups    []GroupCandidate `json:"groups"`
	Ungrouped []Ungrouped      `json:"ungrouped"`
}

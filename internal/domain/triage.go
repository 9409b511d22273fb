package domain

// TriageCategory is the discrete outcome of scoring one issue.
type TriageCategory string

const (
	TriageBug      TriageCategory = "bug"
	TriageConfig   TriageCategory = "config"
	TriageFeature  TriageCategory = "feature"
	TriageQuestion TriageCategory = "question"
	TriageUnclear  TriageCategory = "unclear"
)

// TriageFactor records one scoring rule and whether it fired. The ordered
// factors slice makes the final confidence auditable.
type TriageFactor struct {
	Name    string  `json:"name"`
	Weight  float64 `json:"weight"`
	Matched bool    `json:"matched"`
	Detail  string  `json:"detail,omitempty"`
}

// TriageResult is deterministic given identical issue text, labels and
// metadata: confidence is the 0.5 baseline plus all matched weights,
// clamped to [0,1].
type TriageResult struct {
	Result     TriageCategory `json:"result"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
	Factors    []TriageFactor `json:"factors"`
}

package domain

// ItemError records a single skipped item inside a batch run.
type ItemError struct {
	SourceID string `json:"source_id,omitempty"`
	Stage    string `json:"stage"`
	Message  string `json:"message"`
}

// RunSummary is the structured outcome of a full pipeline run. It is always
// returned, even on partial failure, so partial success stays observable.
type RunSummary struct {
	Processed  int         `json:"processed"`
	Succeeded  int         `json:"succeeded"`
	Skipped    int         `json:"skipped"`
	Fallbacks  int         `json:"fallbacks"` // items degraded from semantic to keyword matching
	Duplicates int         `json:"duplicates"`
	Errors     []ItemError `json:"errors,omitempty"`
}

// RecordError marks one item as skipped with the stage and cause.
func (s *RunSummary) RecordError(sourceID, stage string, err error) {
	s.Skipped++
	s.Errors = append(s.Errors, ItemError{
		SourceID: sourceID,
		Stage:    stage,
		Message:  err.Error(),
	})
}

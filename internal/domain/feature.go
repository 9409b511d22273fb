package domain

import "time"

// Feature is an entry in the product feature taxonomy, derived from
// documentation by an extraction process outside this pipeline. The
// classification core treats features as read-only candidates.
type Feature struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	Priority          string    `json:"priority"`
	RelatedKeywords   []string  `json:"related_keywords"`
	DocumentationURLs []string  `json:"documentation_urls"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Text returns the content used when matching signals against the feature.
func (f Feature) Text() string {
	text := f.Name + "\n" + f.Description
	for _, kw := range f.RelatedKeywords {
		text += "\n" + kw
	}
	return text
}

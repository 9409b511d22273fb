package domain

import "time"

// Source identifies where a signal originated.
type Source string

const (
	SourceDiscord Source = "discord"
	SourceGitHub  Source = "github"
	SourceSlack   Source = "slack"
)

// Signal is the normalized unit of input from any source. Chat threads,
// issues and tracker comments all arrive in this shape; the pipeline never
// talks to Discord/GitHub/Slack wire protocols directly.
type Signal struct {
	ID        int64             `json:"id"`
	Source    Source            `json:"source"`
	SourceID  string            `json:"source_id"` // unique within its source
	Permalink string            `json:"permalink"`
	Title     string            `json:"title,omitempty"`
	Body      string            `json:"body"`
	Labels    []string          `json:"labels,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Text returns the content that embedding and keyword comparison operate on.
// Title and body are concatenated so short thread titles still contribute.
func (s Signal) Text() string {
	if s.Title == "" {
		return s.Body
	}
	return s.Title + "\n" + s.Body
}

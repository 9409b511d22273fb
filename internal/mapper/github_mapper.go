package mapper

import (
	"context"
	"fmt"
	"time"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/service"
)

// GitHubIssueMapper handles "issues" webhook deliveries. Other event
// families (pushes, check runs) carry no user-reported signal and are
// rejected so the delivery is not silently swallowed.
type GitHubIssueMapper struct{}

func NewGitHubIssueMapper() *GitHubIssueMapper {
	return &GitHubIssueMapper{}
}

func (m *GitHubIssueMapper) Map(ctx context.Context, body map[string]any, headers map[string]string) (service.SignalIngestParams, error) {
	event := headers["X-GitHub-Event"]
	if event != "issues" {
		return service.SignalIngestParams{}, fmt.Errorf("unsupported github event %q", event)
	}

	issue := mapField(body, "issue")
	if issue == nil {
		return service.SignalIngestParams{}, fmt.Errorf("github issues payload missing issue object")
	}

	repo := stringField(mapField(body, "repository"), "full_name")
	number, ok := issue["number"].(float64)
	if repo == "" || !ok {
		return service.SignalIngestParams{}, fmt.Errorf("github issues payload missing repository or issue number")
	}

	var labels []string
	if raw, ok := issue["labels"].([]any); ok {
		for _, l := range raw {
			obj, ok := l.(map[string]any)
			if !ok {
				continue
			}
			if name := stringField(obj, "name"); name != "" {
				labels = append(labels, name)
			}
		}
	}

	params := service.SignalIngestParams{
		Source:    domain.SourceGitHub,
		SourceID:  fmt.Sprintf("%s#%d", repo, int64(number)),
		Permalink: stringField(issue, "html_url"),
		Title:     stringField(issue, "title"),
		Body:      stringField(issue, "body"),
		Labels:    labels,
		Metadata:  map[string]string{"action": stringField(body, "action"), "repo": repo},
	}
	if t, err := time.Parse(time.RFC3339, stringField(issue, "created_at")); err == nil {
		params.CreatedAt = &t
	}
	if t, err := time.Parse(time.RFC3339, stringField(issue, "updated_at")); err == nil {
		params.UpdatedAt = &t
	}
	return params, nil
}

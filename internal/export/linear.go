package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"signalhub.app/correlator/internal/faults"
)

const linearEndpoint = "https://api.linear.app/graphql"

const issueCreateMutation = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { id identifier url }
  }
}`

const labelQuery = `query Labels($teamId: String!) {
  team(id: $teamId) {
    labels { nodes { id name } }
  }
}`

// LinearTarget creates issues in a Linear team via its GraphQL API.
type LinearTarget struct {
	apiKey   string
	teamID   string
	endpoint string
	client   *http.Client
	logger   *slog.Logger

	mu       sync.Mutex
	labelIDs map[string]string // label name -> Linear label id, fetched once
}

func NewLinearTarget(apiKey, teamID string, logger *slog.Logger) *LinearTarget {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinearTarget{
		apiKey:   apiKey,
		teamID:   teamID,
		endpoint: linearEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

func (t *LinearTarget) Create(ctx context.Context, payload Payload) (Result, error) {
	input := map[string]any{
		"teamId":      t.teamID,
		"title":       payload.Title,
		"description": payload.Description,
	}
	if ids := t.resolveLabels(ctx, payload.Labels); len(ids) > 0 {
		input["labelIds"] = ids
	}

	var resp struct {
		IssueCreate struct {
			Success bool `json:"success"`
			Issue   struct {
				ID         string `json:"id"`
				Identifier string `json:"identifier"`
				URL        string `json:"url"`
			} `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := t.query(ctx, issueCreateMutation, map[string]any{"input": input}, &resp); err != nil {
		return Result{}, err
	}
	if !resp.IssueCreate.Success {
		return Result{}, &faults.TransientError{Op: "linear.issueCreate", Err: fmt.Errorf("issue create reported failure")}
	}

	return Result{
		ExternalID:  resp.IssueCreate.Issue.Identifier,
		ExternalURL: resp.IssueCreate.Issue.URL,
	}, nil
}

// resolveLabels maps label names to Linear label ids. Unknown names are
// dropped; a lookup failure only loses labels, never the export.
func (t *LinearTarget) resolveLabels(ctx context.Context, names []string) []string {
	if len(names) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.labelIDs == nil {
		var resp struct {
			Team struct {
				Labels struct {
					Nodes []struct {
						ID   string `json:"id"`
						Name string `json:"name"`
					} `json:"nodes"`
				} `json:"labels"`
			} `json:"team"`
		}
		if err := t.query(ctx, labelQuery, map[string]any{"teamId": t.teamID}, &resp); err != nil {
			t.logger.WarnContext(ctx, "failed to fetch linear labels, exporting without labels", "error", err)
			return nil
		}
		t.labelIDs = make(map[string]string, len(resp.Team.Labels.Nodes))
		for _, node := range resp.Team.Labels.Nodes {
			t.labelIDs[node.Name] = node.ID
		}
	}

	var ids []string
	for _, name := range names {
		if id, ok := t.labelIDs[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *LinearTarget) query(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return fmt.Errorf("marshaling graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return &faults.TransientError{Op: "linear.query", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &faults.TransientError{Op: "linear.query", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &faults.QuotaError{Op: "linear.query", ResetAt: time.Now().Add(time.Hour), Err: fmt.Errorf("rate limited: %s", raw)}
	case resp.StatusCode >= 500:
		return &faults.TransientError{Op: "linear.query", Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("linear api status %d: %s", resp.StatusCode, raw)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decoding graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("linear api error: %s", envelope.Errors[0].Message)
	}
	return json.Unmarshal(envelope.Data, out)
}

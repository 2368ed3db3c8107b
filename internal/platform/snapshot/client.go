package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/govairn/govairn-backend/internal/platform/logger"
)

const DefaultEndpoint = "https://hub.snapshot.org/graphql"

// MaxPageSize is the hub's cap on `first`.
const MaxPageSize = 1000

var ErrSpaceNotFound = errors.New("snapshot space not found")

// Client reads governance data from the Snapshot GraphQL hub.
type Client interface {
	Proposals(ctx context.Context, space, state string, first, skip int) ([]Proposal, error)
	Space(ctx context.Context, space string) (Space, error)
}

type client struct {
	log        *logger.Logger
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger, endpoint, apiKey string, timeout time.Duration) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &client{
		log:        log.With("service", "SnapshotClient"),
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

const proposalsQuery = `query Proposals($space: String!, $state: String!, $first: Int!, $skip: Int!) {
  proposals(
    first: $first
    skip: $skip
    where: { space: $space, state: $state }
    orderBy: "created"
    orderDirection: desc
  ) {
    id
    title
    body
    choices
    start
    end
    state
    link
    space { id name }
  }
}`

const spaceQuery = `query Space($id: String!) {
  space(id: $id) { id name }
}`

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse[T any] struct {
	Data   T          `json:"data"`
	Errors []gqlError `json:"errors"`
}

// HTTPError is a non-2xx reply from the hub.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string       { return fmt.Sprintf("snapshot http %d: %s", e.StatusCode, e.Body) }
func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) Proposals(ctx context.Context, space, state string, first, skip int) ([]Proposal, error) {
	if !ValidState(state) {
		return nil, fmt.Errorf("snapshot: invalid state %q", state)
	}
	if first <= 0 || first > MaxPageSize {
		first = MaxPageSize
	}
	if skip < 0 {
		skip = 0
	}
	var out gqlResponse[struct {
		Proposals []Proposal `json:"proposals"`
	}]
	err := c.post(ctx, gqlRequest{
		Query: proposalsQuery,
		Variables: map[string]any{
			"space": space,
			"state": state,
			"first": first,
			"skip":  skip,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("snapshot proposals: %s", out.Errors[0].Message)
	}
	return out.Data.Proposals, nil
}

func (c *client) Space(ctx context.Context, space string) (Space, error) {
	var out gqlResponse[struct {
		Space *Space `json:"space"`
	}]
	err := c.post(ctx, gqlRequest{Query: spaceQuery, Variables: map[string]any{"id": space}}, &out)
	if err != nil {
		return Space{}, err
	}
	if len(out.Errors) > 0 {
		return Space{}, fmt.Errorf("snapshot space: %s", out.Errors[0].Message)
	}
	if out.Data.Space == nil {
		return Space{}, fmt.Errorf("%w: %s", ErrSpaceNotFound, space)
	}
	return *out.Data.Space, nil
}

func (c *client) post(ctx context.Context, body gqlRequest, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("snapshot request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("snapshot read: %w", err)
	}
	c.log.Debug("Snapshot query", "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(payload)}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("snapshot decode: %w", err)
	}
	return nil
}

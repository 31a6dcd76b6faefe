package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// graphQLRequest is the JSON body posted to the Admin GraphQL endpoint.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLError is a single error entry in a GraphQL response.
type graphQLError struct {
	Message string `json:"message"`
}

// graphQLResponse is the envelope every GraphQL response arrives in. Data is
// kept raw so each caller can decode into its own typed view.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// Client is an Admin GraphQL API client bound to a single store.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a GraphQL client from the configuration.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	return &Client{
		endpoint:   cfg.GraphQLEndpoint(),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		logger:     logger,
	}
}

// Execute posts a GraphQL document and decodes the data payload into out.
// Response-level GraphQL errors are returned as a single wrapped error;
// out may be nil when the caller only cares about success.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("graphql request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var envelope graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode graphql response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("graphql errors: %s", strings.Join(messages, "; "))
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode graphql data: %w", err)
		}
	}

	return nil
}

package bulk_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"country-feed-sync/feature/shopify"
	"country-feed-sync/feature/shopify/bulk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// instantSleep skips all poll delays while still honoring cancellation.
func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// scriptedAPI replays canned GraphQL responses: the first request (the
// submission) gets submitResponse, subsequent requests walk pollResponses.
type scriptedAPI struct {
	submitResponse string
	pollResponses  []string
	calls          int
}

func (s *scriptedAPI) handler(w http.ResponseWriter, r *http.Request) {
	defer func() { s.calls++ }()
	if s.calls == 0 {
		fmt.Fprint(w, s.submitResponse)
		return
	}
	idx := s.calls - 1
	if idx >= len(s.pollResponses) {
		idx = len(s.pollResponses) - 1
	}
	fmt.Fprint(w, s.pollResponses[idx])
}

func newTestRunner(t *testing.T, handler http.HandlerFunc) *bulk.Runner {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := shopify.Config{
		Endpoint:       server.URL,
		TimeoutSeconds: 5,
		TempDir:        t.TempDir(),
	}
	client := shopify.NewClient(cfg, zap.NewNop())
	return bulk.NewRunner(client, cfg, zap.NewNop()).WithSleep(instantSleep)
}

const acceptedSubmit = `{"data":{"bulkOperationRunQuery":{"bulkOperation":{"id":"gid://shopify/BulkOperation/1","status":"CREATED"},"userErrors":[]}}}`

func pollResponse(status, url string) string {
	body := map[string]any{
		"data": map[string]any{
			"currentBulkOperation": map[string]any{
				"id":          "gid://shopify/BulkOperation/1",
				"status":      status,
				"errorCode":   "",
				"objectCount": "42",
				"url":         url,
			},
		},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func TestSubmit_UserErrorsFailFast(t *testing.T) {
	runner := newTestRunner(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"bulkOperationRunQuery":{"bulkOperation":null,"userErrors":[{"field":["query"],"message":"Invalid bulk query"}]}}}`)
	})

	_, err := runner.Submit(context.Background(), "{ broken }")
	require.Error(t, err)

	var subErr *bulk.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Contains(t, subErr.Errors, "Invalid bulk query")
}

func TestAwait_PollsUntilCompleted(t *testing.T) {
	api := &scriptedAPI{
		submitResponse: acceptedSubmit,
		pollResponses: []string{
			pollResponse("CREATED", ""),
			pollResponse("RUNNING", ""),
			pollResponse("RUNNING", ""),
			pollResponse("COMPLETED", "https://example.com/result.jsonl"),
		},
	}
	runner := newTestRunner(t, api.handler)

	_, err := runner.Submit(context.Background(), "{ productVariants { edges { node { id } } } }")
	require.NoError(t, err)

	job, err := runner.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bulk.StatusCompleted, job.Status)
	assert.Equal(t, "https://example.com/result.jsonl", job.URL)
	assert.Equal(t, int64(42), job.ObjectCount)
	assert.Equal(t, 5, api.calls) // 1 submit + 4 polls
}

func TestAwait_FailedJobCarriesErrorCode(t *testing.T) {
	failed := `{"data":{"currentBulkOperation":{"id":"gid://shopify/BulkOperation/1","status":"FAILED","errorCode":"ACCESS_DENIED","objectCount":"0","url":""}}}`
	api := &scriptedAPI{submitResponse: acceptedSubmit, pollResponses: []string{failed}}
	runner := newTestRunner(t, api.handler)

	_, err := runner.Submit(context.Background(), "{}")
	require.NoError(t, err)

	_, err = runner.Await(context.Background())
	require.Error(t, err)

	var jobErr *bulk.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, bulk.StatusFailed, jobErr.Status)
	assert.Equal(t, "ACCESS_DENIED", jobErr.Code)
}

func TestAwait_CancellationAborts(t *testing.T) {
	api := &scriptedAPI{
		submitResponse: acceptedSubmit,
		pollResponses:  []string{pollResponse("RUNNING", "")},
	}
	runner := newTestRunner(t, api.handler)

	_, err := runner.Submit(context.Background(), "{}")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = runner.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NoResultIsNotAnError(t *testing.T) {
	api := &scriptedAPI{
		submitResponse: acceptedSubmit,
		pollResponses:  []string{pollResponse("COMPLETED", "")},
	}
	runner := newTestRunner(t, api.handler)

	_, err := runner.Run(context.Background(), "{}")
	assert.ErrorIs(t, err, bulk.ErrNoResult)
}

func TestDownload_WritesResultFile(t *testing.T) {
	const payload = "{\"id\":\"gid://shopify/ProductVariant/1\"}\n"
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer files.Close()

	runner := newTestRunner(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, acceptedSubmit)
	})

	path, err := runner.Download(context.Background(), files.URL)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, string(content))
	assert.True(t, strings.HasSuffix(path, ".jsonl"))
}

func TestDownload_Non2xxIsFatal(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer files.Close()

	runner := newTestRunner(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, acceptedSubmit)
	})

	_, err := runner.Download(context.Background(), files.URL)
	require.Error(t, err)
	assert.False(t, errors.Is(err, bulk.ErrNoResult))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, bulk.StatusCreated.Terminal())
	assert.False(t, bulk.StatusRunning.Terminal())
	assert.True(t, bulk.StatusCompleted.Terminal())
	assert.True(t, bulk.StatusFailed.Terminal())
	assert.True(t, bulk.StatusCanceled.Terminal())
}

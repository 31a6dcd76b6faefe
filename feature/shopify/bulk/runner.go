package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"country-feed-sync/feature/shopify"

	"go.uber.org/zap"
)

// Status is the lifecycle state of a bulk operation as reported by the API.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCanceled  Status = "CANCELED"
)

// Terminal reports whether the status ends the job lifecycle.
func (s Status) Terminal() bool {
	return s != StatusCreated && s != StatusRunning
}

// Job is the runner's view of one bulk operation. It is created by Submit,
// mutated only by polling and owned by the runner for the job's duration.
type Job struct {
	ID          string
	Status      Status
	ErrorCode   string
	ObjectCount int64
	URL         string
}

// ErrNoResult is returned when a bulk operation completes without a result
// URL: the query matched zero records. Callers must treat this as a valid,
// empty outcome, not a failure.
var ErrNoResult = errors.New("bulk operation completed with no result")

// SubmissionError carries user-level validation errors reported at submit
// time, before any job runs.
type SubmissionError struct {
	Errors []string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("bulk operation rejected: %v", e.Errors)
}

// JobError is a remote-reported execution failure of a running bulk job.
type JobError struct {
	Status Status
	Code   string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("bulk operation %s (error code %s)", e.Status, e.Code)
}

// SleepFunc waits for the given duration or until the context is canceled.
// Injected so polling is testable without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Runner drives a bulk export job to completion: submit, poll until a
// terminal status, download the result stream. Only one bulk job may be
// outstanding at a time against the store's job slot, so the runner has no
// concurrency of its own and blocks the caller for the job's lifetime.
type Runner struct {
	client       *shopify.Client
	downloader   *http.Client
	tempDir      string
	pollInterval time.Duration
	initialDelay time.Duration
	sleep        SleepFunc
	logger       *zap.Logger
}

// NewRunner creates a bulk job runner from the Shopify configuration.
func NewRunner(client *shopify.Client, cfg shopify.Config, logger *zap.Logger) *Runner {
	pollInterval := cfg.PollIntervalSeconds
	if pollInterval <= 0 {
		pollInterval = 30
	}
	initialDelay := cfg.PollInitialDelaySeconds
	if initialDelay < 0 {
		initialDelay = 10
	}
	downloadTimeout := cfg.DownloadTimeoutSeconds
	if downloadTimeout <= 0 {
		downloadTimeout = 300
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Runner{
		client:       client,
		downloader:   &http.Client{Timeout: time.Duration(downloadTimeout) * time.Second},
		tempDir:      tempDir,
		pollInterval: time.Duration(pollInterval) * time.Second,
		initialDelay: time.Duration(initialDelay) * time.Second,
		sleep:        defaultSleep,
		logger:       logger,
	}
}

// WithSleep replaces the poll sleep function. Used in tests.
func (r *Runner) WithSleep(sleep SleepFunc) *Runner {
	r.sleep = sleep
	return r
}

type submitView struct {
	BulkOperationRunQuery struct {
		BulkOperation struct {
			ID     string `json:"id"`
			Status Status `json:"status"`
		} `json:"bulkOperation"`
		UserErrors []struct {
			Field   []string `json:"field"`
			Message string   `json:"message"`
		} `json:"userErrors"`
	} `json:"bulkOperationRunQuery"`
}

// Submit starts a bulk operation for the given export document. User-level
// validation errors fail fast with a SubmissionError; this is distinct from
// job execution failure reported later by Await.
func (r *Runner) Submit(ctx context.Context, query string) (*Job, error) {
	r.logger.Info("Submitting bulk operation")

	var view submitView
	if err := r.client.Execute(ctx, submitMutation(query), nil, &view); err != nil {
		return nil, fmt.Errorf("bulk submission failed: %w", err)
	}

	if userErrors := view.BulkOperationRunQuery.UserErrors; len(userErrors) > 0 {
		messages := make([]string, 0, len(userErrors))
		for _, e := range userErrors {
			messages = append(messages, e.Message)
		}
		return nil, &SubmissionError{Errors: messages}
	}

	op := view.BulkOperationRunQuery.BulkOperation
	r.logger.Info("Bulk operation started", zap.String("job_id", op.ID), zap.String("status", string(op.Status)))

	return &Job{ID: op.ID, Status: op.Status}, nil
}

type pollView struct {
	CurrentBulkOperation *struct {
		ID          string `json:"id"`
		Status      Status `json:"status"`
		ErrorCode   string `json:"errorCode"`
		ObjectCount string `json:"objectCount"`
		URL         string `json:"url"`
	} `json:"currentBulkOperation"`
}

// Await polls the job at a fixed interval, after an initial delay that avoids
// racing the backend's job registration, until the status leaves
// {CREATED, RUNNING}. A COMPLETED job is returned as-is; its URL is empty
// when the query matched nothing. FAILED and CANCELED surface as a JobError
// carrying the backend error code. Cancel the context to abort the wait.
func (r *Runner) Await(ctx context.Context) (*Job, error) {
	if err := r.sleep(ctx, r.initialDelay); err != nil {
		return nil, err
	}

	for {
		job, err := r.poll(ctx)
		if err != nil {
			return nil, err
		}

		r.logger.Info("Bulk operation status",
			zap.String("job_id", job.ID),
			zap.String("status", string(job.Status)),
			zap.Int64("objects", job.ObjectCount))

		if job.Status.Terminal() {
			if job.Status == StatusCompleted {
				return job, nil
			}
			return nil, &JobError{Status: job.Status, Code: job.ErrorCode}
		}

		if err := r.sleep(ctx, r.pollInterval); err != nil {
			return nil, err
		}
	}
}

func (r *Runner) poll(ctx context.Context) (*Job, error) {
	var view pollView
	if err := r.client.Execute(ctx, currentOperationQuery, nil, &view); err != nil {
		return nil, fmt.Errorf("bulk status poll failed: %w", err)
	}

	op := view.CurrentBulkOperation
	if op == nil {
		return nil, fmt.Errorf("no current bulk operation found")
	}

	count, _ := strconv.ParseInt(op.ObjectCount, 10, 64)

	return &Job{
		ID:          op.ID,
		Status:      op.Status,
		ErrorCode:   op.ErrorCode,
		ObjectCount: count,
		URL:         op.URL,
	}, nil
}

// Download streams the result file to local storage and returns its path.
// Non-2xx responses and timeouts are fatal; the caller owns the file.
func (r *Runner) Download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := r.downloader.Do(req)
	if err != nil {
		return "", fmt.Errorf("bulk result download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("bulk result download returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	out, err := os.CreateTemp(r.tempDir, "bulk_result_*.jsonl")
	if err != nil {
		return "", fmt.Errorf("failed to create result file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to write result file: %w", err)
	}
	if closeErr != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to close result file: %w", closeErr)
	}

	r.logger.Info("Downloaded bulk result",
		zap.String("path", out.Name()),
		zap.Int64("bytes", written))

	return out.Name(), nil
}

// Run executes the full submit, await, download sequence for one export
// document and returns the local path of the JSONL result. ErrNoResult is
// returned for an empty (but successful) export. A failed job is not
// resubmitted here; retries happen only at the whole-run level.
func (r *Runner) Run(ctx context.Context, query string) (string, error) {
	if _, err := r.Submit(ctx, query); err != nil {
		return "", err
	}

	job, err := r.Await(ctx)
	if err != nil {
		return "", err
	}

	if job.URL == "" {
		r.logger.Info("Bulk operation completed with no results", zap.String("job_id", job.ID))
		return "", ErrNoResult
	}

	return r.Download(ctx, job.URL)
}

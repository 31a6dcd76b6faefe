// Package bulk drives Shopify bulk export operations to completion.
//
// A bulk operation is an asynchronous, large-result query that runs
// server-side against a single per-store job slot. The Runner owns the whole
// lifecycle: submit the export document, poll the job slot until a terminal
// status, download the JSONL result stream.
//
// # Outcomes
//
//   - A COMPLETED job with a result URL yields a local JSONL file path.
//   - A COMPLETED job without a URL means the query matched zero records;
//     Run returns ErrNoResult so callers can distinguish "empty" from "failed".
//   - FAILED and CANCELED jobs surface as a JobError with the backend code.
//   - User-level validation errors at submit time are a SubmissionError and
//     never consume the job slot.
//
// Polling blocks the calling goroutine for the job's lifetime (possibly
// minutes) and is aborted by canceling the context. The sleep dependency is
// injectable so the poll loop is testable without real delays.
package bulk

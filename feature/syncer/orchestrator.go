package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"country-feed-sync/core/logger"
	"country-feed-sync/feature/catalog"
	"country-feed-sync/feature/feed"
	"country-feed-sync/feature/mapping"
	"country-feed-sync/feature/projection"
	"country-feed-sync/feature/shopify/bulk"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode selects the sync strategy.
type Mode string

const (
	// ModeSmart picks full or incremental from the mapping change signal
	// and checkpoint presence.
	ModeSmart Mode = "smart"
	// ModeFull forces a complete rebuild of all feed files.
	ModeFull Mode = "full"
	// ModeIncremental forces a delta sync from the last checkpoint.
	ModeIncremental Mode = "incremental"
)

// ParseMode validates a mode string from the command line.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSmart, ModeFull, ModeIncremental:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid sync mode %q (expected smart, full or incremental)", s)
}

// Config holds orchestration options.
type Config struct {
	// Mode is the default sync strategy.
	Mode string `mapstructure:"mode" default:"smart"`
	// CheckpointSkewSeconds is subtracted from the run start time before it
	// becomes the next checkpoint, so records updated while the export was
	// running are picked up again next time instead of slipping through.
	CheckpointSkewSeconds int `mapstructure:"checkpoint_skew_seconds" default:"5"`
}

// BulkRunner drives one bulk export and returns the local JSONL path.
type BulkRunner interface {
	Run(ctx context.Context, query string) (string, error)
}

// CountryMapper resolves the country mapping and its change signal.
type CountryMapper interface {
	Resolve(ctx context.Context) (*mapping.Mapping, error)
	HasChanged(current *mapping.Mapping) (bool, string, error)
}

// StateStore is the durable diff state consulted and committed by a run.
type StateStore interface {
	Diff(current []projection.CountryVariant) (newRows, changedRows []projection.CountryVariant, err error)
	Commit(current []projection.CountryVariant) error
	Reset() error
	LoadCheckpoint() (*time.Time, error)
	SaveCheckpoint(t time.Time) error
}

// FeedWriter emits per-country feed files.
type FeedWriter interface {
	WriteFull(variants []projection.CountryVariant) ([]string, error)
	WriteIncremental(newRows, changedRows []projection.CountryVariant) ([]string, error)
	CleanupOrphans(activeCountries []string) error
}

// ObjectUploader pushes written files to the object store.
type ObjectUploader interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, paths []string) feed.UploadResult
	CleanupRemote(ctx context.Context, activeCountries []string) error
}

// Summary is the structured outcome of one run.
type Summary struct {
	RunID        string
	Mode         Mode
	Reason       string
	Variants     int
	Countries    int
	NewRows      int
	ChangedRows  int
	SkippedLines int
	SkippedNoSKU int
	FilesWritten int
	Uploaded     int
	UploadFailed int
	Duration     time.Duration
}

// Orchestrator runs the sync pipeline end to end: export, graph build,
// mapping, projection, diff, feed output, upload, state commit. One
// invocation owns the state database and output directory for its duration.
type Orchestrator struct {
	runner    BulkRunner
	mapper    CountryMapper
	builder   *catalog.Builder
	projector *projection.Projector
	store     StateStore
	writer    FeedWriter
	uploader  ObjectUploader
	cfg       Config
	logger    *zap.Logger
}

// New creates an orchestrator. uploader may be nil when uploads are disabled;
// feed files are then only written locally.
func New(runner BulkRunner, mapper CountryMapper, builder *catalog.Builder,
	projector *projection.Projector, store StateStore, writer FeedWriter,
	uploader ObjectUploader, cfg Config, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		runner:    runner,
		mapper:    mapper,
		builder:   builder,
		projector: projector,
		store:     store,
		writer:    writer,
		uploader:  uploader,
		cfg:       cfg,
		logger:    log,
	}
}

// Run executes one sync in the given mode. Interrupting the context aborts
// the run with nothing committed; the checkpoint and variant state are only
// written after the output phase succeeded.
func (o *Orchestrator) Run(ctx context.Context, requested Mode) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := logger.WithRun(o.logger, runID)

	summary := &Summary{RunID: runID}
	log.Info("Sync started", zap.String("requested_mode", string(requested)))

	mappingStart := time.Now()
	m, err := o.mapper.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("mapping phase failed: %w", err)
	}
	changed, changeReason, err := o.mapper.HasChanged(m)
	if err != nil {
		return nil, fmt.Errorf("mapping phase failed: %w", err)
	}
	log.Info("Mapping phase complete",
		zap.Int("countries", len(m.ActiveCountries)),
		zap.Int("locations", len(m.Locations)),
		zap.Duration("took", time.Since(mappingStart)))

	checkpoint, err := o.store.LoadCheckpoint()
	if err != nil {
		return nil, err
	}

	mode, reason := o.decide(requested, changed, changeReason, checkpoint)
	summary.Mode = mode
	summary.Reason = reason
	log.Info("Sync mode selected", zap.String("mode", string(mode)), zap.String("reason", reason))

	since := ""
	if mode == ModeIncremental {
		since = checkpoint.UTC().Format(time.RFC3339)
	}
	nextCheckpoint := start.Add(-time.Duration(o.cfg.CheckpointSkewSeconds) * time.Second)

	exportStart := time.Now()
	resultPath, err := o.runner.Run(ctx, bulk.ProductVariantsQuery(since))
	if errors.Is(err, bulk.ErrNoResult) {
		// Nothing matched the export filter. For an incremental run that
		// means no product changed since the checkpoint; either way there is
		// nothing to write and the run completed.
		log.Info("Export returned no records, nothing to sync")
		if err := o.store.SaveCheckpoint(nextCheckpoint); err != nil {
			return nil, err
		}
		summary.Duration = time.Since(start)
		o.logSummary(log, summary)
		return summary, nil
	}
	if err != nil {
		return nil, fmt.Errorf("export phase failed: %w", err)
	}
	defer os.Remove(resultPath)

	resultFile, err := os.Open(resultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open export result: %w", err)
	}
	graph, err := o.builder.Build(resultFile)
	resultFile.Close()
	if err != nil {
		return nil, fmt.Errorf("graph phase failed: %w", err)
	}
	log.Info("Export phase complete",
		zap.Int("variants", len(graph.Variants)),
		zap.Int("skipped_lines", graph.SkippedLines),
		zap.Duration("took", time.Since(exportStart)))
	summary.SkippedLines = graph.SkippedLines

	projected := o.projector.Project(graph, m)
	summary.Variants = len(projected.Variants)
	summary.Countries = len(projected.Countries)
	summary.SkippedNoSKU = projected.SkippedNoSKU

	outputStart := time.Now()
	switch mode {
	case ModeFull:
		err = o.runFull(ctx, projected, summary, log)
	default:
		err = o.runIncremental(ctx, projected, summary, log)
	}
	if err != nil {
		return nil, err
	}
	log.Info("Output phase complete",
		zap.Int("files", summary.FilesWritten),
		zap.Duration("took", time.Since(outputStart)))

	if err := o.store.SaveCheckpoint(nextCheckpoint); err != nil {
		return nil, err
	}

	summary.Duration = time.Since(start)
	o.logSummary(log, summary)
	return summary, nil
}

// decide picks the effective mode and the human-readable reason for it.
func (o *Orchestrator) decide(requested Mode, mappingChanged bool, changeReason string, checkpoint *time.Time) (Mode, string) {
	switch requested {
	case ModeFull:
		return ModeFull, "full sync requested"
	case ModeIncremental:
		if checkpoint == nil {
			return ModeFull, "incremental sync requested but no checkpoint exists"
		}
		return ModeIncremental, "incremental sync requested"
	}

	if mappingChanged {
		return ModeFull, changeReason
	}
	if checkpoint == nil {
		return ModeFull, "no checkpoint - first run"
	}
	return ModeIncremental, "mapping unchanged - syncing changes since checkpoint"
}

func (o *Orchestrator) runFull(ctx context.Context, projected *projection.Result, summary *Summary, log *zap.Logger) error {
	files, err := o.writer.WriteFull(projected.Variants)
	if err != nil {
		return fmt.Errorf("feed phase failed: %w", err)
	}
	summary.FilesWritten = len(files)

	o.upload(ctx, files, projected.Countries, true, summary, log)

	// Full output rebuilt every file from scratch; the diff state restarts
	// from the same clean slate.
	if err := o.store.Reset(); err != nil {
		return err
	}
	return o.store.Commit(projected.Variants)
}

func (o *Orchestrator) runIncremental(ctx context.Context, projected *projection.Result, summary *Summary, log *zap.Logger) error {
	newRows, changedRows, err := o.store.Diff(projected.Variants)
	if err != nil {
		return err
	}
	summary.NewRows = len(newRows)
	summary.ChangedRows = len(changedRows)

	if len(newRows) == 0 && len(changedRows) == 0 {
		log.Info("No availability changes detected, feed files are up to date")
		return o.store.Commit(projected.Variants)
	}

	files, err := o.writer.WriteIncremental(newRows, changedRows)
	if err != nil {
		return fmt.Errorf("feed phase failed: %w", err)
	}
	summary.FilesWritten = len(files)

	o.upload(ctx, files, nil, false, summary, log)

	return o.store.Commit(projected.Variants)
}

// upload pushes written files and, on full syncs, reconciles remote orphans.
// Upload problems are warnings; the local feed files are already in place
// and the next run retries the push.
func (o *Orchestrator) upload(ctx context.Context, files, activeCountries []string, full bool, summary *Summary, log *zap.Logger) {
	if o.uploader == nil || len(files) == 0 {
		return
	}
	if err := o.uploader.EnsureBucket(ctx); err != nil {
		log.Warn("Upload skipped", zap.Error(err))
		summary.UploadFailed = len(files)
		return
	}

	result := o.uploader.Upload(ctx, files)
	summary.Uploaded = result.Uploaded
	summary.UploadFailed = result.Failed

	if full {
		if err := o.uploader.CleanupRemote(ctx, activeCountries); err != nil {
			log.Warn("Remote orphan cleanup failed", zap.Error(err))
		}
	}
}

// Cleanup reconciles local and remote feed files against a freshly resolved
// active country set without running a sync.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	m, err := o.mapper.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("mapping phase failed: %w", err)
	}

	active := make([]string, 0, len(m.ActiveCountries))
	for code := range m.ActiveCountries {
		active = append(active, code)
	}

	if err := o.writer.CleanupOrphans(active); err != nil {
		return err
	}
	if o.uploader != nil {
		if err := o.uploader.CleanupRemote(ctx, active); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) logSummary(log *zap.Logger, s *Summary) {
	log.Info("Sync complete",
		zap.String("mode", string(s.Mode)),
		zap.String("reason", s.Reason),
		zap.Int("variants", s.Variants),
		zap.Int("countries", s.Countries),
		zap.Int("new", s.NewRows),
		zap.Int("changed", s.ChangedRows),
		zap.Int("skipped_lines", s.SkippedLines),
		zap.Int("skipped_no_sku", s.SkippedNoSKU),
		zap.Int("files_written", s.FilesWritten),
		zap.Int("uploaded", s.Uploaded),
		zap.Int("upload_failed", s.UploadFailed),
		zap.Duration("took", s.Duration))
}

package feed

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"country-feed-sync/core/storage"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Uploader pushes feed files to the object store. Files upload in parallel
// under a bounded concurrency limit, each with its own retry budget, so one
// stubborn file never blocks or fails its siblings.
type Uploader struct {
	client         storage.Client
	bucket         string
	prefix         string
	cfg            Config
	logger         *zap.Logger
	countryPattern *regexp.Regexp
}

// NewUploader creates an uploader targeting the configured bucket and prefix.
func NewUploader(client storage.Client, storageCfg storage.Config, cfg Config, logger *zap.Logger) *Uploader {
	pattern := regexp.MustCompile(
		"^" + regexp.QuoteMeta(cfg.Prefix) + `([A-Z]{2})` + regexp.QuoteMeta(cfg.Extension) + "$")
	return &Uploader{
		client:         client,
		bucket:         storageCfg.Bucket,
		prefix:         storageCfg.Prefix,
		cfg:            cfg,
		logger:         logger,
		countryPattern: pattern,
	}
}

// UploadResult counts per-file outcomes of one upload batch.
type UploadResult struct {
	Uploaded int
	Failed   int
}

// EnsureBucket verifies the target bucket exists before any upload starts.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", u.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", u.bucket)
	}
	return nil
}

// Upload pushes the given files to the object store. Failures are logged and
// counted per file; they do not abort the batch.
func (u *Uploader) Upload(ctx context.Context, paths []string) UploadResult {
	if len(paths) == 0 {
		return UploadResult{}
	}

	sem := make(chan struct{}, u.cfg.UploadConcurrency)
	var wg sync.WaitGroup
	var uploaded, failed atomic.Int64

	for _, p := range paths {
		wg.Add(1)
		go func(localPath string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := u.uploadWithRetry(ctx, localPath); err != nil {
				u.logger.Error("Upload failed after retries",
					zap.String("file", filepath.Base(localPath)),
					zap.Error(err))
				failed.Add(1)
				return
			}
			uploaded.Add(1)
		}(p)
	}
	wg.Wait()

	result := UploadResult{Uploaded: int(uploaded.Load()), Failed: int(failed.Load())}
	u.logger.Info("Upload batch complete",
		zap.Int("uploaded", result.Uploaded),
		zap.Int("failed", result.Failed))
	return result
}

func (u *Uploader) uploadWithRetry(ctx context.Context, localPath string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Duration(u.cfg.UploadRetryInitialSeconds) * time.Second
	policy.MaxInterval = 30 * time.Second

	operation := func() error {
		return u.uploadOnce(ctx, localPath)
	}
	return backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(u.cfg.UploadRetries)), ctx))
}

func (u *Uploader) uploadOnce(ctx context.Context, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		// A missing or unreadable local file will not heal between attempts.
		return backoff.Permanent(fmt.Errorf("failed to open %s: %w", localPath, err))
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to stat %s: %w", localPath, err))
	}

	objectName := u.objectName(filepath.Base(localPath))

	replacing := true
	if _, err := u.client.StatObject(ctx, u.bucket, objectName, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			return fmt.Errorf("failed to stat object %s: %w", objectName, err)
		}
		replacing = false
	}

	_, err = u.client.PutObject(ctx, u.bucket, objectName, file, info.Size(),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	u.logger.Info("Uploaded feed file",
		zap.String("object", objectName),
		zap.Int64("bytes", info.Size()),
		zap.Bool("replaced", replacing))
	return nil
}

// CleanupRemote removes feed objects for countries outside the active set.
// Mirrors the local orphan cleanup; callers invoke it only on full syncs.
func (u *Uploader) CleanupRemote(ctx context.Context, activeCountries []string) error {
	active := make(map[string]struct{}, len(activeCountries))
	for _, code := range activeCountries {
		active[code] = struct{}{}
	}

	objects := u.client.ListObjects(ctx, u.bucket, minio.ListObjectsOptions{
		Prefix:    u.prefix,
		Recursive: true,
	})
	for object := range objects {
		if object.Err != nil {
			return fmt.Errorf("failed to list objects: %w", object.Err)
		}
		match := u.countryPattern.FindStringSubmatch(path.Base(object.Key))
		if match == nil {
			continue
		}
		if _, ok := active[match[1]]; ok {
			continue
		}
		if err := u.client.RemoveObject(ctx, u.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			u.logger.Error("Failed to remove orphaned object",
				zap.String("object", object.Key),
				zap.Error(err))
			continue
		}
		u.logger.Info("Removed orphaned object", zap.String("object", object.Key))
	}
	return nil
}

func (u *Uploader) objectName(filename string) string {
	if u.prefix == "" {
		return filename
	}
	return path.Join(u.prefix, filename)
}

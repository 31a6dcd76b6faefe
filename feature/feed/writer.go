package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"country-feed-sync/feature/projection"

	"go.uber.org/zap"
)

// Writer emits one availability feed file per country. Full syncs rebuild
// every file and remove orphans; incremental syncs rewrite only the touched
// files via an atomic temp-file replace and never delete anything.
type Writer struct {
	cfg            Config
	logger         *zap.Logger
	countryPattern *regexp.Regexp
}

// NewWriter creates a feed writer for the configured output directory.
func NewWriter(cfg Config, logger *zap.Logger) *Writer {
	pattern := regexp.MustCompile(
		"^" + regexp.QuoteMeta(cfg.Prefix) + `([A-Z]{2})` + regexp.QuoteMeta(cfg.Extension) + "$")
	return &Writer{cfg: cfg, logger: logger, countryPattern: pattern}
}

// RowID derives the stable feed row identifier for a (variant, country) pair.
// The same logical row maps to the same identifier across runs, which is what
// makes update-in-place possible.
func (w *Writer) RowID(v projection.CountryVariant) string {
	return fmt.Sprintf("shopify_%s_%s_%s-%s", w.cfg.Region, v.ProductID, v.VariantID, v.CountryCode)
}

func (w *Writer) header() []string {
	if w.cfg.IncludeOverride {
		return []string{"id", "override", "availability"}
	}
	return []string{"id", "availability"}
}

func (w *Writer) record(id, countryCode, availability string) []string {
	if w.cfg.IncludeOverride {
		return []string{id, countryCode, availability}
	}
	return []string{id, availability}
}

// WriteFull rebuilds one complete feed file per country present in the given
// rows, then deletes feed files for countries absent from that set. A failure
// on one country's file does not abort the others.
func (w *Writer) WriteFull(variants []projection.CountryVariant) ([]string, error) {
	if err := os.MkdirAll(w.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	byCountry := make(map[string][]projection.CountryVariant)
	for _, v := range variants {
		if v.ProductID == "" {
			continue
		}
		byCountry[v.CountryCode] = append(byCountry[v.CountryCode], v)
	}

	countries := make([]string, 0, len(byCountry))
	for code := range byCountry {
		countries = append(countries, code)
	}
	sort.Strings(countries)

	if err := w.CleanupOrphans(countries); err != nil {
		return nil, err
	}

	var written []string
	for _, code := range countries {
		path := filepath.Join(w.cfg.OutputDir, w.cfg.Filename(code))
		if err := w.writeCountryFile(path, code, byCountry[code]); err != nil {
			w.logger.Error("Failed to write feed file",
				zap.String("country", code),
				zap.Error(err))
			continue
		}
		written = append(written, path)
		w.logger.Info("Created feed file",
			zap.String("country", code),
			zap.Int("rows", len(byCountry[code])))
	}

	w.logger.Info("Full feed generation complete", zap.Int("files", len(written)))
	return written, nil
}

func (w *Writer) writeCountryFile(path, countryCode string, variants []projection.CountryVariant) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	cw := csv.NewWriter(file)
	if err := cw.Write(w.header()); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, v := range variants {
		record := w.record(w.RowID(v), countryCode, string(v.Availability()))
		if err := cw.Write(record); err != nil {
			file.Close()
			os.Remove(path)
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// WriteIncremental updates the feed files for every country touched by the
// given rows: changed rows are rewritten in place, new rows are appended, all
// other rows are carried over verbatim. Each file is replaced atomically.
// Files for untouched countries are left alone, and nothing is ever deleted.
func (w *Writer) WriteIncremental(newRows, changedRows []projection.CountryVariant) ([]string, error) {
	if len(newRows) == 0 && len(changedRows) == 0 {
		w.logger.Info("No feed changes to apply")
		return nil, nil
	}

	if err := os.MkdirAll(w.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	touched := make(map[string]struct{})
	for _, v := range newRows {
		touched[v.CountryCode] = struct{}{}
	}
	for _, v := range changedRows {
		touched[v.CountryCode] = struct{}{}
	}
	countries := make([]string, 0, len(touched))
	for code := range touched {
		countries = append(countries, code)
	}
	sort.Strings(countries)

	var updated []string
	for _, code := range countries {
		path, err := w.updateCountryFile(code, newRows, changedRows)
		if err != nil {
			w.logger.Error("Failed to update feed file",
				zap.String("country", code),
				zap.Error(err))
			continue
		}
		updated = append(updated, path)
	}

	w.logger.Info("Incremental feed update complete", zap.Int("files", len(updated)))
	return updated, nil
}

func (w *Writer) updateCountryFile(countryCode string, newRows, changedRows []projection.CountryVariant) (string, error) {
	target := filepath.Join(w.cfg.OutputDir, w.cfg.Filename(countryCode))

	// Availability replacements keyed by row id. New rows take part too so a
	// row already present in the file is updated rather than duplicated.
	replacements := make(map[string]string)
	for _, v := range changedRows {
		if v.CountryCode == countryCode {
			replacements[w.RowID(v)] = string(v.Availability())
		}
	}
	var pending []projection.CountryVariant
	for _, v := range newRows {
		if v.CountryCode == countryCode {
			replacements[w.RowID(v)] = string(v.Availability())
			pending = append(pending, v)
		}
	}

	tmp, err := os.CreateTemp(w.cfg.OutputDir, w.cfg.Prefix+countryCode+"_*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	cw := csv.NewWriter(tmp)
	if err := cw.Write(w.header()); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	seen := make(map[string]struct{})
	var carried, rewritten int

	if err := w.copyExistingRows(target, countryCode, cw, replacements, seen, &carried, &rewritten); err != nil {
		return "", err
	}

	var appended int
	for _, v := range pending {
		id := w.RowID(v)
		if _, done := seen[id]; done {
			continue
		}
		seen[id] = struct{}{}
		if err := cw.Write(w.record(id, countryCode, string(v.Availability()))); err != nil {
			return "", fmt.Errorf("failed to append row: %w", err)
		}
		appended++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to flush temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		tmp = nil
		return "", fmt.Errorf("failed to replace %s: %w", target, err)
	}
	tmp = nil

	w.logger.Info("Updated feed file",
		zap.String("country", countryCode),
		zap.Int("carried", carried),
		zap.Int("rewritten", rewritten),
		zap.Int("appended", appended))
	return target, nil
}

// copyExistingRows streams the current feed file into the csv writer,
// substituting availability for rows present in replacements. A missing
// target file is fine; the country is new.
func (w *Writer) copyExistingRows(target, countryCode string, cw *csv.Writer,
	replacements map[string]string, seen map[string]struct{}, carried, rewritten *int) error {

	existing, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	defer existing.Close()

	reader := csv.NewReader(existing)
	reader.FieldsPerRecord = -1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", target, err)
		}
		if len(record) == 0 || record[0] == "id" {
			continue
		}

		id := record[0]
		availability := record[len(record)-1]
		if replacement, changed := replacements[id]; changed {
			availability = replacement
			*rewritten++
		} else {
			*carried++
		}
		seen[id] = struct{}{}
		if err := cw.Write(w.record(id, countryCode, availability)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}

// CleanupOrphans deletes feed files whose country is not in the active set.
// Only full syncs and the explicit cleanup command call it; incremental runs
// must not treat absence of evidence as removal.
func (w *Writer) CleanupOrphans(activeCountries []string) error {
	active := make(map[string]struct{}, len(activeCountries))
	for _, code := range activeCountries {
		active[code] = struct{}{}
	}

	entries, err := os.ReadDir(w.cfg.OutputDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := w.countryPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		if _, ok := active[match[1]]; ok {
			continue
		}
		path := filepath.Join(w.cfg.OutputDir, entry.Name())
		if err := os.Remove(path); err != nil {
			w.logger.Error("Failed to delete orphaned feed file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		w.logger.Info("Deleted orphaned feed file", zap.String("file", entry.Name()))
	}
	return nil
}

// ExistingCountries lists the countries that currently have a feed file on
// disk.
func (w *Writer) ExistingCountries() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.OutputDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var countries []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if match := w.countryPattern.FindStringSubmatch(entry.Name()); match != nil {
			countries = append(countries, match[1])
		}
	}
	sort.Strings(countries)
	return countries, nil
}

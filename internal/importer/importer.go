package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/fitjoin/internal/models"
	"github.com/meltforce/fitjoin/internal/storage"
)

// exportFiles maps the files of a Fitbit CSV export to source tables.
var exportFiles = []struct {
	file   string
	source string
}{
	{"dailyActivity_merged.csv", "daily_activity"},
	{"heartrate_seconds_merged.csv", "heart_rate"},
	{"hourlyCalories_merged.csv", "hourly_calories"},
	{"hourlyIntensities_merged.csv", "hourly_intensity"},
	{"hourlySteps_merged.csv", "hourly_steps"},
	{"minuteSleep_merged.csv", "minute_sleep"},
	{"weightLogInfo_merged.csv", "weight_log"},
}

const defaultBatchSize = 10000

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	RowsInserted int64
	RowsRejected int64

	// Tables counts inserted rows per source table.
	Tables map[string]int64
}

// Sink stores parsed rows. Each row holds one value per storage.Columns
// entry of its source.
type Sink interface {
	Truncate(ctx context.Context, source string) error
	InsertRows(ctx context.Context, source string, rows [][]any) (int64, error)
}

// Journal records import runs. Sinks implementing it get one log entry per Import.
type Journal interface {
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
}

// Options control an import.
type Options struct {
	// DryRun parses every file without touching the sink.
	DryRun bool
	// Replace empties each table before loading its file.
	Replace   bool
	BatchSize int
}

// Importer loads a Fitbit CSV export directory into a source store.
type Importer struct {
	sink  Sink
	log   *slog.Logger
	opts  Options
	stats Stats
}

// New creates a new Importer. sink may be nil in dry-run mode.
func New(sink Sink, log *slog.Logger, opts Options) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &Importer{sink: sink, log: log, opts: opts, stats: Stats{Tables: map[string]int64{}}}
}

// Import processes every known export file under dir. Missing files are
// skipped; a file whose header lacks a key column counts as errored.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	started := time.Now()

	journal, _ := imp.sink.(Journal)
	if imp.opts.DryRun {
		journal = nil
	}
	var logID int64
	if journal != nil {
		id, err := journal.InsertImportLog(ctx, storage.ImportLog{Source: dir, Status: "running"})
		if err != nil {
			return &imp.stats, err
		}
		logID = id
	}

	err := imp.importAll(ctx, dir)

	if journal != nil {
		if uerr := journal.UpdateImportLog(ctx, logID, imp.logEntry(dir, started, err)); uerr != nil {
			imp.log.Warn("failed to update import log", "id", logID, "error", uerr)
		}
	}
	return &imp.stats, err
}

func (imp *Importer) importAll(ctx context.Context, dir string) error {
	for _, ef := range exportFiles {
		path := filepath.Join(dir, ef.file)
		if _, err := os.Stat(path); err != nil {
			imp.log.Info("export file not found, skipping", "file", ef.file)
			imp.stats.FilesSkipped++
			continue
		}

		var hdr *headerError
		err := imp.importFile(ctx, path, ef.source)
		switch {
		case errors.As(err, &hdr):
			imp.log.Warn("unusable export file", "file", ef.file, "error", err)
			imp.stats.FilesErrored++
		case err != nil:
			return fmt.Errorf("importing %s: %w", ef.file, err)
		default:
			imp.stats.FilesProcessed++
		}
	}
	return nil
}

// headerError marks a file whose header cannot be mapped onto its table.
type headerError struct {
	column string
}

func (e *headerError) Error() string {
	return fmt.Sprintf("missing key column %s", e.column)
}

// importFile streams one CSV file into its source table in batches.
func (imp *Importer) importFile(ctx context.Context, path, source string) error {
	cols, err := storage.Columns(source)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return &headerError{column: cols[0].Name}
	}
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	idx, err := columnIndex(header, cols)
	if err != nil {
		return err
	}

	if imp.opts.Replace && !imp.opts.DryRun {
		if err := imp.sink.Truncate(ctx, source); err != nil {
			return err
		}
	}

	var rejected int64
	batch := make([][]any, 0, imp.opts.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n := int64(len(batch))
		if !imp.opts.DryRun {
			var err error
			if n, err = imp.sink.InsertRows(ctx, source, batch); err != nil {
				return err
			}
		}
		imp.stats.RowsInserted += n
		imp.stats.Tables[source] += n
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}
		row, ok := convertRow(rec, idx, cols)
		if !ok {
			rejected++
			continue
		}
		batch = append(batch, row)
		if len(batch) >= imp.opts.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	imp.stats.RowsRejected += rejected
	imp.log.Info("imported export file",
		"file", filepath.Base(path), "table", source,
		"rows", imp.stats.Tables[source], "rejected", rejected)
	return nil
}

// columnIndex maps each table column to its header position, -1 when an
// optional column is absent. Header matching ignores case and a leading BOM.
func columnIndex(header []string, cols []storage.Column) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := make([]int, len(cols))
	for i, c := range cols {
		p, ok := pos[strings.ToLower(c.Name)]
		if !ok {
			if c.Key {
				return nil, &headerError{column: c.Name}
			}
			p = -1
		}
		idx[i] = p
	}
	return idx, nil
}

// convertRow types one record. Rows with an empty or unparsable key cell,
// or any unparsable value, are rejected. Empty optional cells become nil.
func convertRow(rec []string, idx []int, cols []storage.Column) ([]any, bool) {
	row := make([]any, len(cols))
	for i, c := range cols {
		if idx[i] < 0 || idx[i] >= len(rec) {
			if c.Key {
				return nil, false
			}
			continue
		}
		v, ok := convertCell(rec[idx[i]], c.Kind)
		if !ok || (c.Key && v == nil) {
			return nil, false
		}
		row[i] = v
	}
	return row, true
}

func convertCell(raw string, kind storage.Kind) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, true
	}
	switch kind {
	case storage.KindID, storage.KindInt:
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	case storage.KindFloat:
		x, err := strconv.ParseFloat(s, 64)
		return x, err == nil
	case storage.KindDate:
		t, ok := models.ParseTimestamp(s)
		if !ok {
			return nil, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	default:
		t, ok := models.ParseTimestamp(s)
		if !ok {
			return nil, false
		}
		return t, true
	}
}

func (imp *Importer) logEntry(dir string, started time.Time, err error) storage.ImportLog {
	ms := int(time.Since(started).Milliseconds())
	entry := storage.ImportLog{
		Source:         dir,
		Status:         "success",
		FilesProcessed: imp.stats.FilesProcessed,
		RowsInserted:   imp.stats.RowsInserted,
		RowsRejected:   imp.stats.RowsRejected,
		DurationMs:     &ms,
	}
	if err != nil {
		msg := err.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	}
	if meta, merr := json.Marshal(imp.stats.Tables); merr == nil {
		raw := json.RawMessage(meta)
		entry.Metadata = &raw
	}
	return entry
}

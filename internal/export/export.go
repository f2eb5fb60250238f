// Package export writes the report tables to disk or to an HTTP response as
// parquet, CSV or JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meltforce/fitjoin/internal/pipeline"
)

// Format is an output encoding.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
)

// ParseFormat validates a format name. Empty selects parquet.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatParquet, nil
	case FormatParquet, FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q (expected parquet|csv|json)", s)
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	}
	return "application/vnd.apache.parquet"
}

// Report table names.
const (
	TableMergedRecords = "merged_records"
	TableSummaries     = "summaries"
	TableStatistics    = "statistics"
	TableLeaderMetrics = "leader_metrics"
	TableChampions     = "champions"
	TableTimeBuckets   = "time_buckets"
	TableWeekpart      = "weekpart"
	TableDiagnostics   = "diagnostics"
)

// Tables lists every exported table in write order.
var Tables = []string{
	TableMergedRecords,
	TableSummaries,
	TableStatistics,
	TableLeaderMetrics,
	TableChampions,
	TableTimeBuckets,
	TableWeekpart,
	TableDiagnostics,
}

// UnknownTableError reports a table name outside Tables.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table %q", e.Table)
}

// Encode writes one report table to w.
func Encode(w io.Writer, rep *pipeline.Report, table string, format Format) error {
	switch format {
	case FormatJSON:
		v, err := tableValue(rep, table)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatCSV:
		t, err := csvTable(rep, table)
		if err != nil {
			return err
		}
		return t.write(w)
	case FormatParquet:
		b, err := parquetTable(rep, table)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	return fmt.Errorf("unsupported format %q", format)
}

// WriteDir writes every table into dir as <table>.<format> and returns the
// written paths.
func WriteDir(dir string, rep *pipeline.Report, format Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}
	paths := make([]string, 0, len(Tables))
	for _, table := range Tables {
		path := filepath.Join(dir, table+"."+string(format))
		if err := writeFile(path, rep, table, format); err != nil {
			return paths, fmt.Errorf("writing %s: %w", table, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, rep *pipeline.Report, table string, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, rep, table, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func tableValue(rep *pipeline.Report, table string) (any, error) {
	switch table {
	case TableMergedRecords:
		return rep.MergedRecords, nil
	case TableSummaries:
		return rep.Summaries, nil
	case TableStatistics:
		return rep.Statistics, nil
	case TableLeaderMetrics:
		return rep.LeaderMetrics, nil
	case TableChampions:
		return rep.Champions, nil
	case TableTimeBuckets:
		return rep.TimeBuckets, nil
	case TableWeekpart:
		return rep.Weekpart, nil
	case TableDiagnostics:
		return rep.Diagnostics, nil
	}
	return nil, &UnknownTableError{Table: table}
}

// Package csvfile loads the daily-activity spine from a semicolon-delimited
// Fitbit export.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/meltforce/fitjoin/internal/models"
)

// numberRe extracts the first number from cells like "8.5 km".
var numberRe = regexp.MustCompile(`\d+(\.\d+)?`)

// groupedRe matches a comma followed by exactly three digits, the shape of a
// thousands separator.
var groupedRe = regexp.MustCompile(`\d,\d{3}(\D|$)`)

// Result holds the outcome of loading a spine file.
type Result struct {
	Rows       []models.DailyActivity
	Received   int      // data rows read
	Duplicates int      // identical rows dropped
	Rejected   int      // rows dropped for an unreadable Id
	BadCells   int      // metric cells that were not numeric, read as 0
	Missing    []string // optional columns absent from the header
}

// Load reads the spine file at path.
func Load(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening activity csv: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

type field struct {
	name     string
	distance bool
	set      func(*models.DailyActivity, float64)
}

var metricFields = []field{
	{"TotalSteps", false, func(r *models.DailyActivity, v float64) { r.TotalSteps = v }},
	{"TotalDistance", true, func(r *models.DailyActivity, v float64) { r.TotalDistance = v }},
	{"Calories", false, func(r *models.DailyActivity, v float64) { r.Calories = v }},
	{"SedentaryMinutes", false, func(r *models.DailyActivity, v float64) { r.SedentaryMinutes = v }},
	{"LightlyActiveMinutes", false, func(r *models.DailyActivity, v float64) { r.LightlyActiveMinutes = v }},
	{"FairlyActiveMinutes", false, func(r *models.DailyActivity, v float64) { r.FairlyActiveMinutes = v }},
	{"VeryActiveMinutes", false, func(r *models.DailyActivity, v float64) { r.VeryActiveMinutes = v }},
}

// Parse reads a semicolon-delimited spine. Header names are cleaned of stray
// delimiters and spaces and matched case-insensitively. Id and ActivityDate
// are required. Output is deduplicated and sorted by (Id, date).
func Parse(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("activity csv: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading activity csv header: %w", err)
	}

	index := map[string]int{}
	for i, h := range header {
		index[strings.ToLower(cleanHeader(h))] = i
	}
	idCol, ok := index["id"]
	if !ok {
		return nil, fmt.Errorf("activity csv: missing key column Id")
	}
	dateCol, ok := index["activitydate"]
	if !ok {
		return nil, fmt.Errorf("activity csv: missing key column ActivityDate")
	}

	res := &Result{}
	cols := make([]int, len(metricFields))
	for i, fd := range metricFields {
		c, ok := index[strings.ToLower(fd.name)]
		if !ok {
			c = -1
			res.Missing = append(res.Missing, fd.name)
		}
		cols[i] = c
	}

	seen := map[string]bool{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading activity csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		res.Received++

		key := strings.Join(rec, "\x1f")
		if seen[key] {
			res.Duplicates++
			continue
		}
		seen[key] = true

		id, ok := parseID(cell(rec, idCol))
		if !ok {
			res.Rejected++
			continue
		}
		row := models.DailyActivity{UserID: id, ActivityDate: cell(rec, dateCol)}
		for i, fd := range metricFields {
			if cols[i] < 0 {
				continue
			}
			raw := cell(rec, cols[i])
			v, ok := parseNumber(raw, fd.distance)
			if !ok {
				if raw != "" {
					res.BadCells++
				}
				continue
			}
			fd.set(&row, v)
		}
		res.Rows = append(res.Rows, row)
	}

	// Unparsable dates sort last within a user, like NaT.
	sort.SliceStable(res.Rows, func(i, j int) bool {
		a, b := res.Rows[i], res.Rows[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		da, _ := models.ParseDate(a.ActivityDate)
		db, _ := models.ParseDate(b.ActivityDate)
		if da == "" || db == "" {
			return da != "" && db == ""
		}
		return da < db
	})
	return res, nil
}

func cleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(h)
	h = strings.ReplaceAll(h, ";", "")
	return strings.ReplaceAll(h, " ", "_")
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseID(s string) (int64, bool) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// parseNumber accepts plain and comma-decimal numbers. Distance cells fall
// back to the first number embedded in the text. Cells that look like
// thousands grouping ("1,234" or "1,234,567") are ambiguous and rejected.
func parseNumber(s string, distance bool) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") > 1 || groupedRe.MatchString(s) {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	if !distance {
		return 0, false
	}
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}

package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `Id;ActivityDate;TotalSteps;TotalDistance;TrackerDistance;Calories;SedentaryMinutes;LightlyActiveMinutes;FairlyActiveMinutes;VeryActiveMinutes
1624580081;4/13/2016;8163;5,31;5.31;1432;1217;146;0;0
1503960366;4/13/2016;10735;6.97 km;6.97;1797;776;217;19;21
1503960366;4/12/2016;13162;8.5;8.5;1985;728;328;13;25
1503960366;4/12/2016;13162;8.5;8.5;1985;728;328;13;25
abc;4/12/2016;1;1;1;1;1;1;1;1
1624580081;not a date;100;n/a;0;oops;0;0;0;0
`

// TestParseSample covers dedup, sorting, unit stripping, comma decimals and
// rejected cells on a realistic export fragment.
func TestParseSample(t *testing.T) {
	res, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Received != 6 {
		t.Errorf("Received = %d, want 6", res.Received)
	}
	if res.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", res.Duplicates)
	}
	if res.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", res.Rejected)
	}
	if res.BadCells != 2 {
		t.Errorf("BadCells = %d, want 2", res.BadCells)
	}
	if len(res.Missing) != 0 {
		t.Errorf("Missing = %v", res.Missing)
	}
	if len(res.Rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(res.Rows))
	}

	want := []struct {
		id   int64
		date string
	}{
		{1503960366, "4/12/2016"},
		{1503960366, "4/13/2016"},
		{1624580081, "4/13/2016"},
		{1624580081, "not a date"},
	}
	for i, w := range want {
		if res.Rows[i].UserID != w.id || res.Rows[i].ActivityDate != w.date {
			t.Errorf("row %d = (%d, %q), want (%d, %q)", i, res.Rows[i].UserID, res.Rows[i].ActivityDate, w.id, w.date)
		}
	}
	if got := res.Rows[1].TotalDistance; got != 6.97 {
		t.Errorf("distance with unit = %v, want 6.97", got)
	}
	if got := res.Rows[2].TotalDistance; got != 5.31 {
		t.Errorf("comma decimal distance = %v, want 5.31", got)
	}
	if got := res.Rows[3].Calories; got != 0 {
		t.Errorf("non-numeric calories = %v, want 0", got)
	}
}

// TestParseHeaderCleanup verifies stray delimiters, spaces and a BOM in the
// header do not hide the key columns.
func TestParseHeaderCleanup(t *testing.T) {
	input := "\ufeff Id ;ActivityDate;TotalSteps\n1;2016-04-12;42\n"
	res, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0].TotalSteps != 42 {
		t.Fatalf("unexpected rows: %+v", res.Rows)
	}
	if len(res.Missing) != 6 {
		t.Errorf("Missing = %v, want the six absent metrics", res.Missing)
	}
}

// TestParseNumber covers decimal commas, unit suffixes and the rejection of
// thousands-grouped cells.
func TestParseNumber(t *testing.T) {
	tests := []struct {
		in       string
		distance bool
		want     float64
		ok       bool
	}{
		{"8163", false, 8163, true},
		{"8,5", false, 8.5, true},
		{" 5,31 ", true, 5.31, true},
		{"1,2345", false, 1.2345, true},
		{"6.97 km", true, 6.97, true},
		{"1,234", false, 0, false},
		{"1,234,567", false, 0, false},
		{"1,5,2", false, 0, false},
		{"1,234 km", true, 0, false},
		{"n/a", false, 0, false},
		{"", false, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in, tt.distance)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseNumber(%q, %v) = %v, %v; want %v, %v", tt.in, tt.distance, got, ok, tt.want, tt.ok)
		}
	}
}

// TestParseGroupedSteps verifies a thousands-grouped step count is counted as
// a bad cell and read as 0 instead of a fraction.
func TestParseGroupedSteps(t *testing.T) {
	input := "Id;ActivityDate;TotalSteps;Calories\n1;4/12/2016;1,234;8,5\n"
	res, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.Rows))
	}
	if res.BadCells != 1 {
		t.Errorf("BadCells = %d, want 1", res.BadCells)
	}
	if got := res.Rows[0].TotalSteps; got != 0 {
		t.Errorf("grouped steps = %v, want 0", got)
	}
	if got := res.Rows[0].Calories; got != 8.5 {
		t.Errorf("comma decimal calories = %v, want 8.5", got)
	}
}

// TestParseMissingKey verifies a spine without its key columns is an error.
func TestParseMissingKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no id", "ActivityDate;TotalSteps\n4/12/2016;1\n"},
		{"no date", "Id;TotalSteps\n1;1\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// TestLoadFile reads the spine from disk.
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dailyactivity.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.Rows) != 4 {
		t.Errorf("got %d rows, want 4", len(res.Rows))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

package storage

import (
	"fmt"
	"strings"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Kind is the value type of a source column.
type Kind int

const (
	KindID Kind = iota
	KindTime
	KindDate
	KindFloat
	KindInt
)

// column names one source column in both schemas. Key columns must exist;
// optional ones are selected as NULL when absent.
type column struct {
	sqlite   string
	postgres string
	kind     Kind
	key      bool
}

type table struct {
	name     string // logical source name used in diagnostics
	sqlite   string
	postgres string
	columns  []column
}

var (
	dailyActivityTable = table{
		name: "daily_activity", sqlite: "daily_activity", postgres: "daily_activity",
		columns: []column{
			{"Id", "user_id", KindID, true},
			{"ActivityDate", "activity_date", KindDate, true},
			{"TotalSteps", "total_steps", KindFloat, false},
			{"TotalDistance", "total_distance", KindFloat, false},
			{"Calories", "calories", KindFloat, false},
			{"SedentaryMinutes", "sedentary_minutes", KindFloat, false},
			{"LightlyActiveMinutes", "lightly_active_minutes", KindFloat, false},
			{"FairlyActiveMinutes", "fairly_active_minutes", KindFloat, false},
			{"VeryActiveMinutes", "very_active_minutes", KindFloat, false},
		},
	}
	heartRateTable = table{
		name: "heart_rate", sqlite: "heart_rate", postgres: "heart_rate",
		columns: []column{
			{"Id", "user_id", KindID, true},
			{"Time", "recorded_at", KindTime, true},
			{"Value", "value", KindFloat, true},
		},
	}
	hourlyCaloriesTable = table{
		name: "hourly_calories", sqlite: "hourly_calories", postgres: "hourly_calories",
		columns: []column{
			{"Id", "user_id", KindID, true},
			{"ActivityHour", "activity_hour", KindTime, true},
			{"Calories", "calories", KindFloat, true},
		},
	}
	hourlyStepsTable = table{
		name: "hourly_steps", sqlite: "hourly_steps", postgres: "hourly_steps",
		columns: []column{
			{"Id", "user_id", KindID, true},
			{"ActivityHour", "activity_hour", KindTime, true},
			{"StepTotal", "step_total", KindFloat, true},
		},
	}
	hourlyIntensityTable = table{
		name: "hourly_intensity", sqlite: "hourly_intensity", postgres: "hourly_intensity",
		columns: []column{
			{"Id", "user_id", KindID, true},
			{"ActivityHour", "activity_hour", KindTime, true},
			{"TotalIntensity", "total_intensity", KindFloat, false},
			{"AverageIntensity", "average_intensity", KindFloat, false},
		},
	}
	minuteSleepTable = table{
		name: "minute_sleep", sqlite: "minute_sleep", postgres: "minute_sleep",
		columns: []column{
			{"Id", "user_id", KindID, true},
			{"date", "recorded_at", KindTime, true},
			{"value", "value", KindInt, true},
			{"logId", "log_id", KindInt, false},
		},
	}
	weightLogTable = table{
		name: "weight_log", sqlite: "weight_log", postgres: "weight_log",
		columns: []column{
			{"Id", "user_id", KindID, true},
			{"Date", "logged_at", KindTime, true},
			{"WeightKg", "weight_kg", KindFloat, false},
			{"BMI", "bmi", KindFloat, false},
			{"Fat", "fat", KindFloat, false},
		},
	}
)

// MissingColumnError reports that a key column is absent, which makes the
// whole source unusable.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("table %s not found", e.Table)
	}
	return fmt.Sprintf("table %s: missing key column %s", e.Table, e.Column)
}

// projection is a planned SELECT over one table.
type projection struct {
	query   string
	missing []string
}

func (t table) tableName(d dialect) string {
	if d == dialectPostgres {
		return t.postgres
	}
	return t.sqlite
}

func (c column) name(d dialect) string {
	if d == dialectPostgres {
		return c.postgres
	}
	return c.sqlite
}

// expr renders the typed select expression for a present column.
func (c column) expr(d dialect) string {
	if d == dialectPostgres {
		n := c.postgres
		switch c.kind {
		case KindTime:
			return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD HH24:MI:SS')", n)
		case KindDate:
			return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", n)
		case KindFloat:
			return n + "::double precision"
		default:
			return n + "::bigint"
		}
	}
	n := `"` + c.sqlite + `"`
	switch c.kind {
	case KindTime, KindDate:
		return "CAST(" + n + " AS TEXT)"
	case KindFloat:
		return "CAST(" + n + " AS REAL)"
	default:
		return "CAST(" + n + " AS INTEGER)"
	}
}

// null renders a typed NULL standing in for an absent column.
func (c column) null(d dialect) string {
	if d != dialectPostgres {
		return "NULL"
	}
	switch c.kind {
	case KindTime, KindDate:
		return "NULL::text"
	case KindFloat:
		return "NULL::double precision"
	default:
		return "NULL::bigint"
	}
}

// plan builds the SELECT for t given the set of columns present in the store.
// Column lookup is case-insensitive. The user filter is rendered as a
// placeholder list for SQLite and as = ANY($1) for PostgreSQL.
func (t table) plan(d dialect, present map[string]bool, users []int64) (projection, []any, error) {
	var p projection
	exprs := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if present[strings.ToLower(c.name(d))] {
			exprs = append(exprs, c.expr(d))
			continue
		}
		if c.key {
			return projection{}, nil, &MissingColumnError{Table: t.name, Column: c.name(d)}
		}
		p.missing = append(p.missing, c.name(d))
		exprs = append(exprs, c.null(d))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(exprs, ", "), t.tableName(d))

	var args []any
	if len(users) > 0 {
		id := t.columns[0].name(d)
		if d == dialectPostgres {
			fmt.Fprintf(&sb, " WHERE %s = ANY($1)", id)
			args = append(args, users)
		} else {
			marks := make([]string, len(users))
			for i, u := range users {
				marks[i] = "?"
				args = append(args, u)
			}
			fmt.Fprintf(&sb, ` WHERE "%s" IN (%s)`, id, strings.Join(marks, ","))
		}
	}
	p.query = sb.String()
	return p, args, nil
}

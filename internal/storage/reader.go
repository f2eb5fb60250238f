package storage

import (
	"context"
	"fmt"

	"github.com/meltforce/fitjoin/internal/models"
)

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// backend is the dialect-specific part of a store: column introspection and
// raw querying. Everything else is shared by SQLite and PostgreSQL.
type backend interface {
	dialect() dialect
	tableColumns(ctx context.Context, name string) (map[string]bool, error)
	query(ctx context.Context, q string, args ...any) (rows, func(), error)
}

// reader implements the source queries on top of a backend. Each query
// returns the rows plus the optional columns that were absent and read as NULL.
type reader struct {
	b backend
}

func (r reader) read(ctx context.Context, t table, f models.Filter, scan func(rows) error) ([]string, error) {
	d := r.b.dialect()
	present, err := r.b.tableColumns(ctx, t.tableName(d))
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", t.name, err)
	}
	if len(present) == 0 {
		return nil, &MissingColumnError{Table: t.name}
	}

	p, args, err := t.plan(d, present, f.UserIDs)
	if err != nil {
		return nil, err
	}

	rs, closeRows, err := r.b.query(ctx, p.query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.name, err)
	}
	defer closeRows()

	for rs.Next() {
		if err := scan(rs); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.name, err)
		}
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", t.name, err)
	}
	return p.missing, nil
}

// QueryDailyActivity reads the daily_activity table as a spine.
func (r reader) QueryDailyActivity(ctx context.Context, f models.Filter) ([]models.DailyActivity, []string, error) {
	var out []models.DailyActivity
	missing, err := r.read(ctx, dailyActivityTable, f, func(rs rows) error {
		var (
			id                                 int64
			date                               *string
			steps, dist, cal, sed, light, fair *float64
			very                               *float64
		)
		if err := rs.Scan(&id, &date, &steps, &dist, &cal, &sed, &light, &fair, &very); err != nil {
			return err
		}
		out = append(out, models.DailyActivity{
			UserID:               id,
			ActivityDate:         deref(date),
			TotalSteps:           models.Value(steps),
			TotalDistance:        models.Value(dist),
			Calories:             models.Value(cal),
			SedentaryMinutes:     models.Value(sed),
			LightlyActiveMinutes: models.Value(light),
			FairlyActiveMinutes:  models.Value(fair),
			VeryActiveMinutes:    models.Value(very),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, missing, nil
}

// QueryHeartRate reads heart_rate samples. Rows with a NULL reading are skipped.
func (r reader) QueryHeartRate(ctx context.Context, f models.Filter) ([]models.HeartRateRow, []string, error) {
	var out []models.HeartRateRow
	missing, err := r.read(ctx, heartRateTable, f, func(rs rows) error {
		var (
			id    int64
			ts    *string
			value *float64
		)
		if err := rs.Scan(&id, &ts, &value); err != nil {
			return err
		}
		if value == nil {
			return nil
		}
		out = append(out, models.HeartRateRow{UserID: id, Time: deref(ts), Value: *value})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, missing, nil
}

// QueryHourlyCalories reads hourly_calories.
func (r reader) QueryHourlyCalories(ctx context.Context, f models.Filter) ([]models.HourlySample, []string, error) {
	return r.hourly(ctx, hourlyCaloriesTable, f)
}

// QueryHourlySteps reads hourly_steps.
func (r reader) QueryHourlySteps(ctx context.Context, f models.Filter) ([]models.HourlySample, []string, error) {
	return r.hourly(ctx, hourlyStepsTable, f)
}

func (r reader) hourly(ctx context.Context, t table, f models.Filter) ([]models.HourlySample, []string, error) {
	var out []models.HourlySample
	missing, err := r.read(ctx, t, f, func(rs rows) error {
		var (
			id    int64
			ts    *string
			value *float64
		)
		if err := rs.Scan(&id, &ts, &value); err != nil {
			return err
		}
		if value == nil {
			return nil
		}
		out = append(out, models.HourlySample{UserID: id, ActivityHour: deref(ts), Value: *value})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, missing, nil
}

// QueryHourlyIntensity reads hourly_intensity.
func (r reader) QueryHourlyIntensity(ctx context.Context, f models.Filter) ([]models.HourlyIntensityRow, []string, error) {
	var out []models.HourlyIntensityRow
	missing, err := r.read(ctx, hourlyIntensityTable, f, func(rs rows) error {
		var (
			id         int64
			ts         *string
			total, avg *float64
		)
		if err := rs.Scan(&id, &ts, &total, &avg); err != nil {
			return err
		}
		out = append(out, models.HourlyIntensityRow{
			UserID:           id,
			ActivityHour:     deref(ts),
			TotalIntensity:   models.Value(total),
			AverageIntensity: avg,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, missing, nil
}

// QueryMinuteSleep reads per-minute sleep samples.
func (r reader) QueryMinuteSleep(ctx context.Context, f models.Filter) ([]models.MinuteSleepRow, []string, error) {
	var out []models.MinuteSleepRow
	missing, err := r.read(ctx, minuteSleepTable, f, func(rs rows) error {
		var (
			id    int64
			ts    *string
			value *int64
			logID *int64
		)
		if err := rs.Scan(&id, &ts, &value, &logID); err != nil {
			return err
		}
		if value == nil {
			return nil
		}
		out = append(out, models.MinuteSleepRow{UserID: id, Date: deref(ts), Value: int(*value), LogID: logID})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, missing, nil
}

// QueryWeightLog reads weight_log entries.
func (r reader) QueryWeightLog(ctx context.Context, f models.Filter) ([]models.WeightLogRow, []string, error) {
	var out []models.WeightLogRow
	missing, err := r.read(ctx, weightLogTable, f, func(rs rows) error {
		var (
			id               int64
			ts               *string
			weight, bmi, fat *float64
		)
		if err := rs.Scan(&id, &ts, &weight, &bmi, &fat); err != nil {
			return err
		}
		out = append(out, models.WeightLogRow{UserID: id, Date: deref(ts), WeightKg: weight, BMI: bmi, Fat: fat})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, missing, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

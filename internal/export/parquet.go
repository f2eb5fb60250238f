package export

import (
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/meltforce/fitjoin/internal/pipeline"
)

type mergedParquetRow struct {
	UserID               int64    `parquet:"name=user_id, type=INT64"`
	Date                 string   `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TotalSteps           float64  `parquet:"name=total_steps, type=DOUBLE"`
	TotalDistance        float64  `parquet:"name=total_distance, type=DOUBLE"`
	Calories             float64  `parquet:"name=calories, type=DOUBLE"`
	SedentaryMinutes     float64  `parquet:"name=sedentary_minutes, type=DOUBLE"`
	LightlyActiveMinutes float64  `parquet:"name=lightly_active_minutes, type=DOUBLE"`
	FairlyActiveMinutes  float64  `parquet:"name=fairly_active_minutes, type=DOUBLE"`
	VeryActiveMinutes    float64  `parquet:"name=very_active_minutes, type=DOUBLE"`
	SleepMinutes         *float64 `parquet:"name=sleep_minutes, type=DOUBLE, repetitiontype=OPTIONAL"`
	HourlyCalories       *float64 `parquet:"name=hourly_calories, type=DOUBLE, repetitiontype=OPTIONAL"`
	TotalIntensity       *float64 `parquet:"name=total_intensity, type=DOUBLE, repetitiontype=OPTIONAL"`
	AverageIntensity     *float64 `parquet:"name=average_intensity, type=DOUBLE, repetitiontype=OPTIONAL"`
	HourlySteps          *float64 `parquet:"name=hourly_steps, type=DOUBLE, repetitiontype=OPTIONAL"`
	WeightKg             *float64 `parquet:"name=weight_kg, type=DOUBLE, repetitiontype=OPTIONAL"`
	BMI                  *float64 `parquet:"name=bmi, type=DOUBLE, repetitiontype=OPTIONAL"`
	FatPct               *float64 `parquet:"name=fat_pct, type=DOUBLE, repetitiontype=OPTIONAL"`
	HeartRate            *float64 `parquet:"name=heart_rate, type=DOUBLE, repetitiontype=OPTIONAL"`
	WeightSource         string   `parquet:"name=weight_source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	BMISource            string   `parquet:"name=bmi_source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	FatSource            string   `parquet:"name=fat_source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	HeartRateSource      string   `parquet:"name=heart_rate_source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Tier                 string   `parquet:"name=tier, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

type summaryParquetRow struct {
	UserID               int64   `parquet:"name=user_id, type=INT64"`
	Days                 int64   `parquet:"name=days, type=INT64"`
	Tier                 string  `parquet:"name=tier, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TotalSteps           float64 `parquet:"name=total_steps, type=DOUBLE"`
	TotalDistance        float64 `parquet:"name=total_distance, type=DOUBLE"`
	Calories             float64 `parquet:"name=calories, type=DOUBLE"`
	SedentaryMinutes     float64 `parquet:"name=sedentary_minutes, type=DOUBLE"`
	LightlyActiveMinutes float64 `parquet:"name=lightly_active_minutes, type=DOUBLE"`
	FairlyActiveMinutes  float64 `parquet:"name=fairly_active_minutes, type=DOUBLE"`
	VeryActiveMinutes    float64 `parquet:"name=very_active_minutes, type=DOUBLE"`
	SleepMinutes         float64 `parquet:"name=sleep_minutes, type=DOUBLE"`
	HourlyCalories       float64 `parquet:"name=hourly_calories, type=DOUBLE"`
	TotalIntensity       float64 `parquet:"name=total_intensity, type=DOUBLE"`
	AverageIntensity     float64 `parquet:"name=average_intensity, type=DOUBLE"`
	HourlySteps          float64 `parquet:"name=hourly_steps, type=DOUBLE"`
	WeightKg             float64 `parquet:"name=weight_kg, type=DOUBLE"`
	BMI                  float64 `parquet:"name=bmi, type=DOUBLE"`
	HeartRate            float64 `parquet:"name=heart_rate, type=DOUBLE"`
}

type statisticParquetRow struct {
	UserID int64   `parquet:"name=user_id, type=INT64"`
	Metric string  `parquet:"name=metric, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Mean   float64 `parquet:"name=mean, type=DOUBLE"`
	Median float64 `parquet:"name=median, type=DOUBLE"`
	Std    float64 `parquet:"name=std, type=DOUBLE"`
}

type leaderParquetRow struct {
	UserID            int64   `parquet:"name=user_id, type=INT64"`
	TotalSteps        float64 `parquet:"name=total_steps, type=DOUBLE"`
	TotalDistance     float64 `parquet:"name=total_distance, type=DOUBLE"`
	TotalCalories     float64 `parquet:"name=total_calories, type=DOUBLE"`
	AverageIntensity  float64 `parquet:"name=average_intensity, type=DOUBLE"`
	TotalRestfulSleep float64 `parquet:"name=total_restful_sleep, type=DOUBLE"`
	VeryActiveMinutes float64 `parquet:"name=very_active_minutes, type=DOUBLE"`
	FirstDate         string  `parquet:"name=first_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastDate          string  `parquet:"name=last_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	UsageDays         int64   `parquet:"name=usage_days, type=INT64"`
}

type championParquetRow struct {
	Metric string  `parquet:"name=metric, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserID int64   `parquet:"name=user_id, type=INT64"`
	Value  float64 `parquet:"name=value, type=DOUBLE"`
}

// bucketParquetRow keeps empty buckets as NaN.
type bucketParquetRow struct {
	Metric  string  `parquet:"name=metric, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Bucket  string  `parquet:"name=bucket, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Value   float64 `parquet:"name=value, type=DOUBLE"`
	Samples int64   `parquet:"name=samples, type=INT64"`
}

type weekpartParquetRow struct {
	Weekend      bool    `parquet:"name=weekend, type=BOOLEAN"`
	Days         int64   `parquet:"name=days, type=INT64"`
	TotalSteps   float64 `parquet:"name=total_steps, type=DOUBLE"`
	SleepMinutes float64 `parquet:"name=sleep_minutes, type=DOUBLE"`
	Calories     float64 `parquet:"name=calories, type=DOUBLE"`
}

type diagnosticParquetRow struct {
	Stage   string `parquet:"name=stage, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Source  string `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Kind    string `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Count   int64  `parquet:"name=count, type=INT64"`
	Message string `parquet:"name=message, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func parquetTable(rep *pipeline.Report, name string) ([]byte, error) {
	switch name {
	case TableMergedRecords:
		rows := make([]mergedParquetRow, 0, len(rep.MergedRecords))
		for _, r := range rep.MergedRecords {
			rows = append(rows, mergedParquetRow{
				UserID:               r.UserID,
				Date:                 string(r.Date),
				TotalSteps:           r.TotalSteps,
				TotalDistance:        r.TotalDistance,
				Calories:             r.Calories,
				SedentaryMinutes:     r.SedentaryMinutes,
				LightlyActiveMinutes: r.LightlyActiveMinutes,
				FairlyActiveMinutes:  r.FairlyActiveMinutes,
				VeryActiveMinutes:    r.VeryActiveMinutes,
				SleepMinutes:         r.SleepMinutes,
				HourlyCalories:       r.HourlyCalories,
				TotalIntensity:       r.TotalIntensity,
				AverageIntensity:     r.AverageIntensity,
				HourlySteps:          r.HourlySteps,
				WeightKg:             r.WeightKg,
				BMI:                  r.BMI,
				FatPct:               r.FatPct,
				HeartRate:            r.HeartRate,
				WeightSource:         string(r.WeightSource),
				BMISource:            string(r.BMISource),
				FatSource:            string(r.FatSource),
				HeartRateSource:      string(r.HeartRateSource),
				Tier:                 r.Tier.String(),
			})
		}
		return marshalParquet(rows)
	case TableSummaries:
		rows := make([]summaryParquetRow, 0, len(rep.Summaries))
		for _, s := range rep.Summaries {
			rows = append(rows, summaryParquetRow{
				UserID:               s.UserID,
				Days:                 int64(s.Days),
				Tier:                 s.Tier.String(),
				TotalSteps:           s.TotalSteps,
				TotalDistance:        s.TotalDistance,
				Calories:             s.Calories,
				SedentaryMinutes:     s.SedentaryMinutes,
				LightlyActiveMinutes: s.LightlyActiveMinutes,
				FairlyActiveMinutes:  s.FairlyActiveMinutes,
				VeryActiveMinutes:    s.VeryActiveMinutes,
				SleepMinutes:         s.SleepMinutes,
				HourlyCalories:       s.HourlyCalories,
				TotalIntensity:       s.TotalIntensity,
				AverageIntensity:     s.AverageIntensity,
				HourlySteps:          s.HourlySteps,
				WeightKg:             s.WeightKg,
				BMI:                  s.BMI,
				HeartRate:            s.HeartRate,
			})
		}
		return marshalParquet(rows)
	case TableStatistics:
		var rows []statisticParquetRow
		for _, s := range rep.Statistics {
			for i, m := range statisticBlocks(s) {
				rows = append(rows, statisticParquetRow{
					UserID: s.UserID,
					Metric: statisticsMetrics[i],
					Mean:   m.Mean,
					Median: m.Median,
					Std:    m.Std,
				})
			}
		}
		return marshalParquet(rows)
	case TableLeaderMetrics:
		rows := make([]leaderParquetRow, 0, len(rep.LeaderMetrics))
		for _, l := range rep.LeaderMetrics {
			rows = append(rows, leaderParquetRow{
				UserID:            l.UserID,
				TotalSteps:        l.TotalSteps,
				TotalDistance:     l.TotalDistance,
				TotalCalories:     l.TotalCalories,
				AverageIntensity:  l.AverageIntensity,
				TotalRestfulSleep: l.TotalRestfulSleep,
				VeryActiveMinutes: l.VeryActiveMinutes,
				FirstDate:         string(l.FirstDate),
				LastDate:          string(l.LastDate),
				UsageDays:         int64(l.UsageDays),
			})
		}
		return marshalParquet(rows)
	case TableChampions:
		rows := make([]championParquetRow, 0, len(rep.Champions))
		for _, c := range rep.Champions {
			rows = append(rows, championParquetRow{Metric: c.Metric, UserID: c.UserID, Value: c.Value})
		}
		return marshalParquet(rows)
	case TableTimeBuckets:
		rows := make([]bucketParquetRow, 0, len(rep.TimeBuckets))
		for _, b := range rep.TimeBuckets {
			rows = append(rows, bucketParquetRow{Metric: b.Metric, Bucket: b.Bucket, Value: b.Value, Samples: int64(b.Samples)})
		}
		return marshalParquet(rows)
	case TableWeekpart:
		rows := make([]weekpartParquetRow, 0, len(rep.Weekpart))
		for _, w := range rep.Weekpart {
			rows = append(rows, weekpartParquetRow{
				Weekend:      w.Weekend,
				Days:         int64(w.Days),
				TotalSteps:   w.TotalSteps,
				SleepMinutes: w.SleepMinutes,
				Calories:     w.Calories,
			})
		}
		return marshalParquet(rows)
	case TableDiagnostics:
		rows := make([]diagnosticParquetRow, 0, len(rep.Diagnostics))
		for _, d := range rep.Diagnostics {
			rows = append(rows, diagnosticParquetRow{
				Stage:   d.Stage,
				Source:  d.Source,
				Kind:    string(d.Kind),
				Count:   int64(d.Count),
				Message: d.Message,
			})
		}
		return marshalParquet(rows)
	}
	return nil, &UnknownTableError{Table: name}
}

// marshalParquet encodes rows into an in-memory snappy parquet file.
func marshalParquet[T any](rows []T) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(T), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

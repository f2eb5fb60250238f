package pipeline

import (
	"errors"
	"fmt"

	"github.com/meltforce/fitjoin/internal/models"
)

// WeightMatch selects how weight_log entries are matched to spine days.
type WeightMatch string

const (
	// WeightSameDay joins only entries logged on the spine date.
	WeightSameDay WeightMatch = "same_day"
	// WeightNearest joins the user's entry closest in days. On equal
	// distance the earlier entry wins.
	WeightNearest WeightMatch = "nearest"
)

// TierMeasure selects the per-user scalar the classifier thresholds.
type TierMeasure string

const (
	// TierDayCount counts the user's distinct tracked days.
	TierDayCount TierMeasure = "day_count"
	// TierMeanVeryActive uses the user's mean very-active minutes per day.
	TierMeanVeryActive TierMeasure = "mean_very_active"
)

// Policy holds every data-shaping choice of a run. It is fixed for the whole
// dataset and reported with each result.
type Policy struct {
	SleepState  models.SleepPolicy `json:"sleep_state"`
	WeightMatch WeightMatch        `json:"weight_match"`
	TierMeasure TierMeasure        `json:"tier_measure"`
	// TierBreaks are the inclusive upper bounds of Light and Moderate. The
	// zero pair is the unset value and Validate replaces it with {10, 15}.
	TierBreaks [2]float64 `json:"tier_breaks"`
}

// DefaultPolicy returns the representative policy set.
func DefaultPolicy() Policy {
	return Policy{
		SleepState:  models.SleepAnyPositive,
		WeightMatch: WeightSameDay,
		TierMeasure: TierDayCount,
		TierBreaks:  [2]float64{10, 15},
	}
}

// Validate fills empty fields with defaults and rejects unknown names. A
// TierBreaks of {0, 0} counts as empty.
func (p *Policy) Validate() error {
	d := DefaultPolicy()
	sleep, err := models.ParseSleepPolicy(string(p.SleepState))
	if err != nil {
		return err
	}
	p.SleepState = sleep

	switch p.WeightMatch {
	case "":
		p.WeightMatch = d.WeightMatch
	case WeightSameDay, WeightNearest:
	default:
		return fmt.Errorf("unknown weight match %q", p.WeightMatch)
	}

	switch p.TierMeasure {
	case "":
		p.TierMeasure = d.TierMeasure
	case TierDayCount, TierMeanVeryActive:
	default:
		return fmt.Errorf("unknown tier measure %q", p.TierMeasure)
	}

	if p.TierBreaks == [2]float64{} {
		p.TierBreaks = d.TierBreaks
	}
	if p.TierBreaks[0] < 0 || p.TierBreaks[1] < p.TierBreaks[0] {
		return fmt.Errorf("tier breaks must satisfy 0 <= light <= moderate, got %v", p.TierBreaks)
	}
	return nil
}

// ErrSourceUnavailable matches any failure to read a source.
var ErrSourceUnavailable = errors.New("source unavailable")

// SourceError reports a fatal source failure with the source and stage it
// happened in. It matches ErrSourceUnavailable with errors.Is.
type SourceError struct {
	Source string
	Stage  string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool { return target == ErrSourceUnavailable }

package pipeline

import (
	"fmt"

	"github.com/meltforce/fitjoin/internal/models"
)

// weightBand maps a weight range to a representative BMI and weight. The
// table is a coarse heuristic, so values derived from it are tagged
// ProvenanceBandEstimate.
type weightBand struct {
	upperKg  float64 // exclusive; the last band is open
	bmi      float64
	weightKg float64
}

var weightBands = []weightBand{
	{50, 18.5, 45},
	{70, 22, 60},
	{90, 26, 80},
	{110, 30, 100},
	{0, 35, 115},
}

func bmiForWeight(kg float64) float64 {
	for _, b := range weightBands[:len(weightBands)-1] {
		if kg < b.upperKg {
			return b.bmi
		}
	}
	return weightBands[len(weightBands)-1].bmi
}

// weightForBMI returns the representative weight of the band whose BMI
// constant is nearest. The lighter band wins on equal distance.
func weightForBMI(bmi float64) float64 {
	best := weightBands[0]
	for _, b := range weightBands[1:] {
		if abs(b.bmi-bmi) < abs(best.bmi-bmi) {
			best = b
		}
	}
	return best.weightKg
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ImputeStats counts the cells filled by one imputation pass.
type ImputeStats struct {
	ZeroFilled    int
	MedianFilled  int
	BandEstimated int
}

// Impute fills the null cells of records in place. Count columns get 0.
// Weight and BMI are then cross-estimated from the band table where exactly one
// of them is measured, and every still-null continuous cell gets the dataset
// median of its measured cells. Columns in skip are left untouched. A
// continuous column without a single measured cell stays null and is reported.
// Only nil cells are written, so a second pass changes nothing.
func Impute(records []models.MergedDailyRecord, skip columnSet) (ImputeStats, []models.Diagnostic) {
	var stats ImputeStats
	var diags []models.Diagnostic

	for _, c := range countColumns {
		if skip[c] {
			continue
		}
		for i := range records {
			p := c.value(&records[i])
			if *p == nil {
				*p = models.Float(0)
				stats.ZeroFilled++
			}
		}
	}

	// Medians are computed before any continuous cell is written.
	medians := map[column]float64{}
	observed := map[column]bool{}
	for _, c := range continuousColumns {
		var vals []float64
		for i := range records {
			if v, ok := measured(c, &records[i]); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) > 0 {
			medians[c] = median(vals)
			observed[c] = true
		}
	}

	if !skip[colWeightKg] && !skip[colBMI] {
		for i := range records {
			r := &records[i]
			kg, hasKg := measured(colWeightKg, r)
			bmi, hasBMI := measured(colBMI, r)
			switch {
			case hasKg && r.BMI == nil:
				r.BMI = models.Float(bmiForWeight(kg))
				r.BMISource = models.ProvenanceBandEstimate
				stats.BandEstimated++
			case hasBMI && r.WeightKg == nil:
				r.WeightKg = models.Float(weightForBMI(bmi))
				r.WeightSource = models.ProvenanceBandEstimate
				stats.BandEstimated++
			}
		}
	}

	for _, c := range continuousColumns {
		if skip[c] {
			continue
		}
		missing := 0
		for i := range records {
			p := c.value(&records[i])
			if *p != nil {
				continue
			}
			if !observed[c] {
				missing++
				continue
			}
			*p = models.Float(medians[c])
			*c.source(&records[i]) = models.ProvenanceMedian
			stats.MedianFilled++
		}
		if missing > 0 {
			diags = append(diags, models.Diagnostic{
				Stage:   "impute",
				Source:  c.String(),
				Kind:    models.DiagNoObservations,
				Count:   missing,
				Message: fmt.Sprintf("no measured %s values; %d cells left null", c, missing),
			})
		}
	}
	return stats, diags
}

// measured returns the cell value when it came from the source. Cells with no
// provenance tag count as measured.
func measured(c column, r *models.MergedDailyRecord) (float64, bool) {
	p := *c.value(r)
	if p == nil {
		return 0, false
	}
	switch *c.source(r) {
	case models.ProvenanceMeasured, models.ProvenanceNone:
		return *p, true
	}
	return 0, false
}

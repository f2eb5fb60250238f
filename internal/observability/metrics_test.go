package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordRun verifies runs are counted by outcome.
func TestRecordRun(t *testing.T) {
	okBefore := testutil.ToFloat64(runsCounter.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(runsCounter.WithLabelValues("error"))

	RecordRun(time.Now(), nil)
	RecordRun(time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(runsCounter.WithLabelValues("ok")) - okBefore; got != 1 {
		t.Errorf("ok runs delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(runsCounter.WithLabelValues("error")) - errBefore; got != 1 {
		t.Errorf("error runs delta = %v, want 1", got)
	}
}

// TestRecordStageAndDiagnostic verifies the gauge holds the latest value and
// diagnostics accumulate.
func TestRecordStageAndDiagnostic(t *testing.T) {
	RecordStage("join", 10)
	RecordStage("join", 4)
	if got := testutil.ToFloat64(stageRows.WithLabelValues("join")); got != 4 {
		t.Errorf("stage rows = %v, want 4", got)
	}

	before := testutil.ToFloat64(diagnosticsCounter.WithLabelValues("weight_log", "malformed_date"))
	RecordDiagnostic("weight_log", "malformed_date")
	RecordDiagnostic("weight_log", "malformed_date")
	if got := testutil.ToFloat64(diagnosticsCounter.WithLabelValues("weight_log", "malformed_date")) - before; got != 2 {
		t.Errorf("diagnostics delta = %v, want 2", got)
	}
}

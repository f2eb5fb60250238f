package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meltforce/fitjoin/internal/models"
	"github.com/meltforce/fitjoin/internal/server"
)

// newAPIServer serves the real REST API over a fake pipeline run.
func newAPIServer(t *testing.T, run *fakeRunner, apiKey string) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(server.New(run, models.Filter{}, apiKey, log))
	t.Cleanup(ts.Close)
	return ts
}

// TestHTTPClientRoundTrip verifies every DataSource method decodes the API
// responses it calls.
func TestHTTPClientRoundTrip(t *testing.T) {
	run := &fakeRunner{rep: testReport()}
	client := NewHTTPClient(newAPIServer(t, run, "secret").URL+"/", "secret")
	ctx := context.Background()

	lb, err := client.Leaderboard(ctx, models.Filter{UserIDs: []int64{10, 20}, Start: "2016-04-12"})
	if err != nil {
		t.Fatal(err)
	}
	if len(lb.Metrics) != 3 || lb.Champions[0].UserID != 20 {
		t.Errorf("leaderboard = %+v", lb)
	}
	if len(run.last.UserIDs) != 2 || run.last.Start != "2016-04-12" {
		t.Errorf("filter sent = %+v", run.last)
	}

	d, err := client.UserDetail(ctx, 30, models.Filter{})
	if err != nil || d.Summary.Tier != models.TierHeavy {
		t.Errorf("user detail = %+v, %v", d, err)
	}
	if _, err := client.UserDetail(ctx, 99, models.Filter{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user: got %v", err)
	}

	buckets, err := client.TimeBuckets(ctx, models.Filter{})
	if err != nil || len(buckets) != 2 || !math.IsNaN(buckets[0].Value) || buckets[1].Samples != 420 {
		t.Errorf("buckets = %+v, %v", buckets, err)
	}

	records, err := client.Records(ctx, models.Filter{})
	if err != nil || len(records) != 3 {
		t.Errorf("records = %d, %v", len(records), err)
	}

	diags, err := client.Diagnostics(ctx, models.Filter{})
	if err != nil || diags.RunID != "run-1" || len(diags.Diagnostics) != 2 {
		t.Errorf("diagnostics = %+v, %v", diags, err)
	}

	users, err := client.Users(ctx, models.Filter{})
	if err != nil || len(users) != 3 || users[0] != 10 {
		t.Errorf("users = %v, %v", users, err)
	}
}

// TestHTTPClientAuth verifies a missing key surfaces the status code.
func TestHTTPClientAuth(t *testing.T) {
	client := NewHTTPClient(newAPIServer(t, &fakeRunner{rep: testReport()}, "secret").URL, "")
	_, err := client.Users(context.Background(), models.Filter{})

	var se *statusError
	if !errors.As(err, &se) || se.status != http.StatusUnauthorized {
		t.Errorf("got %v, want 401 status error", err)
	}
}

// TestFilterParams verifies the query encoding of filters.
func TestFilterParams(t *testing.T) {
	v := filterParams(models.Filter{UserIDs: []int64{1, 2}, End: "2016-05-12"})
	if v.Get("user") != "1,2" || v.Get("end") != "2016-05-12" || v.Has("start") {
		t.Errorf("params = %v", v)
	}
}

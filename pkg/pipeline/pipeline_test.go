package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowprobe/shadowprobe/pkg/config"
	"github.com/shadowprobe/shadowprobe/pkg/crawler"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/metrics"
	"github.com/shadowprobe/shadowprobe/pkg/ratelimit"
	"github.com/shadowprobe/shadowprobe/pkg/stats"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// shopServer links to one injectable page and one static page.
func shopServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/item?id=1">item</a> <a href="/about">about</a></body></html>`)
	})
	mux.HandleFunc("/item", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if r.URL.Query().Get("id") == "' OR '1'='1" {
			fmt.Fprint(w, "You have an error in your mysql syntax near ''")
			return
		}
		fmt.Fprint(w, "item one")
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "about us")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func fastOptions(target string) Options {
	return Options{
		Target:      target,
		Depth:       2,
		Concurrency: 4,
		RateLimit:   &ratelimit.Config{Permits: 20, RequestsPerSecond: 1000},
		Classes:     []finding.Class{finding.SQLi},
		Logger:      quietLogger(),
	}
}

func TestRun_FindsInjectionOnCrawledEndpoint(t *testing.T) {
	srv := shopServer(t)
	st := stats.New()
	var notified atomic.Int64

	opts := fastOptions(srv.URL)
	opts.Stats = st
	opts.OnVulnerability = func(*finding.Vulnerability) { notified.Add(1) }

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, finding.StatusCompleted, report.Status)
	assert.NotEmpty(t, report.ScanID)
	assert.Equal(t, srv.URL+"/", report.Endpoints[0], "seed is discovered first")
	assert.ElementsMatch(t, []string{srv.URL + "/", srv.URL + "/item?id=1", srv.URL + "/about"}, report.Endpoints)

	require.Len(t, report.Vulnerabilities, 1)
	v := report.Vulnerabilities[0]
	assert.Equal(t, finding.SQLi, v.Class)
	assert.Equal(t, finding.Critical, v.Severity)
	assert.Equal(t, "id", v.Parameter)
	assert.True(t, strings.HasPrefix(v.URL, srv.URL+"/item?"), v.URL)
	assert.Equal(t, int64(1), notified.Load())

	assert.Positive(t, report.TotalRequests)
	assert.False(t, report.EndTime.Before(report.StartTime))

	snap := st.Snapshot()
	assert.Equal(t, 3, snap.EndpointsDiscovered)
	assert.Equal(t, 1, snap.VulnerabilitiesFound)
	assert.Equal(t, report.TotalRequests, snap.TotalRequests)
	assert.Equal(t, 1, snap.BySeverity[finding.Critical])
}

func TestRun_NoFindingsIsCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "nothing to see")
	}))
	defer srv.Close()

	report, err := Run(context.Background(), fastOptions(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, finding.StatusCompleted, report.Status)
	assert.Empty(t, report.Vulnerabilities)
	assert.NotNil(t, report.Vulnerabilities)
	assert.Equal(t, []string{srv.URL + "/"}, report.Endpoints)
}

func TestRun_UnreachableTargetIsCompleted(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	report, err := Run(context.Background(), fastOptions(target))
	require.NoError(t, err)
	assert.Equal(t, finding.StatusCompleted, report.Status)
	assert.Equal(t, []string{target + "/"}, report.Endpoints)
	assert.Empty(t, report.Vulnerabilities)
}

func TestRun_InvalidTarget(t *testing.T) {
	for _, target := range []string{"", "example.com", "ftp://example.com/", "http://"} {
		t.Run(target, func(t *testing.T) {
			opts := fastOptions(target)
			report, err := Run(context.Background(), opts)
			require.ErrorIs(t, err, finding.ErrInvalidTarget)
			require.NotNil(t, report)
			assert.Equal(t, finding.StatusFailed, report.Status)
			assert.NotEmpty(t, report.Error)
			assert.Empty(t, report.Endpoints)
			assert.Zero(t, report.TotalRequests)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	srv := shopServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, fastOptions(srv.URL))
	require.ErrorIs(t, err, finding.ErrScanCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, finding.StatusCancelled, report.Status)
	assert.NotEmpty(t, report.Error)
}

func TestRun_SkipScan(t *testing.T) {
	srv := shopServer(t)
	var seen atomic.Int64

	st := stats.New()
	opts := fastOptions(srv.URL)
	opts.SkipScan = true
	opts.Stats = st
	opts.OnEndpoint = func(crawler.Endpoint) { seen.Add(1) }

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, report.Endpoints, 3)
	assert.Empty(t, report.Vulnerabilities)
	assert.Equal(t, int64(3), seen.Load())
	assert.Equal(t, int64(3), report.TotalRequests)

	rl := st.Snapshot().RateLimit
	assert.Equal(t, 20, rl.Permits)
	assert.Equal(t, int64(3), rl.Acquired)
	assert.Zero(t, rl.InFlight)
}

func TestRun_ClassRestriction(t *testing.T) {
	srv := shopServer(t)
	opts := fastOptions(srv.URL)
	opts.Classes = []finding.Class{finding.CORS}

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	for _, v := range report.Vulnerabilities {
		assert.Equal(t, finding.CORS, v.Class)
	}
}

func TestRun_FeedsMetrics(t *testing.T) {
	srv := shopServer(t)
	m := metrics.New()
	opts := fastOptions(srv.URL)
	opts.Metrics = m

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				values[mf.GetName()] += metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				values[mf.GetName()] += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(3), values["shadowprobe_endpoints_discovered"])
	assert.Equal(t, float64(1), values["shadowprobe_findings_total"])
	assert.Positive(t, values["shadowprobe_requests_total"])
}

func TestFromProfile(t *testing.T) {
	p, err := config.LoadProfile("stealth")
	require.NoError(t, err)

	opts, err := FromProfile("http://t/", p)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Depth)
	assert.Equal(t, 5, opts.Concurrency)
	assert.Equal(t, p.Timeout, opts.Timeout)
	want, _ := ratelimit.PresetConfig(ratelimit.PresetStealth, 0)
	assert.Equal(t, want, opts.RateLimit)
}

func TestFromProfile_BadRate(t *testing.T) {
	p := config.Default()
	p.Rate = "warp"
	_, err := FromProfile("http://t/", p)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestValidateTarget(t *testing.T) {
	assert.NoError(t, ValidateTarget("https://example.com"))
	assert.ErrorIs(t, ValidateTarget("mailto:x@example.com"), finding.ErrInvalidTarget)
	assert.ErrorIs(t, ValidateTarget("://bad"), finding.ErrInvalidTarget)
}

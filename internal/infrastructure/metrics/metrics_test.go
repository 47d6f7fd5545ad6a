package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistererRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegisterer(registry)

	if m.MatchesCreated == nil || m.HTTPRequests == nil || m.SessionsStarted == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.MatchesCreated.WithLabelValues("auto_matched").Inc()
	m.SessionsStarted.WithLabelValues("conflict").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.MatchesCreated.WithLabelValues("auto_matched")); got != 1 {
		t.Fatalf("expected 1 auto match, got %v", got)
	}
}

func TestNewWithRegistererIsolatesRegistries(t *testing.T) {
	first := NewWithRegisterer(prometheus.NewRegistry())
	second := NewWithRegisterer(prometheus.NewRegistry())

	first.AccountsCreated.Inc()

	if got := testutil.ToFloat64(second.AccountsCreated); got != 0 {
		t.Fatalf("expected independent counters, got %v", got)
	}
}

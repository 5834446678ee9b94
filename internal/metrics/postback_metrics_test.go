package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservePostbackCountsByOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPostbackMetrics(registry)

	m.ObservePostback("digenesia", OutcomePersisted, 10*time.Millisecond)
	m.ObservePostback("digenesia", OutcomeDuplicate, 5*time.Millisecond)
	m.ObservePostback("digenesia", OutcomeDuplicate, 5*time.Millisecond)
	m.ObservePostback("", OutcomeRejected, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("digenesia", OutcomeDuplicate)); got != 2 {
		t.Fatalf("expected 2 duplicate outcomes, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("unknown", OutcomeRejected)); got != 1 {
		t.Fatalf("expected empty partner label to map to unknown, got %v", got)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *PostbackMetrics
	m.ObservePostback("p", OutcomePersisted, time.Millisecond)
	m.IncIdentityFailure("p", IdentityKindSource)
	m.IncEnqueueFailure("task")
	m.IncTask("task", "ok")
	m.AddRetentionPurged("p", 3)
}

func TestRetentionPurgedIgnoresZero(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPostbackMetrics(registry)

	m.AddRetentionPurged("digenesia", 0)
	m.AddRetentionPurged("digenesia", 4)
	if got := testutil.ToFloat64(m.retentionPurged.WithLabelValues("digenesia")); got != 4 {
		t.Fatalf("expected 4 purged, got %v", got)
	}
}

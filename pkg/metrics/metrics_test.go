package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_CountersIncrementIndependently(t *testing.T) {
	m := New()
	m.FulfillmentsTotal.WithLabelValues("ok").Inc()
	m.FulfillmentsTotal.WithLabelValues("ok").Inc()
	m.FulfillmentsTotal.WithLabelValues("rejected").Inc()

	if got := testutil.ToFloat64(m.FulfillmentsTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FulfillmentsTotal.WithLabelValues("rejected")); got != 1 {
		t.Fatalf("rejected counter = %v, want 1", got)
	}
}

func TestNew_ProofDispatchHistogramObserves(t *testing.T) {
	m := New()
	m.ProofDispatchSeconds.Observe(0.5)
	if got := testutil.CollectAndCount(m.ProofDispatchSeconds); got != 1 {
		t.Fatalf("collected metric count = %d, want 1", got)
	}
}

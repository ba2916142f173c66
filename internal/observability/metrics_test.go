package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	// Two instances on separate registries must not collide.
	first := NewMetrics("", prometheus.NewRegistry())
	second := NewMetrics("", prometheus.NewRegistry())

	first.RecordsStored.Inc()
	first.RecordsStored.Inc()
	second.RecordsStored.Inc()

	if got := testutil.ToFloat64(first.RecordsStored); got != 2 {
		t.Errorf("first instance: got %v stored, want 2", got)
	}
	if got := testutil.ToFloat64(second.RecordsStored); got != 1 {
		t.Errorf("second instance: got %v stored, want 1", got)
	}
}

func TestNewMetrics_DefaultNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("", reg)
	m.NotificationsReceived.Inc()

	count, err := testutil.GatherAndCount(reg, "wallet_tracker_subscription_notifications_received_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 series under the default namespace, got %d", count)
	}
}

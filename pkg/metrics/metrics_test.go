package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistryRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.CacheRebuildsTotal.WithLabelValues("success").Inc()
	m.CacheRestaurants.Set(3)

	if got := testutil.ToFloat64(m.CacheRebuildsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("expected 1 rebuild, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheRestaurants); got != 3 {
		t.Errorf("expected gauge 3, got %v", got)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

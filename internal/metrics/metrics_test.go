package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClusterOpsCounter(t *testing.T) {
	before := testutil.ToFloat64(ClusterOps.WithLabelValues("get", "success"))
	ClusterOps.WithLabelValues("get", "success").Inc()
	after := testutil.ToFloat64(ClusterOps.WithLabelValues("get", "success"))
	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestStoreCountersByNamespace(t *testing.T) {
	StoreHits.WithLabelValues("session:user:").Inc()
	StoreMisses.WithLabelValues("session:user:").Inc()
	StoreTypeMismatches.WithLabelValues("chat:data:").Inc()

	if testutil.ToFloat64(StoreHits.WithLabelValues("session:user:")) < 1 {
		t.Error("expected hit counter to be recorded")
	}
	if testutil.ToFloat64(StoreTypeMismatches.WithLabelValues("chat:data:")) < 1 {
		t.Error("expected type mismatch counter to be recorded")
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenancy module: provisioning
// outcomes and the feature-resolution critical path.
type Metrics struct {
	TenantsProvisioned  prometheus.Counter
	ProvisioningFailed  prometheus.Counter
	ProvisionDuration   prometheus.Histogram
	ResolveDuration     prometheus.Histogram
	FeatureCacheHits    prometheus.Counter
	FeatureCacheMisses  prometheus.Counter
}

// New creates a Metrics instance with all tenancy metrics registered.
func New() *Metrics {
	return &Metrics{
		TenantsProvisioned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratus_tenants_provisioned_total",
			Help: "Total number of tenants fully provisioned",
		}),
		ProvisioningFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratus_tenant_provisioning_failures_total",
			Help: "Total number of provisioning runs that ended in failure",
		}),
		ProvisionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stratus_tenant_provision_duration_seconds",
			Help:    "Duration of full tenant provisioning runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stratus_effective_features_duration_seconds",
			Help:    "Duration of effective feature set resolution",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		FeatureCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratus_feature_cache_hits_total",
			Help: "Effective feature set cache hits",
		}),
		FeatureCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratus_feature_cache_misses_total",
			Help: "Effective feature set cache misses",
		}),
	}
}

// ObserveProvision records the duration of a provisioning run.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveProvision(start time.Time) {
	m.ProvisionDuration.Observe(time.Since(start).Seconds())
}

// ObserveResolve records the duration of an effective-feature resolution.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

package tenancy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Isolation metrics
var (
	// BypassTotal counts operations executed with tenant filtering disabled.
	BypassTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_tenancy_bypass_total",
			Help: "Operations executed with the administrative tenancy bypass",
		},
		[]string{"operation", "table"},
	)

	// CrossStoreRejections counts writes rejected because a referenced record
	// belonged to another store.
	CrossStoreRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_tenancy_cross_store_rejections_total",
			Help: "Writes rejected by same-store association validation",
		},
		[]string{"table"},
	)

	// StoreRequiredFailures counts operations refused under the required
	// policy because no store could be resolved.
	StoreRequiredFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_tenancy_store_required_failures_total",
			Help: "Operations refused because no current store was resolvable",
		},
		[]string{"operation", "table"},
	)

	// UniquenessRejections counts writes rejected by scoped or global
	// uniqueness validation.
	UniquenessRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_tenancy_uniqueness_rejections_total",
			Help: "Writes rejected by uniqueness validation",
		},
		[]string{"table", "scope"},
	)
)

// Package metrics defines the Prometheus metrics exported by the catio hub.
//
// All metrics are registered with the default registry at package import
// time using promauto. To expose them, mount promhttp.Handler() on the
// metrics listener:
//
//	import "github.com/prometheus/client_golang/prometheus/promhttp"
//
//	mux.Handle("/metrics", promhttp.Handler())
package metrics

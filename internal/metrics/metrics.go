package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EndpointResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_responses_total",
		Help: "The total number of endpoint responses",
	}, []string{"endpoint", "status_code"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gpuprim_request_duration_seconds",
		Help:    "Latency of served requests by endpoint, workload type and status code",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4m
	}, []string{"endpoint", "workload", "status_code"})

	// Dispatch metrics
	KernelLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gpuprim_kernel_launches_total",
		Help: "Total number of kernel launches by entry point",
	}, []string{"kernel"})

	KernelCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gpuprim_kernel_cache_lookups_total",
		Help: "Compiled-kernel cache lookups by result (hit or miss)",
	}, []string{"result"})

	// Operation metrics
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gpuprim_operation_duration_ms",
		Help:    "Duration of a top-level primitive operation in milliseconds",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 16), // 0.25ms to ~8s
	}, []string{"operation", "strategy"})

	OperationRounds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gpuprim_operation_rounds",
		Help: "Number of kernel rounds issued by the last operation",
	}, []string{"operation", "strategy"})

	VerificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gpuprim_verification_failures_total",
		Help: "Results that did not match the host reference",
	}, []string{"operation"})

	// Device metrics
	DeviceAllocatedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gpuprim_device_allocated_bytes",
		Help: "Bytes held by live device arrays",
	})
)

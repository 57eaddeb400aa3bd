// Package metrics exposes benchmark results through Prometheus, so long
// sweeps can be watched from a dashboard while they run.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"workflow-sched/pkg/core"
)

var (
	trialCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sched_trials_total",
			Help: "Total number of scheduling trials executed, by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)
	slrGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sched_trial_slr",
			Help: "Schedule length ratio of the most recent trial.",
		},
		[]string{"strategy", "tasks", "vms", "ccr"},
	)
	avuGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sched_trial_avu",
			Help: "Average VM utilization of the most recent trial.",
		},
		[]string{"strategy", "tasks", "vms", "ccr"},
	)
	vfGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sched_trial_vf",
			Help: "Variance factor of the most recent trial.",
		},
		[]string{"strategy", "tasks", "vms", "ccr"},
	)
	makespanGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sched_trial_makespan",
			Help: "Makespan of the most recent trial.",
		},
		[]string{"strategy", "tasks", "vms", "ccr"},
	)
)

func init() {
	prometheus.MustRegister(trialCounter, slrGauge, avuGauge, vfGauge, makespanGauge)
}

// Observe publishes one trial's metrics. Failed trials only bump the counter.
func Observe(strategy string, taskCount, vmCount int, ccr float64, m core.Metrics, failed bool) {
	if failed {
		trialCounter.WithLabelValues(strategy, "error").Inc()
		return
	}
	trialCounter.WithLabelValues(strategy, "ok").Inc()

	labels := []string{
		strategy,
		fmt.Sprint(taskCount),
		fmt.Sprint(vmCount),
		fmt.Sprintf("%.2f", ccr),
	}
	slrGauge.WithLabelValues(labels...).Set(m.SLR)
	avuGauge.WithLabelValues(labels...).Set(m.AVU)
	vfGauge.WithLabelValues(labels...).Set(m.VF)
	makespanGauge.WithLabelValues(labels...).Set(m.Makespan)
}

// Serve starts the /metrics endpoint in the background.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		logrus.WithField("addr", addr).Info("serving prometheus metrics")
		if err := http.ListenAndServe(addr, mux); err != nil {
			logrus.WithError(err).Error("metrics server stopped")
		}
	}()
}

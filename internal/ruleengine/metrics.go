package ruleengine

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics はエンジン操作のPrometheusメトリクス。
type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pushrules",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Number of push rule engine operations by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pushrules",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Latency of push rule engine operations including the document store round trip.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		m.operations = register(reg, m.operations)
		m.duration = register(reg, m.duration)
	}
	return m
}

// register はコレクタを登録する。同じメトリクスが登録済みならそちらを使う。
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// observe は操作の結果と所要時間を記録する。deferで呼ぶ。
func (m *metrics) observe(op string, start time.Time, errp *error) {
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.operations.WithLabelValues(op, resultLabel(*errp)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidParam):
		return "invalid_param"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrCorruptData):
		return "corrupt"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

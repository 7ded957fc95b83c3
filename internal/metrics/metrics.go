// Package metrics holds the Prometheus instruments of the agency client.
//
// A Metrics value is created once per process (or per test) against its own
// registerer so independent clients never collide on registration.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agency"

// Interceptor slots
const (
	SlotRequest  = "request"
	SlotResponse = "response"
)

// Metrics groups every instrument used by the transport and the session
type Metrics struct {
	InterceptorInstalls *prometheus.CounterVec
	InterceptorEjects   *prometheus.CounterVec
	Requests            *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec

	Logins        prometheus.Counter
	Logouts       prometheus.Counter
	Invalidations prometheus.Counter
	Refreshes     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the instruments on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWith(reg, reg)
}

// NewWith registers the instruments on reg; g is used by Dump
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		InterceptorInstalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "interceptor_installs_total",
			Help:      "Interceptors installed on the shared HTTP client",
		}, []string{"slot"}),

		InterceptorEjects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "interceptor_ejects_total",
			Help:      "Interceptors ejected from the shared HTTP client",
		}, []string{"slot"}),

		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by method and outcome",
		}, []string{"method", "outcome"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API round trip duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		Logins: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Session login transitions",
		}),

		Logouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Session logout transitions, including invalidations",
		}),

		Invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "invalidations_total",
			Help:      "Sessions torn down because the API answered 401",
		}),

		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "profile_refreshes_total",
			Help:      "Profile refresh attempts by result",
		}, []string{"result"}),

		gatherer: g,
	}
}

// Dump writes every non-histogram sample as "name{labels} value" lines
func (m *Metrics) Dump(w io.Writer) error {
	if m == nil || m.gatherer == nil {
		return nil
	}

	families, err := m.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			var value float64
			switch {
			case metric.GetCounter() != nil:
				value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				value = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				value = float64(metric.GetHistogram().GetSampleCount())
			default:
				continue
			}

			labels := make([]string, 0, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)

			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			if _, err := fmt.Fprintf(w, "%s %g\n", name, value); err != nil {
				return err
			}
		}
	}

	return nil
}

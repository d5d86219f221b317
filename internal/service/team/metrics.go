package team

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts team operations by outcome.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics registers team collectors. teams reports the live team count.
func NewMetrics(reg prometheus.Registerer, teams func() int) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "team",
			Name:      "operations_total",
			Help:      "Count of team operations by outcome",
		}, []string{"op", "result"}),
	}
	active := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "arena",
		Subsystem: "team",
		Name:      "active_teams",
		Help:      "Number of teams currently registered",
	}, func() float64 { return float64(teams()) })

	if err := reg.Register(m.operations); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			m.operations = existing
		}
	}
	if err := reg.Register(active); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

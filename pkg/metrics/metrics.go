// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector exported by the service
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	AppointmentsTotal  *prometheus.CounterVec
	QueuePeopleWaiting *prometheus.GaugeVec
	QueueRefreshTotal  *prometheus.CounterVec
}

// New registers collectors in the default Prometheus registry
func New(serviceName string) *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, serviceName)
}

// NewWithRegistry registers collectors in reg
func NewWithRegistry(reg prometheus.Registerer, serviceName string) *Metrics {
	constLabels := prometheus.Labels{"app": serviceName}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),

		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query latency",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		DBQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_query_errors_total",
			Help:        "Database query errors",
			ConstLabels: constLabels,
		}, []string{"operation"}),

		DBConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "db_connections",
			Help:        "Database connection pool state",
			ConstLabels: constLabels,
		}, []string{"state"}),

		AppointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "appointments_total",
			Help:        "Appointment operations by outcome",
			ConstLabels: constLabels,
		}, []string{"operation", "outcome"}),

		QueuePeopleWaiting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "queue_people_waiting",
			Help:        "People waiting per service queue",
			ConstLabels: constLabels,
		}, []string{"service_id"}),

		QueueRefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "queue_refresh_total",
			Help:        "Queue status refresh runs by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueryDuration,
		m.DBQueryErrors,
		m.DBConnections,
		m.AppointmentsTotal,
		m.QueuePeopleWaiting,
		m.QueueRefreshTotal,
	)

	return m
}

// ObserveAppointment counts an appointment operation; nil-safe
func (m *Metrics) ObserveAppointment(operation, outcome string) {
	if m == nil {
		return
	}
	m.AppointmentsTotal.WithLabelValues(operation, outcome).Inc()
}

// SetPeopleWaiting records the queue length of a service; nil-safe
func (m *Metrics) SetPeopleWaiting(serviceID string, waiting int) {
	if m == nil {
		return
	}
	m.QueuePeopleWaiting.WithLabelValues(serviceID).Set(float64(waiting))
}

// ObserveQueueRefresh counts a refresher run; nil-safe
func (m *Metrics) ObserveQueueRefresh(outcome string) {
	if m == nil {
		return
	}
	m.QueueRefreshTotal.WithLabelValues(outcome).Inc()
}

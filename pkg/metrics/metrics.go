package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор prometheus-коллекторов сервиса.
// Все методы безопасны для вызова на nil - так сервис работает с выключенными метриками.
type Metrics struct {
	service string

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueriesTotal  *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec

	AppointmentsCreated  *prometheus.CounterVec
	AppointmentsUpdated  *prometheus.CounterVec
	AppointmentConflicts *prometheus.CounterVec
	AvailabilitySlots    *prometheus.HistogramVec
	OutboxPublished      *prometheus.CounterVec
}

// New создает и регистрирует коллекторы в переданном registerer
func New(serviceName string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		service: serviceName,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "route"}),
		DBQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database calls",
		}, []string{"service", "operation", "status"}),
		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database call latency",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"service", "operation"}),
		AppointmentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointments_created_total",
			Help: "Appointments created, by specialist assignment mode",
		}, []string{"service", "assignment"}),
		AppointmentsUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointments_updated_total",
			Help: "Appointments updated, by requester role",
		}, []string{"service", "role"}),
		AppointmentConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_conflicts_total",
			Help: "Rejected writes because the specialist was already booked",
		}, []string{"service", "operation"}),
		AvailabilitySlots: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "availability_slots_returned",
			Help:    "Number of free slots returned per availability query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}, []string{"service"}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events written to Kafka",
		}, []string{"service", "event_type"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.AppointmentsCreated,
		m.AppointmentsUpdated,
		m.AppointmentConflicts,
		m.AvailabilitySlots,
		m.OutboxPublished,
	)

	return m
}

// ServiceName возвращает имя сервиса, которым помечаются все метрики
func (m *Metrics) ServiceName() string {
	if m == nil {
		return ""
	}
	return m.service
}

func (m *Metrics) ObserveHTTPRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.service, method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.service, method, route).Observe(seconds)
}

func (m *Metrics) ObserveDBQuery(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.DBQueriesTotal.WithLabelValues(m.service, operation, status).Inc()
	m.DBQueryDuration.WithLabelValues(m.service, operation).Observe(seconds)
}

func (m *Metrics) IncAppointmentCreated(assignment string) {
	if m == nil {
		return
	}
	m.AppointmentsCreated.WithLabelValues(m.service, assignment).Inc()
}

func (m *Metrics) IncAppointmentUpdated(role string) {
	if m == nil {
		return
	}
	m.AppointmentsUpdated.WithLabelValues(m.service, role).Inc()
}

func (m *Metrics) IncAppointmentConflict(operation string) {
	if m == nil {
		return
	}
	m.AppointmentConflicts.WithLabelValues(m.service, operation).Inc()
}

func (m *Metrics) ObserveAvailabilitySlots(count int) {
	if m == nil {
		return
	}
	m.AvailabilitySlots.WithLabelValues(m.service).Observe(float64(count))
}

func (m *Metrics) IncOutboxPublished(eventType string) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(m.service, eventType).Inc()
}

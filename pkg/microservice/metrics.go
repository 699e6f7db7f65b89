package microservice

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the chat server
type Metrics struct {
	ChatRequests *prometheus.CounterVec
	ChatDuration *prometheus.HistogramVec
	ToolCalls    *prometheus.CounterVec
}

// NewMetrics creates the chat server metrics and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_supervisor_chat_requests_total",
			Help: "Total number of chat requests by endpoint and outcome",
		}, []string{"endpoint", "status"}),
		ChatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_supervisor_chat_duration_seconds",
			Help:    "Duration of supervisor turns",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"endpoint"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_supervisor_tool_calls_total",
			Help: "Total number of tool results produced during chat turns",
		}, []string{"tool"}),
	}

	reg.MustRegister(m.ChatRequests, m.ChatDuration, m.ToolCalls)
	return m
}

package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

var (
	publishedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_producer_messages_total",
		Help: "Messages handed to the Kafka writer, by topic and result.",
	}, []string{"topic", "result"})

	publishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_producer_publish_duration_seconds",
		Help:    "Time spent writing one message, including broker acks.",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 10},
	}, []string{"topic"})
)

func observePublish(topic string, seconds float64, err error) {
	publishDuration.WithLabelValues(topic).Observe(seconds)
	result := resultOK
	if err != nil {
		result = resultError
	}
	publishedMessages.WithLabelValues(topic, result).Inc()
}

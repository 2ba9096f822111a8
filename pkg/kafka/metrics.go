package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	producedTotal   *prometheus.CounterVec
	producedBytes   *prometheus.CounterVec
	produceLatency  *prometheus.HistogramVec
	consumedTotal   *prometheus.CounterVec
	consumeDuration *prometheus.HistogramVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		producedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iexcast_kafka_produced_messages_total",
			Help: "Messages written to Kafka",
		}, []string{"topic", "compression", "result"})
		producedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iexcast_kafka_produced_bytes_total",
			Help: "Payload bytes written to Kafka",
		}, []string{"topic"})
		produceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iexcast_kafka_produce_seconds",
			Help:    "Kafka write latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
		consumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iexcast_kafka_consumed_messages_total",
			Help: "Messages handled from Kafka",
		}, []string{"topic", "result"})
		consumeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iexcast_kafka_handle_seconds",
			Help:    "Handling time per consumed message, retries included",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func observeProduce(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	producedTotal.WithLabelValues(topic, comp, result(err)).Add(float64(count))
	if err == nil {
		producedBytes.WithLabelValues(topic).Add(float64(bytes))
	}
	produceLatency.WithLabelValues(topic).Observe(dur.Seconds())
}

func observeConsume(topic string, dur time.Duration, err error) {
	consumedTotal.WithLabelValues(topic, result(err)).Inc()
	consumeDuration.WithLabelValues(topic).Observe(dur.Seconds())
}

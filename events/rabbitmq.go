package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirrezaask/randomset/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rabbitmq/amqp091-go"
)

var prometheusDurationBuckets = []float64{
	0.0005,
	0.001, // 1ms
	0.002,
	0.005,
	0.01, // 10ms
	0.02,
	0.05,
	0.1, // 100 ms
	0.2,
	0.5,
	1.0, // 1s
}

type RabbitConfig struct {
	URI string
	// Exchange is declared as a durable topic exchange.
	Exchange         string
	MetricsNamespace string
	Registerer       prometheus.Registerer
}

// RabbitPublisher publishes every message on its own channel of a single
// connection.
type RabbitPublisher struct {
	conn     *amqp091.Connection
	exchange string
	duration *prometheus.HistogramVec
}

func NewRabbitPublisher(c RabbitConfig) (*RabbitPublisher, error) {
	conn, err := amqp091.DialConfig(c.URI, amqp091.Config{
		Properties: amqp091.NewConnectionProperties(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to rabbit")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "cannot create channel from rabbit mq connection")
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(c.Exchange, amqp091.ExchangeTopic, true, false, false, false, amqp091.Table{}); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "cannot declare exchange %s", c.Exchange)
	}

	if c.Registerer == nil {
		c.Registerer = prometheus.DefaultRegisterer
	}

	return &RabbitPublisher{
		conn:     conn,
		exchange: c.Exchange,
		duration: promauto.With(c.Registerer).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.MetricsNamespace,
			Name:      "amqp_publish_duration_seconds",
			Help:      "Duration of publishing store events by exchange and routing key.",
			Buckets:   prometheusDurationBuckets,
		}, []string{"exchange", "routing_key"}),
	}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, key string, body []byte) error {
	timer := prometheus.NewTimer(p.duration.WithLabelValues(p.exchange, key))
	defer timer.ObserveDuration()

	ch, err := p.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "cannot create channel from rabbit mq connection")
	}
	defer func() {
		if err := ch.Close(); err != nil {
			slog.Error("cannot close channel from rabbit mq connection", "err", err)
		}
	}()

	err = ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	return errors.Wrap(err, "cannot publish to exchange %s with key %s", p.exchange, key)
}

func (p *RabbitPublisher) Close() error {
	return p.conn.Close()
}

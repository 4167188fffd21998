package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/reed/pkg/metrics"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/Ramsey-B/reed/pkg/tracing"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Config holds Kafka configuration
type Config struct {
	Brokers []string
	Topic   string
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, topic string) Config {
	brokerList := make([]string, 0)
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokerList = append(brokerList, broker)
		}
	}

	return Config{
		Brokers: brokerList,
		Topic:   topic,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes catalog events
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		// dev brokers may not have the topic yet
		AllowAutoTopicCreation: true,
	}

	return newProducer(writer, cfg.Topic, logger)
}

func newProducer(writer messageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		topic:  topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Publish writes events in one batch. Events sharing a key keep their order.
func (p *Producer) Publish(ctx context.Context, events ...models.CatalogEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.Publish",
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.Int("messaging.batch_size", len(events)),
	)
	defer span.End()

	traceID := tracing.GetTraceID(ctx)
	spanID := tracing.GetSpanID(ctx)
	traceHeaders := tracing.Headers(ctx)

	messages := make([]kafka.Message, len(events))
	for i, evt := range events {
		if evt.Timestamp.IsZero() {
			evt.Timestamp = time.Now().UTC()
		}
		evt.TraceID = traceID
		evt.SpanID = spanID

		data, err := json.Marshal(evt)
		if err != nil {
			tracing.Fail(span, err, "failed to marshal event")
			return fmt.Errorf("failed to marshal event %s: %w", evt.Type, err)
		}

		headers := []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		}
		if evt.JobID != "" {
			headers = append(headers, kafka.Header{Key: "job_id", Value: []byte(evt.JobID)})
		}
		for _, name := range []string{"traceparent", "tracestate"} {
			if value := traceHeaders[name]; value != "" {
				headers = append(headers, kafka.Header{Key: name, Value: []byte(value)})
			}
		}

		messages[i] = kafka.Message{
			Key:     []byte(evt.Key()),
			Value:   data,
			Headers: headers,
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		tracing.Fail(span, err, "failed to publish events")
		for _, evt := range events {
			metrics.EventsPublishedTotal.WithLabelValues(evt.Type, "error").Inc()
		}
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish %d events to Kafka topic %s", len(events), p.topic)
		return err
	}

	for _, evt := range events {
		metrics.EventsPublishedTotal.WithLabelValues(evt.Type, "ok").Inc()
	}
	span.SetStatus(codes.Ok, "events published")
	p.logger.WithContext(ctx).Debugf("Published %d events to Kafka topic %s", len(events), p.topic)
	return nil
}

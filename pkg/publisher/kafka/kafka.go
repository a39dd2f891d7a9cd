// Package kafka publishes integration events to a Kafka topic with franz-go.
// Records are keyed by bill number and produced with acks from all in-sync
// replicas.
package kafka

import (
	"bills/pkg/domain"
	"bills/pkg/logger"
	"bills/pkg/publisher"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Options configures the Kafka publisher.
type Options struct {
	Brokers []string
	Topic   string
	// Partitions and ReplicationFactor are used when the topic has to be
	// created. Zero values let the broker pick its defaults.
	Partitions        int32
	ReplicationFactor int16
}

// Publisher produces bill events synchronously.
type Publisher struct {
	client *kgo.Client
	topic  string
	closed atomic.Bool
}

// New connects to the cluster and makes sure the topic exists.
func New(ctx context.Context, opts Options) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(opts.Brokers...),
		kgo.DefaultProduceTopic(opts.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()

		return nil, fmt.Errorf("could not reach kafka: %w", err)
	}

	if err := ensureTopic(ctx, client, opts); err != nil {
		client.Close()

		return nil, err
	}

	return &Publisher{client: client, topic: opts.Topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, opts Options) error {
	partitions, replicationFactor := opts.Partitions, opts.ReplicationFactor
	if partitions <= 0 {
		partitions = -1
	}
	if replicationFactor <= 0 {
		replicationFactor = -1
	}

	resp, err := kadm.NewClient(client).CreateTopic(ctx, partitions, replicationFactor, nil, opts.Topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("could not create topic %s: %w", opts.Topic, err)
	}

	return nil
}

func (p *Publisher) PublishBillCreated(ctx context.Context, event domain.BillCreatedEvent) error {
	if p.closed.Load() {
		return publisher.ErrClosed
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.BillNumber),
		Value: publisher.EncodeEnvelope(event),
		Headers: []kgo.RecordHeader{
			{Key: "content-type", Value: []byte(publisher.ContentType)},
			{Key: "event-name", Value: []byte(domain.BillCreatedEventName)},
		},
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("could not produce to %s: %w", p.topic, err)
	}

	logger.Debug(ctx, "bill created event produced",
		zap.Int64("bill_id", event.BillID),
		zap.String("topic", p.topic),
		zap.Int32("partition", record.Partition),
		zap.Int64("offset", record.Offset))

	return nil
}

func (p *Publisher) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.client.Close()
	}

	return nil
}

var _ publisher.Publisher = (*Publisher)(nil)

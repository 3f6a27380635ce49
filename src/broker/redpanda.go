package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"worklink/src/logger"
)

const (
	clientID = "worklink"
	// consumerBuffer bounds how many fetched records wait for a slow handler.
	consumerBuffer = 100
)

type groupKey struct {
	topic string
	group string
}

// RedpandaBroker carries worklink events over a Kafka-compatible cluster
// using franz-go. Offsets are committed only for records that were handed
// to the subscriber, so a crashed agent resumes from the first undelivered
// build.
type RedpandaBroker struct {
	producer *kgo.Client
	seeds    []string
	logger   logger.Logger

	mu        sync.RWMutex
	consumers map[groupKey]*kgo.Client
	closed    bool
}

// NewRedpandaBroker connects a producer to the given seed brokers
// (e.g. ["localhost:19092"]). Consumers are created per Subscribe call.
func NewRedpandaBroker(brokers []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker address is required")
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}

	producer, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	return &RedpandaBroker{
		producer:  producer,
		seeds:     brokers,
		logger:    log,
		consumers: make(map[groupKey]*kgo.Client),
	}, nil
}

// Publish produces one record and waits for the cluster to acknowledge it.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := b.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe joins groupID on topic. Only one subscription per topic and group
// is allowed per broker; run more processes to scale a group out.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	key := groupKey{topic: topic, group: groupID}
	if _, exists := b.consumers[key]; exists {
		return nil, fmt.Errorf("consumer already exists for topic %s and group %s", topic, groupID)
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(b.seeds...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.AutoCommitMarks(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	b.consumers[key] = consumer

	out := make(chan Message, consumerBuffer)
	go b.consume(ctx, key, consumer, out)

	return out, nil
}

// consume polls until ctx ends or the consumer is closed. A record is marked
// for commit once the subscriber's channel has accepted it.
func (b *RedpandaBroker) consume(ctx context.Context, key groupKey, consumer *kgo.Client, out chan<- Message) {
	defer close(out)
	defer b.release(key, consumer)

	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}

		failed := false
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			failed = true
			b.logger.Error("[RedpandaBroker] Fetch error on %s/%d: %v", topic, partition, err)
		})
		if failed {
			continue
		}

		for iter := fetches.RecordIter(); !iter.Done(); {
			record := iter.Next()
			select {
			case out <- toMessage(record):
				consumer.MarkCommitRecords(record)
			case <-ctx.Done():
				return
			}
		}
	}
}

func toMessage(record *kgo.Record) Message {
	return Message{
		Topic:     record.Topic,
		Key:       string(record.Key),
		Value:     record.Value,
		Offset:    record.Offset,
		Partition: record.Partition,
		Timestamp: record.Timestamp.UnixMilli(),
	}
}

// release closes a consumer whose subscription ended before the broker did.
func (b *RedpandaBroker) release(key groupKey, consumer *kgo.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.consumers[key] != consumer {
		return
	}
	delete(b.consumers, key)
	consumer.Close()
}

// Close shuts down the producer and every consumer. Closing twice is a no-op.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for key, consumer := range b.consumers {
		consumer.Close()
		delete(b.consumers, key)
	}
	b.producer.Close()

	return nil
}

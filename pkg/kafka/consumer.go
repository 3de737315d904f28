// Package kafka provides Kafka producer and reader clients backed by
// segmentio/kafka-go. The producer serialises events as JSON, while the
// Drainer replays a topic from its first offset up to the high-water mark
// captured at start, handing each message to a MessageHandler callback.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/segmentio/kafka-go"

	"github.com/taiga-forestry/multithreaded-search/pkg/config"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Drainer reads a topic to its current end and then stops. It is used to
// load bounded data sets (such as a corpus) that were published ahead of time.
type Drainer struct {
	brokers []string
	topic   string
	handler MessageHandler
	logger  *slog.Logger
}

// NewDrainer creates a Drainer for the given topic and handler.
func NewDrainer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Drainer {
	return &Drainer{
		brokers: cfg.Brokers,
		topic:   topic,
		handler: handler,
		logger:  slog.Default().With("component", "kafka-drainer", "topic", topic),
	}
}

// Drain reads every partition in ascending partition order from its first
// offset to the last offset observed when the partition is opened. Messages
// appended afterwards are not read. The first handler error aborts the drain.
func (d *Drainer) Drain(ctx context.Context) (int, error) {
	if len(d.brokers) == 0 {
		return 0, fmt.Errorf("no kafka brokers configured")
	}
	partitions, err := d.partitions(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range partitions {
		n, err := d.drainPartition(ctx, p)
		total += n
		if err != nil {
			return total, fmt.Errorf("draining partition %d: %w", p, err)
		}
	}
	d.logger.Info("topic drained", "partitions", len(partitions), "messages", total)
	return total, nil
}

func (d *Drainer) partitions(ctx context.Context) ([]int, error) {
	conn, err := kafka.DialContext(ctx, "tcp", d.brokers[0])
	if err != nil {
		return nil, fmt.Errorf("dialing kafka broker %s: %w", d.brokers[0], err)
	}
	defer conn.Close()
	parts, err := conn.ReadPartitions(d.topic)
	if err != nil {
		return nil, fmt.Errorf("reading partitions of %s: %w", d.topic, err)
	}
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.ID)
	}
	sort.Ints(ids)
	return ids, nil
}

func (d *Drainer) drainPartition(ctx context.Context, partition int) (int, error) {
	leader, err := kafka.DialLeader(ctx, "tcp", d.brokers[0], d.topic, partition)
	if err != nil {
		return 0, fmt.Errorf("dialing partition leader: %w", err)
	}
	first, last, err := leader.ReadOffsets()
	leader.Close()
	if err != nil {
		return 0, fmt.Errorf("reading offsets: %w", err)
	}
	if first >= last {
		return 0, nil
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   d.brokers,
		Topic:     d.topic,
		Partition: partition,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer r.Close()
	if err := r.SetOffset(first); err != nil {
		return 0, fmt.Errorf("seeking to offset %d: %w", first, err)
	}

	count := 0
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			return count, fmt.Errorf("reading message: %w", err)
		}
		d.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := d.handler(ctx, msg.Key, msg.Value); err != nil {
			return count, fmt.Errorf("handling offset %d: %w", msg.Offset, err)
		}
		count++
		if msg.Offset >= last-1 {
			return count, nil
		}
	}
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}

package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taiga-forestry/multithreaded-search/pkg/config"
	"github.com/taiga-forestry/multithreaded-search/pkg/kafka"
)

// Drainer reads a bounded topic once. *kafka.Drainer satisfies it.
type Drainer interface {
	Drain(ctx context.Context) (int, error)
}

// KafkaSource loads pages published as JSON records to a topic, reading up
// to the end offset observed when the load starts.
type KafkaSource struct {
	topic    string
	newDrain func(handler kafka.MessageHandler) Drainer
}

// NewKafkaSource returns a source draining cfg.Topics.Pages.
func NewKafkaSource(cfg config.KafkaConfig) *KafkaSource {
	topic := cfg.Topics.Pages
	return &KafkaSource{
		topic: topic,
		newDrain: func(h kafka.MessageHandler) Drainer {
			return kafka.NewDrainer(cfg, topic, h)
		},
	}
}

func (s *KafkaSource) Name() string { return "kafka:" + s.topic }

// PageMessage is the JSON value of a page record on the topic. The id may be
// a JSON number or a string.
type PageMessage struct {
	ID    json.RawMessage `json:"id"`
	Title string          `json:"title"`
	Text  string          `json:"text"`
}

func (s *KafkaSource) Load(ctx context.Context) (*Result, error) {
	c := newCollector(s.Name())
	d := s.newDrain(func(ctx context.Context, key, value []byte) error {
		msg, err := kafka.DecodeJSON[PageMessage](value)
		if err != nil {
			c.skip(string(key), err)
			return nil
		}
		c.add(Record{ID: rawID(msg.ID), Title: msg.Title, Text: msg.Text})
		return nil
	})
	if _, err := d.Drain(ctx); err != nil {
		return nil, fmt.Errorf("draining %s: %w", s.topic, err)
	}
	return c.done(), nil
}

// rawID unquotes a string id and passes numbers through verbatim.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Events converts pages to producer events keyed by id, for publishing a
// corpus to the pages topic.
func Events(pages []Record) []kafka.Event {
	events := make([]kafka.Event, 0, len(pages))
	for _, p := range pages {
		events = append(events, kafka.Event{
			Key: p.ID,
			Value: map[string]string{
				"id":    p.ID,
				"title": p.Title,
				"text":  p.Text,
			},
		})
	}
	return events
}

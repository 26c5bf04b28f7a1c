// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

var (
	// ErrBrokersRequired indicates no Kafka broker address was configured.
	ErrBrokersRequired = errors.New("kafka brokers required")

	// ErrTopicRequired indicates no Kafka topic was configured.
	ErrTopicRequired = errors.New("kafka topic required")
)

// DefaultWriteTimeout bounds a single publish.
const DefaultWriteTimeout = 10 * time.Second

// KafkaConfig configures a KafkaPublisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// Option configures a KafkaPublisher.
type Option func(*KafkaPublisher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *KafkaPublisher) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

func withWriter(w messageWriter) Option {
	return func(p *KafkaPublisher) error {
		p.writer = w
		return nil
	}
}

// NewKafkaPublisher creates a publisher for config.Topic.
func NewKafkaPublisher(config KafkaConfig, opts ...Option) (*KafkaPublisher, error) {
	if len(config.Brokers) == 0 {
		return nil, ErrBrokersRequired
	}
	if config.Topic == "" {
		return nil, ErrTopicRequired
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}

	p := &KafkaPublisher{
		timeout: config.WriteTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(config.Brokers...),
			Topic:        config.Topic,
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: config.WriteTimeout,
			RequiredAcks: kafka.RequireOne,
		}
	}
	p.logger = p.logger.With("component", "notify", "topic", config.Topic)
	return p, nil
}

// Publish writes event as one JSON message keyed by document version.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := encodeMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	p.logger.Debug("event published", "type", event.Type, "version", event.Version)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encodeMessage(event Event) (kafka.Message, error) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Version),
		Value: value,
		Time:  event.Time,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}, nil
}

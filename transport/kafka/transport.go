// Copyright 2026 Tesserae Systems
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


// Package kafka implements the queue transport over Apache Kafka: a
// consumer-group reader on the work topic, a writer on the reply topic, and
// a background listener on the connection-update topic feeding the
// pending-invalidation set the work loop drains at batch boundaries.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/tesserae/deepinspect/core"
	"github.com/tesserae/deepinspect/transport"
)

// Config holds the Kafka connection settings.
type Config struct {
	Brokers          []string
	WorkTopic        string
	ReplyTopic       string
	ConnectionsTopic string // optional; empty disables invalidation signals
	GroupID          string
}

// Validate checks that the configuration names a complete transport.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrBrokersRequired
	}
	if c.WorkTopic == "" || c.ReplyTopic == "" {
		return ErrTopicsRequired
	}
	if c.GroupID == "" {
		return ErrGroupRequired
	}
	return nil
}

var (
	ErrBrokersRequired = errors.New("kafka brokers required")
	ErrTopicsRequired  = errors.New("kafka work and reply topics required")
	ErrGroupRequired   = errors.New("kafka consumer group required")
)

// Transport is the Kafka-backed queue transport.
type Transport struct {
	reader *kafka.Reader
	writer *kafka.Writer
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	stale map[core.SourceID]struct{}
}

var (
	_ transport.Transport     = (*Transport)(nil)
	_ transport.StaleNotifier = (*Transport)(nil)
)

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New connects the transport and, when a connections topic is configured,
// starts the invalidation listener.
func New(config *Config, opts ...Option) (*Transport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	t := &Transport{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: config.Brokers,
			GroupID: config.GroupID,
			Topic:   config.WorkTopic,
		}),
		writer: &kafka.Writer{
			Addr:     kafka.TCP(config.Brokers...),
			Topic:    config.ReplyTopic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: slog.Default().With("component", "kafka-transport"),
		done:   make(chan struct{}),
		stale:  make(map[core.SourceID]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	background, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	if config.ConnectionsTopic != "" {
		go t.listenConnections(background, config)
	} else {
		close(t.done)
	}

	return t, nil
}

// Receive waits up to timeout for the next work message.
// Returns nil, nil on poll timeout.
func (t *Transport) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	message, err := t.reader.ReadMessage(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, err
	}
	return message.Value, nil
}

// Send delivers one encoded reply to the reply topic.
func (t *Transport) Send(ctx context.Context, reply []byte) error {
	return t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(uuid.NewString()),
		Value: reply,
	})
}

// DrainStale empties and returns the pending-invalidation set.
func (t *Transport) DrainStale() []core.SourceID {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.stale) == 0 {
		return nil
	}
	drained := make([]core.SourceID, 0, len(t.stale))
	for source := range t.stale {
		drained = append(drained, source)
	}
	t.stale = make(map[core.SourceID]struct{})
	return drained
}

// Close tears down the readers and the writer.
func (t *Transport) Close() error {
	t.cancel()
	<-t.done

	readerErr := t.reader.Close()
	writerErr := t.writer.Close()
	if readerErr != nil {
		return readerErr
	}
	return writerErr
}

// listenConnections consumes connection-update events until Close.
// Each event marks a datasource whose handle must not serve another batch.
func (t *Transport) listenConnections(ctx context.Context, config *Config) {
	defer close(t.done)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: config.Brokers,
		GroupID: config.GroupID + "-connections",
		Topic:   config.ConnectionsTopic,
	})
	defer reader.Close()

	for {
		message, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.Warn("connection-update read failed", "err", err)
			continue
		}

		source := parseConnectionUpdate(message.Value)
		if source == "" {
			t.logger.Warn("unparseable connection update", "value", string(message.Value))
			continue
		}

		t.logger.Debug("datasource marked stale", "source", source)
		t.mu.Lock()
		t.stale[source] = struct{}{}
		t.mu.Unlock()
	}
}

// parseConnectionUpdate accepts either a JSON {"connection": "..."} event
// or a bare connection name.
func parseConnectionUpdate(value []byte) core.SourceID {
	var wire struct {
		Connection string `json:"connection"`
	}
	if err := json.Unmarshal(value, &wire); err == nil && wire.Connection != "" {
		return core.SourceID(wire.Connection)
	}
	return core.SourceID(strings.TrimSpace(string(value)))
}

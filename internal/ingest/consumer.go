// Package ingest streams quote batches from Kafka into the broker.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/service"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventHandler accepts broker events.
type EventHandler interface {
	Handle(ctx context.Context, ev service.Event) (*service.Result, error)
}

// Config holds the Kafka reader settings.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewReader builds a group reader for cfg.
func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
}

// Batch is the message payload: quotes sharing one frequency. An empty
// frequency leaves timestamps as sent.
type Batch struct {
	Frequency domain.Frequency `json:"frequency"`
	Quotes    []domain.Quote   `json:"quotes"`
}

// Consumer feeds each batch to the broker as an IncomingQuotes event.
type Consumer struct {
	reader  MessageReader
	handler EventHandler
	logger  *slog.Logger
}

// NewConsumer creates a Consumer.
func NewConsumer(reader MessageReader, handler EventHandler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{reader: reader, handler: handler, logger: logger}
}

// Run consumes until ctx is cancelled or the reader fails. Undecodable
// messages are logged and committed so they are not redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("quote consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("quote consumer stopped")
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		if err := c.handle(ctx, msg); err != nil {
			c.logger.Warn("quote batch dropped",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("committing offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var batch Batch
	if err := json.Unmarshal(msg.Value, &batch); err != nil {
		return fmt.Errorf("decoding batch: %w", err)
	}
	if batch.Frequency != "" && !batch.Frequency.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownFrequency, batch.Frequency)
	}
	if len(batch.Quotes) == 0 {
		return errors.New("empty batch")
	}

	res, err := c.handler.Handle(ctx, service.IncomingQuotes{
		Quotes:    batch.Quotes,
		Frequency: batch.Frequency,
	})
	if err != nil {
		return err
	}
	c.logger.Debug("quote batch merged",
		"offset", msg.Offset,
		"received", len(batch.Quotes),
		"inserted", res.Inserted,
	)
	return nil
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

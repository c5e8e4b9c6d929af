// Package eventbus builds the watermill publisher and subscriber used for lifecycle events.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Backend names.
const (
	BackendInProcess = "gochannel"
	BackendJetStream = "jetstream"
)

// EventBus pairs a publisher with a subscriber on the same transport.
type EventBus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	backend string
	logger  watermill.LoggerAdapter
	closers []func() error
}

// New returns a JetStream bus when natsURL is set and an in-process bus otherwise.
// streams maps JetStream stream names to their subjects.
func New(natsURL string, streams map[string][]string, logger *slog.Logger) (*EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	if natsURL == "" {
		return NewInProcess(wmLogger), nil
	}
	return newJetStreamBus(natsURL, streams, wmLogger)
}

// NewInProcess returns a bus backed by a watermill go channel.
func NewInProcess(logger watermill.LoggerAdapter) *EventBus {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
		Persistent:          false,
	}, logger)
	return &EventBus{
		Publisher:  ch,
		Subscriber: ch,
		backend:    BackendInProcess,
		logger:     logger,
		closers:    []func() error{ch.Close},
	}
}

// Backend reports which transport the bus uses.
func (b *EventBus) Backend() string { return b.backend }

// Logger returns the watermill logger the bus was built with.
func (b *EventBus) Logger() watermill.LoggerAdapter { return b.logger }

// Close releases the underlying connections.
func (b *EventBus) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewJSONMessage marshals payload into a watermill message carrying ctx.
func NewJSONMessage(ctx context.Context, payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("content_type", "application/json")
	msg.SetContext(ctx)
	return msg, nil
}

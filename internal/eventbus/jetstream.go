package eventbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	nc "github.com/nats-io/nats.go"
)

// natsOptions are shared by the stream bootstrap connection, the publisher and the subscriber.
func natsOptions(logger watermill.LoggerAdapter) []nc.Option {
	return []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.ErrorHandler(func(_ *nc.Conn, s *nc.Subscription, err error) {
			if s != nil {
				logger.Error("Error in subscription", err, watermill.LogFields{
					"subject": s.Subject,
					"queue":   s.Queue,
				})
			} else {
				logger.Error("Error in connection", err, nil)
			}
		}),
	}
}

// newJetStreamBus connects watermill to NATS JetStream. Streams are provisioned up front
// by EnsureStream, so watermill's own auto provisioning stays off.
func newJetStreamBus(natsURL string, streams map[string][]string, logger watermill.LoggerAdapter) (*EventBus, error) {
	options := natsOptions(logger)

	conn, err := nc.Connect(natsURL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	for name, subjects := range streams {
		if err := EnsureStream(js, name, subjects, logger); err != nil {
			conn.Close()
			return nil, err
		}
	}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         natsURL,
			NatsOptions: options,
			Marshaler:   &nats.NATSMarshaler{},
			JetStream: nats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
			},
		},
		logger,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create Watermill NATS publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:         natsURL,
			NatsOptions: options,
			Unmarshaler: &nats.NATSMarshaler{},
			JetStream: nats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
			},
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create Watermill NATS subscriber: %w", err)
	}

	return &EventBus{
		Publisher:  publisher,
		Subscriber: subscriber,
		backend:    BackendJetStream,
		logger:     logger,
		closers:    []func() error{publisher.Close, subscriber.Close, func() error { conn.Close(); return nil }},
	}, nil
}

// EnsureStream creates a JetStream stream unless it already exists.
func EnsureStream(js nc.JetStreamContext, streamName string, subjects []string, logger watermill.LoggerAdapter) error {
	if !isValidStreamName(streamName) {
		return fmt.Errorf("invalid stream name: %s", streamName)
	}

	info, err := js.StreamInfo(streamName)
	if err != nil && !errors.Is(err, nc.ErrStreamNotFound) {
		return fmt.Errorf("failed to get stream info: %w", err)
	}
	if info != nil {
		logger.Debug("Stream already exists", watermill.LogFields{"stream": streamName})
		return nil
	}

	if _, err := js.AddStream(&nc.StreamConfig{
		Name:     streamName,
		Subjects: subjects,
		Storage:  nc.FileStorage,
	}); err != nil {
		return fmt.Errorf("failed to add stream: %w", err)
	}

	logger.Info("Stream created", watermill.LogFields{"stream": streamName, "subjects": subjects})
	return nil
}

// isValidStreamName checks if a stream name is valid according to NATS rules.
func isValidStreamName(name string) bool {
	for _, r := range name {
		if !isValidRune(r) {
			return false
		}
	}
	return name != "" && name[0] != '-' && name[len(name)-1] != '-'
}

func isValidRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
}

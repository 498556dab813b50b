// Package mqtt publishes evaluation results to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/recalc/internal/logging"
	"github.com/aretw0/recalc/pkg/domain"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopic is the topic prefix results are published under; the session
// ID is appended as the last level.
const DefaultTopic = "recalc/results"

// DefaultTimeout bounds how long Publish waits for the broker.
const DefaultTimeout = 5 * time.Second

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Publisher is the subset of paho.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Sink implements ports.ResultSink by publishing each result as JSON to
// <topic>/<session id>.
type Sink struct {
	client   Publisher
	topic    string
	qos      byte
	retained bool
	timeout  time.Duration
	logger   *slog.Logger
}

type Option func(*Sink)

// WithTopic sets the topic prefix.
func WithTopic(topic string) Option {
	return func(s *Sink) {
		if topic = strings.TrimRight(topic, "/"); topic != "" {
			s.topic = topic
		}
	}
}

// WithQoS sets the MQTT quality of service (0, 1 or 2).
func WithQoS(qos byte) Option {
	return func(s *Sink) { s.qos = qos }
}

// WithRetained marks published results as retained.
func WithRetained(retained bool) Option {
	return func(s *Sink) { s.retained = retained }
}

// WithTimeout sets the publish acknowledgement timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wraps a connected client.
func New(client Publisher, opts ...Option) *Sink {
	s := &Sink{
		client:  client,
		topic:   DefaultTopic,
		qos:     1,
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to broker (e.g. "tcp://localhost:1883") and returns a sink on
// the new connection together with a function that disconnects it.
func Dial(broker, clientID string, opts ...Option) (*Sink, func(), error) {
	options := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(DefaultTimeout)

	client := paho.NewClient(options)
	token := client.Connect()
	if !token.WaitTimeout(DefaultTimeout) {
		return nil, nil, fmt.Errorf("connect to %s: %w", broker, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", broker, err)
	}
	return New(client, opts...), func() { client.Disconnect(250) }, nil
}

// Topic returns the topic a session's result is published to.
func (s *Sink) Topic(sessionID string) string {
	return s.topic + "/" + sessionID
}

// Publish sends the result and waits for the broker acknowledgement.
func (s *Sink) Publish(ctx context.Context, result *domain.EvaluationResult) error {
	if result == nil || result.SessionID == "" {
		return fmt.Errorf("%w: result missing session ID", domain.ErrInvalidArgument)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	topic := s.Topic(result.SessionID)
	token := s.client.Publish(topic, s.qos, s.retained, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish %s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	s.logger.Debug("Result published", "topic", topic, "bytes", len(payload))
	return nil
}

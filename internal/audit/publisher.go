// AngelaMos | 2026
// publisher.go

// Package audit emits security events raised by the auth core.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/carterperez-dev/storefront/backend/internal/config"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

type EventType string

const (
	EventRegister             EventType = "register"
	EventLogin                EventType = "login"
	EventLoginFailed          EventType = "login_failed"
	EventRefresh              EventType = "refresh"
	EventRefreshReuseDetected EventType = "refresh_reuse_detected"
	EventLogout               EventType = "logout"
	EventLogoutAll            EventType = "logout_all"
	EventPrincipalDeactivated EventType = "principal_deactivated"
)

type Event struct {
	Type          EventType     `json:"type"`
	PrincipalKind identity.Kind `json:"principal_kind,omitempty"`
	PrincipalID   int64         `json:"principal_id,omitempty"`
	FamilyID      string        `json:"family_id,omitempty"`
	IPAddress     string        `json:"ip_address,omitempty"`
	UserAgent     string        `json:"user_agent,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

func (e Event) key() string {
	if e.PrincipalKind == "" {
		return string(e.Type)
	}
	return string(e.PrincipalKind) + ":" + strconv.FormatInt(e.PrincipalID, 10)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// KafkaPublisher writes events keyed by principal so one principal's
// events stay ordered within a partition. Publish only enqueues; a single
// worker drains the queue so a slow or absent broker never holds up the
// request that raised the event.
type KafkaPublisher struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	timeout time.Duration
	queue   chan Event
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

const (
	kafkaQueueSize    = 1024
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaMaxAttempts  = 3
)

var ErrQueueFull = errors.New("audit queue full")

func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	p := &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: timeout,
			BatchTimeout: kafkaBatchTimeout,
			MaxAttempts:  kafkaMaxAttempts,
		},
		logger:  logger,
		timeout: timeout,
		queue:   make(chan Event, kafkaQueueSize),
		done:    make(chan struct{}),
	}
	go p.run()

	return p
}

func (p *KafkaPublisher) Publish(_ context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("publish %s: %w", event.Type, io.ErrClosedPipe)
	}

	select {
	case p.queue <- event:
		return nil
	default:
		return fmt.Errorf("publish %s: %w", event.Type, ErrQueueFull)
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)

	for event := range p.queue {
		if err := p.write(event); err != nil {
			p.logger.Error("deliver audit event failed",
				"type", event.Type,
				"topic", p.writer.Topic,
				"error", err,
			)
		}
	}
}

func (p *KafkaPublisher) write(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.key()),
		Value: data,
		Time:  event.OccurredAt,
	}); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}

	return nil
}

// Close stops accepting events, drains what is queued and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}

// LogPublisher is used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "audit event",
		"type", event.Type,
		"principal_kind", event.PrincipalKind,
		"principal_id", event.PrincipalID,
		"family_id", event.FamilyID,
		"ip_address", event.IPAddress,
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}

func New(cfg config.KafkaConfig, logger *slog.Logger) Publisher {
	if cfg.Enabled && len(cfg.Brokers) > 0 {
		return NewKafkaPublisher(cfg, logger)
	}
	return NewLogPublisher(logger)
}

package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/resilience"
)

const EventDocumentClassified = "document.classified"

type publishConn interface {
	Publish(subject string, data []byte) error
	Close()
}

type Publisher struct {
	conn     publishConn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

// classifiedMessage is the wire form of a committed prediction.
type classifiedMessage struct {
	Event           string    `json:"event"`
	DocumentID      int64     `json:"document_id"`
	CategoryID      int       `json:"category_id"`
	Category        string    `json:"category"`
	ConfidenceScore float64   `json:"confidence_score"`
	ModelVersion    string    `json:"model_version"`
	CreatedAt       time.Time `json:"created_at"`
}

func New(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("khmer-text-classifier"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newPublisher(conn, subject, options.ResilienceExecutor), nil
}

func newPublisher(conn publishConn, subject string, executor *resilience.Executor) *Publisher {
	if subject == "" {
		subject = "documents.classified"
	}
	return &Publisher{conn: conn, subject: subject, executor: executor}
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *Publisher) PublishDocumentClassified(ctx context.Context, event domain.ClassifiedEvent) error {
	payload, err := json.Marshal(classifiedMessage{
		Event:           EventDocumentClassified,
		DocumentID:      event.DocumentID,
		CategoryID:      event.CategoryID,
		Category:        event.CategoryName,
		ConfidenceScore: event.ConfidenceScore,
		ModelVersion:    event.ModelVersion,
		CreatedAt:       event.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode classified event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := p.conn.Publish(p.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// Noop stands in when no broker is configured.
type Noop struct{}

func (Noop) PublishDocumentClassified(context.Context, domain.ClassifiedEvent) error { return nil }

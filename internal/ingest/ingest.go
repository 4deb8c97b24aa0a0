// Package ingest consumes quote mutations from Kafka and applies them
// to the quote store and the live index. Messages are idempotent:
// replaying an upsert re-indexes the same content, replaying a delete
// of an unknown id is a no-op.
package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/quotelab/quotesearch/internal/stats"
	"github.com/quotelab/quotesearch/pkg/errors"
	"github.com/quotelab/quotesearch/pkg/kafka"
	"github.com/quotelab/quotesearch/pkg/postgres"
)

// QuoteMessage is the wire format on the upserts topic.
type QuoteMessage struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Quote string `json:"quote"`
}

// DeleteMessage is the wire format on the deletes topic.
type DeleteMessage struct {
	ID int64 `json:"id"`
}

// InvalidateMessage is published on the cache-invalidate topic after
// every applied mutation.
type InvalidateMessage struct {
	Reason string `json:"reason"`
	DocID  string `json:"doc_id"`
}

// Indexer is the engine surface the consumer drives.
type Indexer interface {
	IndexDocument(docID string, fields map[string]string, weightLabels map[string]string) error
	RemoveDocument(docID string) error
	DocTermCount(docID string) int
}

// QuoteWriter is the store surface the consumer drives. Nil-able: a
// consumer without a database only maintains the index.
type QuoteWriter interface {
	Upsert(ctx context.Context, quote postgres.Quote) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// Publisher publishes cache invalidations.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Service wires the two topic handlers.
type Service struct {
	engine      Indexer
	store       QuoteWriter
	weights     map[string]string
	invalidator Publisher
	collector   *stats.Collector
	logger      *slog.Logger
}

// Config carries the Service collaborators. Store, Invalidator, and
// Collector may be nil.
type Config struct {
	Engine      Indexer
	Store       QuoteWriter
	Weights     map[string]string
	Invalidator Publisher
	Collector   *stats.Collector
}

// New creates the ingest Service.
func New(cfg Config) *Service {
	return &Service{
		engine:      cfg.Engine,
		store:       cfg.Store,
		weights:     cfg.Weights,
		invalidator: cfg.Invalidator,
		collector:   cfg.Collector,
		logger:      slog.Default().With("component", "ingest"),
	}
}

// HandleUpsert applies one quote upsert: store write, index rebuild for
// the document, cache invalidation. Malformed messages are logged and
// skipped so the consumer keeps moving.
func (s *Service) HandleUpsert(ctx context.Context, key []byte, value []byte) error {
	msg, err := kafka.DecodeJSON[QuoteMessage](value)
	if err != nil {
		s.logger.Error("skipping malformed upsert", "key", string(key), "error", err)
		return nil
	}
	if strings.TrimSpace(msg.Name) == "" && strings.TrimSpace(msg.Quote) == "" {
		s.logger.Warn("skipping empty quote", "id", msg.ID)
		return nil
	}
	quote := postgres.Quote{ID: msg.ID, Name: msg.Name, Quote: msg.Quote}

	if s.store != nil {
		if err := s.store.Upsert(ctx, quote); err != nil {
			// Store failures are retryable; do not commit the offset.
			return err
		}
	}
	if err := s.engine.IndexDocument(quote.DocID(), quote.Fields(), s.weights); err != nil {
		if errors.Is(err, errors.ErrInvalidInput) {
			s.logger.Warn("skipping unindexable quote", "doc_id", quote.DocID(), "error", err)
			return nil
		}
		return err
	}
	s.logger.Debug("quote upserted", "doc_id", quote.DocID())
	s.track(stats.IndexEvent{
		Type:      stats.EventIndex,
		DocID:     quote.DocID(),
		TermCount: s.engine.DocTermCount(quote.DocID()),
		Timestamp: time.Now().UTC(),
	})
	s.invalidate(ctx, "upsert", quote.DocID())
	return nil
}

// HandleDelete applies one quote delete. Unknown ids are a no-op.
func (s *Service) HandleDelete(ctx context.Context, key []byte, value []byte) error {
	msg, err := kafka.DecodeJSON[DeleteMessage](value)
	if err != nil {
		s.logger.Error("skipping malformed delete", "key", string(key), "error", err)
		return nil
	}
	quote := postgres.Quote{ID: msg.ID}

	if s.store != nil {
		if _, err := s.store.Delete(ctx, msg.ID); err != nil {
			return err
		}
	}
	if err := s.engine.RemoveDocument(quote.DocID()); err != nil {
		if errors.Is(err, errors.ErrUnknownDocument) {
			s.logger.Debug("delete of unindexed quote", "doc_id", quote.DocID())
			return nil
		}
		return err
	}
	s.logger.Debug("quote removed", "doc_id", quote.DocID())
	s.track(stats.IndexEvent{Type: stats.EventRemove, DocID: quote.DocID(), Timestamp: time.Now().UTC()})
	s.invalidate(ctx, "delete", quote.DocID())
	return nil
}

func (s *Service) track(event stats.IndexEvent) {
	if s.collector != nil {
		s.collector.Track(event)
	}
}

// invalidate is best-effort: the cache also expires by TTL, so a lost
// invalidation only extends staleness, never corrupts results.
func (s *Service) invalidate(ctx context.Context, reason, docID string) {
	if s.invalidator == nil {
		return
	}
	err := s.invalidator.Publish(ctx, kafka.Event{
		Key:   docID,
		Value: InvalidateMessage{Reason: reason, DocID: docID},
	})
	if err != nil {
		s.logger.Warn("failed to publish cache invalidation", "doc_id", docID, "error", err)
	}
}

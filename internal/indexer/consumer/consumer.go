// Package consumer reads ingest events from Kafka and indexes them through
// the shard router.
package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/metrics"
)

// DocumentIndexer is the subset of shard.Router the consumer needs.
type DocumentIndexer interface {
	Index(doc indexer.Document) (int, error)
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that validates each ingest
// event and indexes it in the shard its id hashes to. Malformed and
// duplicate events are logged and committed; indexing failures are
// returned so the message is retried. m may be nil.
func HandleMessage(idx DocumentIndexer, sections *section.Registry, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if err := validator.ValidateIngestEvent(&event, sections); err != nil {
			logger.Warn("rejecting invalid ingest event",
				"doc_id", event.DocumentID,
				"error", err,
			)
			return nil
		}

		shardID, err := idx.Index(event.Document(sections))
		if errors.Is(err, apperrors.ErrDocumentExists) {
			logger.Info("skipping duplicate document", "doc_id", event.DocumentID, "shard_id", shardID)
			return nil
		}
		if err != nil {
			return err
		}
		if m != nil {
			m.DocsIndexedTotal.Inc()
		}
		logger.Info("document indexed",
			"doc_id", event.DocumentID,
			"shard_id", shardID,
			"sections", len(event.Sections),
		)
		return nil
	}
}

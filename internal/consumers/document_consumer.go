package consumers

import (
	"context"
	"encoding/json"

	"github.com/dustin/go-humanize"
	kafkago "github.com/segmentio/kafka-go"

	"midas/internal/adapters/kafka"
	"midas/internal/domain/document"
	"midas/internal/pipeline"
	"midas/pkg/errors"
	"midas/pkg/logger"
)

// DocumentConsumer reads incoming documents from Kafka and feeds them to
// the processing pipeline. Malformed documents are counted and skipped,
// one bad document never stops the stream.
type DocumentConsumer struct {
	consumer  *kafka.Consumer
	processor *pipeline.Processor
	log       *logger.Logger
}

// NewDocumentConsumer creates a new document consumer
func NewDocumentConsumer(consumer *kafka.Consumer, processor *pipeline.Processor) *DocumentConsumer {
	return &DocumentConsumer{
		consumer:  consumer,
		processor: processor,
		log:       logger.Get().With("component", "document_consumer"),
	}
}

// Start consumes documents until the context is cancelled
func (dc *DocumentConsumer) Start(ctx context.Context) error {
	dc.log.Info("Starting document consumer...")
	return dc.consumer.Consume(ctx, dc.handleMessage)
}

// handleMessage decodes and processes a single document
func (dc *DocumentConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	dc.log.Debugf("Decoding document message (%s)", humanize.Bytes(uint64(len(msg.Value))))

	var doc document.Document
	if err := json.Unmarshal(msg.Value, &doc); err != nil {
		dc.log.Warnf("Skipping undecodable document (key=%s): %v", string(msg.Key), err)
		return nil
	}

	if err := dc.processor.Process(ctx, &doc); err != nil {
		// Cancellation propagates so the consumer can stop; everything
		// else is local to this document.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, errors.ErrInvalidDocument) {
			dc.log.Warnf("Skipping invalid document %s: %v", doc.ID, err)
			return nil
		}
		return errors.Wrapf(err, "document %s", doc.ID)
	}

	return nil
}

// Close closes the underlying Kafka consumer
func (dc *DocumentConsumer) Close() error {
	return dc.consumer.Close()
}

package kafka

import (
	"context"

	"midas/internal/domain/fusion"
	"midas/internal/metrics"
	"midas/pkg/errors"
)

// RecordEmitter publishes fused records to the output topic, keyed by
// document id so consumers can treat the stream as a set.
type RecordEmitter struct {
	producer *Producer
	topic    string
}

// NewRecordEmitter creates the output-boundary emitter
func NewRecordEmitter(producer *Producer, topic string) *RecordEmitter {
	return &RecordEmitter{producer: producer, topic: topic}
}

// Emit publishes one record
func (e *RecordEmitter) Emit(ctx context.Context, rec *fusion.Record) error {
	if err := e.producer.Publish(ctx, e.topic, rec.DocumentID, rec); err != nil {
		return errors.Wrap(errors.ErrEmitFailed, err.Error())
	}

	metrics.RecordsEmitted.Inc()
	return nil
}

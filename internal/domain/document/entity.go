package document

import (
	"time"

	"github.com/go-playground/validator/v10"

	"midas/pkg/errors"
)

// SourceType identifies where a document came from
type SourceType string

const (
	SourceEarningsReport SourceType = "earnings_report"
	SourceNews           SourceType = "news"
)

// Valid returns true for known source types
func (s SourceType) Valid() bool {
	switch s {
	case SourceEarningsReport, SourceNews:
		return true
	}
	return false
}

// Document is the immutable input to the pipeline, produced by the
// ingestion boundary. The pipeline never mutates it.
type Document struct {
	ID          string     `json:"id" validate:"required"`
	RawText     string     `json:"raw_text" validate:"required"`
	SourceType  SourceType `json:"source_type" validate:"required,oneof=earnings_report news"`
	PublishedAt time.Time  `json:"published_at" validate:"required"`
	Language    string     `json:"language" validate:"required"`

	// Ticker is resolved upstream by the ingestion collaborator.
	// Empty means no market snapshot lookup is attempted.
	Ticker string `json:"ticker,omitempty"`
}

var validate = validator.New()

// Validate checks that all required fields from the ingestion boundary
// are present. A failing document is rejected entirely, this is the only
// input condition that aborts processing.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return errors.Wrapf(errors.ErrInvalidDocument, "%v", err)
	}
	return nil
}

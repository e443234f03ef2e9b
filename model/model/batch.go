package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	BatchStatusRunning = "running"
	BatchStatusSuccess = "success"
	BatchStatusFailed  = "failed"
)

// Batch records one attribution run over a date range. A batch starts in
// running, and ends in exactly one of success or failed; results written
// under a batch id become visible only once the batch succeeds.
type Batch struct {
	ID     string `gorm:"primary_key" json:"id"`
	Status string `json:"status"`

	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	OrdersRead       int64 `json:"orders_read"`
	OrdersResolved   int64 `json:"orders_resolved"`
	OrdersAttributed int64 `json:"orders_attributed"`
	AdRowsRead       int64 `json:"ad_rows_read"`
	AdAggregates     int64 `json:"ad_aggregates"`
	HourlyAggregates int64 `json:"hourly_aggregates"`

	QualityOverall      float64 `json:"quality_overall"`
	QualityCompleteness float64 `json:"quality_completeness"`
	QualityConsistency  float64 `json:"quality_consistency"`
	QualityAccuracy     float64 `json:"quality_accuracy"`

	// FirstError keeps the first failure encountered; later errors in the
	// same run are logged but not recorded here.
	FirstError string `json:"first_error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewBatch opens a running batch for the given range. The id is generated
// when the caller does not supply one, so reruns can pin a batch id for
// replacement.
func NewBatch(id string, from, to time.Time) *Batch {
	if id == "" {
		id = uuid.New().String()
	}
	return &Batch{
		ID:        id,
		Status:    BatchStatusRunning,
		From:      from,
		To:        to,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkSuccess closes the batch as succeeded.
func (b *Batch) MarkSuccess() {
	now := time.Now().UTC()
	b.Status = BatchStatusSuccess
	b.CompletedAt = &now
}

// MarkFailed closes the batch as failed, keeping only the first error.
func (b *Batch) MarkFailed(err error) {
	now := time.Now().UTC()
	b.Status = BatchStatusFailed
	b.CompletedAt = &now
	if b.FirstError == "" && err != nil {
		b.FirstError = err.Error()
	}
}

// ApplyQuality copies the batch quality score into the batch record.
func (b *Batch) ApplyQuality(score QualityScore) {
	b.QualityOverall = score.Overall
	b.QualityCompleteness = score.Completeness
	b.QualityConsistency = score.Consistency
	b.QualityAccuracy = score.Accuracy
}

package store

import (
	"time"

	"attribution/model/model"
	"attribution/model/store/postgres"
)

// Store is the persistence boundary of the attribution pipeline. Reads
// feed the per-batch snapshot; writes happen under a batch id with
// replace-by-batch semantics.
type Store interface {
	GetOrders(from, to time.Time) ([]model.Order, error)
	GetAdPerformance(from, to time.Time) ([]model.AdPerformance, error)
	GetChannelRules() ([]model.ChannelRule, error)

	CreateBatch(batch *model.Batch) error
	FinalizeBatch(batch *model.Batch) error

	// PersistBatchResults replaces any prior results for the batch id and
	// writes the new ones in a single transaction.
	PersistBatchResults(batchID string, insights []model.OrderInsight,
		adAggregates []model.AdAggregate, hourlyAggregates []model.HourlyAggregate) error
}

// GetStore returns the active Store implementation.
func GetStore() Store {
	return &postgres.Store{}
}

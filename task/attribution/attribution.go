package attribution

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	C "attribution/config"
	"attribution/model/model"
	"attribution/model/store"
	U "attribution/util"
)

// Status summarizes one attribution run for logging and the CLI.
type Status struct {
	BatchID string `json:"batch_id"`
	State   string `json:"state"`

	From string `json:"from"`
	To   string `json:"to"`

	OrdersRead       int64 `json:"orders_read"`
	OrdersResolved   int64 `json:"orders_resolved"`
	OrdersAttributed int64 `json:"orders_attributed"`
	AdRowsRead       int64 `json:"ad_rows_read"`
	AdAggregates     int64 `json:"ad_aggregates"`
	HourlyAggregates int64 `json:"hourly_aggregates"`

	Quality model.QualityScore `json:"quality"`

	TimeTakenSeconds float64 `json:"time_taken_seconds"`
	Error            string  `json:"error,omitempty"`
}

type workerResult struct {
	insights   []model.OrderInsight
	adAggs     model.AdAggregateMap
	hourlyAggs model.HourlyAggregateMap
	attributed int64
}

// Run executes one attribution batch over [from, to): snapshot the
// inputs, resolve every order, roll up, score, and persist under the
// batch id in one transaction. The batch ends in success or failed; a
// failed batch leaves no partial results visible.
func Run(db store.Store, from, to time.Time, batchID string) (*Status, error) {
	startedAt := time.Now()
	batch := model.NewBatch(batchID, from, to)
	logCtx := log.WithFields(log.Fields{"batch_id": batch.ID, "from": from, "to": to})

	status := &Status{
		BatchID: batch.ID,
		From:    from.Format(time.RFC3339),
		To:      to.Format(time.RFC3339),
	}

	if err := db.CreateBatch(batch); err != nil {
		return fail(status, batch, nil, startedAt, err)
	}

	// Input snapshot. Orders, ad rows and rules are read once up front;
	// rule changes mid-run never affect a running batch.
	orders, err := db.GetOrders(from, to)
	if err != nil {
		return fail(status, batch, db, startedAt, err)
	}
	ads, err := db.GetAdPerformance(from, to)
	if err != nil {
		return fail(status, batch, db, startedAt, err)
	}
	rules, err := db.GetChannelRules()
	if err != nil {
		return fail(status, batch, db, startedAt, err)
	}
	if len(rules) == 0 {
		rules = model.DefaultChannelRules
	}
	ruleSet := model.CompileChannelRules(rules)

	batch.OrdersRead = int64(len(orders))
	batch.AdRowsRead = int64(len(ads))
	status.OrdersRead = batch.OrdersRead
	status.AdRowsRead = batch.AdRowsRead
	logCtx.WithFields(log.Fields{"orders": len(orders), "ad_rows": len(ads),
		"rules": len(rules)}).Info("Loaded attribution snapshot.")

	dailyAds := model.RollupAdsToDaily(ads)
	timezone := C.GetTimezone()

	numRoutines := C.GetNumRoutines()
	if numRoutines > len(orders) && len(orders) > 0 {
		numRoutines = len(orders)
	}

	results := make([]workerResult, numRoutines)
	var wg sync.WaitGroup
	for w := 0; w < numRoutines; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			results[worker] = resolveOrders(batch.ID, orders, worker, numRoutines,
				ruleSet, dailyAds, timezone)
		}(w)
	}
	wg.Wait()

	insights := make([]model.OrderInsight, 0, len(orders))
	adAggs := model.NewAdAggregateMap()
	hourlyAggs := model.NewHourlyAggregateMap()
	for w := range results {
		insights = append(insights, results[w].insights...)
		adAggs.Merge(results[w].adAggs)
		hourlyAggs.Merge(results[w].hourlyAggs)
		batch.OrdersAttributed += results[w].attributed
	}
	batch.OrdersResolved = int64(len(insights))

	adAggs.JoinAdPerformance(dailyAds, func(ad *model.DailyAdPerformance) string {
		// The hourly insights feed is the Meta export; delivery rows with
		// no matching orders classify by the feed's own identity.
		channel, _, _, _ := ruleSet.Classify("facebook", "paid", ad.CampaignName, "")
		return channel
	})

	dateStart := U.DateOnlyIn(from, timezone)
	dateEnd := U.DateOnlyIn(to.Add(-time.Second), timezone)
	adRows := adAggs.Finalize(batch.ID, dateStart, dateEnd)
	hourlyRows := hourlyAggs.Finalize(batch.ID)
	batch.AdAggregates = int64(len(adRows))
	batch.HourlyAggregates = int64(len(hourlyRows))

	quality := model.ScoreBatch(insights)
	batch.ApplyQuality(quality)
	status.Quality = quality

	if err := db.PersistBatchResults(batch.ID, insights, adRows, hourlyRows); err != nil {
		return fail(status, batch, db, startedAt, err)
	}

	batch.MarkSuccess()
	if err := db.FinalizeBatch(batch); err != nil {
		return fail(status, batch, nil, startedAt, err)
	}

	status.State = model.BatchStatusSuccess
	status.OrdersResolved = batch.OrdersResolved
	status.OrdersAttributed = batch.OrdersAttributed
	status.AdAggregates = batch.AdAggregates
	status.HourlyAggregates = batch.HourlyAggregates
	status.TimeTakenSeconds = U.FloatRoundOff(time.Since(startedAt).Seconds(), 3)
	logCtx.WithFields(log.Fields{
		"orders_resolved":   batch.OrdersResolved,
		"orders_attributed": batch.OrdersAttributed,
		"ad_aggregates":     batch.AdAggregates,
		"hourly_aggregates": batch.HourlyAggregates,
		"quality_overall":   quality.Overall,
		"time_taken":        status.TimeTakenSeconds,
	}).Info("Attribution batch completed.")
	return status, nil
}

// resolveOrders runs the per-order pipeline over this worker's slice of
// the order list. Workers share nothing; partials merge after the pool
// drains.
func resolveOrders(batchID string, orders []model.Order, worker, numRoutines int,
	ruleSet *model.ChannelRuleSet, dailyAds []model.DailyAdPerformance,
	timezone U.TimeZoneString) workerResult {

	result := workerResult{
		insights:   make([]model.OrderInsight, 0, len(orders)/numRoutines+1),
		adAggs:     model.NewAdAggregateMap(),
		hourlyAggs: model.NewHourlyAggregateMap(),
	}

	for i := worker; i < len(orders); i += numRoutines {
		order := &orders[i]

		touchpoints, journeyParseFailed, attributesParseFailed := model.ExtractTouchpoints(order)
		attribution := model.ResolveAttribution(touchpoints)
		ruleSet.ClassifyAttribution(&attribution)
		model.MatchAdIdentity(&attribution, dailyAds)

		insight := model.BuildOrderInsight(order, attribution, journeyParseFailed, attributesParseFailed)
		insight.BatchID = batchID
		if insight.IsAttributed {
			result.attributed++
		}
		if C.GetAttributionDebug() == 1 {
			log.WithFields(log.Fields{
				"order_id":  insight.OrderID,
				"channel":   insight.Channel,
				"attr_type": insight.AttributionType,
				"attr_id":   insight.AttributionID,
			}).Info("Resolved order attribution.")
		}

		result.adAggs.AddOrder(&insight)
		result.hourlyAggs.AddOrder(&insight, timezone)
		result.insights = append(result.insights, insight)
	}
	return result
}

func fail(status *Status, batch *model.Batch, db store.Store, startedAt time.Time, err error) (*Status, error) {
	log.WithError(err).WithField("batch_id", batch.ID).Error("Attribution batch failed.")
	batch.MarkFailed(err)
	if db != nil {
		if finalizeErr := db.FinalizeBatch(batch); finalizeErr != nil {
			log.WithError(finalizeErr).WithField("batch_id", batch.ID).
				Error("Failed to record batch failure.")
		}
	}
	status.State = model.BatchStatusFailed
	status.Error = err.Error()
	status.TimeTakenSeconds = U.FloatRoundOff(time.Since(startedAt).Seconds(), 3)
	return status, err
}

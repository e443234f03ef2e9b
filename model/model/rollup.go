package model

import (
	"sort"
	"strings"

	U "attribution/util"
)

// AdAggregateKey identifies one row of the ad-level performance view.
type AdAggregateKey struct {
	CampaignID   string
	AdsetID      string
	AdID         string
	Channel      string
	CampaignName string
	AdsetName    string
	AdName       string
}

// AdAggregate is ad-level performance for one batch and date range:
// commerce-side order facts outer-joined with platform-side delivery facts.
// Invariants: AttributedOrders <= Orders, Spend >= 0, DateEnd >= DateStart.
type AdAggregate struct {
	BatchID   string `json:"batch_id"`
	DateStart string `json:"date_start"`
	DateEnd   string `json:"date_end"`

	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdsetID      string `json:"adset_id"`
	AdsetName    string `json:"adset_name"`
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`
	Channel      string `json:"channel"`

	Orders           int64   `json:"orders"`
	AttributedOrders int64   `json:"attributed_orders"`
	Revenue          float64 `json:"revenue"`
	Cogs             float64 `json:"total_cogs"`
	Profit           float64 `json:"profit"`

	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`

	ROAS           float64 `json:"roas"`
	CTR            float64 `json:"ctr"`
	CPC            float64 `json:"cpc"`
	CPM            float64 `json:"cpm"`
	ConversionRate float64 `json:"conversion_rate"`
	AvgOrderValue  float64 `json:"avg_order_value"`
	ProfitMargin   float64 `json:"profit_margin"`

	SKUs            string `json:"skus"`
	UniqueSKUsCount int    `json:"unique_skus_count"`

	skuSet map[string]bool
}

// AdAggregateMap is a partial ad-level aggregation. Partials built over
// disjoint order partitions merge into the same result regardless of
// partition boundaries or merge order.
type AdAggregateMap map[AdAggregateKey]*AdAggregate

// NewAdAggregateMap returns an empty partial aggregation.
func NewAdAggregateMap() AdAggregateMap {
	return make(AdAggregateMap)
}

func (m AdAggregateMap) get(key AdAggregateKey) *AdAggregate {
	agg, ok := m[key]
	if !ok {
		agg = &AdAggregate{
			CampaignID:   key.CampaignID,
			CampaignName: key.CampaignName,
			AdsetID:      key.AdsetID,
			AdsetName:    key.AdsetName,
			AdID:         key.AdID,
			AdName:       key.AdName,
			Channel:      key.Channel,
			skuSet:       map[string]bool{},
		}
		m[key] = agg
	}
	return agg
}

func adKeyOf(insight *OrderInsight) AdAggregateKey {
	return AdAggregateKey{
		CampaignID:   insight.CampaignID,
		AdsetID:      insight.AdsetID,
		AdID:         insight.AdID,
		Channel:      insight.Channel,
		CampaignName: insight.CampaignName,
		AdsetName:    insight.AdsetName,
		AdName:       insight.AdName,
	}
}

// AddOrder folds one order insight into the partial aggregation.
func (m AdAggregateMap) AddOrder(insight *OrderInsight) {
	agg := m.get(adKeyOf(insight))
	agg.Orders++
	if insight.IsAttributed {
		agg.AttributedOrders++
	}
	agg.Revenue += insight.OrderValue
	agg.Cogs += insight.TotalCogs
	for _, sku := range strings.Split(insight.SKUs, ", ") {
		if sku != "" {
			agg.skuSet[sku] = true
		}
	}
}

// Merge folds another partial aggregation into this one.
func (m AdAggregateMap) Merge(other AdAggregateMap) {
	for key, partial := range other {
		agg := m.get(key)
		agg.Orders += partial.Orders
		agg.AttributedOrders += partial.AttributedOrders
		agg.Revenue += partial.Revenue
		agg.Cogs += partial.Cogs
		agg.Impressions += partial.Impressions
		agg.Clicks += partial.Clicks
		agg.Spend += partial.Spend
		for sku := range partial.skuSet {
			agg.skuSet[sku] = true
		}
	}
}

// JoinAdPerformance outer-joins the platform delivery facts into the
// aggregation. Keys present only on the ads side are created with zero
// orders: paid reach without conversion is a real, reportable state, as is
// attribution without matching spend data.
func (m AdAggregateMap) JoinAdPerformance(dailyAds []DailyAdPerformance, channelOfAd func(*DailyAdPerformance) string) {
	type adIdentity struct{ campaignID, adsetID, adID string }
	perAd := map[adIdentity]*DailyAdPerformance{}
	adOrder := make([]adIdentity, 0)
	for i := range dailyAds {
		row := &dailyAds[i]
		id := adIdentity{row.CampaignID, row.AdsetID, row.AdID}
		total, ok := perAd[id]
		if !ok {
			copied := *row
			copied.Impressions, copied.Clicks, copied.Spend = 0, 0, 0
			perAd[id] = &copied
			adOrder = append(adOrder, id)
			total = perAd[id]
		}
		total.Impressions += row.Impressions
		total.Clicks += row.Clicks
		total.Spend += row.Spend
	}

	// Attach delivery facts to every aggregate row sharing the ad
	// identity, channel included in the key on the orders side. When one
	// ad identity split into multiple channel rows, each row carries the
	// full impressions/clicks/spend; batch-level sums over such splits
	// count the delivery metrics once per row.
	joined := map[adIdentity]bool{}
	for key, agg := range m {
		id := adIdentity{key.CampaignID, key.AdsetID, key.AdID}
		total, ok := perAd[id]
		if !ok {
			continue
		}
		agg.Impressions = total.Impressions
		agg.Clicks = total.Clicks
		agg.Spend = total.Spend
		if agg.CampaignName == "" {
			agg.CampaignName = total.CampaignName
		}
		if agg.AdsetName == "" {
			agg.AdsetName = total.AdsetName
		}
		if agg.AdName == "" {
			agg.AdName = total.AdName
		}
		joined[id] = true
	}

	// Ads with delivery but no orders appear with zero order counters.
	for _, id := range adOrder {
		if joined[id] {
			continue
		}
		total := perAd[id]
		key := AdAggregateKey{
			CampaignID:   total.CampaignID,
			AdsetID:      total.AdsetID,
			AdID:         total.AdID,
			Channel:      channelOfAd(total),
			CampaignName: total.CampaignName,
			AdsetName:    total.AdsetName,
			AdName:       total.AdName,
		}
		agg := m.get(key)
		agg.Impressions = total.Impressions
		agg.Clicks = total.Clicks
		agg.Spend = total.Spend
	}
}

// Finalize computes derived ratios and stamps batch and range onto every
// row. All divisions are guarded: a zero denominator yields 0, never an
// error or NaN. Rows come back sorted by revenue descending for stable
// output.
func (m AdAggregateMap) Finalize(batchID, dateStart, dateEnd string) []AdAggregate {
	result := make([]AdAggregate, 0, len(m))
	for _, agg := range m {
		agg.BatchID = batchID
		agg.DateStart = dateStart
		agg.DateEnd = dateEnd
		agg.Profit = agg.Revenue - agg.Cogs

		agg.ROAS = U.FloatRoundOff(U.SafeDivide(agg.Revenue, agg.Spend), 4)
		agg.CTR = U.FloatRoundOff(U.SafeDivide(float64(agg.Clicks), float64(agg.Impressions))*100, 4)
		agg.CPC = U.FloatRoundOff(U.SafeDivide(agg.Spend, float64(agg.Clicks)), 4)
		agg.CPM = U.FloatRoundOff(U.SafeDivide(agg.Spend, float64(agg.Impressions))*1000, 4)
		agg.ConversionRate = U.FloatRoundOff(U.SafeDivide(float64(agg.Orders), float64(agg.Clicks))*100, 4)
		agg.AvgOrderValue = U.FloatRoundOff(U.SafeDivide(agg.Revenue, float64(agg.Orders)), 4)
		agg.ProfitMargin = U.FloatRoundOff(U.SafeDivide(agg.Profit, agg.Revenue)*100, 4)

		skus := make([]string, 0, len(agg.skuSet))
		for sku := range agg.skuSet {
			skus = append(skus, sku)
		}
		sort.Strings(skus)
		agg.SKUs = strings.Join(skus, ", ")
		agg.UniqueSKUsCount = len(skus)

		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Revenue != result[j].Revenue {
			return result[i].Revenue > result[j].Revenue
		}
		return result[i].CampaignName < result[j].CampaignName
	})
	return result
}

// HourlyAggregateKey identifies one row of the time-bucketed view.
type HourlyAggregateKey struct {
	Date       string
	HourWindow string
	CampaignID string
	AdID       string

	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMContent  string
	UTMTerm     string
}

// HourlyAggregate is conversion activity bucketed by local hour and UTM
// tuple, joinable against the hourly ad-insights feed on
// (date, hour window, campaign, ad).
type HourlyAggregate struct {
	BatchID string `json:"batch_id"`

	Date       string `json:"date_start"`
	HourWindow string `json:"hour_window"`

	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMContent  string `json:"utm_content"`
	UTMTerm     string `json:"utm_term"`

	Channel    string `json:"channel"`
	SubChannel string `json:"sub_channel"`

	Orders           int64   `json:"total_orders"`
	Conversions      int64   `json:"total_conversions"`
	AttributedOrders int64   `json:"attributed_orders"`
	Revenue          float64 `json:"total_revenue"`
	AvgOrderValue    float64 `json:"avg_order_value"`
	AttributionRate  float64 `json:"attribution_rate"`

	// CompletenessScore is the fraction of orders in the bucket carrying
	// all required fields, 0-100.
	CompletenessScore float64 `json:"data_completeness_score"`

	completeOrders int64
}

// HourlyAggregateMap is a partial hourly aggregation with the same merge
// discipline as AdAggregateMap.
type HourlyAggregateMap map[HourlyAggregateKey]*HourlyAggregate

func NewHourlyAggregateMap() HourlyAggregateMap {
	return make(HourlyAggregateMap)
}

// AddOrder folds one order insight into its hour bucket. The hour window
// is derived from the order timestamp in the given timezone; the timezone
// must match the one the ad-insights feed labels its windows in.
func (m HourlyAggregateMap) AddOrder(insight *OrderInsight, timezone U.TimeZoneString) {
	key := HourlyAggregateKey{
		Date:        U.DateOnlyIn(insight.OrderDate, timezone),
		HourWindow:  U.HourWindowOf(insight.OrderDate, timezone),
		CampaignID:  insight.CampaignID,
		AdID:        insight.AdID,
		UTMSource:   insight.UTMSource,
		UTMMedium:   insight.UTMMedium,
		UTMCampaign: insight.UTMCampaign,
		UTMContent:  insight.UTMContent,
		UTMTerm:     insight.UTMTerm,
	}
	agg, ok := m[key]
	if !ok {
		agg = &HourlyAggregate{
			Date:         key.Date,
			HourWindow:   key.HourWindow,
			CampaignID:   key.CampaignID,
			CampaignName: insight.CampaignName,
			AdID:         key.AdID,
			AdName:       insight.AdName,
			UTMSource:    key.UTMSource,
			UTMMedium:    key.UTMMedium,
			UTMCampaign:  key.UTMCampaign,
			UTMContent:   key.UTMContent,
			UTMTerm:      key.UTMTerm,
			Channel:      insight.Channel,
			SubChannel:   insight.SubChannel,
		}
		m[key] = agg
	}
	agg.Orders++
	agg.Conversions++
	if insight.IsAttributed {
		agg.AttributedOrders++
	}
	agg.Revenue += insight.OrderValue
	if insight.OrderID != "" && !insight.OrderDate.IsZero() && insight.OrderValue > 0 {
		agg.completeOrders++
	}
}

// Merge folds another partial hourly aggregation into this one.
func (m HourlyAggregateMap) Merge(other HourlyAggregateMap) {
	for key, partial := range other {
		agg, ok := m[key]
		if !ok {
			copied := *partial
			m[key] = &copied
			continue
		}
		agg.Orders += partial.Orders
		agg.Conversions += partial.Conversions
		agg.AttributedOrders += partial.AttributedOrders
		agg.Revenue += partial.Revenue
		agg.completeOrders += partial.completeOrders
	}
}

// Finalize computes the guarded ratios and stamps the batch id.
func (m HourlyAggregateMap) Finalize(batchID string) []HourlyAggregate {
	result := make([]HourlyAggregate, 0, len(m))
	for _, agg := range m {
		agg.BatchID = batchID
		agg.AvgOrderValue = U.FloatRoundOff(U.SafeDivide(agg.Revenue, float64(agg.Orders)), 4)
		agg.AttributionRate = U.FloatRoundOff(U.SafeDivide(float64(agg.AttributedOrders), float64(agg.Orders))*100, 4)
		agg.CompletenessScore = U.FloatRoundOff(U.SafeDivide(float64(agg.completeOrders), float64(agg.Orders))*100, 4)
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		if result[i].HourWindow != result[j].HourWindow {
			return result[i].HourWindow < result[j].HourWindow
		}
		return result[i].Revenue > result[j].Revenue
	})
	return result
}

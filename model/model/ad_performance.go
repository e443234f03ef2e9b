package model

import (
	U "attribution/util"
)

// AdPerformance is one hourly row from the ad-insights feed. Read-only to
// the engine. HourWindow carries the feed's hour-bucket label, normalized
// to "HH:00:00 - HH:59:59" at load time.
type AdPerformance struct {
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdsetID      string `json:"adset_id"`
	AdsetName    string `json:"adset_name"`
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`

	Date       string `json:"date_start"` // YYYY-MM-DD
	HourWindow string `json:"hourly_window"`

	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`

	// Named conversion-action counters reported by the ad platform. Kept
	// for reference only; order counts and revenue always come from the
	// commerce side, never from the platform's own conversion tracking.
	ActionPurchases      int64   `json:"action_onsite_web_purchase"`
	ValuePurchases       float64 `json:"value_onsite_web_purchase"`
	ActionAddToCart      int64   `json:"action_onsite_web_add_to_cart"`
	ActionCheckout       int64   `json:"action_onsite_web_initiate_checkout"`
	ActionContentViews   int64   `json:"action_onsite_web_view_content"`
	ActionLinkClicks     int64   `json:"action_link_click"`
}

// DailyAdPerformance is the hourly feed rolled up to one row per
// (date, campaign, adset, ad).
type DailyAdPerformance struct {
	CampaignID   string
	CampaignName string
	AdsetID      string
	AdsetName    string
	AdID         string
	AdName       string
	Date         string

	Impressions int64
	Clicks      int64
	Spend       float64

	ActionPurchases int64
	ValuePurchases  float64

	CPM float64
	CPC float64
	CTR float64
}

type dailyAdKey struct {
	date       string
	campaignID string
	adsetID    string
	adID       string
}

// RollupAdsToDaily aggregates the hourly ad feed to daily granularity.
// Ordering of the input does not matter; the reduction is a plain sum.
func RollupAdsToDaily(hourly []AdPerformance) []DailyAdPerformance {
	byKey := map[dailyAdKey]*DailyAdPerformance{}
	order := make([]dailyAdKey, 0)

	for i := range hourly {
		row := &hourly[i]
		key := dailyAdKey{date: row.Date, campaignID: row.CampaignID, adsetID: row.AdsetID, adID: row.AdID}
		daily, ok := byKey[key]
		if !ok {
			daily = &DailyAdPerformance{
				CampaignID:   row.CampaignID,
				CampaignName: row.CampaignName,
				AdsetID:      row.AdsetID,
				AdsetName:    row.AdsetName,
				AdID:         row.AdID,
				AdName:       row.AdName,
				Date:         row.Date,
			}
			byKey[key] = daily
			order = append(order, key)
		}
		daily.Impressions += row.Impressions
		daily.Clicks += row.Clicks
		daily.Spend += row.Spend
		daily.ActionPurchases += row.ActionPurchases
		daily.ValuePurchases += row.ValuePurchases
	}

	result := make([]DailyAdPerformance, 0, len(order))
	for _, key := range order {
		daily := byKey[key]
		daily.CPM = U.SafeDivide(daily.Spend, float64(daily.Impressions)) * 1000
		daily.CPC = U.SafeDivide(daily.Spend, float64(daily.Clicks))
		daily.CTR = U.SafeDivide(float64(daily.Clicks), float64(daily.Impressions)) * 100
		result = append(result, *daily)
	}
	return result
}

// MatchAdIdentity fills the campaign/adset/ad identity of a resolved
// attribution by looking the attribution id up in the daily ad rollup.
// Content ids match ads, campaign ids match campaigns, mediums match
// adsets. When nothing matches but the order classified into a known
// channel, the identity degrades to an "Unknown Campaign" bucket for that
// channel rather than being dropped.
func MatchAdIdentity(attribution *Attribution, dailyAds []DailyAdPerformance) {
	if attribution.IsAttributed {
		id := U.NormalizeID(attribution.AttributionID)
		for i := range dailyAds {
			ad := &dailyAds[i]
			var matched bool
			switch attribution.AttributionType {
			case AttributionTypeContent:
				matched = U.NormalizeID(ad.AdID) == id
			case AttributionTypeCampaign:
				matched = U.NormalizeID(ad.CampaignID) == id || ad.CampaignName == attribution.AttributionID
			case AttributionTypeMedium:
				matched = U.NormalizeID(ad.AdsetID) == id
			}
			if matched {
				attribution.CampaignID = ad.CampaignID
				attribution.CampaignName = ad.CampaignName
				attribution.AdsetID = ad.AdsetID
				attribution.AdsetName = ad.AdsetName
				attribution.AdID = ad.AdID
				attribution.AdName = ad.AdName
				return
			}
		}
	}

	if attribution.Channel != "" && attribution.Channel != ChannelDirectUnknown {
		attribution.CampaignName = "Unknown Campaign - " + attribution.Channel
		attribution.AdsetName = "Unknown Adset - " + attribution.Channel
		attribution.AdName = "Unknown Ad - " + attribution.Channel
	}
}

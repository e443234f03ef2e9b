package model

// Attribution types, by the field that identified the winning touchpoint.
const (
	AttributionTypeContent  = "content"
	AttributionTypeCampaign = "campaign"
	AttributionTypeMedium   = "medium"
)

// ChannelDirectUnknown is the sentinel channel for orders with no usable
// tracking evidence.
const ChannelDirectUnknown = "Direct/Unknown"

// Attribution is the single resolved touchpoint (or "none") for one order.
// At most one exists per order within a batch; recomputing a batch replaces
// it, it is never mutated in place.
type Attribution struct {
	IsAttributed bool `json:"is_attributed"`

	// Origin of the winning touchpoint: customer_journey, custom_attributes
	// or direct_utm. Empty when unattributed.
	AttributionSource string `json:"attribution_source"`

	// AttributionID is the value used to identify the winner: the content
	// id when present, else the campaign, else the medium.
	AttributionID   string `json:"attribution_id"`
	AttributionType string `json:"attribution_type"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMContent  string `json:"utm_content"`
	UTMTerm     string `json:"utm_term"`

	Gclid  string `json:"gclid"`
	Fbclid string `json:"fbclid"`

	// Filled by the channel classifier.
	Channel         string `json:"channel"`
	SubChannel      string `json:"sub_channel"`
	ChannelCategory string `json:"channel_category"`
	Platform        string `json:"platform"`
	IsPaidChannel   bool   `json:"is_paid_channel"`

	// Filled by the ad-identity match against the ad-performance feed.
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdsetID      string `json:"adset_id"`
	AdsetName    string `json:"adset_name"`
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`
}

// ResolveAttribution picks the winning touchpoint for one order: the first
// candidate, in extractor-yield order, with any usable field. Deterministic
// and total over a fixed candidate order; re-running on the same candidates
// always yields the same record.
func ResolveAttribution(candidates []Touchpoint) Attribution {
	for i := range candidates {
		tp := &candidates[i]
		if !tp.HasUsableField() {
			continue
		}
		attribution := Attribution{
			IsAttributed:      true,
			AttributionSource: tp.Origin,
			UTMSource:         tp.Source,
			UTMMedium:         tp.Medium,
			UTMCampaign:       tp.Campaign,
			UTMContent:        tp.Content,
			UTMTerm:           tp.Term,
			Gclid:             tp.Gclid,
			Fbclid:            tp.Fbclid,
		}
		switch {
		case tp.Content != "":
			attribution.AttributionID = tp.Content
			attribution.AttributionType = AttributionTypeContent
		case tp.Campaign != "":
			attribution.AttributionID = tp.Campaign
			attribution.AttributionType = AttributionTypeCampaign
		default:
			// Medium- or source-only evidence resolves at medium level.
			attribution.AttributionID = tp.Medium
			attribution.AttributionType = AttributionTypeMedium
		}
		return attribution
	}

	return Attribution{
		IsAttributed: false,
		Channel:      ChannelDirectUnknown,
	}
}

package model

import (
	"encoding/json"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	U "attribution/util"
)

// Touchpoint origins, in the priority order the resolver considers them.
const (
	TouchpointOriginJourney    = "customer_journey"
	TouchpointOriginAttributes = "custom_attributes"
	TouchpointOriginDirect     = "direct_utm"
)

// Touchpoint is one piece of marketing-tracking evidence extracted from an
// order. Candidates are ephemeral; only the resolver's winner survives into
// the attribution record.
type Touchpoint struct {
	Origin string

	Source   string
	Medium   string
	Campaign string
	Content  string
	Term     string

	// Click IDs recovered alongside UTM values from the attributes
	// document. Not used for resolution, carried for classification.
	Gclid  string
	Fbclid string

	Timestamp time.Time
}

// HasUsableField reports whether the resolver may pick this candidate:
// any of content, campaign, medium or source must be non-blank.
func (tp *Touchpoint) HasUsableField() bool {
	return tp.Content != "" || tp.Campaign != "" || tp.Medium != "" || tp.Source != ""
}

// journeyDocument mirrors the upstream customer-journey JSON shape:
// an ordered list of moments, each optionally carrying UTM parameters.
type journeyDocument struct {
	Moments []journeyMoment `json:"moments"`
}

type journeyMoment struct {
	UTMParameters map[string]string `json:"utmParameters"`
	OccurredAt    int64             `json:"occurredAt"`
}

// utmAliases maps the accepted attribute-document key aliases to canonical
// UTM fields. Lookup is case-insensitive.
var utmAliases = map[string]string{
	"utm_source":   "source",
	"source":       "source",
	"utm_medium":   "medium",
	"medium":       "medium",
	"utm_campaign": "campaign",
	"campaign":     "campaign",
	"utm_content":  "content",
	"content":      "content",
	"utm_term":     "term",
	"term":         "term",
	"gclid":        "gclid",
	"fbclid":       "fbclid",
}

// ExtractTouchpoints parses an order's evidence into candidate touchpoints
// in resolution priority order: journey moments last-touch-first, then the
// custom-attributes document, then the direct UTM columns. Returns the
// candidates and, per evidence document, whether it was present but
// unparseable. Extraction is pure; safe to run concurrently across orders.
func ExtractTouchpoints(order *Order) (candidates []Touchpoint, journeyParseFailed, attributesParseFailed bool) {
	candidates = make([]Touchpoint, 0, 3)

	journeyCandidates, journeyParseFailed := extractFromJourney(order)
	candidates = append(candidates, journeyCandidates...)

	tp, ok, attributesParseFailed := extractFromAttributes(order)
	if ok {
		candidates = append(candidates, tp)
	}
	if tp, ok := extractFromDirectColumns(order); ok {
		candidates = append(candidates, tp)
	}
	return candidates, journeyParseFailed, attributesParseFailed
}

func extractFromJourney(order *Order) ([]Touchpoint, bool) {
	raw := order.CustomerJourney
	if U.IsBlank(raw) {
		return nil, false
	}

	var doc journeyDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		log.WithField("order_id", order.OrderID).WithError(err).
			Warn("Failed to parse customer journey. Falling back to other evidence.")
		return nil, true
	}
	// A journey that parses but has no moments is treated the same as a
	// missing document.
	if len(doc.Moments) == 0 {
		return nil, false
	}

	candidates := make([]Touchpoint, 0, len(doc.Moments))
	// Last-touch policy: most recent moment first.
	for i := len(doc.Moments) - 1; i >= 0; i-- {
		moment := doc.Moments[i]
		if len(moment.UTMParameters) == 0 {
			continue
		}
		tp := Touchpoint{
			Origin:   TouchpointOriginJourney,
			Source:   U.CleanValue(moment.UTMParameters["source"]),
			Medium:   U.CleanValue(moment.UTMParameters["medium"]),
			Campaign: U.CleanValue(moment.UTMParameters["campaign"]),
			Content:  U.CleanValue(moment.UTMParameters["content"]),
			Term:     U.CleanValue(moment.UTMParameters["term"]),
		}
		if moment.OccurredAt > 0 {
			tp.Timestamp = time.Unix(moment.OccurredAt, 0).UTC()
		}
		// A journey moment is usable only with a content id, campaign or
		// medium. Source-only moments are skipped here; the direct-column
		// candidate still covers source-only evidence.
		if tp.Content == "" && tp.Campaign == "" && tp.Medium == "" {
			continue
		}
		candidates = append(candidates, tp)
	}
	return candidates, false
}

// attributePair is the upstream list-of-pairs shape for custom attributes.
type attributePair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func extractFromAttributes(order *Order) (Touchpoint, bool, bool) {
	raw := strings.TrimSpace(order.CustomAttributes)
	if U.IsBlank(raw) || raw == "[]" || raw == "{}" {
		return Touchpoint{}, false, false
	}

	values := map[string]string{}
	var pairs []attributePair
	if err := json.Unmarshal([]byte(raw), &pairs); err == nil {
		for _, pair := range pairs {
			addUTMAlias(values, pair.Key, pair.Value)
		}
	} else {
		// Some stores export the bag as a flat object instead.
		var bag map[string]string
		if err := json.Unmarshal([]byte(raw), &bag); err != nil {
			log.WithField("order_id", order.OrderID).WithError(err).
				Warn("Failed to parse custom attributes. Falling back to direct columns.")
			return Touchpoint{}, false, true
		}
		for key, value := range bag {
			addUTMAlias(values, key, value)
		}
	}
	if len(values) == 0 {
		return Touchpoint{}, false, false
	}

	tp := Touchpoint{
		Origin:   TouchpointOriginAttributes,
		Source:   values["source"],
		Medium:   values["medium"],
		Campaign: values["campaign"],
		Content:  values["content"],
		Term:     values["term"],
		Gclid:    values["gclid"],
		Fbclid:   values["fbclid"],
	}
	if !tp.HasUsableField() && tp.Gclid == "" && tp.Fbclid == "" {
		return Touchpoint{}, false, false
	}
	return tp, true, false
}

func addUTMAlias(values map[string]string, key, value string) {
	canonical, ok := utmAliases[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return
	}
	cleaned := U.CleanValue(value)
	if cleaned == "" {
		return
	}
	// First occurrence wins for duplicated aliases.
	if _, exists := values[canonical]; !exists {
		values[canonical] = cleaned
	}
}

func extractFromDirectColumns(order *Order) (Touchpoint, bool) {
	tp := Touchpoint{
		Origin:   TouchpointOriginDirect,
		Source:   U.CleanValue(order.CustomerUTMSource),
		Medium:   U.CleanValue(order.CustomerUTMMedium),
		Campaign: U.CleanValue(order.CustomerUTMCampaign),
		Content:  U.CleanValue(order.CustomerUTMContent),
		Term:     U.CleanValue(order.CustomerUTMTerm),
	}
	if tp.Source == "" && tp.Medium == "" && tp.Campaign == "" {
		return Touchpoint{}, false
	}
	return tp, true
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTouchpointsFromJourney(t *testing.T) {
	order := &Order{
		OrderID: "1001",
		CustomerJourney: `{"moments":[
			{"utmParameters":{"source":"google","medium":"cpc","campaign":"summer_sale"},"occurredAt":1719800000},
			{"utmParameters":{"source":"facebook","medium":"paid","content":"120210000000000"},"occurredAt":1719900000}
		]}`,
	}

	candidates, journeyParseFailed, _ := ExtractTouchpoints(order)
	assert.False(t, journeyParseFailed)
	assert.Len(t, candidates, 2)

	// Most recent moment comes first.
	assert.Equal(t, TouchpointOriginJourney, candidates[0].Origin)
	assert.Equal(t, "facebook", candidates[0].Source)
	assert.Equal(t, "120210000000000", candidates[0].Content)
	assert.Equal(t, "google", candidates[1].Source)
	assert.Equal(t, "summer_sale", candidates[1].Campaign)
}

func TestExtractTouchpointsSkipsUnusableJourneyMoments(t *testing.T) {
	order := &Order{
		OrderID: "1002",
		CustomerJourney: `{"moments":[
			{"utmParameters":{"source":"google","medium":"cpc","campaign":"brand"}},
			{"utmParameters":{"source":"newsletter"}},
			{"utmParameters":{}}
		]}`,
	}

	candidates, journeyParseFailed, _ := ExtractTouchpoints(order)
	assert.False(t, journeyParseFailed)
	// Source-only and empty moments are dropped.
	assert.Len(t, candidates, 1)
	assert.Equal(t, "brand", candidates[0].Campaign)
}

func TestExtractTouchpointsInvalidJourneyFallsBack(t *testing.T) {
	order := &Order{
		OrderID:             "1003",
		CustomerJourney:     `{"moments": not-json`,
		CustomerUTMSource:   "google",
		CustomerUTMMedium:   "cpc",
		CustomerUTMCampaign: "retarget",
	}

	candidates, journeyParseFailed, _ := ExtractTouchpoints(order)
	assert.True(t, journeyParseFailed)
	assert.Len(t, candidates, 1)
	assert.Equal(t, TouchpointOriginDirect, candidates[0].Origin)
	assert.Equal(t, "retarget", candidates[0].Campaign)
}

func TestExtractTouchpointsBlankAndPlaceholderValues(t *testing.T) {
	order := &Order{
		OrderID: "1004",
		CustomerJourney: `{"moments":[
			{"utmParameters":{"source":"null","medium":"NONE","campaign":"{{campaign.name}}","content":"  "}}
		]}`,
		CustomerUTMSource: "None",
		CustomerUTMMedium: "   ",
	}

	candidates, journeyParseFailed, _ := ExtractTouchpoints(order)
	assert.False(t, journeyParseFailed)
	assert.Empty(t, candidates)
}

func TestExtractTouchpointsFromAttributePairs(t *testing.T) {
	order := &Order{
		OrderID: "1005",
		CustomAttributes: `[
			{"key":"utm_source","value":"facebook"},
			{"key":"UTM_Campaign","value":"festive"},
			{"key":"campaign","value":"ignored_duplicate"},
			{"key":"fbclid","value":"IwAR123"},
			{"key":"unrelated","value":"x"}
		]`,
	}

	candidates, journeyParseFailed, _ := ExtractTouchpoints(order)
	assert.False(t, journeyParseFailed)
	assert.Len(t, candidates, 1)
	tp := candidates[0]
	assert.Equal(t, TouchpointOriginAttributes, tp.Origin)
	assert.Equal(t, "facebook", tp.Source)
	// First occurrence wins across aliases.
	assert.Equal(t, "festive", tp.Campaign)
	assert.Equal(t, "IwAR123", tp.Fbclid)
}

func TestExtractTouchpointsFromFlatAttributeMap(t *testing.T) {
	order := &Order{
		OrderID:          "1006",
		CustomAttributes: `{"utm_source":"google","utm_medium":"cpc","gclid":"Cj0KCQ"}`,
	}

	candidates, _, _ := ExtractTouchpoints(order)
	assert.Len(t, candidates, 1)
	assert.Equal(t, "google", candidates[0].Source)
	assert.Equal(t, "Cj0KCQ", candidates[0].Gclid)
}

func TestExtractTouchpointsPriorityOrder(t *testing.T) {
	order := &Order{
		OrderID:           "1007",
		CustomerJourney:   `{"moments":[{"utmParameters":{"source":"google","campaign":"journey_camp"}}]}`,
		CustomAttributes:  `[{"key":"utm_campaign","value":"attr_camp"}]`,
		CustomerUTMSource: "direct_src",
		CustomerUTMMedium: "email",
	}

	candidates, _, _ := ExtractTouchpoints(order)
	assert.Len(t, candidates, 3)
	assert.Equal(t, TouchpointOriginJourney, candidates[0].Origin)
	assert.Equal(t, TouchpointOriginAttributes, candidates[1].Origin)
	assert.Equal(t, TouchpointOriginDirect, candidates[2].Origin)
}

func TestExtractTouchpointsDirectColumnsRequireCoreField(t *testing.T) {
	// Content or term alone does not qualify direct columns.
	order := &Order{OrderID: "1008", CustomerUTMContent: "some_ad", CustomerUTMTerm: "shoes"}
	candidates, _, _ := ExtractTouchpoints(order)
	assert.Empty(t, candidates)

	order = &Order{OrderID: "1009", CustomerUTMSource: "instagram"}
	candidates, _, _ = ExtractTouchpoints(order)
	assert.Len(t, candidates, 1)
	assert.Equal(t, "instagram", candidates[0].Source)
}

func TestExtractTouchpointsInvalidAttributesFlagged(t *testing.T) {
	order := &Order{
		OrderID:          "1010",
		CustomAttributes: `{"broken json`,
	}

	candidates, journeyParseFailed, attributesParseFailed := ExtractTouchpoints(order)
	assert.Empty(t, candidates)
	assert.False(t, journeyParseFailed)
	assert.True(t, attributesParseFailed)

	// A parseable document keeps the flag clear.
	order.CustomAttributes = `[{"key":"utm_source","value":"google"}]`
	_, _, attributesParseFailed = ExtractTouchpoints(order)
	assert.False(t, attributesParseFailed)
}

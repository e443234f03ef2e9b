package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildOrderInsight(t *testing.T) {
	order := &Order{
		OrderID:            "1001",
		OrderName:          "#1001",
		CreatedAt:          time.Date(2026, 7, 1, 10, 30, 0, 0, time.UTC),
		TotalPriceAmount:   2499,
		TotalPriceCurrency: "INR",
		ShipCity:           "Bengaluru",
		ShipCountry:        "India",
		CustomerJourney:    `{"moments":[]}`,
		LineItems: []OrderLineItem{
			{SKU: "TEE-BLK-M", Quantity: 2, UnitPrice: 799, UnitCost: 300, HasUnitCost: true},
			{SKU: "CAP-RED", Quantity: 1, UnitPrice: 901, UnitCost: 350, HasUnitCost: true},
			{SKU: "TEE-BLK-M", Quantity: 1, UnitPrice: 799, UnitCost: 300, HasUnitCost: true},
		},
	}
	attribution := Attribution{IsAttributed: true, AttributionSource: TouchpointOriginJourney,
		Channel: "Facebook"}

	insight := BuildOrderInsight(order, attribution, false, false)

	assert.Equal(t, "1001", insight.OrderID)
	assert.Equal(t, 2499.0, insight.OrderValue)
	assert.Equal(t, 1250.0, insight.TotalCogs)
	assert.Equal(t, 3, insight.LineItemsCount)
	// First-seen order, de-duplicated.
	assert.Equal(t, "TEE-BLK-M, CAP-RED", insight.SKUs)
	assert.Equal(t, 2, insight.UniqueSKUsCount)
	assert.Equal(t, int64(4), insight.TotalSKUQuantity)
	assert.True(t, insight.HasCustomerJourney)
	assert.False(t, insight.HasCustomAttributes)
	assert.False(t, insight.CogsMissing)
	assert.Equal(t, "Facebook", insight.Channel)
}

func TestBuildOrderInsightMissingUnitCost(t *testing.T) {
	order := &Order{
		OrderID: "1002",
		LineItems: []OrderLineItem{
			{SKU: "TEE-BLK-M", Quantity: 1, UnitPrice: 799, UnitCost: 300, HasUnitCost: true},
			{SKU: "NEW-SKU", Quantity: 2, UnitPrice: 499},
		},
	}

	insight := BuildOrderInsight(order, Attribution{}, false, false)

	// The missing cost contributes zero but is flagged.
	assert.Equal(t, 300.0, insight.TotalCogs)
	assert.True(t, insight.CogsMissing)
}

func TestBuildOrderInsightNoLineItems(t *testing.T) {
	order := &Order{OrderID: "1003", TotalPriceAmount: 100}

	insight := BuildOrderInsight(order, Attribution{}, true, false)

	assert.Equal(t, 0.0, insight.TotalCogs)
	assert.Equal(t, "", insight.SKUs)
	assert.False(t, insight.CogsMissing)
	assert.True(t, insight.JourneyParseFailed)
}

func TestBuildOrderInsightMalformedAttributesFlagged(t *testing.T) {
	order := &Order{OrderID: "1004", CustomAttributes: `{"broken json`}

	insight := BuildOrderInsight(order, Attribution{}, false, true)

	assert.True(t, insight.HasCustomAttributes)
	assert.True(t, insight.AttributesParseFailed)
	assert.False(t, insight.JourneyParseFailed)
}

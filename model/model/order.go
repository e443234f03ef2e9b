package model

import (
	"time"
)

// Order is one commerce order as read from the upstream order feed.
// Immutable source fact; the engine never writes back to it.
type Order struct {
	OrderID   string    `json:"order_id"`
	OrderName string    `json:"order_name"`
	CreatedAt time.Time `json:"created_at"`

	TotalPriceAmount   float64 `json:"total_price_amount"`
	TotalPriceCurrency string  `json:"total_price_currency"`

	ShipCity     string `json:"ship_city"`
	ShipProvince string `json:"ship_province"`
	ShipCountry  string `json:"ship_country"`

	// Attribution evidence, in priority order. CustomerJourney and
	// CustomAttributes hold the raw JSON documents as stored upstream;
	// parsing (and parse failures) are the extractor's concern.
	CustomerJourney  string `json:"customer_journey"`
	CustomAttributes string `json:"custom_attributes"`

	CustomerUTMSource   string `json:"customer_utm_source"`
	CustomerUTMMedium   string `json:"customer_utm_medium"`
	CustomerUTMCampaign string `json:"customer_utm_campaign"`
	CustomerUTMContent  string `json:"customer_utm_content"`
	CustomerUTMTerm     string `json:"customer_utm_term"`

	LineItems []OrderLineItem `json:"line_items"`
}

// OrderLineItem is one purchased line of an order joined with its product
// variant facts.
type OrderLineItem struct {
	SKU          string  `json:"sku"`
	ProductTitle string  `json:"product_title"`
	Quantity     int64   `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`

	// UnitCost comes from the product-variant feed and is frequently
	// missing. HasUnitCost distinguishes "zero cost" from "unknown cost".
	UnitCost    float64 `json:"unit_cost"`
	HasUnitCost bool    `json:"has_unit_cost"`
}

// Revenue returns the line revenue at the effective unit price.
func (li *OrderLineItem) Revenue() float64 {
	return float64(li.Quantity) * li.UnitPrice
}

// Cogs returns the line cost of goods, treating a missing unit cost as zero.
func (li *OrderLineItem) Cogs() float64 {
	if !li.HasUnitCost {
		return 0
	}
	return float64(li.Quantity) * li.UnitCost
}

package model

import (
	"strings"
	"time"
)

// OrderInsight is the denormalized per-order attribution record: order
// facts merged with the resolved attribution, channel and product-line
// facts. One per order per batch; rebuilt on rerun, never mutated.
type OrderInsight struct {
	BatchID string `json:"batch_id"`

	OrderID   string    `json:"order_id"`
	OrderName string    `json:"order_name"`
	OrderDate time.Time `json:"order_date"`

	OrderValue    float64 `json:"order_value"`
	OrderCurrency string  `json:"order_currency"`

	ShipCity     string `json:"ship_city"`
	ShipProvince string `json:"ship_province"`
	ShipCountry  string `json:"ship_country"`

	TotalCogs      float64 `json:"total_cogs"`
	LineItemsCount int     `json:"line_items_count"`

	// SKUs joined comma-separated in first-seen line-item order.
	SKUs             string `json:"skus"`
	UniqueSKUsCount  int    `json:"unique_skus_count"`
	TotalSKUQuantity int64  `json:"total_sku_quantity"`

	Attribution

	// Evidence flags for the quality scorer and investigation queries.
	HasCustomerJourney    bool `json:"has_customer_journey"`
	HasCustomAttributes   bool `json:"has_custom_attributes"`
	JourneyParseFailed    bool `json:"journey_parse_failed"`
	AttributesParseFailed bool `json:"attributes_parse_failed"`
	CogsMissing           bool `json:"cogs_missing"`
}

// BuildOrderInsight merges order facts with a resolved, classified
// attribution. Pure formatting and null propagation; a malformed evidence
// document or a missing unit cost sets the matching flag, it never fails
// the order.
func BuildOrderInsight(order *Order, attribution Attribution, journeyParseFailed, attributesParseFailed bool) OrderInsight {
	insight := OrderInsight{
		OrderID:       order.OrderID,
		OrderName:     order.OrderName,
		OrderDate:     order.CreatedAt,
		OrderValue:    order.TotalPriceAmount,
		OrderCurrency: order.TotalPriceCurrency,
		ShipCity:      order.ShipCity,
		ShipProvince:  order.ShipProvince,
		ShipCountry:   order.ShipCountry,

		LineItemsCount: len(order.LineItems),
		Attribution:    attribution,

		HasCustomerJourney:    strings.TrimSpace(order.CustomerJourney) != "",
		HasCustomAttributes:   strings.TrimSpace(order.CustomAttributes) != "",
		JourneyParseFailed:    journeyParseFailed,
		AttributesParseFailed: attributesParseFailed,
	}

	seen := map[string]bool{}
	skus := make([]string, 0, len(order.LineItems))
	for i := range order.LineItems {
		item := &order.LineItems[i]
		insight.TotalCogs += item.Cogs()
		if !item.HasUnitCost {
			insight.CogsMissing = true
		}
		if item.SKU == "" {
			continue
		}
		insight.TotalSKUQuantity += item.Quantity
		if !seen[item.SKU] {
			seen[item.SKU] = true
			skus = append(skus, item.SKU)
		}
	}
	insight.SKUs = strings.Join(skus, ", ")
	insight.UniqueSKUsCount = len(skus)
	return insight
}

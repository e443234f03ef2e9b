package postgres

import (
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	C "attribution/config"
	"attribution/model/model"
	U "attribution/util"
)

// Store is the postgres-backed persistence layer.
type Store struct{}

func (store *Store) db() *gorm.DB {
	return C.GetServices().Db
}

// GetOrders reads orders created inside [from, to) with their line items
// joined against the product-variant feed. Line-item unit cost is read as
// nullable; a null keeps HasUnitCost false so downstream can treat it as
// zero while flagging it.
func (store *Store) GetOrders(from, to time.Time) ([]model.Order, error) {
	logCtx := log.WithFields(log.Fields{"from": from, "to": to})

	rows, err := store.db().Raw(`SELECT order_id, order_name, created_at,
			COALESCE(total_price_amount, 0), COALESCE(total_price_currency, ''),
			COALESCE(ship_city, ''), COALESCE(ship_province, ''), COALESCE(ship_country, ''),
			COALESCE(customer_journey, ''), COALESCE(custom_attributes, ''),
			COALESCE(customer_utm_source, ''), COALESCE(customer_utm_medium, ''),
			COALESCE(customer_utm_campaign, ''), COALESCE(customer_utm_content, ''),
			COALESCE(customer_utm_term, '')
		FROM orders WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at`, from, to).Rows()
	if err != nil {
		logCtx.WithError(err).Error("Failed to read orders.")
		return nil, errors.Wrap(err, "read orders")
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	indexByID := map[string]int{}
	for rows.Next() {
		var order model.Order
		if err := rows.Scan(&order.OrderID, &order.OrderName, &order.CreatedAt,
			&order.TotalPriceAmount, &order.TotalPriceCurrency,
			&order.ShipCity, &order.ShipProvince, &order.ShipCountry,
			&order.CustomerJourney, &order.CustomAttributes,
			&order.CustomerUTMSource, &order.CustomerUTMMedium,
			&order.CustomerUTMCampaign, &order.CustomerUTMContent,
			&order.CustomerUTMTerm); err != nil {
			logCtx.WithError(err).Error("Failed to scan order row.")
			return nil, errors.Wrap(err, "scan order")
		}
		indexByID[order.OrderID] = len(orders)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := store.db().Raw(`SELECT li.order_id, COALESCE(li.sku, ''),
			COALESCE(li.product_title, ''), COALESCE(li.quantity, 0),
			COALESCE(li.unit_price, 0), pv.unit_cost
		FROM order_line_items li
		LEFT JOIN product_variants pv ON pv.sku = li.sku
		WHERE li.order_id IN (SELECT order_id FROM orders WHERE created_at >= ? AND created_at < ?)`,
		from, to).Rows()
	if err != nil {
		logCtx.WithError(err).Error("Failed to read order line items.")
		return nil, errors.Wrap(err, "read line items")
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID string
		var item model.OrderLineItem
		var unitCost *float64
		if err := itemRows.Scan(&orderID, &item.SKU, &item.ProductTitle,
			&item.Quantity, &item.UnitPrice, &unitCost); err != nil {
			logCtx.WithError(err).Error("Failed to scan line item row.")
			return nil, errors.Wrap(err, "scan line item")
		}
		if unitCost != nil {
			item.UnitCost = *unitCost
			item.HasUnitCost = true
		}
		if idx, ok := indexByID[orderID]; ok {
			orders[idx].LineItems = append(orders[idx].LineItems, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate line items")
	}
	return orders, nil
}

// GetAdPerformance reads the hourly ad-insights feed for dates inside
// [from, to), normalizing the hour-window labels on the way in.
func (store *Store) GetAdPerformance(from, to time.Time) ([]model.AdPerformance, error) {
	logCtx := log.WithFields(log.Fields{"from": from, "to": to})

	rows, err := store.db().Raw(`SELECT COALESCE(campaign_id, ''), COALESCE(campaign_name, ''),
			COALESCE(adset_id, ''), COALESCE(adset_name, ''),
			COALESCE(ad_id, ''), COALESCE(ad_name, ''),
			date_start, COALESCE(hourly_window, ''),
			COALESCE(impressions, 0), COALESCE(clicks, 0), COALESCE(spend, 0),
			COALESCE(action_onsite_web_purchase, 0), COALESCE(value_onsite_web_purchase, 0),
			COALESCE(action_onsite_web_add_to_cart, 0), COALESCE(action_onsite_web_initiate_checkout, 0),
			COALESCE(action_onsite_web_view_content, 0), COALESCE(action_link_click, 0)
		FROM ads_insights_hourly WHERE date_start >= ? AND date_start < ?`,
		from.Format("2006-01-02"), to.Format("2006-01-02")).Rows()
	if err != nil {
		logCtx.WithError(err).Error("Failed to read hourly ad insights.")
		return nil, errors.Wrap(err, "read ad insights")
	}
	defer rows.Close()

	ads := make([]model.AdPerformance, 0)
	for rows.Next() {
		var ad model.AdPerformance
		if err := rows.Scan(&ad.CampaignID, &ad.CampaignName,
			&ad.AdsetID, &ad.AdsetName, &ad.AdID, &ad.AdName,
			&ad.Date, &ad.HourWindow,
			&ad.Impressions, &ad.Clicks, &ad.Spend,
			&ad.ActionPurchases, &ad.ValuePurchases,
			&ad.ActionAddToCart, &ad.ActionCheckout,
			&ad.ActionContentViews, &ad.ActionLinkClicks); err != nil {
			logCtx.WithError(err).Error("Failed to scan ad insights row.")
			return nil, errors.Wrap(err, "scan ad insights")
		}
		if window, ok := U.NormalizeHourWindow(ad.HourWindow); ok {
			ad.HourWindow = window
		}
		ads = append(ads, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate ad insights")
	}
	return ads, nil
}

// GetChannelRules reads the active channel classification rules. Rule
// compilation and ordering happen in the model layer; the store returns
// rows as stored.
func (store *Store) GetChannelRules() ([]model.ChannelRule, error) {
	var rules []model.ChannelRule
	if err := store.db().Table("channel_rules").Order("seq").Find(&rules).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		log.WithError(err).Error("Failed to read channel rules.")
		return nil, errors.Wrap(err, "read channel rules")
	}
	return rules, nil
}

// CreateBatch writes the opening batch record.
func (store *Store) CreateBatch(batch *model.Batch) error {
	if err := store.db().Table("batches").Create(batch).Error; err != nil {
		log.WithError(err).WithField("batch_id", batch.ID).Error("Failed to create batch.")
		return errors.Wrap(err, "create batch")
	}
	return nil
}

// FinalizeBatch writes the terminal batch state.
func (store *Store) FinalizeBatch(batch *model.Batch) error {
	if err := store.db().Table("batches").Save(batch).Error; err != nil {
		log.WithError(err).WithField("batch_id", batch.ID).Error("Failed to finalize batch.")
		return errors.Wrap(err, "finalize batch")
	}
	return nil
}

// PersistBatchResults replaces any results previously written under the
// batch id and writes the new ones, all inside one transaction. Readers
// never observe a half-written batch.
func (store *Store) PersistBatchResults(batchID string, insights []model.OrderInsight,
	adAggregates []model.AdAggregate, hourlyAggregates []model.HourlyAggregate) error {
	logCtx := log.WithField("batch_id", batchID)

	tx := store.db().Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "begin persist")
	}

	for _, table := range []string{"order_insights", "ad_aggregates", "hourly_aggregates"} {
		if err := tx.Exec("DELETE FROM "+table+" WHERE batch_id = ?", batchID).Error; err != nil {
			tx.Rollback()
			logCtx.WithError(err).WithField("table", table).Error("Failed to clear prior batch results.")
			return errors.Wrapf(err, "clear %s", table)
		}
	}

	for i := range insights {
		if err := tx.Table("order_insights").Create(&insights[i]).Error; err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Failed to write order insight.")
			return errors.Wrap(err, "write order insight")
		}
	}
	for i := range adAggregates {
		if err := tx.Table("ad_aggregates").Create(&adAggregates[i]).Error; err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Failed to write ad aggregate.")
			return errors.Wrap(err, "write ad aggregate")
		}
	}
	for i := range hourlyAggregates {
		if err := tx.Table("hourly_aggregates").Create(&hourlyAggregates[i]).Error; err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Failed to write hourly aggregate.")
			return errors.Wrap(err, "write hourly aggregate")
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to commit batch results.")
		return errors.Wrap(err, "commit persist")
	}
	return nil
}

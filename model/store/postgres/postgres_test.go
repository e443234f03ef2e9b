package postgres

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	C "attribution/config"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open("postgres", db)
	require.NoError(t, err)
	C.SetDBForTest(gormDB)

	return &Store{}, mock
}

func TestGetOrdersJoinsLineItems(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	orderCols := []string{"order_id", "order_name", "created_at",
		"total_price_amount", "total_price_currency",
		"ship_city", "ship_province", "ship_country",
		"customer_journey", "custom_attributes",
		"customer_utm_source", "customer_utm_medium",
		"customer_utm_campaign", "customer_utm_content", "customer_utm_term"}
	mock.ExpectQuery("SELECT order_id, order_name, created_at").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow("1001", "#1001", from.Add(10*time.Hour),
				2499.0, "INR", "Bengaluru", "KA", "India",
				"", "", "facebook", "cpc", "festive", "", ""))

	itemCols := []string{"order_id", "sku", "product_title", "quantity", "unit_price", "unit_cost"}
	mock.ExpectQuery("SELECT li.order_id, COALESCE\\(li.sku").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow("1001", "TEE-BLK-M", "Black Tee", 2, 799.0, 300.0).
			AddRow("1001", "NEW-SKU", "New Drop", 1, 901.0, nil))

	orders, err := store.GetOrders(from, to)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	order := orders[0]
	assert.Equal(t, "1001", order.OrderID)
	assert.Equal(t, "facebook", order.CustomerUTMSource)
	require.Len(t, order.LineItems, 2)
	assert.True(t, order.LineItems[0].HasUnitCost)
	assert.Equal(t, 300.0, order.LineItems[0].UnitCost)
	// Null unit cost stays distinguishable from zero.
	assert.False(t, order.LineItems[1].HasUnitCost)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAdPerformanceNormalizesHourWindows(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	cols := []string{"campaign_id", "campaign_name", "adset_id", "adset_name",
		"ad_id", "ad_name", "date_start", "hourly_window",
		"impressions", "clicks", "spend",
		"action_onsite_web_purchase", "value_onsite_web_purchase",
		"action_onsite_web_add_to_cart", "action_onsite_web_initiate_checkout",
		"action_onsite_web_view_content", "action_link_click"}
	mock.ExpectQuery("FROM ads_insights_hourly").
		WithArgs("2026-07-01", "2026-07-02").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c1", "Prospecting", "s1", "Broad", "a1", "Video A",
				"2026-07-01", "hourly_15", 10000, 200, 400.0, 5, 4500.0, 20, 10, 300, 180).
			AddRow("c1", "Prospecting", "s1", "Broad", "a1", "Video A",
				"2026-07-01", "26", 500, 10, 20.0, 0, 0.0, 1, 0, 15, 9))

	ads, err := store.GetAdPerformance(from, to)
	require.NoError(t, err)
	require.Len(t, ads, 2)

	assert.Equal(t, "15:00:00 - 15:59:59", ads[0].HourWindow)
	// Out-of-range hour labels wrap into a day.
	assert.Equal(t, "02:00:00 - 02:59:59", ads[1].HourWindow)
	assert.Equal(t, int64(10000), ads[0].Impressions)
	assert.Equal(t, 400.0, ads[0].Spend)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistBatchResultsReplacesInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM order_insights WHERE batch_id").
		WithArgs("batch-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM ad_aggregates WHERE batch_id").
		WithArgs("batch-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM hourly_aggregates WHERE batch_id").
		WithArgs("batch-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := store.PersistBatchResults("batch-1", nil, nil, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistBatchResultsRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM order_insights WHERE batch_id").
		WithArgs("batch-1").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.PersistBatchResults("batch-1", nil, nil, nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   "))
	assert.True(t, IsBlank("null"))
	assert.True(t, IsBlank("NULL"))
	assert.True(t, IsBlank("None"))
	assert.False(t, IsBlank("google"))
	assert.False(t, IsBlank("0"))
}

func TestCleanValue(t *testing.T) {
	assert.Equal(t, "", CleanValue(" null "))
	assert.Equal(t, "", CleanValue("{{site_source_name}}"))
	assert.Equal(t, "cpc", CleanValue(" cpc "))
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "1234560000000", NormalizeID("1.23456e+12"))
	assert.Equal(t, "120210000000000", NormalizeID(float64(120210000000000)))
	assert.Equal(t, "summer_sale", NormalizeID("summer_sale"))
	assert.Equal(t, "", NormalizeID(nil))
	assert.Equal(t, "", NormalizeID("null"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Duckduckgo", TitleCase("duckduckgo"))
	assert.Equal(t, "Paid Social", TitleCase("PAID social"))
}

func TestSafeDivide(t *testing.T) {
	assert.Equal(t, 0.0, SafeDivide(10, 0))
	assert.Equal(t, 2.5, SafeDivide(5, 2))
}

func TestHourWindowOf(t *testing.T) {
	// 2025-07-15 09:30:00 UTC is 15:00 IST.
	ts := time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "15:00:00 - 15:59:59", HourWindowOf(ts, TimeZoneStringIST))
	assert.Equal(t, "09:00:00 - 09:59:59", HourWindowOf(ts, TimeZoneStringUTC))
}

func TestNormalizeHourWindow(t *testing.T) {
	window, ok := NormalizeHourWindow("13")
	assert.True(t, ok)
	assert.Equal(t, "13:00:00 - 13:59:59", window)

	window, ok = NormalizeHourWindow("05:00:00 - 05:59:59")
	assert.True(t, ok)
	assert.Equal(t, "05:00:00 - 05:59:59", window)

	window, ok = NormalizeHourWindow("25:00")
	assert.True(t, ok)
	assert.Equal(t, "01:00:00 - 01:59:59", window)

	_, ok = NormalizeHourWindow("not-a-window")
	assert.False(t, ok)
}

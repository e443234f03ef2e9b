package util

import (
	"fmt"
	"regexp"
	"time"
)

// Datetime related utility functions.
// General convention - suffix Z if UTC based, In if a timezone is passed.
const (
	DATETIME_FORMAT_YYYYMMDD_HYPHEN string = "2006-01-02"
	DATETIME_FORMAT_DB              string = "2006-01-02 15:04:05"
)

type TimeZoneString string

const (
	TimeZoneStringIST TimeZoneString = "Asia/Kolkata"
	TimeZoneStringUTC TimeZoneString = "UTC"
)

// GetTimeLocationFor returns the time.Location for the given timezone,
// falling back to UTC for unknown names.
func GetTimeLocationFor(timezone TimeZoneString) *time.Location {
	location, err := time.LoadLocation(string(timezone))
	if err != nil {
		return time.UTC
	}
	return location
}

// ConvertTimeIn converts the given time into the given timezone.
func ConvertTimeIn(t time.Time, timezone TimeZoneString) time.Time {
	return t.In(GetTimeLocationFor(timezone))
}

// TimeNowZ returns the current time in UTC. Should be used everywhere to
// avoid the process-local timezone leaking into batch math.
func TimeNowZ() time.Time {
	return time.Now().UTC()
}

// DateOnlyIn formats the date part of a timestamp in the given timezone.
func DateOnlyIn(t time.Time, timezone TimeZoneString) string {
	return ConvertTimeIn(t, timezone).Format(DATETIME_FORMAT_YYYYMMDD_HYPHEN)
}

// HourWindowOf returns the canonical hour-window label for a timestamp in
// the given timezone, e.g. "13:00:00 - 13:59:59". This label is the join
// key against the ad-insights hourly feed, so both sides must use the same
// timezone. Inclusive at both boundaries.
func HourWindowOf(t time.Time, timezone TimeZoneString) string {
	hour := ConvertTimeIn(t, timezone).Hour()
	return hourWindowLabel(hour)
}

func hourWindowLabel(hour int) string {
	return fmt.Sprintf("%02d:00:00 - %02d:59:59", hour, hour)
}

var hourWindowDigits = regexp.MustCompile(`(\d{1,2})`)

// NormalizeHourWindow converts the ragged hourly window formats seen in ad
// exports ("13", "13:00", "13:00:00 - 13:59:59") to the canonical label.
// Returns false if no hour can be found.
func NormalizeHourWindow(raw string) (string, bool) {
	match := hourWindowDigits.FindString(raw)
	if match == "" {
		return "", false
	}
	var hour int
	fmt.Sscanf(match, "%d", &hour)
	return hourWindowLabel(hour % 24), true
}

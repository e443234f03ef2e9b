package util

import (
	"fmt"
	"strconv"
	"strings"
)

// Values that upstream feeds use to mean "no value". Kept lowercase,
// comparisons are case-insensitive.
var absentValues = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
}

// IsBlank reports whether a tracking value carries no usable information.
// Whitespace-only strings and the literal null/none markers count as blank.
func IsBlank(value string) bool {
	return absentValues[strings.ToLower(strings.TrimSpace(value))]
}

// IsTemplatePlaceholder reports whether a value is an unexpanded ad-platform
// macro like {{site_source_name}}. These show up in UTM fields when the
// platform failed to substitute the macro and must not be used as IDs.
func IsTemplatePlaceholder(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "{{")
}

// CleanValue trims a tracking value and maps blanks and placeholders to "".
func CleanValue(value string) string {
	value = strings.TrimSpace(value)
	if IsBlank(value) || IsTemplatePlaceholder(value) {
		return ""
	}
	return value
}

// NormalizeID converts numeric-like identifiers to a plain digit string.
// Upstream exports occasionally render IDs in scientific notation
// ("1.23456e+12"); those are restored to their integer form. Blank values
// normalize to "".
func NormalizeID(value interface{}) string {
	if value == nil {
		return ""
	}
	str := strings.TrimSpace(fmt.Sprintf("%v", value))
	if IsBlank(str) {
		return ""
	}
	if f, err := strconv.ParseFloat(str, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return str
}

// TitleCase uppercases the first rune of each space-separated word.
// strings.Title is deprecated and unicode-heavy title casing is not needed
// for channel names derived from UTM sources.
func TitleCase(str string) string {
	words := strings.Fields(strings.ToLower(str))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// SafeDivide returns numerator/denominator with a zero denominator mapping
// to 0 instead of +Inf or NaN.
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// FloatRoundOff rounds to the given number of decimal places.
func FloatRoundOff(value float64, precision int) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(value, 'f', precision, 64), 64)
	if err != nil {
		return value
	}
	return rounded
}

func ContainsStringInArray(array []string, value string) bool {
	for _, str := range array {
		if str == value {
			return true
		}
	}
	return false
}

func Min(a int64, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func Max(a int64, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

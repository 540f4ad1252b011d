package types

import (
	"strings"
	"time"
)

// Detect infers the narrowest built-in type that can hold all values. Nil values and blank
// strings are ignored. Candidates are tried in the order boolean, number, time; anything else is
// a string. A column without any non-nil value is a string column.
func Detect(values []any) Tag {
	isBool, isNumber, isTime := true, true, true
	seen := false

	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		seen = true

		switch x := v.(type) {
		case bool:
			isNumber, isTime = false, false
		case time.Time:
			isBool, isNumber = false, false
		case string:
			s := strings.ToLower(strings.TrimSpace(x))
			if s != "true" && s != "false" {
				isBool = false
			}
			if _, err := coerceNumber(x, ""); err != nil {
				isNumber = false
			}
			if !looksLikeTime(x) {
				isTime = false
			}
		default:
			isBool, isTime = false, false
			if _, err := coerceNumber(v, ""); err != nil {
				isNumber = false
			}
		}
	}

	switch {
	case !seen:
		return String
	case isBool:
		return Boolean
	case isNumber:
		return Number
	case isTime:
		return Time
	}
	return String
}

func looksLikeTime(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range TimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

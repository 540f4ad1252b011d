package types

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/knz/strtime"

	"github.com/l7mp/dataset/pkg/util"
)

// TimeLayouts are tried in order when a string is coerced to time without an explicit format.
var TimeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func builtins() []Type {
	return []Type{
		{Tag: Number, Compare: compareNumber, Coerce: coerceNumber, Exact: true},
		{Tag: String, Compare: compareString, Coerce: coerceString, Exact: true},
		{Tag: Boolean, Compare: compareBoolean, Coerce: coerceBoolean, Exact: true},
		{Tag: Time, Compare: compareTime, Coerce: coerceTime},
		{Tag: Mixed, Compare: compareMixed, Coerce: coerceMixed},
	}
}

// nil sorts before everything else
func compareNil(a, b any) (int, bool) {
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return -1, true
	case b == nil:
		return 1, true
	}
	return 0, false
}

func compareNumber(a, b any) int {
	if c, ok := compareNil(a, b); ok {
		return c
	}
	fa, okA := ToFloat(a)
	fb, okB := ToFloat(b)
	if !okA || !okB {
		return compareMixed(a, b)
	}
	return cmpFloat(fa, fb)
}

// coerceNumber accepts finite values only.
func coerceNumber(raw any, _ string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if f, ok := ToFloat(raw); ok {
		if !isFinite(f) {
			return nil, NewCoercionError(Number, raw, nil)
		}
		return f, nil
	}
	switch v := raw.(type) {
	case bool:
		if v {
			return float64(1), nil
		}
		return float64(0), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !isFinite(f) {
			return nil, NewCoercionError(Number, raw, nil)
		}
		return f, nil
	}
	return nil, NewCoercionError(Number, raw, nil)
}

func compareString(a, b any) int {
	if c, ok := compareNil(a, b); ok {
		return c
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if !okA || !okB {
		return compareMixed(a, b)
	}
	return strings.Compare(sa, sb)
}

func coerceString(raw any, format string) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case time.Time:
		if format != "" {
			s, err := strtime.Strftime(v, format)
			if err != nil {
				return nil, NewCoercionError(String, raw, err)
			}
			return s, nil
		}
		return v.Format(time.RFC3339Nano), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return util.Stringify(raw), nil
	}
	return fmt.Sprint(raw), nil
}

func compareBoolean(a, b any) int {
	if c, ok := compareNil(a, b); ok {
		return c
	}
	ba, okA := a.(bool)
	bb, okB := b.(bool)
	if !okA || !okB {
		return compareMixed(a, b)
	}
	switch {
	case ba == bb:
		return 0
	case !ba:
		return -1
	default:
		return 1
	}
}

func coerceBoolean(raw any, _ string) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return nil, nil
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		}
		return nil, NewCoercionError(Boolean, raw, nil)
	}
	if f, ok := ToFloat(raw); ok {
		return f != 0, nil
	}
	return nil, NewCoercionError(Boolean, raw, nil)
}

func compareTime(a, b any) int {
	if c, ok := compareNil(a, b); ok {
		return c
	}
	ta, okA := a.(time.Time)
	tb, okB := b.(time.Time)
	if !okA || !okB {
		return compareMixed(a, b)
	}
	return ta.Compare(tb)
}

func coerceTime(raw any, format string) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		if format != "" {
			t, err := strtime.Strptime(s, format)
			if err != nil {
				return nil, NewCoercionError(Time, raw, err)
			}
			return t, nil
		}
		for _, layout := range TimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, NewCoercionError(Time, raw, nil)
	}
	// numbers are Unix milliseconds
	if f, ok := ToFloat(raw); ok {
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	return nil, NewCoercionError(Time, raw, nil)
}

func compareMixed(a, b any) int {
	if c, ok := compareNil(a, b); ok {
		return c
	}
	if fa, ok := ToFloat(a); ok {
		if fb, ok := ToFloat(b); ok {
			return cmpFloat(fa, fb)
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	ka, errA := util.CanonicalKey(a)
	kb, errB := util.CanonicalKey(b)
	if errA != nil || errB != nil {
		return strings.Compare(fmt.Sprintf("%#v", a), fmt.Sprintf("%#v", b))
	}
	return strings.Compare(ka, kb)
}

func coerceMixed(raw any, _ string) (any, error) { return raw, nil }

// ToFloat converts any Go integer or floating point value to float64. Named types with a numeric
// underlying kind are accepted too.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

package method

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/knz/strtime"

	"github.com/l7mp/dataset/pkg/types"
)

func builtinPreprocessors() map[string]Preprocessor {
	return map[string]Preprocessor{
		"lower": stringFn(strings.ToLower),
		"upper": stringFn(strings.ToUpper),
		"trim":  stringFn(strings.TrimSpace),
		"round": numberFn(math.Round),
		"floor": numberFn(math.Floor),
		"ceil":  numberFn(math.Ceil),
		"year":  timeFn(func(t time.Time) int { return t.Year() }),
		"month": timeFn(func(t time.Time) int { return int(t.Month()) }),
		"day":   timeFn(func(t time.Time) int { return t.Day() }),
		"hour":  timeFn(func(t time.Time) int { return t.Hour() }),
	}
}

func stringFn(fn func(string) string) Preprocessor {
	return Preprocessor{
		Type: types.String,
		Fn: func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			s, ok := v.(string)
			if !ok {
				s = fmt.Sprint(v)
			}
			return fn(s), nil
		},
	}
}

func numberFn(fn func(float64) float64) Preprocessor {
	return Preprocessor{
		Type: types.Number,
		Fn: func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			f, ok := types.ToFloat(v)
			if !ok {
				return nil, fmt.Errorf("non-numeric value %#v (%T)", v, v)
			}
			return fn(f), nil
		},
	}
}

func timeFn(fn func(time.Time) int) Preprocessor {
	return Preprocessor{
		Type: types.Number,
		Fn: func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			t, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("not a time value: %#v (%T)", v, v)
			}
			return float64(fn(t)), nil
		},
	}
}

func formatPreprocessor(layout string) Preprocessor {
	return Preprocessor{
		Type: types.String,
		Fn: func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			t, ok := v.(time.Time)
			if !ok {
				return nil, NewMethodError(FormatPrefix+layout,
					fmt.Errorf("not a time value: %#v (%T)", v, v))
			}
			s, err := strtime.Strftime(t, layout)
			if err != nil {
				return nil, NewMethodError(FormatPrefix+layout, err)
			}
			return s, nil
		},
	}
}

package rest

import (
	"fmt"
	"reflect"
	"time"

	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	amountType  = reflect.TypeOf(coinbase.Amount{})
	timeType    = reflect.TypeOf(time.Time{})
)

// decode projects a generic response value onto out. Field names come from
// the json tags so the same types serve both directions.
func decode(input interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToAmountHook,
			stringToDecimalHook,
			stringToTimeHook,
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// field returns m[key] decoded into out, or an error naming the missing key.
func field(m map[string]interface{}, key string, out interface{}) error {
	v, ok := m[key]
	if !ok {
		return fmt.Errorf("response has no %q field", key)
	}
	return decode(v, out)
}

func stringToDecimalHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		if v == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	return data, nil
}

// stringToAmountHook decodes feed amounts; an empty string is an invalid
// Amount, as on the websocket.
func stringToAmountHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != amountType {
		return data, nil
	}
	if s, ok := data.(string); ok && s == "" {
		return coinbase.Amount{}, nil
	}
	d, err := stringToDecimalHook(f, decimalType, data)
	if err != nil {
		return nil, err
	}
	if v, ok := d.(decimal.Decimal); ok {
		return coinbase.NewAmount(v), nil
	}
	return data, nil
}

// stringToTimeHook parses RFC 3339 timestamps; an empty string is the zero time.
func stringToTimeHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != timeType || f.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

package config

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// lookupSetting returns the value of the first candidate key present in
// settings. Viper lowercases keys, so the lowercase form is tried as well.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
		if val, ok := settings[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// asNumber is the shared numeric coercion behind asInt, asFloat64 and
// asDuration. YAML yields ints, JSON yields float64 or json.Number and env
// overrides arrive as strings. nil and blank strings read as zero.
func asNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", s)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
}

// asInt accepts whole numbers only; message counts and rates have no
// meaningful fraction.
func asInt(value interface{}) (int, error) {
	n, err := asNumber(value)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) {
		return 0, fmt.Errorf("%v is not a whole number", n)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, fmt.Errorf("%v is out of range", n)
	}
	return int(n), nil
}

func asFloat64(value interface{}) (float64, error) {
	n, err := asNumber(value)
	return n, err
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, nil
		}
		return strconv.ParseBool(s)
	default:
		return false, fmt.Errorf("unsupported boolean type %T", value)
	}
}

// asDuration accepts a time.Duration, a Go duration string such as "500ms",
// or a plain number of seconds, which may be fractional.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
	}
	secs, err := asNumber(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %w", err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// eachEntry walks the two map shapes viper produces (JSON decodes to
// map[string]interface{}, nested YAML to map[interface{}]interface{}).
func eachEntry(value interface{}, fn func(key string, val interface{}) error) error {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, val := range v {
			if err := fn(key, val); err != nil {
				return err
			}
		}
	case map[string]string:
		for key, val := range v {
			if err := fn(key, val); err != nil {
				return err
			}
		}
	case map[interface{}]interface{}:
		for key, val := range v {
			str, _ := asString(key)
			if err := fn(str, val); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("expected map, got %T", value)
	}
	return nil
}

// asStringMap converts handshake header settings; the caller canonicalizes
// key case.
func asStringMap(value interface{}) (map[string]string, error) {
	if value == nil {
		return nil, nil
	}
	result := map[string]string{}
	err := eachEntry(value, func(key string, val interface{}) error {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("header key cannot be empty")
		}
		str, err := asString(val)
		if err != nil {
			return err
		}
		result[key] = str
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// asStringSlice accepts a list or a single string, so one threshold can be
// written without list syntax.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			result[i] = str
		}
		return result, nil
	case string:
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("unsupported string slice type %T", value)
	}
}

// toStringKeyMap normalizes a nested section such as tracing or auth to
// lowercase trimmed keys.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	result := map[string]interface{}{}
	err := eachEntry(value, func(key string, val interface{}) error {
		result[strings.ToLower(strings.TrimSpace(key))] = val
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

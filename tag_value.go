package osm2pgr

import (
	"strconv"
	"strings"
)

// TagValue is an attribute value which could be a scalar or a list.
// Graph providers produce lists when parallel or simplified segments were merged.
// Scalar is stored as single-element list
type TagValue []string

// Scalar wraps single value
func Scalar(value string) TagValue {
	return TagValue{value}
}

// List wraps several values
func List(values ...string) TagValue {
	tv := make(TagValue, len(values))
	copy(tv, values)
	return tv
}

// First returns first element. Empty list is reported as absent value
func (tv TagValue) First() (string, bool) {
	if len(tv) == 0 {
		return "", false
	}
	return tv[0], true
}

// IsList returns true if value holds more than one element
func (tv TagValue) IsList() bool {
	return len(tv) > 1
}

// String returns pretty printed value for TagValue
func (tv TagValue) String() string {
	if len(tv) == 1 {
		return tv[0]
	}
	return "[" + strings.Join(tv, ",") + "]"
}

// tagValueFromAny converts decoded JSON value into TagValue.
// nil and objects are reported as absent values
func tagValueFromAny(value interface{}) (TagValue, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case []interface{}:
		tv := make(TagValue, 0, len(v))
		for _, elem := range v {
			s, ok := scalarToString(elem)
			if !ok {
				s = ""
			}
			tv = append(tv, s)
		}
		return tv, true
	default:
		s, ok := scalarToString(v)
		if !ok {
			return nil, false
		}
		return Scalar(s), true
	}
}

func scalarToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

// firstFloat returns first element of JSON value as number
func firstFloat(value interface{}) (float64, bool) {
	if list, ok := value.([]interface{}); ok {
		if len(list) == 0 {
			return 0, false
		}
		value = list[0]
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

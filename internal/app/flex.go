package app

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The Torn API emits the same field as a number in one endpoint and a
// string in another. The Flex types accept either and never fail to
// decode: anything unparseable becomes the zero value.

// FlexID is an opaque identifier that may arrive as a JSON string or number.
type FlexID string

// UnmarshalJSON accepts strings, integers, floats and null.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = ""
			return nil
		}
		*f = FlexID(strings.TrimSpace(s))
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		n, err := strconv.ParseFloat(string(data), 64)
		if err == nil && n == math.Trunc(n) && math.Abs(n) < 1e15 {
			*f = FlexID(strconv.FormatInt(int64(n), 10))
		} else {
			*f = FlexID(string(data))
		}
	default:
		*f = ""
	}
	return nil
}

// String returns the canonical string form.
func (f FlexID) String() string {
	return string(f)
}

// Int coerces the identifier to an integer for comparison against
// configured ids. The second value is false when it is not numeric.
func (f FlexID) Int() (int, bool) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil && fl == math.Trunc(fl) {
		return int(fl), true
	}
	return 0, false
}

// FlexInt is an integer that may arrive as a number, a numeric string or null.
type FlexInt int64

// UnmarshalJSON decodes leniently; unparseable input yields 0.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	v, _ := parseFlexNumber(data)
	*f = FlexInt(int64(v))
	return nil
}

// FlexFloat is a real number that may arrive as a number, a numeric string or null.
type FlexFloat float64

// UnmarshalJSON decodes leniently; unparseable input yields 0.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	v, _ := parseFlexNumber(data)
	*f = FlexFloat(v)
	return nil
}

func parseFlexNumber(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		raw = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

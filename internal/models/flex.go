package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// flexInt decodes from a JSON number or a numeric string. null and "" leave
// it unset.
type flexInt struct {
	v   int
	set bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}

	s := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
	}

	if n, err := strconv.Atoi(s); err == nil {
		f.v, f.set = n, true
		return nil
	}
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(fl) || math.IsInf(fl, 0) {
		return fmt.Errorf("value %s is not an integer", raw)
	}
	// int(fl) is implementation-defined outside the int range.
	if fl < float64(math.MinInt) || fl >= -float64(math.MinInt) {
		return fmt.Errorf("value %s is out of range", raw)
	}
	f.v, f.set = int(fl), true
	return nil
}

// flexString keeps ids that some feeds send as numbers and others as strings.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(raw, []byte("null")):
		return nil
	case len(raw) > 0 && raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("value %s is neither a string nor a number", raw)
	}
	*f = flexString(n.String())
	return nil
}

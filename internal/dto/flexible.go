package dto

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// FlexibleID accepts both JSON numbers and strings. Quality criteria ids are
// integers on the server but the built-in defaults use names like "default_1".
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = FlexibleID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("decode id %q: not a number or string", data)
	}
	*id = FlexibleID(data)
	return nil
}

func (id FlexibleID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseUint(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// FlexibleFloat accepts JSON numbers and numeric strings (decimal columns are
// serialised as strings by the server).
type FlexibleFloat float64

func (f *FlexibleFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode number: %w", err)
		}
		if s == "" {
			*f = 0
			return nil
		}
		data = []byte(s)
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decode number %q: %w", data, err)
	}
	*f = FlexibleFloat(v)
	return nil
}

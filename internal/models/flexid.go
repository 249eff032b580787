package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexID is an identifier that decodes from either a JSON string or a JSON
// number and is always held in canonical string form.
type FlexID string

// UnmarshalJSON accepts "42", 42 and null.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexID(n.String())
	return nil
}

// String returns the canonical form.
func (f FlexID) String() string { return string(f) }

// FirstID returns the first non-empty identifier.
func FirstID(ids ...FlexID) string {
	for _, id := range ids {
		if id != "" {
			return id.String()
		}
	}
	return ""
}

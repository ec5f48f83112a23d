package history

import (
	"fmt"
	"strconv"
	"strings"
)

// FlexID is a history record identifier. Earlier producers minted ids
// inconsistently as either JSON numbers (epoch millis plus a random
// suffix) or strings, so stored data contains both forms. FlexID
// accepts either on decode, keeps the textual form, and always encodes
// as a string. New ids are minted as UUID strings in exactly one place
// (Cache.Add), so the numeric form only survives in pre-existing data.
type FlexID string

// UnmarshalJSON accepts a JSON string or number.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("invalid id %s: %w", s, err)
		}
		*f = FlexID(unquoted)
		return nil
	}
	if s == "null" {
		*f = ""
		return nil
	}
	// Numeric literal: keep its textual form.
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("invalid id %s", s)
	}
	*f = FlexID(s)
	return nil
}

// MarshalJSON always encodes as a string.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(f))), nil
}

// Equal reports whether two ids identify the same record: exact match,
// or both sides parse as the same number. Strict-type equality would
// silently fail to match a record stored with a numeric id against a
// caller-supplied string form, or vice versa.
func (f FlexID) Equal(other FlexID) bool {
	if f == other {
		return true
	}
	a, errA := strconv.ParseFloat(string(f), 64)
	b, errB := strconv.ParseFloat(string(other), 64)
	return errA == nil && errB == nil && a == b
}

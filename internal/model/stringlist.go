package model

import (
	"database/sql"
	"database/sql/driver"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// StringList is an ordered list of strings stored as JSON text in a single
// column (authors, categories).
//
// Reading is lenient: NULL or empty text is an empty list, and text that is
// not a JSON array of strings is returned as a one-element list holding the
// raw text.
type StringList []string

var (
	_ driver.Valuer = StringList(nil)
	_ sql.Scanner   = (*StringList)(nil)
)

// Value implements driver.Valuer. A nil or empty list is stored as "[]".
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := jsoniter.ConfigFastest.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("model: encoding string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("model: cannot scan %T into StringList", src)
	}

	*l = ParseStringList(raw)
	return nil
}

// ParseStringList decodes stored text with the lenient rules described on
// StringList.
func ParseStringList(raw string) StringList {
	if raw == "" {
		return StringList{}
	}
	var out []string
	if err := jsoniter.ConfigFastest.UnmarshalFromString(raw, &out); err != nil {
		return StringList{raw}
	}
	if out == nil {
		return StringList{}
	}
	return StringList(out)
}

// OrEmpty returns l, or a non-nil empty list when l is nil, so that JSON
// output is [] rather than null.
func (l StringList) OrEmpty() []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// IDList is a list of row ids stored as a JSON array in a text column
type IDList []uint

// Value implements driver.Valuer
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]uint(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *IDList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = IDList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported id list source %T", src)
	}

	var ids []uint
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("failed to decode id list: %w", err)
	}
	*l = ids
	return nil
}

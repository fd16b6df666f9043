package resolver

import (
	"fmt"
	"time"
)

// The linkage tables are probed generically, so record values arrive as
// map[string]any with driver-dependent types. These helpers normalize them.

func stringField(record map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := record[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case []byte:
			if len(val) > 0 {
				return string(val)
			}
		case int, int32, int64, float32, float64, bool:
			return fmt.Sprintf("%v", val)
		}
	}
	return ""
}

func boolField(record map[string]any, key string) bool {
	v, ok := record[key]
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "t"
	case int:
		return val != 0
	case int32:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func timeField(record map[string]any, keys ...string) *time.Time {
	for _, key := range keys {
		v, ok := record[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case time.Time:
			return &val
		case *time.Time:
			if val != nil {
				return val
			}
		case string:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, val); err == nil {
					return &t
				}
			}
		}
	}
	return nil
}

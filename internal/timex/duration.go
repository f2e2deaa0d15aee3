// Package timex provides time helpers shared by config layers and the sync
// engine: a JSON-friendly Duration and epoch-millisecond conversions.
package timex

import (
	"encoding/json"
	"errors"
	"time"
)

// Duration wraps time.Duration so JSON config files can specify intervals
// either as strings like "3s" or as integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// NowMillis returns the current time as epoch milliseconds, the timestamp
// representation mirrored entities share with the backend.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// FromMillis converts epoch milliseconds back to time.Time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

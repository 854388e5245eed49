package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Duration is a time.Duration that reads from JSON as either a duration
// string ("30s", "5m") or integer nanoseconds, and writes as a string.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	parsed, err := cast.ToDurationE(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", data, err)
	}
	*d = Duration(parsed)
	return nil
}

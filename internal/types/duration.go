package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is serialized as a Go duration string ("1.25s"). A bare number is
// read as seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(value * float64(time.Second))
	default:
		return fmt.Errorf("invalid duration: %s", string(data))
	}

	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

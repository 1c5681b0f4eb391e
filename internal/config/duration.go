package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldError reports a config value that does not parse.
type FieldError struct {
	Key   string
	Value string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %q: %v", e.Key, e.Value, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

var errNegativeDuration = errors.New("duration must not be negative")

// Timeout parses a duration setting such as smtp.timeout. A bare number
// counts seconds. Blank or zero yields def.
func Timeout(key, raw string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		secs, numErr := strconv.ParseUint(v, 10, 32)
		if numErr != nil {
			return 0, &FieldError{Key: key, Value: raw, Err: err}
		}
		d = time.Duration(secs) * time.Second
	}
	switch {
	case d < 0:
		return 0, &FieldError{Key: key, Value: raw, Err: errNegativeDuration}
	case d == 0:
		return def, nil
	}
	return d, nil
}

package configcache

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrMissingKey is returned by the typed accessors when a key is absent or empty.
var ErrMissingKey = errors.New("configcache: missing key")

// Values is the flat key/value configuration map with the root prefix stripped from every key.
// Treat it as read-only; it is shared between all callers.
type Values map[string]string

func (v Values) String(key string) (string, error) {
	s, ok := v[key]
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return s, nil
}

func (v Values) Int(key string) (int, error) {
	s, err := v.String(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("configcache: %s: %w", key, err)
	}
	return n, nil
}

// Duration accepts either a Go duration ("12h") or a whole number of seconds ("43200").
func (v Values) Duration(key string) (time.Duration, error) {
	s, err := v.String(key)
	if err != nil {
		return 0, err
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("configcache: %s: %w", key, err)
	}
	return d, nil
}

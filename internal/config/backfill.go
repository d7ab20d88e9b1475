package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BackfillConfig drives a one-shot closed-position resync over an explicit window.
type BackfillConfig struct {
	From, To time.Time
	Logins   []uint64 // empty means every known account
}

// ParseTime accepts RFC3339 or a bare date.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format %q", s)
}

func (b BackfillConfig) Validate() error {
	if b.From.IsZero() || b.To.IsZero() {
		return fmt.Errorf("from and to are required")
	}
	if !b.From.Before(b.To) {
		return fmt.Errorf("from must be before to")
	}
	return nil
}

// ParseBackfillArgs builds a validated BackfillConfig from command line values.
func ParseBackfillArgs(from, to, logins string) (BackfillConfig, error) {
	var (
		bf  BackfillConfig
		err error
	)
	if bf.From, err = ParseTime(from); err != nil {
		return bf, fmt.Errorf("%w: invalid from", err)
	}
	if bf.To, err = ParseTime(to); err != nil {
		return bf, fmt.Errorf("%w: invalid to", err)
	}

	for _, raw := range strings.Split(logins, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		login, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || login == 0 {
			return bf, fmt.Errorf("invalid login %q", raw)
		}
		bf.Logins = append(bf.Logins, login)
	}

	return bf, bf.Validate()
}

package assessment

import (
	"errors"
	"strings"
	"time"
)

// Defaults applied when no explicit settings are supplied.
const (
	DefaultSectorTolerance        = 0.02
	DefaultLocationTolerance      = 0.02
	DefaultBusinessCaseMonths     = 3
	DefaultLogicalFrameworkMonths = 3
	DefaultAnnualReviewMonths     = 19
)

// Config is the immutable rule configuration for one assessment run.
// The With* methods return modified copies and never touch the receiver.
type Config struct {
	SectorTolerance        float64
	LocationTolerance      float64
	BusinessCaseMonths     int
	LogicalFrameworkMonths int
	AnnualReviewMonths     int
	// Now anchors every temporal gate so a run is reproducible.
	Now time.Time

	exemptions   map[string]struct{}
	defaultDates []time.Time
	nonAcronyms  map[string]struct{}
}

// DefaultConfig returns the standard thresholds evaluated at now.
func DefaultConfig(now time.Time) Config {
	return Config{
		SectorTolerance:        DefaultSectorTolerance,
		LocationTolerance:      DefaultLocationTolerance,
		BusinessCaseMonths:     DefaultBusinessCaseMonths,
		LogicalFrameworkMonths: DefaultLogicalFrameworkMonths,
		AnnualReviewMonths:     DefaultAnnualReviewMonths,
		Now:                    now,
	}
}

// WithExemptions returns a copy whose document checks skip the given identifiers.
func (c Config) WithExemptions(identifiers []string) Config {
	c.exemptions = toSet(identifiers)
	return c
}

// WithDefaultDates returns a copy that treats the given dates as placeholders.
func (c Config) WithDefaultDates(dates []time.Time) Config {
	c.defaultDates = append([]time.Time(nil), dates...)
	return c
}

// WithNonAcronyms returns a copy that never reports the given tokens as acronyms.
func (c Config) WithNonAcronyms(tokens []string) Config {
	c.nonAcronyms = toSet(tokens)
	return c
}

// Validate rejects configurations the rules cannot evaluate meaningfully.
func (c Config) Validate() error {
	if c.SectorTolerance < 0 || c.LocationTolerance < 0 {
		return errors.New("tolerances must not be negative")
	}
	if c.BusinessCaseMonths <= 0 || c.LogicalFrameworkMonths <= 0 || c.AnnualReviewMonths <= 0 {
		return errors.New("document exemption windows must be positive")
	}
	if c.Now.IsZero() {
		return errors.New("evaluation time is required")
	}
	return nil
}

// IsExempt reports whether an identifier is excluded from document checks.
func (c Config) IsExempt(identifier string) bool {
	_, ok := c.exemptions[identifier]
	return ok
}

func (c Config) isNonAcronym(token string) bool {
	_, ok := c.nonAcronyms[token]
	return ok
}

// isDefaultDate compares calendar dates only, each in its own offset.
func (c Config) isDefaultDate(t time.Time) bool {
	for _, d := range c.defaultDates {
		if sameDate(t, d) {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// ParseISODate parses an ISO-8601 date or date-time. "Z" is the UTC offset
// and values without an offset are taken as UTC.
func ParseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid ISO-8601 date: " + s)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dateOnly truncates t to midnight UTC of its own calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package pipeline

import (
	"math/rand"
	"time"

	"cloud.google.com/go/civil"
)

// DateResampler replaces real transaction dates with dates drawn uniformly
// from an inclusive window. This is an anonymization step: sampled dates
// carry no temporal relation to the original timestamps or to each other.
type DateResampler struct {
	start civil.Date
	days  int
	rng   *rand.Rand
}

// NewDateResampler builds a resampler over [start, end] inclusive. end must
// not precede start (config validation enforces this).
func NewDateResampler(start, end civil.Date, rng *rand.Rand) *DateResampler {
	return &DateResampler{start: start, days: end.DaysSince(start), rng: rng}
}

// Sample draws one date from the window.
func (r *DateResampler) Sample() civil.Date {
	return r.start.AddDays(r.rng.Intn(r.days + 1))
}

// dateLayouts are the timestamp shapes accepted in raw source files. Rows
// whose date parses under none of them are dropped.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
}

// parseRawDate reports whether value is a parseable calendar timestamp.
func parseRawDate(value string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

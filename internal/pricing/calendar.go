package pricing

import (
	"sort"
	"time"

	"rentdapp/internal/models"
)

// BlockedDates is a set of YYYY-MM-DD day keys that cannot be booked.
type BlockedDates map[string]struct{}

func NewBlockedDates(keys ...string) BlockedDates {
	b := make(BlockedDates, len(keys))
	for _, k := range keys {
		b[k] = struct{}{}
	}
	return b
}

// Has reports whether the calendar day of t is blocked.
func (b BlockedDates) Has(t time.Time) bool {
	_, ok := b[models.DateKey(t)]
	return ok
}

// Keys returns the blocked days in ascending order.
func (b BlockedDates) Keys() []string {
	out := make([]string, 0, len(b))
	for k := range b {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Calendar decides which days a guest may pick for one property.
type Calendar struct {
	Blocked       BlockedDates
	MinStayNights int
	MaxStayNights int
	Now           func() time.Time
}

// NewCalendar builds a calendar from the stay limits of p.
func NewCalendar(p *models.Property, blocked BlockedDates, now func() time.Time) *Calendar {
	c := &Calendar{Blocked: blocked, Now: now}
	if p != nil {
		c.MinStayNights = p.MinStayNights
		c.MaxStayNights = p.MaxStayNights
	}
	return c
}

// DateFilter reports whether date can be picked: not in the past and not blocked.
func (c *Calendar) DateFilter(date time.Time) bool {
	if date.IsZero() {
		return false
	}
	if dayOf(date).Before(dayOf(c.now())) {
		return false
	}
	return !c.Blocked.Has(date)
}

// CheckOutFilter reports whether date can be the check-out for checkIn.
// A zero checkIn falls back to DateFilter.
func (c *Calendar) CheckOutFilter(checkIn, date time.Time) bool {
	if date.IsZero() {
		return false
	}
	if checkIn.IsZero() {
		return c.DateFilter(date)
	}

	days := Nights(checkIn, date)
	if c.MinStayNights > 0 && days < c.MinStayNights {
		return false
	}
	if c.MaxStayNights > 0 && days > c.MaxStayNights {
		return false
	}

	for cur := checkIn; cur.Before(date); cur = cur.AddDate(0, 0, 1) {
		if c.Blocked.Has(cur) {
			return false
		}
	}

	return c.DateFilter(date)
}

// SelectableDates lists the days in [from, to] that pass DateFilter.
func (c *Calendar) SelectableDates(from, to time.Time) []string {
	var out []string
	for cur := from; !dayOf(cur).After(dayOf(to)); cur = cur.AddDate(0, 0, 1) {
		if c.DateFilter(cur) {
			out = append(out, models.DateKey(cur))
		}
	}
	return out
}

// SelectableCheckOuts lists the days in (checkIn, to] that pass CheckOutFilter.
func (c *Calendar) SelectableCheckOuts(checkIn, to time.Time) []string {
	var out []string
	for cur := checkIn.AddDate(0, 0, 1); !dayOf(cur).After(dayOf(to)); cur = cur.AddDate(0, 0, 1) {
		if c.CheckOutFilter(checkIn, cur) {
			out = append(out, models.DateKey(cur))
		}
	}
	return out
}

func (c *Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD key as midnight UTC.
func ParseDay(key string) (time.Time, error) {
	return time.ParseInLocation(models.DateLayout, key, time.UTC)
}

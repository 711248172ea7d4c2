package booking

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date
// =============================================================================

// Date is a calendar date. All deadline logic in this system works in whole
// days, so times-of-day are normalized away.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool  { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool  { return d.normalize().Equal(other.normalize()) }
func (d Date) IsZero() bool           { return d.Time.IsZero() }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// DaysBetween returns the number of whole days from one date to the next.
// Negative when to precedes from.
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// =============================================================================
// CLOCK - "Today" as an injectable dependency
// =============================================================================

// Clock supplies the current date. Deadline predicates are pure functions of
// an arrangement and a date, so managers take a Clock and tests substitute a
// fixed one to simulate the passage of time.
type Clock interface {
	Today() Date
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// FixedClock returns a settable date. For tests and replay.
type FixedClock struct {
	Current Date
}

func NewFixedClock(d Date) *FixedClock { return &FixedClock{Current: d} }

func (c *FixedClock) Today() Date { return c.Current }

// Advance moves the clock forward by n days.
func (c *FixedClock) Advance(days int) { c.Current = c.Current.AddDays(days) }

// Set moves the clock to an absolute date.
func (c *FixedClock) Set(d Date) { c.Current = d }

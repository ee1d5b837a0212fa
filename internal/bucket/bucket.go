// Package bucket maps timestamps onto profile buckets: local weekday,
// season and time-of-day interval in one fixed zone.
package bucket

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // the fixed zone must resolve on hosts without a zoneinfo database

	"golang.org/x/xerrors"

	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

// Defaults of the reference deployment
const (
	DefaultTimezone = "America/Phoenix"
	DefaultInterval = 30 * time.Minute
)

// DefaultSummerMonths is May through August inclusive.
var DefaultSummerMonths = []time.Month{time.May, time.June, time.July, time.August}

// TimeOfDay is minutes since local midnight.
type TimeOfDay int

// String renders HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseTimeOfDay parses HH:MM.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	tt, err := time.Parse("15:04", s)
	if err != nil {
		return 0, xerrors.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay(tt.Hour()*60 + tt.Minute()), nil
}

// Key identifies a bucket independent of camera.
type Key struct {
	Weekday       time.Weekday
	IsSummer      bool
	IntervalStart TimeOfDay
}

// WeekdayName is the stored weekday value, "Monday".."Sunday".
func (k Key) WeekdayName() string {
	return k.Weekday.String()
}

// Bucketer computes bucket keys. The zero value is not usable; use New.
type Bucketer struct {
	location *time.Location
	interval time.Duration
	summer   map[time.Month]bool
}

// New builds a Bucketer for the named zone. An interval that is not a whole
// number of minutes dividing the day falls back to DefaultInterval, and an
// empty month list falls back to DefaultSummerMonths.
func New(timezone string, interval time.Duration, summerMonths []time.Month) (*Bucketer, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, xerrors.Errorf("load timezone %q: %w", timezone, err)
	}

	if interval < time.Minute || interval%time.Minute != 0 || (24*time.Hour)%interval != 0 {
		interval = DefaultInterval
	}
	if len(summerMonths) == 0 {
		summerMonths = DefaultSummerMonths
	}

	summer := make(map[time.Month]bool, len(summerMonths))
	for _, m := range summerMonths {
		summer[m] = true
	}

	return &Bucketer{location: loc, interval: interval, summer: summer}, nil
}

// MustDefault returns the reference bucketer (America/Phoenix, 30 min, May-Aug).
func MustDefault() *Bucketer {
	b, err := New(DefaultTimezone, DefaultInterval, DefaultSummerMonths)
	if err != nil {
		panic(err)
	}
	return b
}

// Location returns the fixed bucketing zone.
func (b *Bucketer) Location() *time.Location {
	return b.location
}

// Interval returns the bucket width.
func (b *Bucketer) Interval() time.Duration {
	return b.interval
}

// For returns the bucket key of t in the fixed zone.
func (b *Bucketer) For(t time.Time) Key {
	local := t.In(b.location)

	step := int(b.interval / time.Minute)
	minutes := local.Hour()*60 + local.Minute()

	return Key{
		Weekday:       local.Weekday(),
		IsSummer:      b.summer[local.Month()],
		IntervalStart: TimeOfDay(minutes / step * step),
	}
}

// ForString parses s with ParseTimestamp and buckets it.
func (b *Bucketer) ForString(s string) (Key, error) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return Key{}, err
	}
	return b.For(t), nil
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTimestamp parses ISO-8601 timestamps. Input without zone information
// is taken as UTC. The result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, xerrors.Errorf("empty timestamp: %w", models.ErrInvalidTimestamp)
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, xerrors.Errorf("parse %q: %w", s, models.ErrInvalidTimestamp)
}

// ParseWeekday accepts a day name in any case ("monday", "Mon").
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

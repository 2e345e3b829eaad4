// Package schedule describes when recurring work should run: a small
// composable builder produces a five-field time specification that compiles
// to a standard cron expression, optionally bounded by a validity window.
package schedule

import (
	"fmt"
	"time"
)

// Schedule maps each of the five cron fields to a value, plus an optional
// validity window. Start is inclusive, End exclusive. Build one with the
// package constructors (Daily, Hourly, Every, ...); a Schedule compiled from
// those always carries all five fields.
type Schedule struct {
	fields map[Field]Value
	start  *time.Time
	end    *time.Time
}

// FieldValue returns the value for f, if set.
func (s Schedule) FieldValue(f Field) (Value, bool) {
	v, ok := s.fields[f]
	return v, ok
}

// Window returns the validity window bounds; either may be nil.
func (s Schedule) Window() (start, end *time.Time) { return s.start, s.end }

// Entry is one field assignment inside an At or On filter.
type Entry struct {
	field Field
	raw   any
}

func Minute(v any) Entry    { return Entry{FieldMinute, v} }
func Hour(v any) Entry      { return Entry{FieldHour, v} }
func Day(v any) Entry       { return Entry{FieldDay, v} }
func Month(v any) Entry     { return Entry{FieldMonth, v} }
func DayOfWeek(v any) Entry { return Entry{FieldDayOfWeek, v} }

type builder struct {
	fields map[Field]any
	start  *time.Time
	end    *time.Time
}

// Option is a schedule filter. Filters overlay the base skeleton in call
// order; the last filter touching a field wins.
type Option func(*builder)

// At merges one or more field assignments into the schedule. Later entries
// for the same field overwrite earlier ones within the same call.
func At(entries ...Entry) Option {
	return func(b *builder) {
		for _, e := range entries {
			b.fields[e.field] = e.raw
		}
	}
}

// On is At under a name that reads better for date fields,
// e.g. Daily(On(Month("apr"))).
func On(entries ...Entry) Option { return At(entries...) }

// Per sets field f to fire every step units, rendered as */step.
func Per(f Field, step int) Option {
	return func(b *builder) { b.fields[f] = Interval(step) }
}

// From sets the start of the validity window (inclusive).
func From(t time.Time) Option {
	return func(b *builder) { b.start = &t }
}

// Until sets the end of the validity window (exclusive).
func Until(t time.Time) Option {
	return func(b *builder) { b.end = &t }
}

func build(base map[Field]any, opts []Option) (Schedule, error) {
	b := &builder{fields: base}
	for _, opt := range opts {
		opt(b)
	}
	s := Schedule{fields: make(map[Field]Value, len(b.fields)), start: b.start, end: b.end}
	for f, raw := range b.fields {
		v, err := Normalize(f, raw)
		if err != nil {
			return Schedule{}, err
		}
		s.fields[f] = v
	}
	return s, nil
}

func skeleton(overrides map[Field]any) map[Field]any {
	base := map[Field]any{
		FieldMinute:    Wildcard(),
		FieldHour:      Wildcard(),
		FieldDay:       Wildcard(),
		FieldMonth:     Wildcard(),
		FieldDayOfWeek: Wildcard(),
	}
	for f, v := range overrides {
		base[f] = v
	}
	return base
}

// EachMinute fires every minute: all five fields wildcard.
func EachMinute(opts ...Option) (Schedule, error) {
	return build(skeleton(nil), opts)
}

// Hourly fires at the top of every hour.
func Hourly(opts ...Option) (Schedule, error) {
	return build(skeleton(map[Field]any{FieldMinute: 0}), opts)
}

// Daily fires at midnight.
func Daily(opts ...Option) (Schedule, error) {
	return build(skeleton(map[Field]any{FieldMinute: 0, FieldHour: 0}), opts)
}

// Weekly fires at midnight on Sunday.
func Weekly(opts ...Option) (Schedule, error) {
	return build(skeleton(map[Field]any{FieldMinute: 0, FieldHour: 0, FieldDayOfWeek: Sun}), opts)
}

// Monthly fires at midnight on the first of the month.
func Monthly(opts ...Option) (Schedule, error) {
	return build(skeleton(map[Field]any{FieldMinute: 0, FieldHour: 0, FieldDay: 1}), opts)
}

// Every fires every step units of f, e.g. Every(2, FieldMinute) compiles to
// "*/2 * * * *". The interval takes precedence over filters touching f.
func Every(step int, f Field, opts ...Option) (Schedule, error) {
	return EachMinute(append(append([]Option{}, opts...), Per(f, step))...)
}

// OnDays fires daily on the given days of the month.
func OnDays(values []any, opts ...Option) (Schedule, error) {
	return onList(FieldDay, values, opts)
}

// OnMonths fires daily during the given months.
func OnMonths(values []any, opts ...Option) (Schedule, error) {
	return onList(FieldMonth, values, opts)
}

// OnDaysOfWeek fires daily on the given weekdays.
func OnDaysOfWeek(values []any, opts ...Option) (Schedule, error) {
	return onList(FieldDayOfWeek, values, opts)
}

func onList(f Field, values []any, opts []Option) (Schedule, error) {
	if len(values) == 0 {
		return Schedule{}, fmt.Errorf("%w: no values for %s", ErrInvalidFieldValue, f)
	}
	// Base is Daily with the named field forced to the value list, after
	// any filters have been applied.
	forced := func(b *builder) { b.fields[f] = values }
	return build(skeleton(map[Field]any{FieldMinute: 0, FieldHour: 0}), append(append([]Option{}, opts...), forced))
}

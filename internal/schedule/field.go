package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFieldValue is returned when a field leaf fails range or symbol
// validation. It is raised during schedule construction, never later.
var ErrInvalidFieldValue = errors.New("invalid field value")

// Field identifies one of the five cron time dimensions.
type Field int

const (
	FieldMinute Field = iota
	FieldHour
	FieldDay
	FieldMonth
	FieldDayOfWeek
)

func (f Field) String() string {
	switch f {
	case FieldMinute:
		return "minute"
	case FieldHour:
		return "hour"
	case FieldDay:
		return "day"
	case FieldMonth:
		return "month"
	case FieldDayOfWeek:
		return "day-of-week"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField resolves a field name as it appears in external input.
// Singular and plural unit names are both accepted.
func ParseField(name string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "minute", "minutes":
		return FieldMinute, nil
	case "hour", "hours":
		return FieldHour, nil
	case "day", "days":
		return FieldDay, nil
	case "month", "months":
		return FieldMonth, nil
	case "day-of-week", "day_of_week", "dow":
		return FieldDayOfWeek, nil
	}
	return 0, fmt.Errorf("%w: unknown field %q", ErrInvalidFieldValue, name)
}

// Closed validation bounds per field.
var fieldBounds = [...]struct{ lo, hi int }{
	FieldMinute:    {0, 59},
	FieldHour:      {0, 23},
	FieldDay:       {1, 31},
	FieldMonth:     {1, 12},
	FieldDayOfWeek: {0, 6},
}

var dayOfWeekNames = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// Day-of-week values, Sunday-based to match cron.
const (
	Sun = iota
	Mon
	Tue
	Wed
	Thu
	Fri
	Sat
)

// Month values.
const (
	Jan = 1 + iota
	Feb
	Mar
	Apr
	May
	Jun
	Jul
	Aug
	Sep
	Oct
	Nov
	Dec
)

// ValueKind discriminates the Value variants.
type ValueKind int

const (
	KindWildcard ValueKind = iota
	KindNumber
	KindList
	KindInterval
	KindRange
)

// Value is one field's value: a wildcard, a single number, an ordered list,
// a step interval ("every N units") or an inclusive range. List order is
// caller-significant and preserved verbatim.
type Value struct {
	Kind  ValueKind
	Num   int     // KindNumber
	Step  int     // KindInterval
	Items []Value // KindList
	Lo    *Value  // KindRange
	Hi    *Value  // KindRange
}

func Wildcard() Value          { return Value{Kind: KindWildcard} }
func Number(n int) Value       { return Value{Kind: KindNumber, Num: n} }
func List(vs ...Value) Value   { return Value{Kind: KindList, Items: vs} }
func Interval(step int) Value  { return Value{Kind: KindInterval, Step: step} }
func Range(lo, hi Value) Value { return Value{Kind: KindRange, Lo: &lo, Hi: &hi} }

// Span is the raw form of an inclusive range before normalization; its
// bounds may be numbers, symbolic names or Values.
type Span struct {
	Lo any
	Hi any
}

// InRange builds a raw inclusive range for use as a field value,
// e.g. Month(InRange("apr", "sep")).
func InRange(lo, hi any) Span { return Span{Lo: lo, Hi: hi} }

// Normalize converts a raw field value into a validated Value for field f.
// Raw may be an int (or any integer type), a symbolic month/day-of-week name,
// "*", a Span, a slice of raw values (kept in order), or an already-built
// Value, which is re-validated. Anything else fails with ErrInvalidFieldValue.
func Normalize(f Field, raw any) (Value, error) {
	switch v := raw.(type) {
	case Value:
		if err := validate(f, v); err != nil {
			return Value{}, err
		}
		return v, nil
	case Span:
		lo, err := Normalize(f, v.Lo)
		if err != nil {
			return Value{}, err
		}
		hi, err := Normalize(f, v.Hi)
		if err != nil {
			return Value{}, err
		}
		return Range(lo, hi), nil
	case string:
		return normalizeName(f, v)
	case []any:
		if len(v) == 0 {
			return Value{}, fmt.Errorf("%w: empty list for %s", ErrInvalidFieldValue, f)
		}
		items := make([]Value, 0, len(v))
		for _, item := range v {
			nv, err := Normalize(f, item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, nv)
		}
		return List(items...), nil
	case int:
		return normalizeNumber(f, v)
	case int8:
		return normalizeNumber(f, int(v))
	case int16:
		return normalizeNumber(f, int(v))
	case int32:
		return normalizeNumber(f, int(v))
	case int64:
		return normalizeNumber(f, int(v))
	case float64:
		// JSON numbers arrive as float64; only whole values are acceptable.
		if v != float64(int(v)) {
			return Value{}, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidFieldValue, f, v)
		}
		return normalizeNumber(f, int(v))
	}
	return Value{}, fmt.Errorf("%w: unsupported %s value %v (%T)", ErrInvalidFieldValue, f, raw, raw)
}

func normalizeName(f Field, name string) (Value, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "*" {
		return Wildcard(), nil
	}
	var table map[string]int
	switch f {
	case FieldMonth:
		table = monthNames
	case FieldDayOfWeek:
		table = dayOfWeekNames
	}
	if table != nil {
		if n, ok := table[s]; ok {
			return Number(n), nil
		}
	}
	return Value{}, fmt.Errorf("%w: unknown %s name %q", ErrInvalidFieldValue, f, name)
}

func normalizeNumber(f Field, n int) (Value, error) {
	v := Number(n)
	if err := validate(f, v); err != nil {
		return Value{}, err
	}
	return v, nil
}

// validate range-checks every numeric leaf of v against f's bounds.
func validate(f Field, v Value) error {
	switch v.Kind {
	case KindWildcard:
		return nil
	case KindNumber:
		b := fieldBounds[f]
		if v.Num < b.lo || v.Num > b.hi {
			return fmt.Errorf("%w: %s %d out of range [%d,%d]", ErrInvalidFieldValue, f, v.Num, b.lo, b.hi)
		}
		return nil
	case KindList:
		if len(v.Items) == 0 {
			return fmt.Errorf("%w: empty list for %s", ErrInvalidFieldValue, f)
		}
		for _, item := range v.Items {
			if err := validate(f, item); err != nil {
				return err
			}
		}
		return nil
	case KindInterval:
		if v.Step < 1 {
			return fmt.Errorf("%w: %s step %d must be positive", ErrInvalidFieldValue, f, v.Step)
		}
		return nil
	case KindRange:
		if v.Lo == nil || v.Hi == nil {
			return fmt.Errorf("%w: %s range missing bound", ErrInvalidFieldValue, f)
		}
		if err := validate(f, *v.Lo); err != nil {
			return err
		}
		return validate(f, *v.Hi)
	}
	return fmt.Errorf("%w: unknown %s value kind %d", ErrInvalidFieldValue, f, v.Kind)
}

// AM converts a 12-hour clock value (1-12) to a 24-hour one. AM(12) is 0.
func AM(h int) (int, error) {
	if h < 1 || h > 12 {
		return 0, fmt.Errorf("%w: am hour %d out of range [1,12]", ErrInvalidFieldValue, h)
	}
	if h == 12 {
		return 0, nil
	}
	return h, nil
}

// PM converts a 12-hour clock value (1-12) to a 24-hour one. PM(12) is 12.
func PM(h int) (int, error) {
	if h < 1 || h > 12 {
		return 0, fmt.Errorf("%w: pm hour %d out of range [1,12]", ErrInvalidFieldValue, h)
	}
	if h == 12 {
		return 12, nil
	}
	return h + 12, nil
}

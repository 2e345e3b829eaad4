package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrCronRender indicates a Value the compiler does not recognize; it points
// at a builder/compiler contract mismatch and should not occur with values
// produced by this package.
var ErrCronRender = errors.New("unrenderable field value")

// ErrIncompleteSchedule is returned when a schedule is missing one of the
// five fields, i.e. it was not produced by this package's builders.
var ErrIncompleteSchedule = errors.New("schedule is missing a field")

// compileOrder is the wire contract with the trigger engine: standard
// five-field cron, space-separated.
var compileOrder = [...]Field{FieldMinute, FieldHour, FieldDay, FieldMonth, FieldDayOfWeek}

// Compile renders s as a five-field cron expression, e.g. "20 9 * 4 *".
func Compile(s Schedule) (string, error) {
	parts := make([]string, 0, len(compileOrder))
	for _, f := range compileOrder {
		v, ok := s.fields[f]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrIncompleteSchedule, f)
		}
		rendered, err := renderValue(v)
		if err != nil {
			return "", fmt.Errorf("%s: %w", f, err)
		}
		parts = append(parts, rendered)
	}
	return strings.Join(parts, " "), nil
}

func renderValue(v Value) (string, error) {
	switch v.Kind {
	case KindWildcard:
		return "*", nil
	case KindNumber:
		return strconv.Itoa(v.Num), nil
	case KindList:
		parts := make([]string, 0, len(v.Items))
		for _, item := range v.Items {
			s, err := renderValue(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	case KindInterval:
		return "*/" + strconv.Itoa(v.Step), nil
	case KindRange:
		if v.Lo == nil || v.Hi == nil {
			return "", fmt.Errorf("%w: range missing bound", ErrCronRender)
		}
		lo, err := renderValue(*v.Lo)
		if err != nil {
			return "", err
		}
		hi, err := renderValue(*v.Hi)
		if err != nil {
			return "", err
		}
		return lo + "-" + hi, nil
	}
	return "", fmt.Errorf("%w: kind %d", ErrCronRender, v.Kind)
}

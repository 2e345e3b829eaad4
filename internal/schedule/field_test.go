package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBounds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		field Field
		raw   any
		ok    bool
	}{
		{"minute low", FieldMinute, 0, true},
		{"minute high", FieldMinute, 59, true},
		{"minute over", FieldMinute, 60, false},
		{"minute under", FieldMinute, -1, false},
		{"hour high", FieldHour, 23, true},
		{"hour over", FieldHour, 24, false},
		{"day low", FieldDay, 1, true},
		{"day zero", FieldDay, 0, false},
		{"day high", FieldDay, 31, true},
		{"day over", FieldDay, 32, false},
		{"month high", FieldMonth, 12, true},
		{"month over", FieldMonth, 13, false},
		{"dow high", FieldDayOfWeek, 6, true},
		{"dow over", FieldDayOfWeek, 7, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			v, err := Normalize(tt.field, tt.raw)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidFieldValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, KindNumber, v.Kind)
			assert.Equal(t, tt.raw, v.Num)
		})
	}
}

func TestNormalizeNames(t *testing.T) {
	t.Parallel()
	v, err := Normalize(FieldMonth, "apr")
	require.NoError(t, err)
	assert.Equal(t, Number(4), v)

	v, err = Normalize(FieldDayOfWeek, "Sat")
	require.NoError(t, err)
	assert.Equal(t, Number(6), v)

	v, err = Normalize(FieldMinute, "*")
	require.NoError(t, err)
	assert.Equal(t, KindWildcard, v.Kind)

	_, err = Normalize(FieldMonth, "smarch")
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	// minute has no symbol table
	_, err = Normalize(FieldMinute, "mon")
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
}

func TestNormalizeComposite(t *testing.T) {
	t.Parallel()

	t.Run("list preserves order", func(t *testing.T) {
		v, err := Normalize(FieldDayOfWeek, []any{"wed", Mon, "wed"})
		require.NoError(t, err)
		assert.Equal(t, List(Number(3), Number(1), Number(3)), v)
	})

	t.Run("list with bad leaf", func(t *testing.T) {
		_, err := Normalize(FieldMonth, []any{1, 13})
		assert.ErrorIs(t, err, ErrInvalidFieldValue)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := Normalize(FieldMonth, []any{})
		assert.ErrorIs(t, err, ErrInvalidFieldValue)
	})

	t.Run("span resolves names", func(t *testing.T) {
		v, err := Normalize(FieldMonth, InRange("apr", "sep"))
		require.NoError(t, err)
		assert.Equal(t, Range(Number(4), Number(9)), v)
	})

	t.Run("span out of bounds", func(t *testing.T) {
		_, err := Normalize(FieldHour, InRange(9, 24))
		assert.ErrorIs(t, err, ErrInvalidFieldValue)
	})

	t.Run("interval step must be positive", func(t *testing.T) {
		_, err := Normalize(FieldMinute, Interval(0))
		assert.ErrorIs(t, err, ErrInvalidFieldValue)
	})

	t.Run("float from json", func(t *testing.T) {
		v, err := Normalize(FieldHour, float64(9))
		require.NoError(t, err)
		assert.Equal(t, Number(9), v)

		_, err = Normalize(FieldHour, 9.5)
		assert.ErrorIs(t, err, ErrInvalidFieldValue)
	})
}

func TestAMPM(t *testing.T) {
	t.Parallel()
	tests := []struct {
		fn   func(int) (int, error)
		in   int
		want int
		ok   bool
	}{
		{AM, 12, 0, true},
		{AM, 9, 9, true},
		{AM, 1, 1, true},
		{PM, 12, 12, true},
		{PM, 9, 21, true},
		{PM, 11, 23, true},
		{AM, 13, 0, false},
		{AM, 0, 0, false},
		{PM, 0, 0, false},
		{PM, 13, 0, false},
	}
	for _, tt := range tests {
		got, err := tt.fn(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidFieldValue)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseField(t *testing.T) {
	t.Parallel()
	f, err := ParseField("minutes")
	require.NoError(t, err)
	assert.Equal(t, FieldMinute, f)

	f, err = ParseField("day_of_week")
	require.NoError(t, err)
	assert.Equal(t, FieldDayOfWeek, f)

	_, err = ParseField("fortnight")
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
}

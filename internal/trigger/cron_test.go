package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	t.Parallel()
	e := NewCron()

	h, err := e.Register("20 9 * 4 *", func() {})
	require.NoError(t, err)
	assert.NotZero(t, h)
}

func TestRegisterFieldForms(t *testing.T) {
	t.Parallel()
	e := NewCron()
	for _, expr := range []string{
		"* * * * *",
		"*/2 * * * *",
		"0 * * 4-9 1",
		"20 9 * * 1,3",
		"0 0 1,15 * *",
	} {
		_, err := e.Register(expr, func() {})
		assert.NoError(t, err, expr)
	}
}

func TestRegisterInvalidExpression(t *testing.T) {
	t.Parallel()
	e := NewCron()
	for _, expr := range []string{
		"",
		"not a cron",
		"* * * *",     // four fields
		"* * * * * *", // six fields
		"@every 1m",   // descriptors are not part of the wire contract
		"61 * * * *",  // out of range
	} {
		_, err := e.Register(expr, func() {})
		assert.ErrorIs(t, err, ErrInvalidExpression, expr)
	}
}

func TestDeregisterIdempotent(t *testing.T) {
	t.Parallel()
	e := NewCron()
	h, err := e.Register("* * * * *", func() {})
	require.NoError(t, err)

	e.Deregister(h)
	e.Deregister(h)
	e.Deregister(Handle(9999))
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	e := NewCron()
	e.Start()
	<-e.Stop().Done()
}

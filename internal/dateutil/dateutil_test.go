package dateutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTimezone(t *testing.T) {
	loc, err := LoadTimezone("Europe/Madrid")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", loc.String())

	loc, err = LoadTimezone("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC.String(), loc.String())
}

func TestLoadTimezoneInvalid(t *testing.T) {
	for _, name := range []string{"Not/AZone", "", "  ", "Local"} {
		_, err := LoadTimezone(name)
		var tzErr *InvalidTimezoneError
		require.True(t, errors.As(err, &tzErr), "name %q", name)
		assert.Equal(t, name, tzErr.Name)
	}
}

func TestParseFullCalendarDate(t *testing.T) {
	madrid, err := LoadTimezone("Europe/Madrid")
	require.NoError(t, err)

	got, err := ParseFullCalendarDate("2024-03-01", madrid)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, madrid)))

	got, err = ParseFullCalendarDate("2024-03-01T08:30:00", madrid)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 1, 8, 30, 0, 0, madrid)))

	got, err = ParseFullCalendarDate("2024-03-01T08:30:00Z", madrid)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)))

	_, err = ParseFullCalendarDate("yesterday", madrid)
	assert.Error(t, err)
}

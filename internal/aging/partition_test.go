package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayRange(t *testing.T) {
	cases := []struct {
		key     string
		wantMin int
		wantMax *int
	}{
		{"0", 0, intPtr(0)},
		{"1", 1, intPtr(30)},
		{"2", 31, intPtr(60)},
		{"3", 61, intPtr(90)},
		{"4", 91, intPtr(120)},
		{"5", 121, nil},
	}
	for _, tc := range cases {
		min, max, ok := DayRange(tc.key)
		require.True(t, ok, "key %s", tc.key)
		assert.Equal(t, tc.wantMin, min, "key %s", tc.key)
		if tc.wantMax == nil {
			assert.Nil(t, max, "key %s upper bound must stay unbounded", tc.key)
		} else {
			require.NotNil(t, max, "key %s", tc.key)
			assert.Equal(t, *tc.wantMax, *max, "key %s", tc.key)
		}
	}

	_, _, ok := DayRange("6")
	assert.False(t, ok)
}

func TestRangeForWindows(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	r, err := RangeFor("0", today)
	require.NoError(t, err)
	assert.Equal(t, today, r.DueDateFrom)
	assert.Equal(t, today.AddDate(0, 0, 365), r.DueDateTo)

	r, err = RangeFor("3", today)
	require.NoError(t, err)
	assert.Equal(t, today.AddDate(0, 0, -90), r.DueDateFrom)
	assert.Equal(t, today.AddDate(0, 0, -61), r.DueDateTo)

	r, err = RangeFor("5", today)
	require.NoError(t, err)
	assert.Equal(t, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), r.DueDateFrom)
	assert.Equal(t, today.AddDate(0, 0, -120), r.DueDateTo)
	assert.Nil(t, r.MaxDays)

	_, err = RangeFor("current", today)
	assert.Error(t, err)
}

func TestRangeContains(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	r, err := RangeFor("2", today)
	require.NoError(t, err)
	assert.False(t, r.Contains(30))
	assert.True(t, r.Contains(31))
	assert.True(t, r.Contains(60))
	assert.False(t, r.Contains(61))

	tail, err := RangeFor("5", today)
	require.NoError(t, err)
	assert.False(t, tail.Contains(120))
	assert.True(t, tail.Contains(121))
	assert.True(t, tail.Contains(100000))
}

package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	for in, want := range map[string]Priority{
		"URGENT":   PriorityUrgent,
		"high":     PriorityHigh,
		" Medium ": PriorityMedium,
		"low":      PriorityLow,
	} {
		got, err := ParsePriority(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParsePriority("someday")
	assert.Error(t, err)
	_, err = ParsePriority("")
	assert.Error(t, err)
}

func TestPriorityTable(t *testing.T) {
	ps := Priorities()
	require.Len(t, ps, 4)
	for i, p := range ps {
		assert.True(t, p.Valid())
		assert.Equal(t, i, p.Rank())
		assert.NotEmpty(t, p.Label())
	}
	assert.False(t, Priority("NOPE").Valid())
	assert.Greater(t, Priority("NOPE").Rank(), PriorityLow.Rank())
}

func TestParsePriorityFilter(t *testing.T) {
	f, err := ParsePriorityFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParsePriorityFilter("all")
	require.NoError(t, err)
	assert.True(t, f.Match(PriorityLow))

	f, err = ParsePriorityFilter("urgent")
	require.NoError(t, err)
	assert.True(t, f.Match(PriorityUrgent))
	assert.False(t, f.Match(PriorityHigh))

	_, err = ParsePriorityFilter("x")
	assert.Error(t, err)
}

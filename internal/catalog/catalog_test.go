package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ByIndex(t *testing.T) {
	c := Default()
	require.Equal(t, 2, c.Len())

	data, ok := c.ByIndex(1)
	require.True(t, ok)
	assert.Equal(t, uint16(300), data.Duration)
	assert.Len(t, data.ScorePoints, 7)
	assert.Equal(t, "buddy climb", data.ScorePoints[4].Name)

	_, ok = c.ByIndex(2)
	assert.False(t, ok)
	_, ok = c.ByIndex(^uint64(0))
	assert.False(t, ok)
}

func TestByIndex_ReturnsCopy(t *testing.T) {
	c := Default()
	data, _ := c.ByIndex(0)
	data.ScorePoints[0].Name = "mutated"

	again, _ := c.ByIndex(0)
	assert.Equal(t, "cube", again.ScorePoints[0].Name)
}

func TestLookup(t *testing.T) {
	c := Default()
	data, ok := c.Lookup("FRC Rapid React 2023")
	require.True(t, ok)
	assert.Equal(t, int8(-3), data.ScorePoints[3].Points)

	_, ok = c.Lookup("Chess")
	assert.False(t, ok)
}

package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingCount(t *testing.T) {
	times := make([]float64, 35)
	for i := range times {
		times[i] = float64(len(times) - i) // 逆序输入
	}

	rs, err := RollingCount(times, 30)
	require.NoError(t, err)
	require.Len(t, rs.Points, 35)

	for i, p := range rs.Points {
		assert.Equal(t, float64(i+1), p.Time)
		if i < 29 {
			assert.False(t, p.Valid, i)
			continue
		}
		assert.True(t, p.Valid, i)
		assert.Equal(t, 30, p.Count, i)
	}

	peak, ok := rs.Peak()
	require.True(t, ok)
	assert.Equal(t, 30, peak.Count)
	assert.Equal(t, 30.0, peak.Time)

	// 不修改输入
	assert.Equal(t, 35.0, times[0])
}

func TestRollingCountShortInput(t *testing.T) {
	rs, err := RollingCount([]float64{3, 1, 2}, 30)
	require.NoError(t, err)
	for _, p := range rs.Points {
		assert.False(t, p.Valid)
	}
	_, ok := rs.Peak()
	assert.False(t, ok)

	_, err = RollingCount([]float64{1}, 0)
	assert.Error(t, err)
}

func TestRollingCountWindowOne(t *testing.T) {
	rs, err := RollingCount([]float64{5, 5, 2}, 1)
	require.NoError(t, err)
	for _, p := range rs.Points {
		assert.True(t, p.Valid)
		assert.Equal(t, 1, p.Count)
	}
	peak, _ := rs.Peak()
	assert.Equal(t, 2.0, peak.Time)
}

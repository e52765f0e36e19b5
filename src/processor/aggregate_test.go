package processor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketTimes(t *testing.T) {
	d, err := BucketTimes([]float64{0, 29.9, 30, 59, 60, 95}, 30)
	require.NoError(t, err)

	assert.Equal(t, []string{"0:00", "0:30", "1:00", "1:30"}, d.Labels())
	assert.Equal(t, []int{2, 2, 1, 1}, d.Counts())
	assert.Equal(t, 6, d.Total)

	cum := make([]int, len(d.Buckets))
	for i, b := range d.Buckets {
		cum[i] = b.CumCount
	}
	assert.Equal(t, []int{2, 4, 5, 6}, cum)
	assert.Equal(t, 100.0, d.Buckets[3].CumPercent)
	assert.Equal(t, 90.0, d.Buckets[3].Start)
	assert.Equal(t, 120.0, d.Buckets[3].End)
}

func TestBucketTimesMaxOnBoundary(t *testing.T) {
	d, err := BucketTimes([]float64{60}, 30)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1}, d.Counts())
	assert.Equal(t, "1:00", d.Buckets[2].Label)
}

func TestBucketTimesNegative(t *testing.T) {
	d, err := BucketTimes([]float64{-10, 5}, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"-0:30", "0:00"}, d.Labels())
	assert.Equal(t, []int{1, 1}, d.Counts())
}

func TestBucketTimesCoversEveryRecord(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		times := make([]float64, 1+rng.Intn(500))
		for i := range times {
			times[i] = rng.Float64() * 900
			if i%17 == 0 {
				times[i] = float64(rng.Intn(30)) * 30 // 落在边界上
			}
		}

		d, err := BucketTimes(times, 30)
		require.NoError(t, err)

		sum := 0
		prev := 0.0
		for i, b := range d.Buckets {
			sum += b.Count
			assert.GreaterOrEqual(t, b.CumPercent, prev)
			prev = b.CumPercent
			if i > 0 {
				assert.Equal(t, d.Buckets[i-1].End, b.Start)
			}
		}
		assert.Equal(t, len(times), sum)
		assert.InDelta(t, 100.0, d.Buckets[len(d.Buckets)-1].CumPercent, 1e-9)

		for _, tm := range times {
			idx := d.indexOf(tm)
			assert.True(t, d.Buckets[idx].Start <= tm && tm < d.Buckets[idx].End)
		}
	}
}

func TestBucketTimesEmptyAndInvalid(t *testing.T) {
	d, err := BucketTimes(nil, 30)
	require.NoError(t, err)
	assert.Empty(t, d.Buckets)
	_, ok := d.Peak()
	assert.False(t, ok)
	_, ok = d.NearestPercentile(50)
	assert.False(t, ok)
	_, ok = d.Findings()
	assert.False(t, ok)

	_, err = BucketTimes([]float64{1}, 0)
	assert.Error(t, err)
}

func TestPeakTieTakesEarliest(t *testing.T) {
	var times []float64
	add := func(bucket, n int) {
		for i := 0; i < n; i++ {
			times = append(times, float64(bucket*30)+1)
		}
	}
	add(0, 1)
	add(3, 5)
	add(5, 2)
	add(7, 5)

	d, err := BucketTimes(times, 30)
	require.NoError(t, err)
	peak, ok := d.Peak()
	require.True(t, ok)
	assert.Equal(t, 3, peak.Index)
	assert.Equal(t, 5, peak.Count)
	assert.Equal(t, "1:30", peak.Label)
}

func TestNearestPercentile(t *testing.T) {
	d, err := BucketTimes([]float64{1, 31, 61, 91}, 30)
	require.NoError(t, err)

	marks := d.Marks([]float64{25, 50, 75})
	require.Len(t, marks, 3)
	assert.Equal(t, 0, marks[0].Bucket.Index)
	assert.Equal(t, 1, marks[1].Bucket.Index)
	assert.Equal(t, 2, marks[2].Bucket.Index)

	f, ok := d.Findings()
	require.True(t, ok)
	assert.Equal(t, 75.0, f.FirstHalfShare)
	assert.Equal(t, 0.0, f.LastTenthShare)
}

func TestNearestPercentileTie(t *testing.T) {
	// 累积比例 25, 75, 100，50 与前两个分段距离相同
	d, err := BucketTimes([]float64{1, 31, 32, 61}, 30)
	require.NoError(t, err)

	b, ok := d.NearestPercentile(50)
	require.True(t, ok)
	assert.Equal(t, 0, b.Index)

	first, ok := d.FirstReaching(50)
	require.True(t, ok)
	assert.Equal(t, 1, first.Index)
}

func TestBucketLabel(t *testing.T) {
	assert.Equal(t, "0:00", BucketLabel(0))
	assert.Equal(t, "1:30", BucketLabel(90))
	assert.Equal(t, "60:00", BucketLabel(3600))
	assert.Equal(t, "-1:00", BucketLabel(-60))
}

func TestBucketTimesTooManyBuckets(t *testing.T) {
	for _, times := range [][]float64{
		{1, 1e300},
		{1, 1e10},
		{-1e308, 1e308},
	} {
		_, err := BucketTimes(times, 30)
		assert.ErrorIs(t, err, ErrTooManyBuckets, times)
	}

	// 恰好在上限内
	d, err := BucketTimes([]float64{0, (MaxBuckets - 1) * 30}, 30)
	require.NoError(t, err)
	assert.Len(t, d.Buckets, MaxBuckets)

	_, err = Analyze(Dataset{Times: []float64{1, 1e300}}, AnalyzeOptions{BucketWidth: 30, RollingWindow: 30})
	assert.ErrorIs(t, err, ErrTooManyBuckets)
}

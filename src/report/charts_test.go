package report

import (
	"os"
	"path/filepath"
	"testing"

	"DanmuAnalysis/src/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestRenderAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	files, err := NewChartRenderer(dir).RenderAll(sampleAnalysis(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, TimeDistributionChart),
		filepath.Join(dir, ModeTimeChart),
		filepath.Join(dir, RollingDensityChart),
	}, files)
	for _, f := range files {
		assertPNG(t, f)
	}
}

func TestRenderAllNoData(t *testing.T) {
	a, err := processor.Analyze(processor.Dataset{}, processor.AnalyzeOptions{BucketWidth: 30, RollingWindow: 30})
	require.NoError(t, err)

	files, err := NewChartRenderer(t.TempDir()).RenderAll(a)
	assert.NoError(t, err)
	assert.Empty(t, files)
}

func TestRenderTimeDistributionUniform(t *testing.T) {
	// 所有分段计数相同时热力图也能渲染
	d, err := processor.BucketTimes([]float64{1, 31, 61}, 30)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), TimeDistributionChart)
	require.NoError(t, RenderTimeDistribution(d, d.Marks([]float64{50}), path))
	assertPNG(t, path)
}

func TestRenderRollingShort(t *testing.T) {
	rs, err := processor.RollingCount([]float64{3, 1}, 30)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), RollingDensityChart)
	require.NoError(t, RenderRolling(rs, path))
	assertPNG(t, path)
}

func TestLoadFont(t *testing.T) {
	assert.NoError(t, LoadFont(""))
	assert.Error(t, LoadFont(filepath.Join(t.TempDir(), "missing.ttf")))

	bad := filepath.Join(t.TempDir(), "bad.ttf")
	require.NoError(t, os.WriteFile(bad, []byte("not a font"), 0644))
	assert.Error(t, LoadFont(bad))
}

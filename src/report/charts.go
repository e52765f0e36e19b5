// charts.go
package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"

	"DanmuAnalysis/src/processor"

	"golang.org/x/image/font/opentype"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// 图表文件名
const (
	TimeDistributionChart = "time_distribution.png"
	ModeTimeChart         = "mode_time_distribution.png"
	RollingDensityChart   = "rolling_density.png"
)

const (
	maxTickLabels = 24
	cjkTypeface   = "CJK"
)

var (
	skyBlue   = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	green     = color.RGBA{G: 128, A: 255}
	red       = color.RGBA{R: 220, A: 255}
	blue      = color.RGBA{B: 200, A: 255}
	gridColor = color.Gray{Y: 200}

	fontMu sync.Mutex
)

// LoadFont 注册中文字体(ttf/otf)作为图表默认字体，path为空时不做处理
func LoadFont(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取字体文件失败: %w", err)
	}
	ttf, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("解析字体文件失败: %w", err)
	}

	fontMu.Lock()
	defer fontMu.Unlock()
	cjk := font.Font{Typeface: cjkTypeface}
	font.DefaultCache.Add([]font.Face{{Font: cjk, Face: ttf}})
	plot.DefaultFont = cjk
	plotter.DefaultFont = cjk
	return nil
}

// ChartRenderer 把分析结果渲染为png图表
type ChartRenderer struct {
	Dir string
}

func NewChartRenderer(dir string) *ChartRenderer {
	return &ChartRenderer{Dir: dir}
}

// RenderAll 生成全部图表，返回生成的文件路径；没有弹幕时间时不生成
func (r *ChartRenderer) RenderAll(a processor.Analysis) ([]string, error) {
	if len(a.Distribution.Buckets) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return nil, fmt.Errorf("创建图表目录失败: %w", err)
	}

	var files []string
	steps := []struct {
		name   string
		render func(string) error
	}{
		{TimeDistributionChart, func(p string) error { return RenderTimeDistribution(a.Distribution, a.Marks, p) }},
		{ModeTimeChart, func(p string) error { return RenderModeSpread(a.Spreads, p) }},
		{RollingDensityChart, func(p string) error { return RenderRolling(a.Rolling, p) }},
	}
	for _, step := range steps {
		path := filepath.Join(r.Dir, step.name)
		if err := step.render(path); err != nil {
			return files, fmt.Errorf("生成图表 %s 失败: %w", step.name, err)
		}
		files = append(files, path)
	}
	return files, nil
}

// RenderTimeDistribution 三联图: 分段柱状图、累积比例曲线、密度热力图
func RenderTimeDistribution(d processor.Distribution, marks []processor.PercentileMark, path string) error {
	bars, err := barPlot(d)
	if err != nil {
		return err
	}
	cum, err := cumulativePlot(d, marks)
	if err != nil {
		return err
	}
	heat, err := heatmapPlot(d)
	if err != nil {
		return err
	}

	img := vgimg.New(16*vg.Inch, 12*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      3,
		Cols:      1,
		PadX:      vg.Millimeter * 5,
		PadY:      vg.Millimeter * 8,
		PadTop:    vg.Millimeter * 5,
		PadBottom: vg.Millimeter * 5,
		PadLeft:   vg.Millimeter * 5,
		PadRight:  vg.Millimeter * 5,
	}
	plots := [][]*plot.Plot{{bars}, {cum}, {heat}}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	return savePNG(img, path)
}

func barPlot(d processor.Distribution) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "弹幕数量随时间分布"
	p.X.Label.Text = "视频时间 (分钟:秒)"
	p.Y.Label.Text = "弹幕数量"
	addYGrid(p)

	values := make(plotter.Values, len(d.Buckets))
	for i, b := range d.Buckets {
		values[i] = float64(b.Count)
	}
	bars, err := plotter.NewBarChart(values, barWidth(len(values)))
	if err != nil {
		return nil, err
	}
	bars.Color = skyBlue
	bars.LineStyle.Width = 0
	p.Add(bars)

	if peak, ok := d.Peak(); ok {
		top := float64(peak.Count)
		l, err := annotation(float64(peak.Index), top*1.1, fmt.Sprintf("峰值: %d条", peak.Count), red)
		if err != nil {
			return nil, err
		}
		p.Add(l)
		p.Y.Max = math.Max(1, top*1.25)
	}
	p.Y.Min = 0
	setBucketTicks(p, d.Labels())
	return p, nil
}

func cumulativePlot(d processor.Distribution, marks []processor.PercentileMark) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "弹幕累积比例"
	p.X.Label.Text = "视频时间 (分钟:秒)"
	p.Y.Label.Text = "累积弹幕比例 (%)"
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(d.Buckets))
	for i, b := range d.Buckets {
		xys[i] = plotter.XY{X: float64(i), Y: b.CumPercent}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = green
	line.Width = vg.Points(2)
	p.Add(line)

	if len(marks) > 0 {
		pts := make(plotter.XYs, len(marks))
		labels := plotter.XYLabels{XYs: make(plotter.XYs, len(marks)), Labels: make([]string, len(marks))}
		for i, m := range marks {
			pts[i] = plotter.XY{X: float64(m.Bucket.Index), Y: m.Bucket.CumPercent}
			labels.XYs[i] = plotter.XY{X: float64(m.Bucket.Index), Y: m.Bucket.CumPercent + 5}
			labels.Labels[i] = fmt.Sprintf("%s%% 弹幕\n出现在 %s 前", formatFloat(m.Percent), m.Bucket.Label)
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = red
		sc.GlyphStyle.Radius = vg.Points(4)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		l, err := plotter.NewLabels(labels)
		if err != nil {
			return nil, err
		}
		p.Add(sc, l)
	}

	p.Y.Min = 0
	p.Y.Max = 115
	setBucketTicks(p, d.Labels())
	return p, nil
}

// bucketGrid 单行热力图数据
type bucketGrid struct {
	counts []float64
}

func (g bucketGrid) Dims() (c, r int)   { return len(g.counts), 1 }
func (g bucketGrid) Z(c, _ int) float64 { return g.counts[c] }
func (g bucketGrid) X(c int) float64    { return float64(c) }
func (g bucketGrid) Y(_ int) float64    { return 0 }

func heatmapPlot(d processor.Distribution) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "弹幕密度热力图 (颜色越亮弹幕越多)"
	p.X.Label.Text = "视频时间 (分钟:秒)"

	g := bucketGrid{counts: make([]float64, len(d.Buckets))}
	for i, b := range d.Buckets {
		g.counts[i] = float64(b.Count)
	}
	h := plotter.NewHeatMap(g, palette.Heat(16, 1))
	if h.Max == h.Min {
		h.Max = h.Min + 1
	}
	p.Add(h)

	p.HideY()
	setBucketTicks(p, d.Labels())
	return p, nil
}

// RenderModeSpread 不同弹幕模式出现时间的箱线图
func RenderModeSpread(spreads []processor.ModeSpread, path string) error {
	p := plot.New()
	p.Title.Text = "不同弹幕模式出现的时间分布"
	p.X.Label.Text = "弹幕模式"
	p.Y.Label.Text = "出现时间 (秒)"
	addYGrid(p)

	names := make([]string, 0, len(spreads))
	for i, sp := range spreads {
		box, err := plotter.NewBoxPlot(vg.Points(40), float64(i), plotter.Values(sp.Times))
		if err != nil {
			return err
		}
		box.FillColor = skyBlue
		p.Add(box)
		names = append(names, sp.Name)
	}
	if len(names) > 0 {
		p.NominalX(names...)
		p.X.Tick.Label.Rotation = math.Pi / 12
		p.X.Tick.Label.XAlign = text.XRight
	}

	return p.Save(12*vg.Inch, 8*vg.Inch, path)
}

// RenderRolling 滚动窗口密度曲线，标注最高密度
func RenderRolling(rs processor.RollingSeries, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("弹幕密度动态变化 (%d条滚动窗口)", rs.Window)
	p.X.Label.Text = "视频时间 (秒)"
	p.Y.Label.Text = fmt.Sprintf("%d条窗口弹幕数量", rs.Window)
	p.Add(plotter.NewGrid())

	var xys plotter.XYs
	for _, pt := range rs.Points {
		if pt.Valid {
			xys = append(xys, plotter.XY{X: pt.Time, Y: float64(pt.Count)})
		}
	}
	if len(xys) > 0 {
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = blue
		line.Width = vg.Points(1.5)
		p.Add(line)
	}

	if peak, ok := rs.Peak(); ok {
		v := float64(peak.Count)
		l, err := annotation(peak.Time, v+5,
			fmt.Sprintf("最高密度: %d条/%d条窗口\n时间: %.1f秒", peak.Count, rs.Window, peak.Time), red)
		if err != nil {
			return err
		}
		p.Add(l)
		p.Y.Max = v + 15
	}
	p.Y.Min = 0

	return p.Save(14*vg.Inch, 7*vg.Inch, path)
}

// annotation 在(x, y)处放一段文字
func annotation(x, y float64, label string, c color.Color) (*plotter.Labels, error) {
	l, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: x, Y: y}},
		Labels: []string{label},
	})
	if err != nil {
		return nil, err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].Color = c
		l.TextStyle[i].XAlign = text.XCenter
	}
	return l, nil
}

// setBucketTicks 分段标签太多时只显示一部分
func setBucketTicks(p *plot.Plot, labels []string) {
	step := 1
	if len(labels) > maxTickLabels {
		step = int(math.Ceil(float64(len(labels)) / maxTickLabels))
	}
	ticks := make([]plot.Tick, 0, len(labels))
	for i, label := range labels {
		if i%step != 0 {
			label = ""
		}
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: label})
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Min = -0.5
	p.X.Max = float64(len(labels)) - 0.5
}

func addYGrid(p *plot.Plot) {
	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	grid.Horizontal.Color = gridColor
	grid.Horizontal.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(grid)
}

// barWidth 分段越多柱子越窄
func barWidth(n int) vg.Length {
	w := vg.Points(600 / float64(max(n, 1)))
	if w > vg.Points(30) {
		w = vg.Points(30)
	}
	if w < vg.Points(1) {
		w = vg.Points(1)
	}
	return w
}

func savePNG(img *vgimg.Canvas, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建图表文件失败: %w", err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("写入图表文件失败: %w", err)
	}
	return f.Close()
}

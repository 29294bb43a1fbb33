// Package monitor serves debug views of the simulation on the /debug/
// index: a plan position indicator rendered with go-echarts, a static PNG of
// the same picture and a pcap download of one snapshot's records.
//
// Every view takes a fresh snapshot, which advances the simulation like any
// other client poll.
package monitor

import (
	"bytes"
	"fmt"
	"image/color"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"tailscale.com/tsweb"

	"github.com/banshee-data/phoenix.tracksim/internal/capture"
	"github.com/banshee-data/phoenix.tracksim/internal/httputil"
	"github.com/banshee-data/phoenix.tracksim/internal/sim"
	"github.com/banshee-data/phoenix.tracksim/internal/timeutil"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Source produces the snapshot a view renders. *sim.Simulator satisfies it.
type Source interface {
	Snapshot() sim.MasterTable
}

type Monitor struct {
	src       Source
	clock     timeutil.Clock
	maxRangeM float64
}

// New creates a monitor for src. Axes span ±maxRangeM.
func New(src Source, clock timeutil.Clock, maxRangeM float64) *Monitor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Monitor{src: src, clock: clock, maxRangeM: maxRangeM}
}

// AttachAdminRoutes registers the views on the debug index.
func (m *Monitor) AttachAdminRoutes(debug *tsweb.DebugHandler) {
	debug.HandleFunc("ppi", "Plan position indicator (interactive)", m.servePPI)
	debug.HandleFunc("ppi.png", "Plan position indicator (PNG)", m.servePPIPNG)
	debug.HandleFunc("capture.pcap", "Download one snapshot's records as pcap", m.serveCapture)
}

// point is a track position in the XY plane, in metres.
type point struct {
	x, y  float64
	label string
}

func split(table sim.MasterTable) (primary, custom []point) {
	primary = make([]point, 0, len(table.Targets))
	for _, t := range table.Targets {
		primary = append(primary, point{x: t.XM, y: t.YM, label: t.TargetID})
	}
	custom = make([]point, 0, len(table.CustomTargets))
	for _, t := range table.CustomTargets {
		custom = append(custom, point{x: t.XM, y: t.YM, label: fmt.Sprintf("%d %s", t.TrackID, t.PlatformName)})
	}
	return primary, custom
}

func (m *Monitor) extent() float64 {
	pad := m.maxRangeM * 1.05
	if pad <= 0 {
		pad = 1
	}
	return pad
}

func (m *Monitor) servePPI(w http.ResponseWriter, r *http.Request) {
	table := m.src.Snapshot()
	primary, custom := split(table)
	pad := m.extent()

	toData := func(pts []point) []opts.ScatterData {
		data := make([]opts.ScatterData, 0, len(pts))
		for _, p := range pts {
			data = append(data, opts.ScatterData{Name: p.label, Value: []interface{}{p.x, p.y}})
		}
		return data
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Track Simulator PPI", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Plan Position Indicator",
			Subtitle: fmt.Sprintf("run=%s frame=%d tod=%.3fs primary=%d custom=%d", table.RunID, table.FrameIndex, table.TimeOfDayS, len(primary), len(custom)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("primary", toData(primary), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("custom", toData(custom), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// servePPIPNG renders the same picture with gonum/plot. The size query
// parameter sets the edge length in inches (default 8, at most 20).
func (m *Monitor) servePPIPNG(w http.ResponseWriter, r *http.Request) {
	size := 8.0
	if v := r.URL.Query().Get("size"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 2 && f <= 20 {
			size = f
		}
	}

	table := m.src.Snapshot()
	p, err := m.plot(table)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to build plot: %v", err))
		return
	}

	wt, err := p.WriterTo(vg.Length(size)*vg.Inch, vg.Length(size)*vg.Inch, "png")
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to encode png: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (m *Monitor) plot(table sim.MasterTable) (*plot.Plot, error) {
	primary, custom := split(table)
	pad := m.extent()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Frame %d, t=%.3fs", table.FrameIndex, table.TimeOfDayS)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.X.Min, p.X.Max = -pad, pad
	p.Y.Min, p.Y.Max = -pad, pad
	p.Add(plotter.NewGrid())

	series := []struct {
		name   string
		pts    []point
		color  color.Color
		radius vg.Length
		shape  draw.GlyphDrawer
	}{
		{"primary", primary, color.RGBA{R: 38, G: 130, B: 142, A: 255}, vg.Points(1.5), draw.CircleGlyph{}},
		{"custom", custom, color.RGBA{R: 253, G: 231, B: 37, A: 255}, vg.Points(4), draw.TriangleGlyph{}},
	}
	for _, s := range series {
		if len(s.pts) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.pts))
		for i, pt := range s.pts {
			xys[i] = plotter.XY{X: pt.x, Y: pt.y}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("%s scatter: %w", s.name, err)
		}
		sc.GlyphStyle.Color = s.color
		sc.GlyphStyle.Radius = s.radius
		sc.GlyphStyle.Shape = s.shape
		p.Add(sc)
		p.Legend.Add(s.name, sc)
	}
	return p, nil
}

// serveCapture writes one snapshot's records as a pcap file, all stamped
// with the current time.
func (m *Monitor) serveCapture(w http.ResponseWriter, r *http.Request) {
	table := m.src.Snapshot()

	var buf bytes.Buffer
	cw, err := capture.NewWriter(&buf, capture.DefaultEndpoints())
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	now := m.clock.Now()
	for _, rec := range table.Records() {
		if err := cw.WriteRecord(now, rec); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
	}

	w.Header().Set("Content-Type", "application/vnd.tcpdump.pcap")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"frame-%d.pcap\"", table.FrameIndex))
	_, _ = w.Write(buf.Bytes())
}

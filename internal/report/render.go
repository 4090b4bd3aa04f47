package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/muonalign/internal/fsutil"
	"github.com/banshee-data/muonalign/internal/monitoring"
	"github.com/banshee-data/muonalign/internal/security"
)

const defaultBins = 25

// DisplacementHistogram writes a PNG histogram of displacement magnitudes.
func DisplacementHistogram(w io.Writer, title string, ds []Displacement, bins int) error {
	if len(ds) == 0 {
		return ErrNoData
	}
	if bins <= 0 {
		bins = defaultBins
	}

	vals := make(plotter.Values, len(ds))
	for i, d := range ds {
		vals[i] = d.Magnitude
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "|displacement| (cm)"
	p.Y.Label.Text = "chambers"

	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	h.LineStyle.Width = vg.Points(1)
	p.Add(h)

	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render histogram: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// StationChart writes an HTML bar chart of the mean displacement per station.
func StationChart(w io.Writer, title string, ds []Displacement) error {
	if len(ds) == 0 {
		return ErrNoData
	}
	groups := ByStation(ds)

	x := make([]string, len(groups))
	y := make([]opts.BarData, len(groups))
	for i, g := range groups {
		x[i] = g.Label
		y[i] = opts.BarData{Value: g.Mean, Name: fmt.Sprintf("%s (%d)", g.Label, g.Count)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("chambers=%d stations=%d", len(ds), len(groups))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mean |displacement| (cm)", NameLocation: "middle", NameGap: 40}),
	)
	bar.SetXAxis(x).
		AddSeries("mean displacement", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}

// WriteReports renders both reports for record into dir and returns the
// written paths.
func WriteReports(fsys fsutil.FileSystem, dir, record string, ds []Displacement) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}

	outputs := []struct {
		name   string
		render func(io.Writer) error
	}{
		{record + "_displacement.png", func(w io.Writer) error {
			return DisplacementHistogram(w, record+" displacement", ds, 0)
		}},
		{record + "_stations.html", func(w io.Writer) error {
			return StationChart(w, record+" per station", ds)
		}},
	}

	var paths []string
	for _, o := range outputs {
		path, err := security.JoinWithinDirectory(dir, o.name)
		if err != nil {
			return paths, err
		}
		f, err := fsys.Create(path)
		if err != nil {
			return paths, fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := o.render(f); err != nil {
			f.Close()
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return paths, err
		}
		monitoring.Diagf("wrote report %s", path)
		paths = append(paths, path)
	}
	return paths, nil
}

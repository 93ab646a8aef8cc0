// Package render draws chart views as HTML pages with go-echarts.
package render

import (
	"fmt"
	"html/template"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/grovetools/chartview/errors"
	"github.com/grovetools/chartview/pkg/chart"
)

// Renderer turns view snapshots into chart pages.
type Renderer struct {
	Title  string
	Width  string
	Height string
}

// New returns a Renderer with the given page title.
func New(title string) *Renderer {
	return &Renderer{Title: title, Width: "100%", Height: "480px"}
}

// Render writes the page for view: a chart once data has arrived, or a
// waiting page before that.
func (r *Renderer) Render(w io.Writer, view chart.View) error {
	if !view.HasData() || len(view.Dataset.Rows) == 0 {
		return r.RenderWaiting(w)
	}

	c, err := r.Build(view)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = r.Title
	page.AddCharts(c)
	if err := page.Render(w); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to render chart")
	}
	return nil
}

// Build creates the chart for a view that has data.
func (r *Renderer) Build(view chart.View) (components.Charter, error) {
	if !view.HasData() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no data to chart")
	}

	switch view.State.Kind {
	case chart.KindLine, "":
		return r.lineChart(view, false), nil
	case chart.KindArea:
		return r.lineChart(view, true), nil
	case chart.KindBar:
		return r.barChart(view), nil
	}
	return nil, errors.InvalidInput("kind", view.State.Kind)
}

func (r *Renderer) globalOptions(subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: r.Title,
			Width:     r.Width,
			Height:    r.Height,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    r.Title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
	}
}

// lineChart draws the visible variables over the zoom window. Area charts
// stack the series.
func (r *Renderer) lineChart(view chart.View, stacked bool) *charts.Line {
	ds := view.Dataset
	win := view.Visible()

	line := charts.NewLine()
	subtitle := fmt.Sprintf("Ticks %s to %s", chart.FormatNumber(win.XMin), chart.FormatNumber(win.XMax))
	line.SetGlobalOptions(append(r.globalOptions(subtitle),
		charts.WithXAxisOpts(opts.XAxis{Name: "Ticks", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
	)...)

	xAxis := make([]string, 0, win.End-win.Start)
	for _, row := range ds.Rows[win.Start:win.End] {
		xAxis = append(xAxis, chart.FormatNumber(row.X))
	}
	line.SetXAxis(xAxis)

	for _, col := range win.Columns {
		data := make([]opts.LineData, 0, win.End-win.Start)
		for _, row := range ds.Rows[win.Start:win.End] {
			data = append(data, opts.LineData{Value: row.Values[col]})
		}
		if stacked {
			line.AddSeries(ds.VariableNames[col], data,
				charts.WithLineChartOpts(opts.LineChart{Stack: "total", Smooth: opts.Bool(true)}),
				charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.4)}),
			)
		} else {
			line.AddSeries(ds.VariableNames[col], data,
				charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
			)
		}
	}
	return line
}

// barChart shows the most recent row for the visible variables.
func (r *Renderer) barChart(view chart.View) *charts.Bar {
	ds := view.Dataset
	win := view.Visible()
	last := ds.Rows[len(ds.Rows)-1]

	bar := charts.NewBar()
	bar.SetGlobalOptions(append(r.globalOptions("Ticks "+chart.FormatNumber(last.X)),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
	)...)

	names := make([]string, 0, len(win.Columns))
	data := make([]opts.BarData, 0, len(win.Columns))
	for _, col := range win.Columns {
		names = append(names, ds.VariableNames[col])
		data = append(data, opts.BarData{Value: last.Values[col]})
	}
	bar.SetXAxis(names).AddSeries("Ticks "+chart.FormatNumber(last.X), data)
	return bar
}

var waitingPage = template.Must(template.New("waiting").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="2">
<title>{{ .Title }}</title>
</head>
<body style="font-family: sans-serif;">
<div style="display: flex; align-items: center; justify-content: center; height: 400px; background-color: #e9ecef; border-radius: 0.5rem;">
<p style="color: #495057; font-weight: 600;">Waiting for data...</p>
</div>
</body>
</html>
`))

// RenderWaiting writes the page shown before any data has arrived.
func (r *Renderer) RenderWaiting(w io.Writer) error {
	return waitingPage.Execute(w, r)
}

// Package plot renders collected metric series as standalone HTML line
// charts, one page per metric plus an index.
package plot

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "100%"
	chartHeight = "600px"

	shortHashLength = 8
	xAxisRotate     = 45
)

// Point is one commit's value within a series.
type Point struct {
	CommitHash string
	When       time.Time
	Total      int64
}

// Series is the chronological data for one metric, oldest commit first.
type Series struct {
	Metric string
	Points []Point
}

// RenderMetric writes a standalone HTML line chart for the series.
func RenderMetric(w io.Writer, series Series) error {
	err := lineChart(series).Render(w)
	if err != nil {
		return fmt.Errorf("render chart for %s: %w", series.Metric, err)
	}

	return nil
}

func lineChart(series Series) *charts.Line {
	line := charts.NewLine()

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: series.Metric,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    series.Metric,
			Subtitle: "value per commit, oldest first",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate},
		}),
	)

	labels := make([]string, len(series.Points))
	data := make([]opts.LineData, len(series.Points))

	for i, point := range series.Points {
		labels[i] = shortHash(point.CommitHash)
		data[i] = opts.LineData{
			Value: point.Total,
			Name:  point.When.Format(time.DateOnly),
		}
	}

	line.SetXAxis(labels).
		AddSeries(series.Metric, data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	return line
}

func shortHash(hash string) string {
	if len(hash) > shortHashLength {
		return hash[:shortHashLength]
	}

	return hash
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>gitpulse metrics</title></head>
<body>
<h1>Collected metrics</h1>
<ul>
{{- range . }}
  <li><a href="{{ . }}.html">{{ . }}</a></li>
{{- end }}
</ul>
</body>
</html>
`))

// RenderIndex writes an index page linking each metric's chart.
func RenderIndex(w io.Writer, metrics []string) error {
	err := indexTemplate.Execute(w, metrics)
	if err != nil {
		return fmt.Errorf("render index: %w", err)
	}

	return nil
}

// Package chart draws one price line per itinerary label over tracking
// dates.
package chart

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pkg/browser"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/dhcgn/flight-price-tracker/report"
)

var ErrNoData = errors.New("no data to plot")

const (
	width  = 14 * vg.Inch
	height = 8 * vg.Inch
)

// Series is the price history of one label, ordered by tracking date.
type Series struct {
	Label  string
	Points []report.Row
}

// Group splits rows by label. Points are sorted by tracking date and series
// appear in the order their earliest point does.
func Group(rows []report.Row) []Series {
	sorted := make([]report.Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Tracked.Before(sorted[j].Tracked)
	})

	index := make(map[string]int)
	var series []Series
	for _, row := range sorted {
		i, ok := index[row.Label]
		if !ok {
			i = len(series)
			index[row.Label] = i
			series = append(series, Series{Label: row.Label})
		}
		series[i].Points = append(series[i].Points, row)
	}
	return series
}

// Render writes a PNG (or any format gonum/plot infers from the extension)
// to path.
func Render(path string, series []Series) error {
	if len(series) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Flight Prices Over Time"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Price (€)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	for i, s := range series {
		xys := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			xys[j].X = float64(pt.Tracked.Unix())
			xys[j].Y = pt.Price.InexactFloat64()
		}

		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Label, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)

		p.Add(line, points)
		p.Legend.Add(s.Label, line, points)
	}

	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

// Show opens the rendered chart in the desktop image viewer.
func Show(path string) error {
	return browser.OpenFile(path)
}

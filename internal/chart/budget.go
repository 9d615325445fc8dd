// Package chart renders the budgets page chart.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"mojbudzet/internal/core"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no budget rows to chart")

var (
	limitColor = drawing.ColorFromHex("94a3b8")
	spentColor = drawing.ColorFromHex("2563eb")
	overColor  = drawing.ColorFromHex("dc2626")
)

const (
	minWidth    = 600
	height      = 360
	barWidth    = 28
	barSpacing  = 10
	perCategory = 2*barWidth + 2*barSpacing
)

// BudgetChart draws limit and spent bars for each reconciled row.
type BudgetChart struct {
	Currency string
}

// Render writes the chart for rows as SVG to w.
func (c BudgetChart) Render(w io.Writer, rows []core.SummaryRow) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	bars := make([]gochart.Value, 0, 2*len(rows))
	top := 1.0
	for _, r := range rows {
		limit := r.LimitAmount.InexactFloat64()
		spent := r.Spent.InexactFloat64()
		top = max(top, limit, spent)

		fill := spentColor
		if r.Over() {
			fill = overColor
		}
		bars = append(bars,
			gochart.Value{
				Label: r.CategoryName,
				Value: limit,
				Style: gochart.Style{FillColor: limitColor, StrokeColor: limitColor, StrokeWidth: 1},
			},
			gochart.Value{
				Label: "",
				Value: spent,
				Style: gochart.Style{FillColor: fill, StrokeColor: fill, StrokeWidth: 1},
			},
		)
	}

	width := max(minWidth, len(rows)*perCategory+120)
	currency := c.Currency
	graph := gochart.BarChart{
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: gochart.Style{
			Padding:   gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16},
			FillColor: gochart.ColorWhite,
		},
		XAxis: gochart.Style{FontSize: 10, FontColor: gochart.ColorBlack},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				f, _ := v.(float64)
				return core.FormatAmount(decimal.NewFromFloat(f), currency)
			},
			Style: gochart.Style{FontSize: 10, FontColor: gochart.ColorBlack},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.SVG, &buf); err != nil {
		return fmt.Errorf("render budget chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

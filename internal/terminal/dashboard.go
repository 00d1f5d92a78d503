package terminal

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"stock-forecast-app/internal/models"
	"stock-forecast-app/internal/views"
)

// tableRows is how many of the last forecast days the tables show.
const tableRows = 8

var (
	focusedBorder = termui.NewStyle(termui.ColorYellow)
	plainBorder   = termui.NewStyle(termui.ColorWhite)
)

// Dashboard lays out every widget for the current state.
func (s *Session) Dashboard(width, height int) *termui.Grid {
	grid := termui.NewGrid()
	grid.SetRect(0, 0, width, height)

	plotPoints := width/2 - 8
	stock, crypto := s.instrumentViews()

	grid.Set(
		termui.NewRow(0.22,
			termui.NewCol(0.3, s.pickerList(FieldCrypto, "Select Crypto dataset for prediction", models.CryptoTickers[:], s.sel.Crypto)),
			termui.NewCol(0.3, s.pickerList(FieldStock, "Select Stock dataset for prediction", models.StockTickers[:], s.sel.Stock)),
			termui.NewCol(0.4,
				termui.NewRow(0.5, s.yearsGauge()),
				termui.NewRow(0.5, s.statusParagraph()),
			),
		),
		termui.NewRow(0.26,
			termui.NewCol(0.5, rawPlot(stock, plotPoints)),
			termui.NewCol(0.5, rawPlot(crypto, plotPoints)),
		),
		termui.NewRow(0.26,
			termui.NewCol(0.5, forecastPlot(stock, s.sel.Years, plotPoints)),
			termui.NewCol(0.5, forecastPlot(crypto, s.sel.Years, plotPoints)),
		),
		termui.NewRow(0.26,
			termui.NewCol(0.5, forecastTable(stock)),
			termui.NewCol(0.5, forecastTable(crypto)),
		),
	)
	return grid
}

// instrumentViews returns the views of the last pass, or placeholders before the
// first pass completes.
func (s *Session) instrumentViews() (*models.InstrumentView, *models.InstrumentView) {
	if s.vm == nil {
		return &models.InstrumentView{Kind: models.KindStock, Symbol: s.sel.Stock},
			&models.InstrumentView{Kind: models.KindCrypto, Symbol: s.sel.Crypto}
	}
	return &s.vm.Stock, &s.vm.Crypto
}

func (s *Session) pickerList(field Field, title string, choices []string, selected string) *widgets.List {
	list := widgets.NewList()
	list.Title = title
	list.Rows = choices
	list.SelectedRowStyle = termui.NewStyle(termui.ColorBlack, termui.ColorCyan)
	list.BorderStyle = plainBorder
	if s.focus == field {
		list.BorderStyle = focusedBorder
		list.SelectedRowStyle = termui.NewStyle(termui.ColorBlack, termui.ColorYellow)
	}
	for i, c := range choices {
		if c == selected {
			list.SelectedRow = i
		}
	}
	return list
}

func (s *Session) yearsGauge() *widgets.Gauge {
	gauge := widgets.NewGauge()
	gauge.Title = "Years of prediction:"
	gauge.Percent = s.sel.Years * 100 / models.MaxYears
	gauge.Label = fmt.Sprintf("%d of %d", s.sel.Years, models.MaxYears)
	gauge.BarColor = termui.ColorCyan
	gauge.BorderStyle = plainBorder
	if s.focus == FieldYears {
		gauge.BorderStyle = focusedBorder
	}
	return gauge
}

func (s *Session) statusParagraph() *widgets.Paragraph {
	p := widgets.NewParagraph()
	p.Title = "Status"
	p.Text = s.status
	if s.err != nil {
		p.Text += fmt.Sprintf("\n[%s](fg:red)", s.err)
	}
	p.Text += "\n<Tab> focus  <Up>/<Down> change  q quit"
	return p
}

func rawPlot(view *models.InstrumentView, points int) termui.Drawable {
	title := fmt.Sprintf("Raw %s Data %s", kindNoun(view.Kind), view.Symbol)
	if view.Series.Len() < 2 {
		return errorParagraph(title, view)
	}

	closes := make([]float64, view.Series.Len())
	for i, bar := range view.Series.Bars {
		closes[i] = bar.Close.InexactFloat64()
	}
	last := view.Series.Bars[view.Series.Len()-1]

	plot := widgets.NewPlot()
	plot.Title = fmt.Sprintf("%s (%s bars, last close %s)", title,
		humanize.Comma(int64(view.Series.Len())), last.Close.StringFixed(2))
	plot.Data = [][]float64{Downsample(closes, points)}
	plot.LineColors = []termui.Color{termui.ColorGreen}
	plot.AxesColor = termui.ColorWhite
	plot.Marker = widgets.MarkerBraille
	return plot
}

func forecastPlot(view *models.InstrumentView, years, points int) termui.Drawable {
	title := fmt.Sprintf("%s Forecast plot for %d years", kindNoun(view.Kind), years)
	if view.Forecast == nil || len(view.Forecast.Points) < 2 {
		return errorParagraph(title, view)
	}

	n := len(view.Forecast.Points)
	predicted := make([]float64, n)
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i, p := range view.Forecast.Points {
		predicted[i], lower[i], upper[i] = p.Predicted, p.Lower, p.Upper
	}

	plot := widgets.NewPlot()
	plot.Title = title
	plot.Data = [][]float64{
		Downsample(upper, points),
		Downsample(predicted, points),
		Downsample(lower, points),
	}
	plot.LineColors = []termui.Color{termui.ColorBlue, termui.ColorYellow, termui.ColorBlue}
	plot.AxesColor = termui.ColorWhite
	plot.Marker = widgets.MarkerBraille
	return plot
}

func forecastTable(view *models.InstrumentView) termui.Drawable {
	title := fmt.Sprintf("%s Forecast Data", kindNoun(view.Kind))
	if view.Forecast == nil {
		return errorParagraph(title, view)
	}

	table := widgets.NewTable()
	table.Title = title
	table.Rows = ForecastTableRows(view.Forecast, tableRows)
	table.TextStyle = termui.NewStyle(termui.ColorWhite)
	table.RowSeparator = false
	table.RowStyles[0] = termui.NewStyle(termui.ColorCyan, termui.ColorClear, termui.ModifierBold)
	return table
}

// ForecastTableRows is a header followed by the last n forecast days.
func ForecastTableRows(result *models.ForecastResult, n int) [][]string {
	rows := [][]string{{"ds", "yhat", "yhat_lower", "yhat_upper"}}
	formatted := views.ForecastRows(result)
	if len(formatted) > n {
		formatted = formatted[len(formatted)-n:]
	}
	for _, r := range formatted {
		rows = append(rows, []string{r.Date, r.Predicted, r.Lower, r.Upper})
	}
	return rows
}

func errorParagraph(title string, view *models.InstrumentView) *widgets.Paragraph {
	p := widgets.NewParagraph()
	p.Title = title
	switch {
	case view.Failed():
		p.Text = fmt.Sprintf("[%s](fg:red)", view.Error)
		p.BorderStyle = termui.NewStyle(termui.ColorRed)
	default:
		p.Text = statusLoading
	}
	return p
}

// Downsample averages values into at most n buckets so a long series fits the
// plot width. The first and last values are kept.
func Downsample(values []float64, n int) []float64 {
	if n < 2 {
		n = 2
	}
	if len(values) <= n {
		return append([]float64(nil), values...)
	}

	out := make([]float64, n)
	out[0] = values[0]
	out[n-1] = values[len(values)-1]
	inner := values[1 : len(values)-1]
	buckets := n - 2
	for b := 0; b < buckets; b++ {
		lo := b * len(inner) / buckets
		hi := (b + 1) * len(inner) / buckets
		if hi <= lo {
			hi = lo + 1
		}
		var sum float64
		for _, v := range inner[lo:hi] {
			sum += v
		}
		out[b+1] = sum / float64(hi-lo)
	}
	return out
}

func kindNoun(kind models.InstrumentKind) string {
	if kind == models.KindCrypto {
		return "Crypto"
	}
	return "Stock"
}

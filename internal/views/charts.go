package views

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"stock-forecast-app/internal/models"
)

// Chart kinds served per instrument.
const (
	ChartRaw        = "raw"
	ChartForecast   = "forecast"
	ChartComponents = "components"
)

var (
	ErrUnknownChart     = errors.New("unknown chart kind")
	ErrChartUnavailable = errors.New("chart data unavailable")
)

const (
	chartWidth  = "100%"
	chartHeight = "480px"

	bandStack = "confidence"
	bandName  = "Uncertainty interval"
	bandColor = "#0072B2"

	// echarts skips missing points given as "-"
	missingValue     = "-"
	actualSymbolSize = 4
	// zero would be dropped from the JSON options
	hiddenOpacity = 0.0001
)

// IsChartKind reports whether kind names a chart.
func IsChartKind(kind string) bool {
	switch kind {
	case ChartRaw, ChartForecast, ChartComponents:
		return true
	}
	return false
}

// RenderChart writes the chart page for one instrument of a render pass.
func RenderChart(w io.Writer, view *models.InstrumentView, kind string, years int) error {
	switch kind {
	case ChartRaw:
		if view.Series == nil {
			return ErrChartUnavailable
		}
		return RawChart(view).Render(w)
	case ChartForecast:
		if view.Forecast == nil {
			return ErrChartUnavailable
		}
		return ForecastChart(view, years).Render(w)
	case ChartComponents:
		if view.Forecast == nil || view.Decomposition == nil {
			return ErrChartUnavailable
		}
		return ComponentsPage(view).Render(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChart, kind)
	}
}

// RawChart plots open and close over time with a range slider.
func RawChart(view *models.InstrumentView) *charts.Line {
	title := fmt.Sprintf("Time Series Data for %s with Rangeslider", rawChartNoun(view.Kind))
	line := newLine(title, view.Symbol)

	bars := view.Series.Bars
	dates := make([]string, len(bars))
	open := make([]opts.LineData, len(bars))
	closing := make([]opts.LineData, len(bars))
	for i, bar := range bars {
		dates[i] = bar.Date.Format(dateLayout)
		open[i] = opts.LineData{Value: bar.Open.InexactFloat64()}
		closing[i] = opts.LineData{Value: bar.Close.InexactFloat64()}
	}

	line.SetXAxis(dates).
		AddSeries("Open", open, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: false})).
		AddSeries("Close", closing, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: false}))
	return line
}

// ForecastChart plots the prediction with its shaded uncertainty band and the
// observed closes as points.
func ForecastChart(view *models.InstrumentView, years int) *charts.Line {
	title := fmt.Sprintf("%s Forecast plot for %d years", kindTitle(view.Kind), years)
	line := newLine(title, view.Symbol)

	points := view.Forecast.Points
	dates := make([]string, len(points))
	predicted := make([]opts.LineData, len(points))
	actual := make([]opts.ScatterData, len(points))
	for i, p := range points {
		dates[i] = p.Date.Format(dateLayout)
		predicted[i] = opts.LineData{Value: p.Predicted}
		if p.Actual != nil {
			actual[i] = opts.ScatterData{Value: *p.Actual, SymbolSize: actualSymbolSize}
		} else {
			actual[i] = opts.ScatterData{Value: missingValue}
		}
	}
	base, span, cross := confidenceBand(points)

	bandOpts := func(filled bool) []charts.SeriesOpts {
		o := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{Stack: bandStack, ShowSymbol: false}),
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: hiddenOpacity}),
		}
		if filled {
			o = append(o, charts.WithAreaStyleOpts(opts.AreaStyle{Color: bandColor, Opacity: 0.2}))
		}
		return o
	}

	line.SetXAxis(dates).
		AddSeries(bandName, base, bandOpts(false)...).
		AddSeries(bandName, span, bandOpts(true)...).
		AddSeries(bandName, cross, bandOpts(true)...).
		AddSeries("Predicted", predicted,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: false}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: bandColor, Width: 2}),
		)

	scatter := charts.NewScatter()
	scatter.AddSeries("Actual", actual, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#000000"}))
	line.Overlap(scatter)
	return line
}

// confidenceBand splits [Lower, Upper] into three series of one stack. ECharts only
// stacks a value onto earlier values of the same sign, so each day is expressed
// without mixing signs: a band above zero grows up from Lower, a band below zero
// grows down from Upper, and a band crossing zero grows both ways from zero.
// base is never filled; span and cross are.
func confidenceBand(points []models.ForecastPoint) (base, span, cross []opts.LineData) {
	base = make([]opts.LineData, len(points))
	span = make([]opts.LineData, len(points))
	cross = make([]opts.LineData, len(points))
	for i, p := range points {
		switch {
		case p.Lower >= 0:
			base[i] = opts.LineData{Value: p.Lower}
			span[i] = opts.LineData{Value: p.Upper - p.Lower}
			cross[i] = opts.LineData{Value: missingValue}
		case p.Upper <= 0:
			base[i] = opts.LineData{Value: p.Upper}
			span[i] = opts.LineData{Value: p.Lower - p.Upper}
			cross[i] = opts.LineData{Value: missingValue}
		default:
			base[i] = opts.LineData{Value: 0.0}
			span[i] = opts.LineData{Value: p.Upper}
			cross[i] = opts.LineData{Value: p.Lower}
		}
	}
	return base, span, cross
}

// ComponentsPage stacks the trend, weekly and yearly panels.
func ComponentsPage(view *models.InstrumentView) *components.Page {
	d := view.Decomposition
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s Forecast components", kindTitle(view.Kind))

	trendDates := make([]string, len(d.Dates))
	trend := make([]opts.LineData, len(d.Trend))
	for i := range d.Trend {
		trendDates[i] = d.Dates[i].Format(dateLayout)
		trend[i] = opts.LineData{Value: d.Trend[i]}
	}
	trendChart := newPanel("trend", view.Symbol)
	trendChart.SetXAxis(trendDates).
		AddSeries("trend", trend, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: false}))
	page.AddCharts(trendChart)

	if len(d.Weekly) > 0 {
		days := make([]string, len(d.Weekly))
		weekly := make([]opts.LineData, len(d.Weekly))
		for i, v := range d.Weekly {
			days[i] = time.Weekday(i).String()
			weekly[i] = opts.LineData{Value: v}
		}
		weeklyChart := newPanel("weekly", view.Symbol)
		weeklyChart.SetXAxis(days).AddSeries("weekly", weekly)
		page.AddCharts(weeklyChart)
	}

	if len(d.Yearly) > 0 {
		// any non-leap year works as the axis
		ref := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
		days := make([]string, len(d.Yearly))
		yearly := make([]opts.LineData, len(d.Yearly))
		for i, v := range d.Yearly {
			days[i] = ref.AddDate(0, 0, i).Format("January 2")
			yearly[i] = opts.LineData{Value: v}
		}
		yearlyChart := newPanel("yearly", view.Symbol)
		yearlyChart.SetXAxis(days).
			AddSeries("yearly", yearly, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: false}))
		page.AddCharts(yearlyChart)
	}

	return page
}

func newLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
		charts.WithYAxisOpts(opts.YAxis{Scale: true}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	return line
}

func newPanel(name, symbol string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: "300px"}),
		charts.WithTitleOpts(opts.Title{Title: name, Subtitle: symbol}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: true}),
	)
	return line
}

func kindTitle(kind models.InstrumentKind) string {
	if kind == models.KindCrypto {
		return "Crypto"
	}
	return "Stock"
}

func rawChartNoun(kind models.InstrumentKind) string {
	if kind == models.KindCrypto {
		return "Crypto"
	}
	return "Stocks"
}

package views

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"stock-forecast-app/internal/models"
)

const dateLayout = "2006-01-02"

// RawRow is one formatted row of a raw price table.
type RawRow struct {
	Date   string
	Open   string
	High   string
	Low    string
	Close  string
	Volume string
}

// ForecastRow is one formatted row of a forecast table. Actual is empty on days
// without an observation.
type ForecastRow struct {
	Date      string
	Predicted string
	Lower     string
	Upper     string
	Trend     string
	Seasonal  string
	Actual    string
}

// RawRows formats every bar of series, newest first.
func RawRows(series *models.PriceSeries) []RawRow {
	if series == nil {
		return nil
	}
	rows := make([]RawRow, 0, len(series.Bars))
	for i := len(series.Bars) - 1; i >= 0; i-- {
		bar := series.Bars[i]
		rows = append(rows, RawRow{
			Date:   bar.Date.Format(dateLayout),
			Open:   formatPrice(bar.Open),
			High:   formatPrice(bar.High),
			Low:    formatPrice(bar.Low),
			Close:  formatPrice(bar.Close),
			Volume: humanize.Comma(bar.Volume),
		})
	}
	return rows
}

// ForecastRows formats every point of result in date order.
func ForecastRows(result *models.ForecastResult) []ForecastRow {
	if result == nil {
		return nil
	}
	rows := make([]ForecastRow, len(result.Points))
	for i, p := range result.Points {
		row := ForecastRow{
			Date:      p.Date.Format(dateLayout),
			Predicted: formatValue(p.Predicted),
			Lower:     formatValue(p.Lower),
			Upper:     formatValue(p.Upper),
			Trend:     formatValue(p.Trend),
			Seasonal:  formatValue(p.Seasonal),
		}
		if p.Actual != nil {
			row.Actual = formatValue(*p.Actual)
		}
		rows[i] = row
	}
	return rows
}

// formatPrice keeps sub-dollar crypto prices readable.
func formatPrice(d decimal.Decimal) string {
	if d.Abs().LessThan(decimal.NewFromInt(1)) {
		return d.StringFixed(6)
	}
	return humanize.CommafWithDigits(d.Round(2).InexactFloat64(), 2)
}

func formatValue(v float64) string {
	return formatPrice(decimal.NewFromFloat(v))
}

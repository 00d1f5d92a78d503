package views

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"stock-forecast-app/internal/models"
)

//go:embed templates/index.html
var indexTemplate string

var page = template.Must(template.New("index").Parse(indexTemplate))

// Block kinds, in the order they are laid out.
const (
	BlockRawTable        = "raw-table"
	BlockRawChart        = "raw-chart"
	BlockForecastTable   = "forecast-table"
	BlockForecastChart   = "forecast-chart"
	BlockComponentsChart = "components-chart"
)

// Block is one visual block of the page. Alert replaces the content when the
// instrument's pipeline stopped before this block could be produced.
type Block struct {
	Kind         string
	Instrument   models.InstrumentKind
	Title        string
	Alert        string
	RawRows      []RawRow
	ForecastRows []ForecastRow
	ChartURL     string
}

// Load status lines, as the page reports them per instrument.
const (
	StatusLoaded = "Loading data... done!"
	StatusFailed = "Loading data... failed"
)

// InstrumentStatus is the load status line of one instrument.
type InstrumentStatus struct {
	Instrument models.InstrumentKind
	Symbol     string
	Text       string
}

// PageData is what the page template renders.
type PageData struct {
	Selection models.Selection
	Cryptos   []string
	Stocks    []string
	MinYears  int
	MaxYears  int
	RenderID  string
	Statuses  []InstrumentStatus
	Error     string
	Blocks    []Block
}

// NewPageData lays out the blocks of vm. Stock comes before crypto within each
// stage; a failed instrument gets one alert at the first block it cannot fill and
// nothing after it.
func NewPageData(vm *models.ViewModel) PageData {
	data := emptyPageData(vm.Selection)
	data.RenderID = vm.RenderID
	for _, view := range []*models.InstrumentView{&vm.Stock, &vm.Crypto} {
		data.Statuses = append(data.Statuses, loadStatus(view))
	}

	stages := []string{BlockRawTable, BlockRawChart, BlockForecastTable, BlockForecastChart, BlockComponentsChart}
	alerted := make(map[models.InstrumentKind]bool)
	for _, stage := range stages {
		for _, view := range []*models.InstrumentView{&vm.Stock, &vm.Crypto} {
			if alerted[view.Kind] {
				continue
			}
			block, ok := buildBlock(stage, vm, view)
			if !ok {
				block.Alert = alertText(view)
				alerted[view.Kind] = true
			}
			data.Blocks = append(data.Blocks, block)
		}
	}
	return data
}

// ErrorPageData shows the widgets at sel with an error and no blocks.
func ErrorPageData(sel models.Selection, err error) PageData {
	data := emptyPageData(sel)
	data.Error = err.Error()
	return data
}

// RenderPage writes the page.
func RenderPage(w io.Writer, data PageData) error {
	return page.Execute(w, data)
}

func emptyPageData(sel models.Selection) PageData {
	return PageData{
		Selection: sel,
		Cryptos:   models.CryptoTickers[:],
		Stocks:    models.StockTickers[:],
		MinYears:  models.MinYears,
		MaxYears:  models.MaxYears,
	}
}

func buildBlock(stage string, vm *models.ViewModel, view *models.InstrumentView) (Block, bool) {
	noun := kindTitle(view.Kind)
	block := Block{Kind: stage, Instrument: view.Kind}

	switch stage {
	case BlockRawTable:
		block.Title = fmt.Sprintf("Raw %s Data", noun)
		block.RawRows = RawRows(view.Series)
		return block, view.Series != nil
	case BlockRawChart:
		block.Title = fmt.Sprintf("Time Series Data for %s with Rangeslider", rawChartNoun(view.Kind))
		block.ChartURL = ChartURL(vm.RenderID, view.Kind, ChartRaw)
		return block, view.Series != nil
	case BlockForecastTable:
		block.Title = fmt.Sprintf("%s Forecast Data", noun)
		block.ForecastRows = ForecastRows(view.Forecast)
		return block, view.Forecast != nil
	case BlockForecastChart:
		block.Title = fmt.Sprintf("%s Forecast plot for %d years", noun, vm.Selection.Years)
		block.ChartURL = ChartURL(vm.RenderID, view.Kind, ChartForecast)
		return block, view.Forecast != nil
	default:
		block.Title = fmt.Sprintf("%s Forecast components", noun)
		block.ChartURL = ChartURL(vm.RenderID, view.Kind, ChartComponents)
		return block, view.Decomposition != nil
	}
}

func loadStatus(view *models.InstrumentView) InstrumentStatus {
	status := InstrumentStatus{Instrument: view.Kind, Symbol: view.Symbol, Text: StatusLoaded}
	if view.Series == nil {
		status.Text = StatusFailed
	}
	return status
}

func alertText(view *models.InstrumentView) string {
	if view.Error == "" {
		return fmt.Sprintf("No data for %s", view.Symbol)
	}
	return view.Error
}

// ChartURL is the frame address of one chart of a render pass.
func ChartURL(renderID string, kind models.InstrumentKind, chart string) string {
	return fmt.Sprintf("/charts/%s/%s/%s", renderID, kind, chart)
}

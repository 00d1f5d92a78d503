// Package additive fits an additive time-series model to daily observations:
// a piecewise-linear trend with automatically placed changepoints plus Fourier
// terms for weekly and yearly seasonality. Coefficients are estimated with
// ridge-regularised least squares, so a fit on the same input always produces
// the same model.
//
// Typical use:
//
//	m := additive.New(additive.DefaultOptions())
//	if err := m.Fit(points); err != nil { ... }
//	preds, err := m.Predict(m.FutureDates(365))
package additive

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInsufficientData = errors.New("at least two observations on distinct dates are required")
	ErrConstantSeries   = errors.New("all observations have the same value")
	ErrNotFitted        = errors.New("model has not been fitted")
	ErrSingular         = errors.New("normal equations are not positive definite")
)

const (
	day         = 24 * time.Hour
	weekPeriod  = 7.0
	yearPeriod  = 365.25
	minWeekSpan = 2 * 7
	minYearSpan = 2 * 365
	tinyPenalty = 1e-8
)

// Point is one observation.
type Point struct {
	T time.Time
	Y float64
}

// Prediction is the model output for one date. All values are in the units of the
// observations.
type Prediction struct {
	T      time.Time
	Yhat   float64
	Lower  float64
	Upper  float64
	Trend  float64
	Weekly float64
	Yearly float64
}

// Seasonal is the sum of the seasonal components.
func (p Prediction) Seasonal() float64 {
	return p.Weekly + p.Yearly
}

// Options controls model structure and regularisation.
type Options struct {
	// ChangepointCount is the number of potential trend changepoints, placed
	// uniformly over the first ChangepointRange of the history.
	ChangepointCount int
	ChangepointRange float64
	// ChangepointPenalty is the ridge penalty on slope changes. Larger values give a
	// stiffer trend.
	ChangepointPenalty float64
	// SeasonalityPenalty is the ridge penalty on Fourier coefficients.
	SeasonalityPenalty float64
	// WeeklyOrder and YearlyOrder are the Fourier orders. Zero disables the term;
	// it is also disabled when the history is too short to identify it.
	WeeklyOrder int
	YearlyOrder int
	// IntervalWidth is the coverage of the uncertainty band, in (0, 1).
	IntervalWidth float64
}

// DefaultOptions mirrors the usual defaults of additive forecasting tools.
func DefaultOptions() Options {
	return Options{
		ChangepointCount:   25,
		ChangepointRange:   0.8,
		ChangepointPenalty: 0.5,
		SeasonalityPenalty: 0.01,
		WeeklyOrder:        3,
		YearlyOrder:        10,
		IntervalWidth:      0.8,
	}
}

// Model is a fitted (or unfitted) additive model. It is safe for concurrent use
// once Fit has returned.
type Model struct {
	opts Options

	start        time.Time
	end          time.Time
	spanDays     float64
	yScale       float64
	changepoints []float64
	weekly       bool
	yearly       bool

	beta      []float64
	sigma     float64
	meanDelta float64
	z         float64
	fitted    bool
}

// New returns an unfitted model.
func New(opts Options) *Model {
	return &Model{opts: opts}
}

// Fit estimates the model coefficients from points. Points need not be sorted.
func (m *Model) Fit(points []Point) error {
	if m.opts.IntervalWidth <= 0 || m.opts.IntervalWidth >= 1 {
		return fmt.Errorf("interval width %v outside (0, 1)", m.opts.IntervalWidth)
	}

	pts := make([]Point, len(points))
	copy(pts, points)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].T.Before(pts[j].T) })

	if len(pts) < 2 {
		return ErrInsufficientData
	}
	m.start = pts[0].T
	m.end = pts[len(pts)-1].T
	m.spanDays = m.end.Sub(m.start).Hours() / 24
	if m.spanDays <= 0 {
		return ErrInsufficientData
	}

	ys := make([]float64, len(pts))
	for i, p := range pts {
		if math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("observation %d is not finite", i)
		}
		ys[i] = p.Y
	}
	if floats.Max(ys) == floats.Min(ys) {
		return ErrConstantSeries
	}

	m.yScale = math.Max(math.Abs(floats.Max(ys)), math.Abs(floats.Min(ys)))
	floats.Scale(1/m.yScale, ys)

	m.weekly = m.opts.WeeklyOrder > 0 && m.spanDays >= minWeekSpan
	m.yearly = m.opts.YearlyOrder > 0 && m.spanDays >= minYearSpan
	m.changepoints = m.placeChangepoints(pts)

	cols := m.numFeatures()
	x := mat.NewDense(len(pts), cols, nil)
	row := make([]float64, cols)
	for i, p := range pts {
		m.features(p.T, row)
		x.SetRow(i, row)
	}

	var a mat.SymDense
	a.SymOuterK(1, x.T())
	for j, pen := range m.penalties() {
		a.SetSym(j, j, a.At(j, j)+pen)
	}
	var b mat.VecDense
	b.MulVec(x.T(), mat.NewVecDense(len(ys), ys))

	var chol mat.Cholesky
	if ok := chol.Factorize(&a); !ok {
		return ErrSingular
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &b); err != nil {
		return fmt.Errorf("solve normal equations: %w", err)
	}

	m.beta = make([]float64, cols)
	for j := range m.beta {
		m.beta[j] = beta.AtVec(j)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	resid := make([]float64, len(ys))
	floats.SubTo(resid, ys, fitted.RawVector().Data)
	m.sigma = math.Sqrt(floats.Dot(resid, resid) / float64(len(resid)))

	m.meanDelta = 0
	if n := len(m.changepoints); n > 0 {
		m.meanDelta = floats.Norm(m.beta[2:2+n], 1) / float64(n)
	}
	m.z = distuv.UnitNormal.Quantile(0.5 + m.opts.IntervalWidth/2)
	m.fitted = true
	return nil
}

// FutureDates returns one date per day from the first observation through the last
// observation plus periods days.
func (m *Model) FutureDates(periods int) []time.Time {
	if !m.fitted {
		return nil
	}
	last := m.end.AddDate(0, 0, periods)
	n := int(math.Round(last.Sub(m.start).Hours()/24)) + 1
	dates := make([]time.Time, 0, n)
	for d := m.start; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Predict evaluates the model at each date.
func (m *Model) Predict(dates []time.Time) ([]Prediction, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	out := make([]Prediction, len(dates))
	for i, d := range dates {
		out[i] = m.predictOne(d)
	}
	return out, nil
}

// WeeklyProfile returns the weekly component for each time.Weekday, or nil when the
// weekly term was not fitted.
func (m *Model) WeeklyProfile() []float64 {
	if !m.fitted || !m.weekly {
		return nil
	}
	// 2017-01-01 was a Sunday.
	ref := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	profile := make([]float64, 7)
	for i := range profile {
		profile[i] = m.predictOne(ref.AddDate(0, 0, i)).Weekly
	}
	return profile
}

// YearlyProfile returns the yearly component for each day of a non-leap year, or nil
// when the yearly term was not fitted.
func (m *Model) YearlyProfile() []float64 {
	if !m.fitted || !m.yearly {
		return nil
	}
	ref := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	profile := make([]float64, 365)
	for i := range profile {
		profile[i] = m.predictOne(ref.AddDate(0, 0, i)).Yearly
	}
	return profile
}

// HasWeekly reports whether the weekly term was fitted.
func (m *Model) HasWeekly() bool { return m.weekly }

// HasYearly reports whether the yearly term was fitted.
func (m *Model) HasYearly() bool { return m.yearly }

func (m *Model) predictOne(d time.Time) Prediction {
	t := m.scaledTime(d)

	trend := m.beta[0] + m.beta[1]*t
	for j, c := range m.changepoints {
		if t > c {
			trend += m.beta[2+j] * (t - c)
		}
	}

	col := 2 + len(m.changepoints)
	abs := absDays(d)
	var weekly, yearly float64
	if m.weekly {
		weekly = fourierDot(m.beta[col:], abs, weekPeriod, m.opts.WeeklyOrder)
		col += 2 * m.opts.WeeklyOrder
	}
	if m.yearly {
		yearly = fourierDot(m.beta[col:], abs, yearPeriod, m.opts.YearlyOrder)
	}

	half := m.sigma
	if t > 1 {
		drift := m.meanDelta * (t - 1)
		half = math.Sqrt(m.sigma*m.sigma + drift*drift)
	}
	half *= m.z

	yhat := trend + weekly + yearly
	return Prediction{
		T:      d,
		Yhat:   yhat * m.yScale,
		Lower:  (yhat - half) * m.yScale,
		Upper:  (yhat + half) * m.yScale,
		Trend:  trend * m.yScale,
		Weekly: weekly * m.yScale,
		Yearly: yearly * m.yScale,
	}
}

func (m *Model) scaledTime(d time.Time) float64 {
	return d.Sub(m.start).Hours() / 24 / m.spanDays
}

// placeChangepoints spreads changepoints over observation times in the first
// ChangepointRange of the history, as scaled times.
func (m *Model) placeChangepoints(pts []Point) []float64 {
	histRows := int(math.Floor(float64(len(pts)) * m.opts.ChangepointRange))
	count := m.opts.ChangepointCount
	if count > histRows-1 {
		count = histRows - 1
	}
	if count <= 0 {
		return nil
	}
	cps := make([]float64, 0, count)
	step := float64(histRows-1) / float64(count)
	for j := 1; j <= count; j++ {
		idx := int(math.Round(float64(j) * step))
		cps = append(cps, m.scaledTime(pts[idx].T))
	}
	return cps
}

func (m *Model) numFeatures() int {
	n := 2 + len(m.changepoints)
	if m.weekly {
		n += 2 * m.opts.WeeklyOrder
	}
	if m.yearly {
		n += 2 * m.opts.YearlyOrder
	}
	return n
}

func (m *Model) penalties() []float64 {
	pen := make([]float64, m.numFeatures())
	pen[0], pen[1] = tinyPenalty, tinyPenalty
	i := 2
	for range m.changepoints {
		pen[i] = m.opts.ChangepointPenalty
		i++
	}
	for ; i < len(pen); i++ {
		pen[i] = m.opts.SeasonalityPenalty
	}
	return pen
}

func (m *Model) features(d time.Time, row []float64) {
	t := m.scaledTime(d)
	row[0] = 1
	row[1] = t
	i := 2
	for _, c := range m.changepoints {
		row[i] = math.Max(0, t-c)
		i++
	}
	abs := absDays(d)
	if m.weekly {
		i = fourierFill(row, i, abs, weekPeriod, m.opts.WeeklyOrder)
	}
	if m.yearly {
		fourierFill(row, i, abs, yearPeriod, m.opts.YearlyOrder)
	}
}

// absDays is the number of days since the Unix epoch.
func absDays(d time.Time) float64 {
	return float64(d.Unix()) / day.Seconds()
}

func fourierFill(row []float64, i int, t, period float64, order int) int {
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * t / period
		row[i] = math.Sin(arg)
		row[i+1] = math.Cos(arg)
		i += 2
	}
	return i
}

func fourierDot(beta []float64, t, period float64, order int) float64 {
	var sum float64
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * t / period
		sum += beta[2*(k-1)]*math.Sin(arg) + beta[2*(k-1)+1]*math.Cos(arg)
	}
	return sum
}

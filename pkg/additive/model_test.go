package additive

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var origin = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func series(n int, f func(i int, d time.Time) float64) []Point {
	pts := make([]Point, n)
	for i := range pts {
		d := origin.AddDate(0, 0, i)
		pts[i] = Point{T: d, Y: f(i, d)}
	}
	return pts
}

func fit(t *testing.T, pts []Point) *Model {
	t.Helper()
	m := New(DefaultOptions())
	require.NoError(t, m.Fit(pts))
	return m
}

func TestFit_RecoversLinearTrend(t *testing.T) {
	pts := series(400, func(i int, _ time.Time) float64 { return 100 + 2*float64(i) })
	m := fit(t, pts)

	preds, err := m.Predict([]time.Time{pts[0].T, pts[399].T, pts[399].T.AddDate(0, 0, 30)})
	require.NoError(t, err)

	assert.InEpsilon(t, 100.0, preds[0].Yhat, 0.02)
	assert.InEpsilon(t, 898.0, preds[1].Yhat, 0.02)
	assert.InEpsilon(t, 958.0, preds[2].Yhat, 0.02)
	assert.False(t, m.HasYearly())
	assert.True(t, m.HasWeekly())
}

func TestFutureDates_CoversHistoryAndHorizon(t *testing.T) {
	pts := series(90, func(i int, _ time.Time) float64 { return float64(i%5) + float64(i) })
	m := fit(t, pts)

	for _, horizon := range []int{365, 730, 1095, 1460} {
		dates := m.FutureDates(horizon)
		require.Len(t, dates, 90+horizon)
		assert.Equal(t, origin, dates[0])
		assert.Equal(t, pts[89].T.AddDate(0, 0, horizon), dates[len(dates)-1])
		for i := 1; i < len(dates); i++ {
			assert.Equal(t, dates[i-1].AddDate(0, 0, 1), dates[i])
		}
	}
}

func TestFutureDates_SkipsNothingAcrossGaps(t *testing.T) {
	// trading days only: weekends missing from the history
	var pts []Point
	for i := 0; i < 60; i++ {
		d := origin.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		pts = append(pts, Point{T: d, Y: float64(i)})
	}
	m := fit(t, pts)

	dates := m.FutureDates(10)
	last := pts[len(pts)-1].T.AddDate(0, 0, 10)
	assert.Equal(t, int(last.Sub(origin).Hours()/24)+1, len(dates))
}

func TestPredict_LongerHorizonExtendsShorter(t *testing.T) {
	pts := series(800, func(i int, d time.Time) float64 {
		return 50 + 0.1*float64(i) + 5*math.Sin(2*math.Pi*float64(d.YearDay())/365)
	})
	m := fit(t, pts)

	short, err := m.Predict(m.FutureDates(365))
	require.NoError(t, err)
	long, err := m.Predict(m.FutureDates(730))
	require.NoError(t, err)

	require.Len(t, long, len(short)+365)
	for i := range short {
		assert.Equal(t, short[i], long[i])
	}
}

func TestFit_Deterministic(t *testing.T) {
	pts := series(300, func(i int, _ time.Time) float64 { return 10 + math.Sqrt(float64(i)) + float64(i%7) })

	a, b := fit(t, pts), fit(t, pts)
	pa, err := a.Predict(a.FutureDates(30))
	require.NoError(t, err)
	pb, err := b.Predict(b.FutureDates(30))
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestFit_UnsortedInput(t *testing.T) {
	pts := series(120, func(i int, _ time.Time) float64 { return float64(i) * 1.5 })
	reversed := make([]Point, len(pts))
	for i, p := range pts {
		reversed[len(pts)-1-i] = p
	}

	a, b := fit(t, pts), fit(t, reversed)
	pa, _ := a.Predict(a.FutureDates(10))
	pb, _ := b.Predict(b.FutureDates(10))
	assert.Equal(t, pa, pb)
}

func TestFit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   error
	}{
		{"empty", nil, ErrInsufficientData},
		{"single point", []Point{{T: origin, Y: 1}}, ErrInsufficientData},
		{"same date", []Point{{T: origin, Y: 1}, {T: origin, Y: 2}}, ErrInsufficientData},
		{"constant", series(30, func(int, time.Time) float64 { return 42 }), ErrConstantSeries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(DefaultOptions()).Fit(tt.points)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFit_RejectsNonFinite(t *testing.T) {
	pts := series(10, func(i int, _ time.Time) float64 { return float64(i) })
	pts[4].Y = math.NaN()
	assert.Error(t, New(DefaultOptions()).Fit(pts))
}

func TestFit_RejectsBadIntervalWidth(t *testing.T) {
	opts := DefaultOptions()
	opts.IntervalWidth = 1
	pts := series(10, func(i int, _ time.Time) float64 { return float64(i) })
	assert.Error(t, New(opts).Fit(pts))
}

func TestPredict_NotFitted(t *testing.T) {
	m := New(DefaultOptions())
	_, err := m.Predict([]time.Time{origin})
	assert.ErrorIs(t, err, ErrNotFitted)
	assert.Nil(t, m.FutureDates(10))
	assert.Nil(t, m.WeeklyProfile())
}

func TestPredict_BandContainsEstimateAndWidens(t *testing.T) {
	// a kinked, noisy series so both sigma and trend drift are non-zero
	pts := series(500, func(i int, _ time.Time) float64 {
		y := 200 + 0.5*float64(i)
		if i > 250 {
			y -= 1.2 * float64(i-250)
		}
		return y + 8*math.Sin(float64(i)*1.7)
	})
	m := fit(t, pts)

	preds, err := m.Predict(m.FutureDates(365))
	require.NoError(t, err)
	for _, p := range preds {
		assert.LessOrEqual(t, p.Lower, p.Yhat)
		assert.LessOrEqual(t, p.Yhat, p.Upper)
		assert.InDelta(t, p.Yhat, p.Trend+p.Seasonal(), 1e-9)
	}

	lastObserved := preds[len(pts)-1]
	end := preds[len(preds)-1]
	assert.Greater(t, end.Upper-end.Lower, lastObserved.Upper-lastObserved.Lower)
}

func TestWeeklyProfile_WeekendBump(t *testing.T) {
	pts := series(210, func(i int, d time.Time) float64 {
		y := 100 + 0.05*float64(i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			y += 10
		}
		return y
	})
	m := fit(t, pts)

	profile := m.WeeklyProfile()
	require.Len(t, profile, 7)
	assert.InDelta(t, 10, profile[time.Saturday]-profile[time.Wednesday], 1)
	assert.InDelta(t, 0, profile[time.Saturday]-profile[time.Sunday], 1)
	assert.Nil(t, m.YearlyProfile())
}

func TestYearlyProfile_FittedOnLongHistory(t *testing.T) {
	pts := series(3*365, func(i int, d time.Time) float64 {
		return 100 + 20*math.Sin(2*math.Pi*float64(d.YearDay()-1)/365)
	})
	m := fit(t, pts)

	require.True(t, m.HasYearly())
	profile := m.YearlyProfile()
	require.Len(t, profile, 365)
	// peak near April 1st, trough near October 1st
	assert.Greater(t, profile[90], profile[273])
}

func TestSeasonalityDisabledByOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.WeeklyOrder = 0
	opts.YearlyOrder = 0
	m := New(opts)
	require.NoError(t, m.Fit(series(1000, func(i int, _ time.Time) float64 { return float64(i % 30) })))

	assert.False(t, m.HasWeekly())
	assert.False(t, m.HasYearly())
	preds, err := m.Predict([]time.Time{origin})
	require.NoError(t, err)
	assert.Zero(t, preds[0].Seasonal())
}

// Package indicators derives technical indicators from a daily price
// series. Every indicator is computed from stored bars, never fetched, and
// is omitted when the series is too short for its window.
package indicators

import (
	"math"
	"time"

	"EquityLens/internal/domain/models"
)

// Indicator names as they appear in the dashboard payload.
const (
	NameSMA           = "sma"
	NameEMA           = "ema"
	NameMACD          = "macd"
	NameMACDSignal    = "macd_signal"
	NameMACDHistogram = "macd_histogram"
	NameBollingerUp   = "bollinger_upper"
	NameBollingerMid  = "bollinger_middle"
	NameBollingerLow  = "bollinger_lower"
	NameRSI           = "rsi"
)

// Standard windows computed for every symbol.
var (
	smaWindows = []int{20, 50, 200}
	emaWindows = []int{12, 26}
)

const (
	macdFast      = 12
	macdSlow      = 26
	macdSignalLen = 9

	bollingerWindow = 20
	bollingerWidth  = 2.0

	rsiWindow = 14
)

// Compute derives the full indicator set from bars, which must be ascending
// by date. Indicators whose window exceeds the series length are left out
// rather than zero-filled.
func Compute(symbol string, bars []models.PriceBar) []models.TechnicalIndicator {
	if len(bars) == 0 {
		return nil
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	asOf := bars[len(bars)-1].Date

	var out []models.TechnicalIndicator
	add := func(name string, window int, value float64, ok bool) {
		if !ok {
			return
		}
		out = append(out, models.TechnicalIndicator{
			Symbol: symbol, AsOf: asOf, Name: name, Window: window, Value: value,
		})
	}

	for _, w := range smaWindows {
		v, ok := SMA(closes, w)
		add(NameSMA, w, v, ok)
	}
	for _, w := range emaWindows {
		v, ok := EMA(closes, w)
		add(NameEMA, w, v, ok)
	}

	macd, signal, hist, ok := MACD(closes)
	add(NameMACD, 0, macd, ok)
	add(NameMACDSignal, 0, signal, ok)
	add(NameMACDHistogram, 0, hist, ok)

	up, mid, low, ok := Bollinger(closes, bollingerWindow, bollingerWidth)
	add(NameBollingerUp, bollingerWindow, up, ok)
	add(NameBollingerMid, bollingerWindow, mid, ok)
	add(NameBollingerLow, bollingerWindow, low, ok)

	rsi, ok := RSI(closes, rsiWindow)
	add(NameRSI, rsiWindow, rsi, ok)

	return out
}

// AsOf returns the date of the last bar, zero when the series is empty.
func AsOf(bars []models.PriceBar) time.Time {
	if len(bars) == 0 {
		return time.Time{}
	}
	return bars[len(bars)-1].Date
}

// SMA returns the simple moving average of the last window closes. It
// reports ok=false when fewer than window points exist.
func SMA(closes []float64, window int) (float64, bool) {
	if window <= 0 || len(closes) < window {
		return 0, false
	}
	var sum float64
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window), true
}

// EMA returns the exponential moving average with smoothing 2/(window+1),
// seeded with the SMA of the first window closes.
func EMA(closes []float64, window int) (float64, bool) {
	series, ok := emaSeries(closes, window)
	if !ok {
		return 0, false
	}
	return series[len(series)-1], true
}

// emaSeries returns the EMA value for every index from window-1 onward.
func emaSeries(closes []float64, window int) ([]float64, bool) {
	if window <= 0 || len(closes) < window {
		return nil, false
	}
	series := make([]float64, 0, len(closes)-window+1)
	var seed float64
	for _, c := range closes[:window] {
		seed += c
	}
	prev := seed / float64(window)
	series = append(series, prev)

	alpha := 2.0 / float64(window+1)
	for _, c := range closes[window:] {
		prev = (c-prev)*alpha + prev
		series = append(series, prev)
	}
	return series, true
}

// MACD returns the MACD line (EMA12 - EMA26), its 9 period signal line and
// the histogram. The signal line needs macdSlow+macdSignalLen-1 closes.
func MACD(closes []float64) (macd, signal, histogram float64, ok bool) {
	fast, okFast := emaSeries(closes, macdFast)
	slow, okSlow := emaSeries(closes, macdSlow)
	if !okFast || !okSlow {
		return 0, 0, 0, false
	}
	// Align the fast series to the slow one's start.
	fast = fast[len(fast)-len(slow):]
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i] - slow[i]
	}
	sig, okSig := emaSeries(line, macdSignalLen)
	if !okSig {
		return 0, 0, 0, false
	}
	macd = line[len(line)-1]
	signal = sig[len(sig)-1]
	return macd, signal, macd - signal, true
}

// Bollinger returns the upper, middle and lower bands over window closes
// with width standard deviations.
func Bollinger(closes []float64, window int, width float64) (upper, middle, lower float64, ok bool) {
	mid, okMid := SMA(closes, window)
	if !okMid {
		return 0, 0, 0, false
	}
	var sq float64
	for _, c := range closes[len(closes)-window:] {
		d := c - mid
		sq += d * d
	}
	sd := math.Sqrt(sq / float64(window))
	return mid + width*sd, mid, mid - width*sd, true
}

// RSI returns the Wilder smoothed relative strength index over window
// closes, clamped to [0, 100]. It needs window+1 closes for the first delta.
func RSI(closes []float64, window int) (float64, bool) {
	if window <= 0 || len(closes) < window+1 {
		return 0, false
	}
	var gain, loss float64
	for i := 1; i <= window; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(window)
	avgLoss := loss / float64(window)

	for i := window + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		var g, l float64
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(window-1) + g) / float64(window)
		avgLoss = (avgLoss*float64(window-1) + l) / float64(window)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	rsi := 100 - 100/(1+rs)
	return math.Min(100, math.Max(0, rsi)), true
}

package models

// Ticker catalogs offered by the selection widgets. The first entry of each list is the default.
var (
	CryptoTickers = [...]string{
		"BTC-USD", "ETH-USD", "XRP-USD", "LTC-USD", "BCH-USD",
		"ADA-USD", "DOT-USD", "LINK-USD", "BNB-USD", "DOGE-USD",
	}
	StockTickers = [...]string{
		"GOOG", "AAPL", "MSFT", "GME", "AMZN",
		"TSLA", "NFLX", "FB", "NVDA", "INTC",
	}
)

const (
	DaysPerYear = 365
	MinYears    = 1
	MaxYears    = 4
)

// DefaultSelection is what the widgets show before the user touches them.
func DefaultSelection() Selection {
	return Selection{
		Crypto: CryptoTickers[0],
		Stock:  StockTickers[0],
		Years:  MinYears,
	}
}

// IsCrypto reports whether symbol is in the crypto catalog.
func IsCrypto(symbol string) bool {
	for _, s := range CryptoTickers {
		if s == symbol {
			return true
		}
	}
	return false
}

// IsStock reports whether symbol is in the stock catalog.
func IsStock(symbol string) bool {
	for _, s := range StockTickers {
		if s == symbol {
			return true
		}
	}
	return false
}

// IsKnownTicker reports whether symbol is in either catalog.
func IsKnownTicker(symbol string) bool {
	return IsCrypto(symbol) || IsStock(symbol)
}

// Validate checks every field against its fixed set of choices.
func (s Selection) Validate() error {
	if !IsCrypto(s.Crypto) {
		return NewInvalidSelectionError("crypto", s.Crypto)
	}
	if !IsStock(s.Stock) {
		return NewInvalidSelectionError("stock", s.Stock)
	}
	if s.Years < MinYears || s.Years > MaxYears {
		return NewInvalidSelectionError("years", s.Years)
	}
	return nil
}

// WithDefaults fills empty fields from DefaultSelection. Non-empty invalid values are kept
// so Validate can reject them.
func (s Selection) WithDefaults() Selection {
	def := DefaultSelection()
	if s.Crypto == "" {
		s.Crypto = def.Crypto
	}
	if s.Stock == "" {
		s.Stock = def.Stock
	}
	if s.Years == 0 {
		s.Years = def.Years
	}
	return s
}

package model

import "time"

// unexported type to disable any new kinds
type kind string

const (
	Fiat   kind = kind("fiat")   // Fiat represents government-issued currency
	Crypto kind = kind("crypto") // Crypto represents crypto currency
)

// Currency holds display metadata
// for one supported currency
type Currency struct {
	Code  string `json:"code"`   // ISO-style code, e.g. USD or BTC
	Name  string `json:"name"`   // Display name of the currency
	Glyph string `json:"symbol"` // Display glyph, e.g. ₹ or ₿
	Kind  kind   `json:"type"`   // Currency kind
}

// Catalog is the static registry of supported currencies,
// fiat first followed by crypto. Loaded once, immutable.
var Catalog = []Currency{
	{Code: "INR", Name: "Indian Rupee", Glyph: "₹", Kind: Fiat},
	{Code: "USD", Name: "US Dollar", Glyph: "$", Kind: Fiat},
	{Code: "EUR", Name: "Euro", Glyph: "€", Kind: Fiat},
	{Code: "GBP", Name: "British Pound", Glyph: "£", Kind: Fiat},
	{Code: "BTC", Name: "Bitcoin", Glyph: "₿", Kind: Crypto},
	{Code: "ETH", Name: "Ethereum", Glyph: "Ξ", Kind: Crypto},
	{Code: "USDT", Name: "Tether", Glyph: "₮", Kind: Crypto},
}

// Lookup returns the catalog entry for code.
func Lookup(code string) (Currency, bool) {
	for _, c := range Catalog {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// IsFiat reports whether code names a supported fiat currency.
func IsFiat(code string) bool {
	c, ok := Lookup(code)
	return ok && c.Kind == Fiat
}

// IsCrypto reports whether code names a supported crypto currency.
func IsCrypto(code string) bool {
	c, ok := Lookup(code)
	return ok && c.Kind == Crypto
}

// BaseFiat is the common unit all mixed fiat holdings are summed in
// before converting to crypto.
const BaseFiat = "INR"

// inrPerFiat is the fixed cross-rate table: INR per one unit of each
// supported fiat. Every call site converts through this one table.
var inrPerFiat = map[string]float64{
	"INR": 1,
	"USD": 83.5,
	"EUR": 90,
	"GBP": 105,
}

// INRPerUnit returns the fixed INR cross rate for a fiat code.
func INRPerUnit(fiatCode string) (float64, bool) {
	r, ok := inrPerFiat[fiatCode]
	return r, ok
}

// DrawDownOrder is the fixed priority in which fiat balances are
// depleted to fund a crypto send shortfall.
var DrawDownOrder = []string{"INR", "USD", "EUR", "GBP"}

// Price snapshot provenance tags. These are part of the external
// contract on /crypto/live-prices and /crypto/wallet-balances.
const (
	SourceBinance   = "binance"
	SourceCoinGecko = "coingecko"
	SourceCached    = "cached"
	SourceFallback  = "fallback"
	SourceMock      = "mock"
)

// PriceQuote is the current price of one crypto asset.
type PriceQuote struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	PriceUSD    float64   `json:"price_usd"`
	PriceINR    float64   `json:"price_inr"`
	Change24h   float64   `json:"change_24h"`
	Volume24h   float64   `json:"volume_24h,omitempty"`
	PriceChange float64   `json:"price_change,omitempty"`
	Icon        string    `json:"icon"`
	LastUpdated time.Time `json:"lastUpdated"`
	Source      string    `json:"source"`
}

// In returns the quote's price in the given fiat currency.
// INR and USD are quoted directly; EUR and GBP are fixed
// approximations derived from the USD price.
func (q PriceQuote) In(fiatCode string) (float64, bool) {
	switch fiatCode {
	case "INR":
		return q.PriceINR, true
	case "USD":
		return q.PriceUSD, true
	case "EUR":
		return q.PriceUSD * 0.85, true
	case "GBP":
		return q.PriceUSD * 0.75, true
	}
	return 0, false
}

// PriceSnapshot is one fetched set of quotes for all supported cryptos.
type PriceSnapshot struct {
	Quotes    []PriceQuote `json:"data"`
	Source    string       `json:"source"`
	FetchedAt time.Time    `json:"timestamp"`
}

// Quote returns the snapshot entry for symbol.
func (s PriceSnapshot) Quote(symbol string) (PriceQuote, bool) {
	for _, q := range s.Quotes {
		if q.Symbol == symbol {
			return q, true
		}
	}
	return PriceQuote{}, false
}

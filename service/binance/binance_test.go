package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/VBK-2102/CryptoPay/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New("test-key", "test-secret")
	require.NoError(t, err)

	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.baseURL = base

	return c
}

func pricesHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v3/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]tickerPrice{
			{Symbol: "BTCUSDT", Price: "42000.50"},
			{Symbol: "ETHUSDT", Price: "3200.25"},
			{Symbol: "DOGEUSDT", Price: "0.1"},
		})
	})
	mux.HandleFunc("/api/v3/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dayStats{
			Symbol:             r.URL.Query().Get("symbol"),
			PriceChange:        "120.5",
			PriceChangePercent: "2.5",
			Volume:             "35000",
		})
	})

	return mux
}

func TestFetchPrices(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, pricesHandler())

	quotes, err := c.FetchPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	bySymbol := map[string]model.PriceQuote{}
	for _, q := range quotes {
		bySymbol[q.Symbol] = q
	}

	btc := bySymbol["BTC"]
	assert.Equal(t, 42000.50, btc.PriceUSD)
	assert.Equal(t, 42000.50*83.5, btc.PriceINR)
	assert.Equal(t, model.SourceBinance, btc.Source)
	assert.Equal(t, 2.5, btc.Change24h)
	assert.Equal(t, 35000.0, btc.Volume24h)

	// the quote asset itself is pinned at one dollar
	usdt := bySymbol["USDT"]
	assert.Equal(t, 1.0, usdt.PriceUSD)
	assert.Equal(t, 83.5, usdt.PriceINR)
}

func TestFetchPrices_MissingTicker(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]tickerPrice{{Symbol: "BTCUSDT", Price: "42000"}})
	})

	c := newTestClient(t, mux)

	_, err := c.FetchPrices(context.Background())
	assert.ErrorContains(t, err, "no ticker for ETHUSDT")
}

func TestFetchPrices_RegionRestricted(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnavailableForLegalReasons)
	}))

	_, err := c.FetchPrices(context.Background())
	assert.ErrorContains(t, err, "restricted")
}

func TestAccountBalances(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/account", func(w http.ResponseWriter, r *http.Request) {
		// signed request carries the API key header and a signature
		assert.Equal(t, "test-key", r.Header.Get("X-MBX-APIKEY"))
		assert.NotEmpty(t, r.URL.Query().Get("signature"))
		assert.NotEmpty(t, r.URL.Query().Get("timestamp"))

		json.NewEncoder(w).Encode(accountInfo{Balances: []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		}{
			{Asset: "BTC", Free: "0.5", Locked: "0.25"},
			{Asset: "SHIB", Free: "100000", Locked: "0"},
			{Asset: "ETH", Free: "0", Locked: "0"},
		}})
	})

	c := newTestClient(t, mux)

	balances, err := c.AccountBalances(context.Background())
	require.NoError(t, err)

	// free+locked summed, unlisted and zero assets dropped
	require.Len(t, balances, 1)
	assert.InDelta(t, 0.75, balances["BTC"], 1e-9)
}

func TestAccountBalances_NoSecret(t *testing.T) {
	t.Parallel()

	c, err := New("", "")
	require.NoError(t, err)

	_, err = c.AccountBalances(context.Background())
	assert.Error(t, err)
}

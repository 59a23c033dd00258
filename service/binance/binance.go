package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/VBK-2102/CryptoPay/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const baseURL string = "https://api.binance.com/" // base URL of Binance REST API

// assets worth reporting from the exchange account
var accountAssets = []string{"BTC", "ETH", "USDT", "USDC", "BNB"}

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type dayStats struct {
	Symbol             string `json:"symbol"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
}

type accountInfo struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

type Client struct {
	baseURL     *url.URL      // Base URL for API requests
	httpClient  *http.Client  // HTTP client used to communicate with the API.
	rateLimiter *rate.Limiter // Rate limiter for the public endpoints
	secretKey   string        // HMAC key for signed endpoints, may be empty
}

func New(apiKey, secretKey string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
		secretKey:   secretKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: roundTripperFn(
				func(req *http.Request) (*http.Response, error) {
					if apiKey != "" {
						req.Header.Set("X-MBX-APIKEY", apiKey)
					}
					return http.DefaultTransport.RoundTrip(req)
				},
			),
		},
		baseURL: base,
	}

	return c, nil
}

// Name implements service.PriceFeed.
func (c *Client) Name() string { return model.SourceBinance }

func (c *Client) do(ctx context.Context, req *http.Request, v interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	log.Debug().Str("url", req.URL.String()).Msg("fetching information from API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnavailableForLegalReasons {
		return fmt.Errorf("binance API restricted in this region")
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unable to fetch due to code: %d", resp.StatusCode)
	}

	switch v := v.(type) {
	case nil:
	case io.Writer:
		_, err = io.Copy(v, resp.Body)
	default:
		decErr := json.NewDecoder(resp.Body).Decode(v)
		if decErr == io.EOF {
			decErr = nil // ignore EOF errors caused by empty response body
		}
		if decErr != nil {
			err = decErr
		}
	}

	return err
}

// FetchPrices implements service.PriceFeed.
// GET /api/v3/ticker/price
func (c *Client) FetchPrices(ctx context.Context) ([]model.PriceQuote, error) {
	u, err := c.baseURL.Parse("api/v3/ticker/price")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var all []tickerPrice
	if err := c.do(ctx, req, &all); err != nil {
		return nil, err
	}

	bySymbol := make(map[string]string, len(all))
	for _, t := range all {
		bySymbol[t.Symbol] = t.Price
	}

	usdToINR, _ := model.INRPerUnit("USD")
	now := time.Now().UTC()

	var quotes []model.PriceQuote
	for _, cur := range model.Catalog {
		if !model.IsCrypto(cur.Code) {
			continue
		}

		var usd float64
		if cur.Code == "USDT" {
			usd = 1.0 // the quote asset itself
		} else {
			raw, ok := bySymbol[cur.Code+"USDT"]
			if !ok {
				return nil, fmt.Errorf("no ticker for %sUSDT", cur.Code)
			}
			if usd, err = strconv.ParseFloat(raw, 64); err != nil {
				return nil, fmt.Errorf("bad ticker price for %s: %w", cur.Code, err)
			}
		}

		quotes = append(quotes, model.PriceQuote{
			Symbol:      cur.Code,
			Name:        cur.Name,
			PriceUSD:    usd,
			PriceINR:    usd * usdToINR,
			Icon:        cur.Glyph,
			LastUpdated: now,
			Source:      model.SourceBinance,
		})
	}

	c.enrich24h(ctx, quotes)

	return quotes, nil
}

// enrich24h merges 24hr change statistics into the quotes. Best
// effort: a symbol whose stats call fails keeps zero change.
func (c *Client) enrich24h(ctx context.Context, quotes []model.PriceQuote) {
	var (
		sem     = semaphore.NewWeighted(3)
		wg      = sync.WaitGroup{}
		statsC  = make(chan dayStats, len(quotes))
		mergedC = make(chan map[string]dayStats)
	)

	go func() {
		merged := make(map[string]dayStats)
		for s := range statsC {
			merged[s.Symbol] = s
		}
		mergedC <- merged
	}()

	for _, q := range quotes {
		statsCtx, cancelFn := context.WithTimeout(ctx, time.Second*3)
		defer cancelFn()

		if err := sem.Acquire(statsCtx, 1); err != nil {
			log.Error().Err(err).Msg("unable to acquire semaphore")
			break
		}

		wg.Add(1)
		go func(pair string) {
			defer wg.Done()
			defer sem.Release(1)

			stats, err := c.fetch24hStats(statsCtx, pair)
			if err != nil {
				log.Debug().Err(err).Str("pair", pair).Msg("unable to fetch 24hr stats")
				return
			}

			statsC <- stats
		}(q.Symbol + "USDT")
	}

	wg.Wait()
	close(statsC)
	merged := <-mergedC

	for i := range quotes {
		if s, ok := merged[quotes[i].Symbol+"USDT"]; ok {
			quotes[i].Change24h, _ = strconv.ParseFloat(s.PriceChangePercent, 64)
			quotes[i].PriceChange, _ = strconv.ParseFloat(s.PriceChange, 64)
			quotes[i].Volume24h, _ = strconv.ParseFloat(s.Volume, 64)
		}
	}
}

// GET /api/v3/ticker/24hr?symbol=BTCUSDT
func (c *Client) fetch24hStats(ctx context.Context, pair string) (dayStats, error) {
	u, err := c.baseURL.Parse("api/v3/ticker/24hr")
	if err != nil {
		return dayStats{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return dayStats{}, err
	}

	query := req.URL.Query()
	query.Add("symbol", pair)
	req.URL.RawQuery = query.Encode()

	s := dayStats{}
	if err := c.do(ctx, req, &s); err != nil {
		return dayStats{}, err
	}

	return s, nil
}

// AccountBalances fetches exchange account holdings through the
// signed endpoint. Callers fall back to demo balances on error.
// GET /api/v3/account?timestamp=...&signature=...
func (c *Client) AccountBalances(ctx context.Context) (map[string]float64, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("no secret key configured")
	}

	u, err := c.baseURL.Parse("api/v3/account")
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("timestamp=%d", time.Now().UnixMilli())

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(query))
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		u.String()+"?"+query+"&signature="+signature, nil)
	if err != nil {
		return nil, err
	}

	info := accountInfo{}
	if err := c.do(ctx, req, &info); err != nil {
		return nil, err
	}

	balances := make(map[string]float64)
	for _, b := range info.Balances {
		for _, asset := range accountAssets {
			if b.Asset != asset {
				continue
			}
			free, _ := strconv.ParseFloat(b.Free, 64)
			locked, _ := strconv.ParseFloat(b.Locked, 64)
			if total := free + locked; total > 0 {
				balances[b.Asset] = total
			}
		}
	}

	return balances, nil
}

type roundTripperFn func(*http.Request) (*http.Response, error)

func (fn roundTripperFn) RoundTrip(r *http.Request) (*http.Response, error) {
	return fn(r)
}

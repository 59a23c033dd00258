package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/VBK-2102/CryptoPay/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const baseURL string = "https://api.coingecko.com/api/v3/"

// coin ids in the order the catalog lists cryptos
var coinIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDT": "tether",
}

type coinPrice struct {
	USD       float64 `json:"usd"`
	INR       float64 `json:"inr"`
	USDChange float64 `json:"usd_24h_change"`
}

type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	rateLimiter *rate.Limiter // free tier allows roughly one call per 2s
}

func New() (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:     base,
		rateLimiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}, nil
}

// Name implements service.PriceFeed.
func (c *Client) Name() string { return model.SourceCoinGecko }

// FetchPrices implements service.PriceFeed.
// GET /simple/price?ids=bitcoin,ethereum,tether&vs_currencies=usd,inr&include_24hr_change=true
func (c *Client) FetchPrices(ctx context.Context) ([]model.PriceQuote, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := c.baseURL.Parse("simple/price")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	query := req.URL.Query()
	query.Add("ids", "bitcoin,ethereum,tether")
	query.Add("vs_currencies", "usd,inr")
	query.Add("include_24hr_change", "true")
	req.URL.RawQuery = query.Encode()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CryptoPaymentGateway/1.0")

	log.Debug().Str("url", req.URL.String()).Msg("fetching information from API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("coingecko API rate limited")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to fetch due to code: %d", resp.StatusCode)
	}

	prices := map[string]coinPrice{}
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	var quotes []model.PriceQuote
	for _, cur := range model.Catalog {
		if !model.IsCrypto(cur.Code) {
			continue
		}

		p, ok := prices[coinIDs[cur.Code]]
		if !ok {
			return nil, fmt.Errorf("no price for %s", cur.Code)
		}

		quotes = append(quotes, model.PriceQuote{
			Symbol:      cur.Code,
			Name:        cur.Name,
			PriceUSD:    p.USD,
			PriceINR:    p.INR,
			Change24h:   p.USDChange,
			Icon:        cur.Glyph,
			LastUpdated: now,
			Source:      model.SourceCoinGecko,
		})
	}

	return quotes, nil
}

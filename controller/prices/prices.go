package prices

import (
	"context"

	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/gofiber/fiber/v2"
)

// AccountSource is the signed exchange account endpoint. Nil or
// failing sources fall back to demo holdings.
type AccountSource interface {
	AccountBalances(ctx context.Context) (map[string]float64, error)
}

// demoHoldings stands in when no exchange credentials are configured.
var demoHoldings = map[string]float64{
	"BTC":  0.15432,
	"ETH":  2.8765,
	"USDT": 1250.50,
	"USDC": 500.00,
	"BNB":  12.345,
}

func New(cache storage.RateCache, account AccountSource) *Controller {
	return &Controller{cache: cache, account: account}
}

type Controller struct {
	cache   storage.RateCache
	account AccountSource
}

// Live godoc
//
//	@Summary	Current crypto prices with provenance
//	@Tags		crypto
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Router		/crypto/live-prices [get]
func (p *Controller) Live(c *fiber.Ctx) error {
	snapshot := p.cache.Snapshot(c.Context())
	status := p.cache.Status()

	var message string
	switch snapshot.Source {
	case model.SourceBinance:
		message = "Live prices from Binance"
	case model.SourceCoinGecko:
		message = "Live prices from CoinGecko"
	case model.SourceCached:
		message = "Serving cached prices, upstream unavailable"
	default:
		message = "Serving fallback prices, all upstreams unavailable"
	}

	statsAvailable := false
	for _, q := range snapshot.Quotes {
		if q.Volume24h > 0 {
			statsAvailable = true
			break
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, message, fiber.Map{
		"data":           snapshot.Quotes,
		"source":         snapshot.Source,
		"timestamp":      snapshot.FetchedAt,
		"statsAvailable": statsAvailable,
		"cached":         status.Cached,
		"cacheAge":       status.Age.Milliseconds(),
	})
}

// Prices godoc
//
//	@Summary	Current price snapshot
//	@Tags		crypto
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Router		/crypto/prices [get]
func (p *Controller) Prices(c *fiber.Ctx) error {
	snapshot := p.cache.Snapshot(c.Context())

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"data":      snapshot.Quotes,
		"source":    snapshot.Source,
		"timestamp": snapshot.FetchedAt,
	})
}

// WalletBalances godoc
//
//	@Summary	Exchange account holdings valued at current prices
//	@Tags		crypto
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Router		/crypto/wallet-balances [get]
func (p *Controller) WalletBalances(c *fiber.Ctx) error {
	source := model.SourceMock
	holdings := demoHoldings

	if p.account != nil {
		if fetched, err := p.account.AccountBalances(c.Context()); err == nil && len(fetched) > 0 {
			holdings = fetched
			source = model.SourceBinance
		}
	}

	snapshot := p.cache.Snapshot(c.Context())

	balances := fiber.Map{}
	var totalUSD, totalINR float64
	for asset, amount := range holdings {
		priceUSD, priceINR := 0.0, 0.0

		lookup := asset
		if asset == "USDC" {
			lookup = "USDT"
		}
		if q, ok := snapshot.Quote(lookup); ok {
			priceUSD, priceINR = q.PriceUSD, q.PriceINR
		}

		usdValue := amount * priceUSD
		inrValue := amount * priceINR
		totalUSD += usdValue
		totalINR += inrValue

		balances[asset] = fiber.Map{
			"balance":  amount,
			"usdValue": usdValue,
			"inrValue": inrValue,
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"balances":      balances,
		"totalUsdValue": totalUSD,
		"totalInrValue": totalINR,
		"source":        source,
	})
}

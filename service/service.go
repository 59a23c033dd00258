package service

import (
	"context"

	"github.com/VBK-2102/CryptoPay/model"
)

// PriceFeed describes one upstream source of crypto quotes. Feeds are
// tried in order by the rate cache; a feed that cannot serve (rate
// limited, network error, region restricted) returns an error and the
// next source takes over.
type PriceFeed interface {
	// Name is the provenance tag stamped on quotes from this feed.
	Name() string

	// FetchPrices returns quotes for every supported crypto. The
	// call must respect ctx and never outlive its deadline.
	FetchPrices(ctx context.Context) ([]model.PriceQuote, error)
}

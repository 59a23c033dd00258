package cache

import (
	"context"
	"sync"
	"time"

	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/service"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/eapache/go-resiliency/retrier"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTTL      = time.Minute
	upstreamTimeout = 5 * time.Second
)

// PriceCache keeps one snapshot of all supported crypto quotes and
// refreshes it at most once per TTL. Upstream failures cascade: next
// feed, then the stale snapshot, then a fixed fallback table. Callers
// arriving during a refresh share the in-flight result.
type PriceCache struct {
	lock        sync.RWMutex        // rw lock guards snapshot
	snapshot    model.PriceSnapshot // last successfully fetched quotes
	hasSnapshot bool
	ttl         time.Duration
	feeds       []service.PriceFeed // upstreams in priority order
	group       singleflight.Group  // collapses concurrent refreshes
	now         func() time.Time
}

func New(feeds ...service.PriceFeed) *PriceCache {
	return &PriceCache{
		ttl:   defaultTTL,
		feeds: feeds,
		now:   time.Now,
	}
}

// Snapshot implements storage.RateCache.
func (p *PriceCache) Snapshot(ctx context.Context) model.PriceSnapshot {
	p.lock.RLock()
	if p.fresh() {
		snap := p.snapshot
		p.lock.RUnlock()
		return snap
	}
	p.lock.RUnlock()

	v, _, _ := p.group.Do("prices", func() (interface{}, error) {
		return p.refresh(ctx), nil
	})

	return v.(model.PriceSnapshot)
}

// Quote implements storage.RateCache.
func (p *PriceCache) Quote(ctx context.Context, symbol string) (model.PriceQuote, error) {
	q, ok := p.Snapshot(ctx).Quote(symbol)
	if !ok {
		return model.PriceQuote{}, model.ErrUnknownCurrency
	}
	return q, nil
}

// Status implements storage.RateCache.
func (p *PriceCache) Status() storage.CacheStatus {
	p.lock.RLock()
	defer p.lock.RUnlock()

	if !p.hasSnapshot {
		return storage.CacheStatus{Source: "none"}
	}

	return storage.CacheStatus{
		Cached: true,
		Age:    p.now().Sub(p.snapshot.FetchedAt),
		Source: p.snapshot.Source,
	}
}

// fresh reports snapshot validity; callers hold at least a read lock.
func (p *PriceCache) fresh() bool {
	return p.hasSnapshot && p.now().Sub(p.snapshot.FetchedAt) < p.ttl
}

func (p *PriceCache) refresh(ctx context.Context) model.PriceSnapshot {
	// a refresh that finished while this caller queued is good enough
	p.lock.RLock()
	if p.fresh() {
		snap := p.snapshot
		p.lock.RUnlock()
		return snap
	}
	p.lock.RUnlock()

	for _, feed := range p.feeds {
		var quotes []model.PriceQuote

		fetch := retrier.New(retrier.ConstantBackoff(1, 200*time.Millisecond), nil)
		err := fetch.RunCtx(ctx, func(ctx context.Context) error {
			fetchCtx, cancelFn := context.WithTimeout(ctx, upstreamTimeout)
			defer cancelFn()

			var fetchErr error
			quotes, fetchErr = feed.FetchPrices(fetchCtx)
			return fetchErr
		})
		if err != nil {
			log.Error().Err(err).Str("feed", feed.Name()).Msg("unable to fetch prices, trying next source")
			continue
		}

		snap := model.PriceSnapshot{
			Quotes:    quotes,
			Source:    feed.Name(),
			FetchedAt: p.now(),
		}

		p.lock.Lock()
		p.snapshot = snap
		p.hasSnapshot = true
		p.lock.Unlock()

		return snap
	}

	// every upstream failed: serve the stale snapshot if one exists
	p.lock.RLock()
	defer p.lock.RUnlock()

	if p.hasSnapshot {
		log.Debug().Str("source", p.snapshot.Source).Msg("serving expired snapshot, upstreams unavailable")
		stale := p.snapshot
		stale.Source = model.SourceCached
		stale.Quotes = append([]model.PriceQuote(nil), p.snapshot.Quotes...)
		for i := range stale.Quotes {
			stale.Quotes[i].Source = model.SourceCached
		}
		return stale
	}

	log.Debug().Msg("no snapshot ever fetched, serving fallback table")
	return fallbackSnapshot(p.now())
}

// fallbackSnapshot is the fixed rate table used when no upstream has
// ever answered.
func fallbackSnapshot(now time.Time) model.PriceSnapshot {
	quotes := []model.PriceQuote{
		{Symbol: "BTC", Name: "Bitcoin", PriceUSD: 42000, PriceINR: 3507000, Icon: "₿"},
		{Symbol: "ETH", Name: "Ethereum", PriceUSD: 3200, PriceINR: 267200, Icon: "Ξ"},
		{Symbol: "USDT", Name: "Tether", PriceUSD: 1.0, PriceINR: 83.5, Icon: "₮"},
	}

	for i := range quotes {
		quotes[i].LastUpdated = now
		quotes[i].Source = model.SourceFallback
	}

	return model.PriceSnapshot{
		Quotes:    quotes,
		Source:    model.SourceFallback,
		FetchedAt: now,
	}
}

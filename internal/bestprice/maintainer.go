// Package bestprice maintains the per-commodity best buy/sell cache as
// listings stream in from the feed.
package bestprice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/svdwoude/edmarket-data/internal/config"
	"github.com/svdwoude/edmarket-data/internal/model"
	"github.com/svdwoude/edmarket-data/internal/store"
)

// shardCount bounds lock memory while keeping contention per commodity low.
const shardCount = 64

// Maintainer applies the best-price rules listing by listing. Updates for
// the same commodity are serialized through sharded mutexes so the
// read-decide-write on the cached pair stays atomic.
type Maintainer struct {
	store  store.Store
	logger *slog.Logger

	window      time.Duration
	demandFloor int
	supplyFloor int

	locks [shardCount]sync.Mutex

	now func() time.Time
}

// NewMaintainer creates a maintainer with thresholds from config.
func NewMaintainer(st store.Store, cfg config.ListingsConfig, logger *slog.Logger) *Maintainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintainer{
		store:       st,
		logger:      logger,
		window:      cfg.StalenessWindow,
		demandFloor: cfg.DemandUnitsFloor,
		supplyFloor: cfg.SupplyUnitsFloor,
		now:         time.Now,
	}
}

// ConsiderListing offers one listing to the cache and reports which sides
// changed.
//
// Best buy is the listing paying the most for the commodity; best sell is
// the one charging the least. A listing from the station already holding a
// side supersedes that side unconditionally, so a station backing off its
// price cannot keep a phantom best entry alive. Fleet carriers are never
// installed: their markets move too fast for a cached pointer to be useful.
func (m *Maintainer) ConsiderListing(ctx context.Context, l model.LiveListing, station *model.Station) (buyChanged, sellChanged bool, err error) {
	if !l.RecentlyModified(m.window, m.now()) {
		return false, false, nil
	}

	mu := &m.locks[uint64(l.CommodityID)%shardCount]
	mu.Lock()
	defer mu.Unlock()

	pair, err := m.store.BestPair(ctx, l.CommodityID)
	if err != nil {
		return false, false, err
	}

	if cand := m.considerBuy(pair.Buy, l, station); cand != nil {
		pair.Buy = cand
		buyChanged = true
	}
	if cand := m.considerSell(pair.Sell, l, station); cand != nil {
		pair.Sell = cand
		sellChanged = true
	}

	if !buyChanged && !sellChanged {
		return false, false, nil
	}

	if err := m.store.SetBestPair(ctx, l.CommodityID, pair); err != nil {
		return false, false, err
	}

	m.logger.Debug("best-price cache updated",
		"commodity_id", l.CommodityID,
		"buy_changed", buyChanged,
		"sell_changed", sellChanged,
	)
	return buyChanged, sellChanged, nil
}

// considerBuy returns the replacement best-buy snapshot, or nil to keep the
// current one.
func (m *Maintainer) considerBuy(cur *model.BestListing, l model.LiveListing, station *model.Station) *model.BestListing {
	if station.Fleet {
		return nil
	}

	// The incumbent station's own update always wins its slot, even when
	// the new price is worse: a stale price must not defend the slot.
	if cur != nil && cur.StationID == l.StationID {
		return model.BestFromLive(l)
	}

	if l.DemandUnits <= m.demandFloor || l.DemandPrice <= 0 {
		return nil
	}
	if cur != nil && !staleBest(cur, m.window, m.now()) && l.DemandPrice < cur.DemandPrice {
		return nil
	}
	return model.BestFromLive(l)
}

// considerSell mirrors considerBuy for the supply side.
func (m *Maintainer) considerSell(cur *model.BestListing, l model.LiveListing, station *model.Station) *model.BestListing {
	if station.Fleet {
		return nil
	}

	if cur != nil && cur.StationID == l.StationID {
		return model.BestFromLive(l)
	}

	if l.SupplyUnits <= m.supplyFloor || l.SupplyPrice <= 0 {
		return nil
	}
	if cur != nil && !staleBest(cur, m.window, m.now()) && l.SupplyPrice > cur.SupplyPrice {
		return nil
	}
	return model.BestFromLive(l)
}

// staleBest reports whether a cached side has aged out of the window and no
// longer defends its price.
func staleBest(b *model.BestListing, window time.Duration, now time.Time) bool {
	return now.Sub(b.Modified) >= window
}

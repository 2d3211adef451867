package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/svdwoude/edmarket-data/internal/bestprice"
	"github.com/svdwoude/edmarket-data/internal/config"
	"github.com/svdwoude/edmarket-data/internal/feed"
	"github.com/svdwoude/edmarket-data/internal/model"
	"github.com/svdwoude/edmarket-data/internal/reconcile"
	"github.com/svdwoude/edmarket-data/internal/refcache"
	"github.com/svdwoude/edmarket-data/internal/resolve"
	"github.com/svdwoude/edmarket-data/internal/store"
)

// minStationRefresh limits how often a fixed station's market is rewritten.
// Carriers are exempt: their markets are small and change at the owner's whim.
const minStationRefresh = 4 * time.Minute

// CommodityProcessor applies market snapshots: it resolves the station,
// reconciles listings against stored state, commits the result in one
// transaction and offers every written listing to the best-price cache.
type CommodityProcessor struct {
	*batchLoop

	logger   *slog.Logger
	cache    *refcache.Cache
	store    store.Store
	resolver *resolve.Resolver
	best     *bestprice.Maintainer
	deltaPct float64
}

// NewCommodityProcessor creates the market snapshot processor.
func NewCommodityProcessor(
	cfg config.ProcessorsConfig,
	listings config.ListingsConfig,
	cache *refcache.Cache,
	st store.Store,
	resolver *resolve.Resolver,
	best *bestprice.Maintainer,
	logger *slog.Logger,
) *CommodityProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &CommodityProcessor{
		logger:   logger,
		cache:    cache,
		store:    st,
		resolver: resolver,
		best:     best,
		deltaPct: listings.HistoricDeltaPct,
	}
	p.batchLoop = newBatchLoop(feed.SchemaCommodity,
		cfg.Commodity.MaxBatchSize, cfg.Commodity.MaxBatchTimeout, cfg.PollInterval, logger)
	p.batchLoop.flush = p.process
	return p
}

// process handles one drained batch. It also runs even when the batch is
// empty so station creation retries keep counting down wall time.
func (p *CommodityProcessor) process(ctx context.Context, batch []feed.Message, elapsed time.Duration) {
	if len(batch) == 0 && p.resolver.PendingRetries() == 0 {
		return
	}

	log := p.logger.With("batch_id", uuid.NewString())
	applied := 0

	for _, msg := range batch {
		if msg.Commodity == nil {
			continue
		}
		ok, err := p.snapshot(ctx, msg)
		if err != nil {
			log.Error("market snapshot failed",
				"station", msg.Commodity.StationName,
				"system", msg.Commodity.SystemName,
				"error", err,
			)
			continue
		}
		if ok {
			applied++
		}
	}

	for _, res := range p.resolver.TickRetries(ctx, elapsed) {
		listings := p.parseEntries(res.Station, res.Pending, res.Modified)
		if err := p.apply(ctx, res.Station, listings); err != nil {
			log.Error("retried station listings failed",
				"station", res.Station.Name,
				"error", err,
			)
			continue
		}
		applied++
	}

	if applied > 0 {
		log.Debug("commodity batch processed",
			"messages", len(batch),
			"applied", applied,
		)
	}
}

// snapshot applies one station market snapshot. It reports whether anything
// was written.
func (p *CommodityProcessor) snapshot(ctx context.Context, msg feed.Message) (bool, error) {
	cm := msg.Commodity

	system, ok := p.cache.System(cm.SystemName)
	if !ok {
		p.logger.Debug("dropping snapshot for unknown system",
			"system", cm.SystemName,
			"station", cm.StationName,
		)
		return false, nil
	}

	station, ok := p.cache.Station(cm.StationName, cm.SystemName)
	if !ok {
		station, err := p.resolver.CreateOrQueue(ctx, system, cm.StationName, cm.Commodities, msg.Timestamp)
		if err != nil || station == nil {
			return false, err
		}
		return true, p.apply(ctx, station, p.parseEntries(station, cm.Commodities, msg.Timestamp))
	}

	if station.Fleet && station.SystemID != system.ID {
		p.logger.Info("carrier moved systems",
			"station", station.Name,
			"system", system.Name,
		)
		station.SystemID = system.ID
		if err := p.store.UpdateStation(ctx, station); err != nil {
			return false, err
		}
	}

	if !station.Fleet && msg.Timestamp.Sub(station.Modified) <= minStationRefresh {
		return false, nil
	}

	return true, p.apply(ctx, station, p.parseEntries(station, cm.Commodities, msg.Timestamp))
}

// apply reconciles and commits one station's listings, then feeds the
// written rows to the best-price cache.
func (p *CommodityProcessor) apply(ctx context.Context, station *model.Station, listings []model.LiveListing) error {
	if len(listings) == 0 {
		return nil
	}

	existing, err := p.store.ListingsForStation(ctx, station.ID)
	if err != nil {
		return err
	}

	res := reconcile.Listings(station, existing, listings, p.deltaPct)
	if res.Empty() {
		return nil
	}

	if res.StationModified.After(station.Modified) {
		station.Modified = res.StationModified
	}

	if err := p.store.CommitListings(ctx, store.ListingBatch{
		Station:  station,
		New:      res.New,
		Updated:  res.Updated,
		Historic: res.Historic,
	}); err != nil {
		return err
	}

	for _, l := range res.New {
		p.considerBest(ctx, l, station)
	}
	for _, l := range res.Updated {
		p.considerBest(ctx, l, station)
	}
	return nil
}

func (p *CommodityProcessor) considerBest(ctx context.Context, l model.LiveListing, station *model.Station) {
	if _, _, err := p.best.ConsiderListing(ctx, l, station); err != nil {
		p.logger.Warn("best-price update failed",
			"commodity_id", l.CommodityID,
			"station", station.Name,
			"error", err,
		)
	}
}

// parseEntries converts wire commodity lines to live listings. Delisted
// entries and unresolvable commodity names are skipped.
func (p *CommodityProcessor) parseEntries(station *model.Station, entries []feed.CommodityEntry, modified time.Time) []model.LiveListing {
	out := make([]model.LiveListing, 0, len(entries))
	for _, e := range entries {
		if (e.SellPrice == 0 && e.BuyPrice == 0) || (e.Demand == 0 && e.Stock == 0) {
			continue
		}
		cm, ok := p.cache.Commodity(e.Name)
		if !ok {
			continue
		}
		out = append(out, model.LiveListing{
			CommodityID: cm.ID,
			StationID:   station.ID,
			DemandPrice: e.SellPrice,
			DemandUnits: e.Demand,
			SupplyPrice: e.BuyPrice,
			SupplyUnits: e.Stock,
			Modified:    modified,
			FromLive:    true,
		})
	}
	return out
}

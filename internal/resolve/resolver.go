// Package resolve turns feed station names into persisted stations,
// creating unknown ones from the external lookup and retrying creations
// that the external database has not caught up with yet.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/svdwoude/edmarket-data/internal/config"
	"github.com/svdwoude/edmarket-data/internal/feed"
	"github.com/svdwoude/edmarket-data/internal/lookup"
	"github.com/svdwoude/edmarket-data/internal/model"
	"github.com/svdwoude/edmarket-data/internal/refcache"
	"github.com/svdwoude/edmarket-data/internal/store"
)

// Resolver creates stations that appear on the feed before any database
// knows them. It is used by a single processor goroutine and needs no
// internal locking.
type Resolver struct {
	cache  *refcache.Cache
	store  store.Store
	lookup lookup.Client
	logger *slog.Logger

	attempts int
	timeout  time.Duration

	retries map[retryKey]*retryStation
}

type retryKey struct {
	system  string
	station string
}

// RetryResult is a station that finally came into existence, together with
// the market snapshot that was waiting for it.
type RetryResult struct {
	Station  *model.Station
	Pending  []feed.CommodityEntry
	Modified time.Time
}

// NewResolver creates a resolver.
func NewResolver(cache *refcache.Cache, st store.Store, lc lookup.Client, cfg config.RetryConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cache:    cache,
		store:    st,
		lookup:   lc,
		logger:   logger,
		attempts: cfg.Attempts,
		timeout:  cfg.Timeout,
		retries:  make(map[retryKey]*retryStation),
	}
}

// CreateOrQueue attempts to create the named station in the given system.
// On a lookup miss the creation is queued for retry and nil is returned;
// the pending entries will surface later through TickRetries. A station
// already waiting in the retry queue is not created twice.
func (r *Resolver) CreateOrQueue(ctx context.Context, system *model.System, stationName string, entries []feed.CommodityEntry, modified time.Time) (*model.Station, error) {
	key := retryKey{system: strings.ToLower(system.Name), station: strings.ToLower(stationName)}
	if _, waiting := r.retries[key]; waiting {
		return nil, nil
	}

	st, err := r.create(ctx, system, stationName, len(entries) > 0, modified)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}

	r.logger.Info("station unknown to lookup, queued for retry",
		"station", stationName,
		"system", system.Name,
	)
	r.retries[key] = &retryStation{
		system:    system,
		name:      stationName,
		pending:   entries,
		modified:  modified,
		retries:   r.attempts,
		timeout:   r.timeout,
		remaining: r.timeout,
	}
	return nil, nil
}

// PendingRetries returns the number of stations waiting for creation.
func (r *Resolver) PendingRetries() int {
	return len(r.retries)
}

// TickRetries advances retry countdowns by elapsed wall time and attempts
// the due ones. Stations that got created are returned with their pending
// listings; exhausted entries are dropped.
func (r *Resolver) TickRetries(ctx context.Context, elapsed time.Duration) []RetryResult {
	var results []RetryResult

	for key, rs := range r.retries {
		if !rs.due(elapsed) {
			continue
		}

		st := r.retry(ctx, rs)
		if st != nil {
			results = append(results, RetryResult{
				Station:  st,
				Pending:  rs.pending,
				Modified: rs.modified,
			})
		}
		if rs.retries <= 0 {
			delete(r.retries, key)
		}
	}
	return results
}

// retry runs one creation attempt for a queued station.
func (r *Resolver) retry(ctx context.Context, rs *retryStation) *model.Station {
	// Another path may have created the station while we waited; creating
	// it again would duplicate the row.
	if existing, ok := r.cache.Station(rs.name, rs.system.Name); ok {
		r.logger.Error("retried station already exists, dropping retry",
			"station", rs.name,
			"system", rs.system.Name,
		)
		rs.retries = 0
		return existing
	}

	st, err := r.create(ctx, rs.system, rs.name, len(rs.pending) > 0, rs.modified)
	if err != nil {
		r.logger.Warn("station retry errored",
			"station", rs.name,
			"system", rs.system.Name,
			"error", err,
		)
	}
	if st != nil {
		rs.retries = 0
		return st
	}

	rs.retries--
	rs.remaining = rs.timeout
	// Last attempt gets extra slack: the lookup's data source may simply
	// not have seen the station yet.
	if rs.retries == 1 {
		rs.remaining *= 2
	}
	return nil
}

// create builds and persists a station. Carriers are synthesized locally;
// fixed stations come from the external lookup. Returns nil without error
// when the lookup does not know the station.
func (r *Resolver) create(ctx context.Context, system *model.System, stationName string, hasListings bool, modified time.Time) (*model.Station, error) {
	var st *model.Station

	if model.IsCarrierName(stationName) {
		st = &model.Station{
			Name:     strings.ToUpper(stationName),
			SystemID: system.ID,
			PadSize:  model.PadLarge,
			Market:   hasListings,
			Rearm:    true,
			Refuel:   true,
			Repair:   true,
			Fleet:    true,
			Modified: modified,
		}
	} else {
		data, err := r.lookup.FindStation(ctx, stationName, system.Name)
		if err != nil {
			return nil, fmt.Errorf("lookup station %s in %s: %w", stationName, system.Name, err)
		}
		if data == nil {
			return nil, nil
		}
		st = &model.Station{
			Name:        data.Name,
			SystemID:    system.ID,
			LsFromStar:  data.LsFromStar,
			PadSize:     data.PadSize,
			Market:      data.Market,
			BlackMarket: data.BlackMarket,
			Shipyard:    data.Shipyard,
			Outfitting:  data.Outfitting,
			Rearm:       data.Rearm,
			Refuel:      data.Refuel,
			Repair:      data.Repair,
			Planetary:   data.Planetary,
			Fleet:       data.Fleet,
			Odyssey:     data.Odyssey,
			Modified:    data.Modified,
		}
	}

	if err := r.store.InsertStation(ctx, st); err != nil {
		return nil, err
	}
	r.cache.AddStation(st, system.Name)

	r.logger.Info("created station", "station", st.Name, "system", system.Name, "fleet", st.Fleet)
	return st, nil
}

// retryStation tracks one pending creation.
type retryStation struct {
	system   *model.System
	name     string
	pending  []feed.CommodityEntry
	modified time.Time

	retries   int
	timeout   time.Duration
	remaining time.Duration
}

// due reduces the countdown by elapsed and reports whether a retry is due.
func (rs *retryStation) due(elapsed time.Duration) bool {
	rs.remaining -= elapsed
	return rs.remaining <= 0
}

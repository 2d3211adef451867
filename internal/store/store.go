package store

import (
	"context"

	"github.com/svdwoude/edmarket-data/internal/model"
)

// Store is the persistence boundary for market reference data and listings.
type Store interface {
	// Reference loads, used to warm the in-memory cache at startup.
	Commodities(ctx context.Context) ([]model.Commodity, error)
	Systems(ctx context.Context) ([]model.System, error)
	Stations(ctx context.Context) ([]model.Station, error)
	Factions(ctx context.Context) ([]model.Faction, error)

	// ListingsForStation returns the current live listings of one station.
	ListingsForStation(ctx context.Context, stationID int64) ([]model.LiveListing, error)

	// InsertStation persists a new station and assigns its ID.
	InsertStation(ctx context.Context, st *model.Station) error

	// UpdateStation persists station mutations, including a fleet carrier
	// moving to another system.
	UpdateStation(ctx context.Context, st *model.Station) error

	// InsertFaction persists a new minor faction and assigns its ID.
	InsertFaction(ctx context.Context, f *model.Faction) error

	// UpdateSystem persists demographic changes discovered from journal events.
	UpdateSystem(ctx context.Context, sys *model.System) error

	// CommitListings applies one reconciled station update atomically: new
	// and changed listings, historic snapshots, and the station's Modified
	// marker all land in a single transaction.
	CommitListings(ctx context.Context, batch ListingBatch) error

	// BestPair returns the cached best buy/sell pair for a commodity. A
	// commodity with no cached pair yet returns the zero value, not an error.
	BestPair(ctx context.Context, commodityID int64) (model.BestPair, error)

	// SetBestPair replaces the cached best buy/sell pair for a commodity.
	SetBestPair(ctx context.Context, commodityID int64, pair model.BestPair) error
}

// ListingBatch is one station's reconciled market update.
type ListingBatch struct {
	Station  *model.Station
	New      []model.LiveListing
	Updated  []model.LiveListing
	Historic []model.HistoricListing
}

// Empty reports whether the batch carries no listing work at all.
func (b ListingBatch) Empty() bool {
	return len(b.New) == 0 && len(b.Updated) == 0 && len(b.Historic) == 0
}

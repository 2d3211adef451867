package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svdwoude/edmarket-data/internal/model"
)

// pgxStore implements Store on a PostgreSQL pool.
type pgxStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgx creates a Store backed by the given pool.
func NewPgx(db *pgxpool.Pool, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &pgxStore{db: db, logger: logger}
}

func (s *pgxStore) Commodities(ctx context.Context) ([]model.Commodity, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, category, average_price, fdev_id
		FROM commodities
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query commodities: %w", err)
	}
	defer rows.Close()

	var out []model.Commodity
	for rows.Next() {
		var c model.Commodity
		if err := rows.Scan(&c.ID, &c.Name, &c.Category, &c.AveragePrice, &c.FDevID); err != nil {
			return nil, fmt.Errorf("scan commodity: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *pgxStore) Systems(ctx context.Context) ([]model.System, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, x, y, z, population, government, allegiance, security,
		       COALESCE(controlling_faction_id, 0)
		FROM systems
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query systems: %w", err)
	}
	defer rows.Close()

	var out []model.System
	for rows.Next() {
		var sys model.System
		err := rows.Scan(&sys.ID, &sys.Name, &sys.X, &sys.Y, &sys.Z, &sys.Population,
			&sys.Government, &sys.Allegiance, &sys.Security, &sys.ControllingFactionID)
		if err != nil {
			return nil, fmt.Errorf("scan system: %w", err)
		}
		out = append(out, sys)
	}
	return out, rows.Err()
}

func (s *pgxStore) Stations(ctx context.Context) ([]model.Station, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, system_id, ls_from_star, pad_size,
		       market, black_market, shipyard, outfitting, rearm, refuel, repair,
		       planetary, fleet, odyssey, modified
		FROM stations
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	var out []model.Station
	for rows.Next() {
		var st model.Station
		err := rows.Scan(&st.ID, &st.Name, &st.SystemID, &st.LsFromStar, &st.PadSize,
			&st.Market, &st.BlackMarket, &st.Shipyard, &st.Outfitting,
			&st.Rearm, &st.Refuel, &st.Repair,
			&st.Planetary, &st.Fleet, &st.Odyssey, &st.Modified)
		if err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *pgxStore) Factions(ctx context.Context) ([]model.Faction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, government, allegiance
		FROM factions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query factions: %w", err)
	}
	defer rows.Close()

	var out []model.Faction
	for rows.Next() {
		var f model.Faction
		if err := rows.Scan(&f.ID, &f.Name, &f.Government, &f.Allegiance); err != nil {
			return nil, fmt.Errorf("scan faction: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *pgxStore) ListingsForStation(ctx context.Context, stationID int64) ([]model.LiveListing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, commodity_id, station_id,
		       demand_price, demand_units, supply_price, supply_units,
		       modified, from_live
		FROM live_listings
		WHERE station_id = $1
	`, stationID)
	if err != nil {
		return nil, fmt.Errorf("query listings for station %d: %w", stationID, err)
	}
	defer rows.Close()

	var out []model.LiveListing
	for rows.Next() {
		var l model.LiveListing
		err := rows.Scan(&l.ID, &l.CommodityID, &l.StationID,
			&l.DemandPrice, &l.DemandUnits, &l.SupplyPrice, &l.SupplyUnits,
			&l.Modified, &l.FromLive)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *pgxStore) InsertStation(ctx context.Context, st *model.Station) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO stations (name, system_id, ls_from_star, pad_size,
			market, black_market, shipyard, outfitting, rearm, refuel, repair,
			planetary, fleet, odyssey, modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`, st.Name, st.SystemID, st.LsFromStar, st.PadSize,
		st.Market, st.BlackMarket, st.Shipyard, st.Outfitting,
		st.Rearm, st.Refuel, st.Repair,
		st.Planetary, st.Fleet, st.Odyssey, st.Modified).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("insert station %s: %w", st.Name, err)
	}
	return nil
}

func (s *pgxStore) UpdateStation(ctx context.Context, st *model.Station) error {
	if st.ID == 0 {
		return errors.New("update station: missing id")
	}
	_, err := s.db.Exec(ctx, `
		UPDATE stations
		SET name = $2, system_id = $3, ls_from_star = $4, pad_size = $5,
		    market = $6, black_market = $7, shipyard = $8, outfitting = $9,
		    rearm = $10, refuel = $11, repair = $12,
		    planetary = $13, fleet = $14, odyssey = $15, modified = $16
		WHERE id = $1
	`, st.ID, st.Name, st.SystemID, st.LsFromStar, st.PadSize,
		st.Market, st.BlackMarket, st.Shipyard, st.Outfitting,
		st.Rearm, st.Refuel, st.Repair,
		st.Planetary, st.Fleet, st.Odyssey, st.Modified)
	if err != nil {
		return fmt.Errorf("update station %d: %w", st.ID, err)
	}
	return nil
}

func (s *pgxStore) InsertFaction(ctx context.Context, f *model.Faction) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO factions (name, government, allegiance)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET government = $2, allegiance = $3
		RETURNING id
	`, f.Name, f.Government, f.Allegiance).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert faction %s: %w", f.Name, err)
	}
	return nil
}

func (s *pgxStore) UpdateSystem(ctx context.Context, sys *model.System) error {
	if sys.ID == 0 {
		return errors.New("update system: missing id")
	}
	var factionID any
	if sys.ControllingFactionID != 0 {
		factionID = sys.ControllingFactionID
	}
	_, err := s.db.Exec(ctx, `
		UPDATE systems
		SET population = $2, government = $3, allegiance = $4, security = $5,
		    controlling_faction_id = $6
		WHERE id = $1
	`, sys.ID, sys.Population, sys.Government, sys.Allegiance, sys.Security, factionID)
	if err != nil {
		return fmt.Errorf("update system %d: %w", sys.ID, err)
	}
	return nil
}

// CommitListings applies one station's reconciled update in a single
// transaction. Partial station updates must never become visible, so the
// station row, new listings, changed listings, and historic snapshots all
// commit or roll back together.
func (s *pgxStore) CommitListings(ctx context.Context, b ListingBatch) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin listings tx: %w", err)
	}
	defer tx.Rollback(ctx)

	start := time.Now()

	batch := &pgx.Batch{}
	for _, l := range b.New {
		batch.Queue(`
			INSERT INTO live_listings (commodity_id, station_id,
				demand_price, demand_units, supply_price, supply_units,
				modified, from_live)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (commodity_id, station_id) DO UPDATE
			SET demand_price = $3, demand_units = $4,
			    supply_price = $5, supply_units = $6,
			    modified = $7, from_live = $8
		`, l.CommodityID, l.StationID,
			l.DemandPrice, l.DemandUnits, l.SupplyPrice, l.SupplyUnits,
			l.Modified, l.FromLive)
	}
	for _, l := range b.Updated {
		batch.Queue(`
			UPDATE live_listings
			SET demand_price = $3, demand_units = $4,
			    supply_price = $5, supply_units = $6,
			    modified = $7, from_live = $8
			WHERE commodity_id = $1 AND station_id = $2
		`, l.CommodityID, l.StationID,
			l.DemandPrice, l.DemandUnits, l.SupplyPrice, l.SupplyUnits,
			l.Modified, l.FromLive)
	}
	for _, h := range b.Historic {
		batch.Queue(`
			INSERT INTO historic_listings (commodity_id, station_id,
				demand_price, demand_units, supply_price, supply_units, recorded)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, h.CommodityID, h.StationID,
			h.DemandPrice, h.DemandUnits, h.SupplyPrice, h.SupplyUnits, h.Recorded)
	}
	if b.Station != nil {
		batch.Queue(`UPDATE stations SET modified = $2 WHERE id = $1`,
			b.Station.ID, b.Station.Modified)
	}

	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("apply listings batch: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("close listings batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit listings tx: %w", err)
	}

	s.logger.Debug("committed station listings",
		"new", len(b.New),
		"updated", len(b.Updated),
		"historic", len(b.Historic),
		"duration", time.Since(start),
	)
	return nil
}

func (s *pgxStore) BestPair(ctx context.Context, commodityID int64) (model.BestPair, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT value FROM best_listings WHERE commodity_id = $1
	`, commodityID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.BestPair{}, nil
	}
	if err != nil {
		return model.BestPair{}, fmt.Errorf("query best pair %d: %w", commodityID, err)
	}

	var pair model.BestPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return model.BestPair{}, fmt.Errorf("decode best pair %d: %w", commodityID, err)
	}
	return pair, nil
}

func (s *pgxStore) SetBestPair(ctx context.Context, commodityID int64, pair model.BestPair) error {
	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encode best pair %d: %w", commodityID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO best_listings (commodity_id, value)
		VALUES ($1, $2)
		ON CONFLICT (commodity_id) DO UPDATE SET value = $2
	`, commodityID, raw)
	if err != nil {
		return fmt.Errorf("set best pair %d: %w", commodityID, err)
	}
	return nil
}

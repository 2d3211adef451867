package model

import (
	"fmt"
	"math"
	"time"
)

// -----------------------------------------------------------------------------
// Reference Types
// -----------------------------------------------------------------------------

// Commodity is a tradeable good.
type Commodity struct {
	ID           int64  // Primary key
	Name         string // Display name (e.g., "Gold")
	Category     string // Category (e.g., "Metals")
	AveragePrice int    // Galactic average reference price, credits
	FDevID       int64  // External catalog id; 0 when unknown
}

// System is a star system.
type System struct {
	ID                   int64   // Primary key
	Name                 string  // Display name (e.g., "Sol")
	X, Y, Z              float64 // Galactic coordinates, light years
	Population           int64
	Government           string
	Allegiance           string
	Security             string
	ControllingFactionID int64 // 0 when unknown
}

// DistanceTo returns the Euclidean distance between two systems in light years.
func (s System) DistanceTo(other System) float64 {
	dx := s.X - other.X
	dy := s.Y - other.Y
	dz := s.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// PadSize values for Station.PadSize.
const (
	PadSmall  = "S"
	PadMedium = "M"
	PadLarge  = "L"
)

// Station is a dockable market location inside a system.
//
// Identity semantics differ by kind: fixed stations are uniquely keyed by
// (name, system); fleet carriers are keyed by name alone and may change
// owning system over time.
type Station struct {
	ID         int64  // Primary key
	Name       string // Display name
	SystemID   int64  // Owning system
	LsFromStar int    // Distance from the arrival star, light seconds
	PadSize    string // "S", "M" or "L"

	// Service flags.
	Market      bool
	BlackMarket bool
	Shipyard    bool
	Outfitting  bool
	Rearm       bool
	Refuel      bool
	Repair      bool

	// Kind flags.
	Planetary bool
	Fleet     bool // mobile station ("fleet carrier")
	Odyssey   bool

	Modified time.Time // Last market update seen for this station
}

// String implements fmt.Stringer for log output.
func (s Station) String() string {
	return fmt.Sprintf("%s (station %d, system %d)", s.Name, s.ID, s.SystemID)
}

// Faction is a minor faction that can control systems.
type Faction struct {
	ID         int64
	Name       string
	Government string
	Allegiance string
	IsPlayer   bool
}

// -----------------------------------------------------------------------------
// Listings
// -----------------------------------------------------------------------------

// LiveListing is the current price/quantity snapshot for one commodity at one
// station. At most one live listing exists per (station, commodity).
//
// Demand side is what the station pays when buying from a trader (sellPrice on
// the wire); supply side is what the station charges when selling (buyPrice).
type LiveListing struct {
	ID          int64
	CommodityID int64
	StationID   int64
	DemandPrice int
	DemandUnits int
	SupplyPrice int
	SupplyUnits int
	Modified    time.Time
	FromLive    bool // true when sourced from the live feed rather than a bulk import
}

// RecentlyModified reports whether the listing was updated within window of now.
func (l LiveListing) RecentlyModified(window time.Duration, now time.Time) bool {
	return now.Sub(l.Modified) < window
}

// HistoricListing is an append-only snapshot of a live listing taken at the
// moment a significant price change superseded it.
type HistoricListing struct {
	ID          int64
	CommodityID int64
	StationID   int64
	DemandPrice int
	DemandUnits int
	SupplyPrice int
	SupplyUnits int
	Recorded    time.Time // the superseded listing's Modified timestamp
}

// HistoricFromLive snapshots the pre-update state of a live listing.
func HistoricFromLive(l LiveListing) HistoricListing {
	return HistoricListing{
		CommodityID: l.CommodityID,
		StationID:   l.StationID,
		DemandPrice: l.DemandPrice,
		DemandUnits: l.DemandUnits,
		SupplyPrice: l.SupplyPrice,
		SupplyUnits: l.SupplyUnits,
		Recorded:    l.Modified,
	}
}

// -----------------------------------------------------------------------------
// Best-price cache
// -----------------------------------------------------------------------------

// BestListing is a value snapshot of a live listing held in the best-price
// cache. It is denormalized so cache reads need no joins.
type BestListing struct {
	ListingID   int64     `json:"listing_id"`
	CommodityID int64     `json:"commodity_id"`
	StationID   int64     `json:"station_id"`
	DemandPrice int       `json:"demand_price"`
	DemandUnits int       `json:"demand_units"`
	SupplyPrice int       `json:"supply_price"`
	SupplyUnits int       `json:"supply_units"`
	Modified    time.Time `json:"modified"`
}

// BestPair holds the current best buy and best sell listing for one commodity.
// Either side may be nil when no eligible listing exists.
type BestPair struct {
	Buy  *BestListing `json:"buy,omitempty"`
	Sell *BestListing `json:"sell,omitempty"`
}

// BestFromLive converts a live listing to its cache snapshot form.
func BestFromLive(l LiveListing) *BestListing {
	return &BestListing{
		ListingID:   l.ID,
		CommodityID: l.CommodityID,
		StationID:   l.StationID,
		DemandPrice: l.DemandPrice,
		DemandUnits: l.DemandUnits,
		SupplyPrice: l.SupplyPrice,
		SupplyUnits: l.SupplyUnits,
		Modified:    l.Modified,
	}
}

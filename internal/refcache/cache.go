package refcache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/svdwoude/edmarket-data/internal/model"
	"github.com/svdwoude/edmarket-data/internal/store"
)

// stationKey identifies a fixed station. Fleet carriers are keyed by name
// alone because they move between systems.
type stationKey struct {
	name   string
	system string
}

// Cache is the in-memory reference lookup used on the hot ingestion path.
// All lookups are case-insensitive. It is safe for concurrent use.
type Cache struct {
	logger *slog.Logger

	mu          sync.RWMutex
	commodities map[string]*model.Commodity // normalized name
	altNames    map[string]string           // normalized alt name -> normalized canonical name
	systems     map[string]*model.System    // lowercased name
	stations    map[stationKey]*model.Station
	carriers    map[string]*model.Station // lowercased carrier name
	factions    map[string]*model.Faction // lowercased name

	// unknownSeen records commodity names already reported, so each unknown
	// name is logged once per process.
	unknownSeen map[string]struct{}
}

// New creates an empty cache.
func New(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		logger:      logger,
		commodities: make(map[string]*model.Commodity),
		altNames:    make(map[string]string),
		systems:     make(map[string]*model.System),
		stations:    make(map[stationKey]*model.Station),
		carriers:    make(map[string]*model.Station),
		factions:    make(map[string]*model.Faction),
		unknownSeen: make(map[string]struct{}),
	}
}

// Load warms the cache from the store. Existing entries are replaced.
func (c *Cache) Load(ctx context.Context, st store.Store) error {
	commodities, err := st.Commodities(ctx)
	if err != nil {
		return fmt.Errorf("load commodities: %w", err)
	}
	systems, err := st.Systems(ctx)
	if err != nil {
		return fmt.Errorf("load systems: %w", err)
	}
	stations, err := st.Stations(ctx)
	if err != nil {
		return fmt.Errorf("load stations: %w", err)
	}
	factions, err := st.Factions(ctx)
	if err != nil {
		return fmt.Errorf("load factions: %w", err)
	}

	systemNames := make(map[int64]string, len(systems))
	for _, sys := range systems {
		systemNames[sys.ID] = sys.Name
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.commodities = make(map[string]*model.Commodity, len(commodities))
	for i := range commodities {
		cm := &commodities[i]
		c.commodities[model.NormalizeName(cm.Name)] = cm
	}

	c.systems = make(map[string]*model.System, len(systems))
	for i := range systems {
		sys := &systems[i]
		c.systems[strings.ToLower(sys.Name)] = sys
	}

	c.stations = make(map[stationKey]*model.Station, len(stations))
	c.carriers = make(map[string]*model.Station)
	for i := range stations {
		st := &stations[i]
		c.addStationLocked(st, systemNames[st.SystemID])
	}

	c.factions = make(map[string]*model.Faction, len(factions))
	for i := range factions {
		f := &factions[i]
		c.factions[strings.ToLower(f.Name)] = f
	}

	c.logger.Info("reference cache loaded",
		"commodities", len(commodities),
		"systems", len(systems),
		"stations", len(stations),
		"factions", len(factions),
	)
	return nil
}

// SetAltNames installs the alternative commodity name table. Keys and values
// are normalized before storage.
func (c *Cache) SetAltNames(names map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.altNames = make(map[string]string, len(names))
	for alt, canonical := range names {
		c.altNames[model.NormalizeName(alt)] = model.NormalizeName(canonical)
	}
}

// Commodity resolves a feed commodity name. Resolution tries, in order:
// the normalized name itself, the alternative-name table, and the
// alternative-name table with a plural "s" appended. Unknown names are
// logged once per process and reported as a miss.
func (c *Cache) Commodity(name string) (*model.Commodity, bool) {
	norm := model.NormalizeName(name)

	c.mu.RLock()
	cm, ok := c.commodities[norm]
	if !ok {
		if canonical, found := c.altNames[norm]; found {
			cm, ok = c.commodities[canonical]
		}
	}
	if !ok {
		if canonical, found := c.altNames[norm+"s"]; found {
			cm, ok = c.commodities[canonical]
		}
	}
	c.mu.RUnlock()

	if !ok {
		c.reportUnknown(name, norm)
		return nil, false
	}
	return cm, true
}

func (c *Cache) reportUnknown(name, norm string) {
	c.mu.Lock()
	_, seen := c.unknownSeen[norm]
	if !seen {
		c.unknownSeen[norm] = struct{}{}
	}
	c.mu.Unlock()

	if !seen {
		c.logger.Warn("unknown commodity name", "name", name)
	}
}

// System looks up a system by name.
func (c *Cache) System(name string) (*model.System, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sys, ok := c.systems[strings.ToLower(name)]
	return sys, ok
}

// AddSystem installs a newly persisted system.
func (c *Cache) AddSystem(sys *model.System) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systems[strings.ToLower(sys.Name)] = sys
}

// Station looks up a station. Fixed stations match on (name, system); fleet
// carriers match on name alone regardless of the system they were last seen
// in.
func (c *Cache) Station(name, system string) (*model.Station, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if model.IsCarrierName(name) {
		st, ok := c.carriers[strings.ToLower(name)]
		return st, ok
	}
	st, ok := c.stations[stationKey{
		name:   strings.ToLower(name),
		system: strings.ToLower(system),
	}]
	return st, ok
}

// AddStation installs a newly persisted station under the given system name.
func (c *Cache) AddStation(st *model.Station, system string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addStationLocked(st, system)
}

func (c *Cache) addStationLocked(st *model.Station, system string) {
	if st.Fleet || model.IsCarrierName(st.Name) {
		c.carriers[strings.ToLower(st.Name)] = st
		return
	}
	c.stations[stationKey{
		name:   strings.ToLower(st.Name),
		system: strings.ToLower(system),
	}] = st
}

// Faction looks up a minor faction by name.
func (c *Cache) Faction(name string) (*model.Faction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factions[strings.ToLower(name)]
	return f, ok
}

// AddFaction installs a newly persisted faction.
func (c *Cache) AddFaction(f *model.Faction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factions[strings.ToLower(f.Name)] = f
}

// Stats returns current cache sizes for startup logging.
func (c *Cache) Stats() (commodities, systems, stations, factions int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.commodities), len(c.systems), len(c.stations) + len(c.carriers), len(c.factions)
}

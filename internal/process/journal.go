package process

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/svdwoude/edmarket-data/internal/config"
	"github.com/svdwoude/edmarket-data/internal/feed"
	"github.com/svdwoude/edmarket-data/internal/model"
	"github.com/svdwoude/edmarket-data/internal/refcache"
	"github.com/svdwoude/edmarket-data/internal/store"
)

// JournalProcessor applies system demographics from player journal events:
// population, security, government, allegiance and the controlling faction.
// Unknown factions are created on first sight.
type JournalProcessor struct {
	*batchLoop

	logger *slog.Logger
	cache  *refcache.Cache
	store  store.Store
}

// NewJournalProcessor creates the demographics processor.
func NewJournalProcessor(cfg config.ProcessorsConfig, cache *refcache.Cache, st store.Store, logger *slog.Logger) *JournalProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &JournalProcessor{
		logger: logger,
		cache:  cache,
		store:  st,
	}
	p.batchLoop = newBatchLoop(feed.SchemaJournal,
		cfg.Journal.MaxBatchSize, cfg.Journal.MaxBatchTimeout, cfg.PollInterval, logger)
	p.batchLoop.flush = p.process
	return p
}

func (p *JournalProcessor) process(ctx context.Context, batch []feed.Message, _ time.Duration) {
	if len(batch) == 0 {
		return
	}

	log := p.logger.With("batch_id", uuid.NewString())

	// Several messages in a batch may touch the same system; collapse them
	// into one update per system.
	changed := make(map[int64]*model.System)
	for _, msg := range batch {
		if msg.Journal == nil {
			continue
		}
		sys, err := p.event(ctx, msg.Journal)
		if err != nil {
			log.Error("journal event failed",
				"system", msg.Journal.StarSystem,
				"error", err,
			)
			continue
		}
		if sys != nil {
			changed[sys.ID] = sys
		}
	}

	for _, sys := range changed {
		if err := p.store.UpdateSystem(ctx, sys); err != nil {
			log.Error("system update failed", "system", sys.Name, "error", err)
		}
	}

	if len(changed) > 0 {
		log.Debug("journal batch processed",
			"messages", len(batch),
			"systems_updated", len(changed),
		)
	}
}

// event applies one journal message and returns the system when its
// demographics changed.
func (p *JournalProcessor) event(ctx context.Context, jm *feed.JournalMessage) (*model.System, error) {
	if jm.BodyType != "Star" && jm.BodyType != "Station" {
		return nil, nil
	}

	system, ok := p.cache.System(jm.StarSystem)
	if !ok {
		p.logger.Debug("journal event for unknown system", "system", jm.StarSystem)
		return nil, nil
	}

	// A star scan without population data is suspect; skip rather than
	// zeroing a populated system.
	if jm.BodyType == "Star" && (jm.Population == nil || *jm.Population == 0) {
		p.logger.Warn("journal star event without population, ignoring",
			"system", system.Name)
		return nil, nil
	}

	changed := false

	if jm.Population != nil && system.Population != *jm.Population {
		system.Population = *jm.Population
		changed = true
	}

	if sec := parseSecurity(jm.SystemSecurity); sec != "" && system.Security != sec {
		system.Security = sec
		changed = true
	}

	government := parseGovernment(jm.SystemGovernment)
	if government != "" && system.Government != government {
		system.Government = government
		changed = true
	}
	if jm.SystemAllegiance != "" && system.Allegiance != jm.SystemAllegiance {
		system.Allegiance = jm.SystemAllegiance
		changed = true
	}

	for _, jf := range jm.Factions {
		faction, err := p.ensureFaction(ctx, jf)
		if err != nil {
			return nil, err
		}
		if jf.Name == jm.SystemFaction.Name && system.ControllingFactionID != faction.ID {
			system.ControllingFactionID = faction.ID
			changed = true
		}
	}

	if !changed {
		return nil, nil
	}
	return system, nil
}

// ensureFaction returns the named faction, creating it on first sight.
func (p *JournalProcessor) ensureFaction(ctx context.Context, jf feed.JournalFaction) (*model.Faction, error) {
	if f, ok := p.cache.Faction(jf.Name); ok {
		return f, nil
	}

	f := &model.Faction{
		Name:       jf.Name,
		Government: jf.Government,
		Allegiance: jf.Allegiance,
	}
	if err := p.store.InsertFaction(ctx, f); err != nil {
		return nil, err
	}
	p.cache.AddFaction(f)

	p.logger.Info("created faction", "faction", f.Name, "allegiance", f.Allegiance)
	return f, nil
}

// parseSecurity extracts the security level from journal localization keys,
// e.g. "$SYSTEM_SECURITY_high;" -> "high". Anarchy systems arrive under a
// galaxy-map key instead (the lowercase l is the game's own typo).
func parseSecurity(s string) string {
	if s == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(s, "$GAlAXY_MAP_INFO_state_"); ok {
		return strings.TrimSuffix(rest, ";")
	}
	if rest, ok := strings.CutPrefix(s, "$SYSTEM_SECURITY_"); ok {
		return strings.TrimSuffix(rest, ";")
	}
	return strings.TrimSuffix(s, ";")
}

// parseGovernment extracts the government name from localization keys,
// e.g. "$government_Democracy;" -> "Democracy".
func parseGovernment(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "_")
	return strings.TrimSuffix(parts[len(parts)-1], ";")
}

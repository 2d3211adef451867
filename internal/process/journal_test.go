package process

import (
	"context"
	"testing"
	"time"

	"github.com/svdwoude/edmarket-data/internal/feed"
	"github.com/svdwoude/edmarket-data/internal/model"
	"github.com/svdwoude/edmarket-data/internal/refcache"
)

func newJournalHarness(t *testing.T, fs *fakeStore) (*JournalProcessor, *refcache.Cache) {
	t.Helper()

	cache := refcache.New(discardLogger())
	if err := cache.Load(context.Background(), fs); err != nil {
		t.Fatal(err)
	}
	return NewJournalProcessor(processorsConfig(), cache, fs, discardLogger()), cache
}

func journalMessage(jm feed.JournalMessage) feed.Message {
	return feed.Message{
		Schema:    feed.SchemaJournal,
		Journal:   &jm,
		Timestamp: time.Now().UTC(),
	}
}

func pop(n int64) *int64 { return &n }

func TestJournalUpdatesDemographics(t *testing.T) {
	fs := newFakeStore()
	fs.systems = []model.System{{ID: 5, Name: "Sol", Population: 1}}
	p, cache := newJournalHarness(t, fs)

	p.process(context.Background(), []feed.Message{
		journalMessage(feed.JournalMessage{
			StarSystem:       "Sol",
			BodyType:         "Star",
			Population:       pop(22780871),
			SystemSecurity:   "$SYSTEM_SECURITY_high;",
			SystemGovernment: "$government_Democracy;",
			SystemAllegiance: "Federation",
			SystemFaction:    feed.SystemFaction{Name: "Mother Gaia"},
			Factions: []feed.JournalFaction{
				{Name: "Mother Gaia", Government: "Democracy", Allegiance: "Federation", Influence: 0.5},
				{Name: "Sol Workers' Party", Government: "Communism", Allegiance: "Federation", Influence: 0.2},
			},
		}),
	}, time.Second)

	if len(fs.systemUpdates) != 1 {
		t.Fatalf("system updates = %d, want 1", len(fs.systemUpdates))
	}
	sys := fs.systemUpdates[0]
	if sys.Population != 22780871 || sys.Security != "high" ||
		sys.Government != "Democracy" || sys.Allegiance != "Federation" {
		t.Errorf("system = %+v", sys)
	}

	// Both unseen factions get created; the controlling one is linked.
	if len(fs.newFactions) != 2 {
		t.Fatalf("created factions = %d, want 2", len(fs.newFactions))
	}
	controlling, ok := cache.Faction("Mother Gaia")
	if !ok {
		t.Fatal("controlling faction missing from cache")
	}
	if sys.ControllingFactionID != controlling.ID {
		t.Errorf("ControllingFactionID = %d, want %d", sys.ControllingFactionID, controlling.ID)
	}
}

func TestJournalSkipsOtherBodyTypes(t *testing.T) {
	fs := newFakeStore()
	fs.systems = []model.System{{ID: 5, Name: "Sol"}}
	p, _ := newJournalHarness(t, fs)

	p.process(context.Background(), []feed.Message{
		journalMessage(feed.JournalMessage{
			StarSystem: "Sol",
			BodyType:   "Planet",
			Population: pop(100),
		}),
	}, time.Second)

	if len(fs.systemUpdates) != 0 {
		t.Errorf("system updates = %d, want 0", len(fs.systemUpdates))
	}
}

func TestJournalStarWithoutPopulationIgnored(t *testing.T) {
	fs := newFakeStore()
	fs.systems = []model.System{{ID: 5, Name: "Sol", Population: 100}}
	p, _ := newJournalHarness(t, fs)

	p.process(context.Background(), []feed.Message{
		journalMessage(feed.JournalMessage{StarSystem: "Sol", BodyType: "Star"}),
		journalMessage(feed.JournalMessage{StarSystem: "Sol", BodyType: "Star", Population: pop(0)}),
	}, time.Second)

	if len(fs.systemUpdates) != 0 {
		t.Errorf("system updates = %d, want 0", len(fs.systemUpdates))
	}
}

func TestJournalExistingFactionNotDuplicated(t *testing.T) {
	fs := newFakeStore()
	fs.systems = []model.System{{ID: 5, Name: "Sol"}}
	fs.factions = []model.Faction{{ID: 9, Name: "Mother Gaia", Government: "Democracy"}}
	p, _ := newJournalHarness(t, fs)

	p.process(context.Background(), []feed.Message{
		journalMessage(feed.JournalMessage{
			StarSystem:    "Sol",
			BodyType:      "Station",
			SystemFaction: feed.SystemFaction{Name: "Mother Gaia"},
			Factions: []feed.JournalFaction{
				{Name: "Mother Gaia", Government: "Democracy", Allegiance: "Federation"},
			},
		}),
	}, time.Second)

	if len(fs.newFactions) != 0 {
		t.Errorf("created factions = %+v, want none", fs.newFactions)
	}
	if len(fs.systemUpdates) != 1 || fs.systemUpdates[0].ControllingFactionID != 9 {
		t.Errorf("system updates = %+v, want controlling faction 9", fs.systemUpdates)
	}
}

func TestJournalUnknownSystemIgnored(t *testing.T) {
	fs := newFakeStore()
	p, _ := newJournalHarness(t, fs)

	p.process(context.Background(), []feed.Message{
		journalMessage(feed.JournalMessage{
			StarSystem: "Nowhere",
			BodyType:   "Star",
			Population: pop(5),
		}),
	}, time.Second)

	if len(fs.systemUpdates) != 0 || len(fs.newFactions) != 0 {
		t.Error("unknown system must produce no writes")
	}
}

func TestParseSecurity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$SYSTEM_SECURITY_high;", "high"},
		{"$SYSTEM_SECURITY_medium;", "medium"},
		{"$GAlAXY_MAP_INFO_state_anarchy;", "anarchy"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseSecurity(tt.in); got != tt.want {
			t.Errorf("parseSecurity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseGovernment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$government_Democracy;", "Democracy"},
		{"$government_Corporate;", "Corporate"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseGovernment(tt.in); got != tt.want {
			t.Errorf("parseGovernment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

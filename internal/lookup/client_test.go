package lookup

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/svdwoude/edmarket-data/internal/config"
	"github.com/svdwoude/edmarket-data/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const stationsJSON = `{
	"name": "Jaroere",
	"stations": [
		{
			"name": "Shirley Hub",
			"type": "Coriolis Starport",
			"distanceToArrival": 350.7,
			"haveMarket": true,
			"haveShipyard": true,
			"haveOutfitting": true,
			"otherServices": ["Black Market", "Refuel", "Repair"],
			"updateTime": {"market": "2024-05-01 10:00:00", "information": "2024-05-02 09:00:00"}
		},
		{
			"name": "Outback Outpost",
			"type": "Civilian Outpost",
			"distanceToArrival": 12.1,
			"haveMarket": true,
			"haveShipyard": false,
			"haveOutfitting": false,
			"otherServices": [],
			"updateTime": {"market": "", "information": "2024-04-01 00:00:00"}
		}
	]
}`

func testClient(t *testing.T, handler http.HandlerFunc) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.LookupConfig{
		BaseURL:     srv.URL,
		AltNamesURL: srv.URL + "/commodity.csv",
		Timeout:     5 * time.Second,
	}
	return New(cfg, nil), srv
}

func TestFindStation(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("systemName"); got != "Jaroere" {
			t.Errorf("systemName = %q, want Jaroere", got)
		}
		w.Write([]byte(stationsJSON))
	})

	st, err := c.FindStation(context.Background(), "shirley hub", "Jaroere")
	if err != nil {
		t.Fatalf("FindStation() error = %v", err)
	}
	if st == nil {
		t.Fatal("FindStation() = nil, want station")
	}

	if st.Name != "Shirley Hub" {
		t.Errorf("Name = %q", st.Name)
	}
	if st.LsFromStar != 350 {
		t.Errorf("LsFromStar = %d, want 350", st.LsFromStar)
	}
	if st.PadSize != model.PadLarge {
		t.Errorf("PadSize = %q, want L", st.PadSize)
	}
	if !st.Market || !st.BlackMarket || !st.Shipyard || !st.Refuel || !st.Repair {
		t.Errorf("services = %+v", st)
	}
	if st.Rearm {
		t.Error("Rearm should be false, not in otherServices")
	}
	if st.Fleet || st.Planetary || st.Odyssey {
		t.Errorf("kind flags should all be false: %+v", st)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !st.Modified.Equal(want) {
		t.Errorf("Modified = %v, want market update time %v", st.Modified, want)
	}
}

func TestFindStationMiss(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stationsJSON))
	})

	st, err := c.FindStation(context.Background(), "Nonexistent Dock", "Jaroere")
	if err != nil {
		t.Fatalf("FindStation() error = %v", err)
	}
	if st != nil {
		t.Errorf("FindStation() = %+v, want nil miss", st)
	}
}

func TestFindStationFallsBackToInformationTime(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stationsJSON))
	})

	st, err := c.FindStation(context.Background(), "Outback Outpost", "Jaroere")
	if err != nil {
		t.Fatalf("FindStation() error = %v", err)
	}
	if st.PadSize != model.PadMedium {
		t.Errorf("outpost PadSize = %q, want M", st.PadSize)
	}
	want := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	if !st.Modified.Equal(want) {
		t.Errorf("Modified = %v, want information time %v", st.Modified, want)
	}
}

func TestFindStationServerError(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := c.FindStation(context.Background(), "X", "Y"); err == nil {
		t.Error("FindStation() should surface server errors")
	}
}

func TestAltCommodityNames(t *testing.T) {
	csv := strings.Join([]string{
		"id,symbol,category,name",
		"128049204,Agriculturalmedicines,Medicines,Agri-Medicines",
		"128049202,Hydrogenfuel,Chemicals,Hydrogen Fuel",
		"malformed",
	}, "\n")

	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(csv))
	})

	names, err := c.AltCommodityNames(context.Background())
	if err != nil {
		t.Fatalf("AltCommodityNames() error = %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("len(names) = %d, want 2", len(names))
	}
	if names["Agriculturalmedicines"] != "Agri-Medicines" {
		t.Errorf("Agriculturalmedicines -> %q", names["Agriculturalmedicines"])
	}
	if names["Hydrogenfuel"] != "Hydrogen Fuel" {
		t.Errorf("Hydrogenfuel -> %q", names["Hydrogenfuel"])
	}
}

func TestClassifyPadSize(t *testing.T) {
	c := &client{logger: discardLogger()}

	tests := []struct {
		stationType string
		want        string
	}{
		{"Civilian Outpost", model.PadMedium},
		{"Coriolis Starport", model.PadLarge},
		{"Ocellus Starport", model.PadLarge},
		{"Odyssey Settlement", model.PadLarge},
		{"Planetary Port", model.PadLarge},
		{"Fleet Carrier", model.PadLarge},
		{"Asteroid base", model.PadLarge}, // unknown defaults large
	}

	for _, tt := range tests {
		if got := c.classifyPadSize(tt.stationType); got != tt.want {
			t.Errorf("classifyPadSize(%q) = %q, want %q", tt.stationType, got, tt.want)
		}
	}
}

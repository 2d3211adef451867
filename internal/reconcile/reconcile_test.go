package reconcile

import (
	"testing"
	"time"

	"github.com/svdwoude/edmarket-data/internal/model"
)

var (
	t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t1 = time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
)

func listing(commodityID int64, demandPrice, supplyPrice int, modified time.Time) model.LiveListing {
	return model.LiveListing{
		ID:          commodityID * 100,
		CommodityID: commodityID,
		StationID:   1,
		DemandPrice: demandPrice,
		DemandUnits: 500,
		SupplyPrice: supplyPrice,
		SupplyUnits: 200,
		Modified:    modified,
		FromLive:    true,
	}
}

func incoming(commodityID int64, demandPrice, supplyPrice int, modified time.Time) model.LiveListing {
	l := listing(commodityID, demandPrice, supplyPrice, modified)
	l.ID = 0
	return l
}

func TestListingsNewCommodity(t *testing.T) {
	station := &model.Station{ID: 1}

	res := Listings(station, nil, []model.LiveListing{incoming(1, 9500, 0, t1)}, 10)

	if len(res.New) != 1 || len(res.Updated) != 0 || len(res.Historic) != 0 {
		t.Fatalf("result = %+v, want one new listing", res)
	}
	if !res.StationModified.Equal(t1) {
		t.Errorf("StationModified = %v, want %v", res.StationModified, t1)
	}
}

func TestListingsIdempotentTimestamp(t *testing.T) {
	station := &model.Station{ID: 1}
	existing := []model.LiveListing{listing(1, 9500, 0, t0)}

	// Same timestamp, even with different prices, is a replay and must not
	// touch anything.
	res := Listings(station, existing, []model.LiveListing{incoming(1, 12000, 0, t0)}, 10)

	if !res.Empty() {
		t.Errorf("result = %+v, want empty", res)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
}

func TestListingsSmallMoveNoHistory(t *testing.T) {
	station := &model.Station{ID: 1}
	existing := []model.LiveListing{listing(1, 10000, 0, t0)}

	// 5% move: update without archiving.
	res := Listings(station, existing, []model.LiveListing{incoming(1, 10500, 0, t1)}, 10)

	if len(res.Updated) != 1 || len(res.Historic) != 0 {
		t.Fatalf("result = %+v, want update without history", res)
	}
	if res.Updated[0].ID != 100 {
		t.Errorf("updated ID = %d, want existing row ID 100", res.Updated[0].ID)
	}
	if res.Updated[0].DemandPrice != 10500 {
		t.Errorf("updated DemandPrice = %d", res.Updated[0].DemandPrice)
	}
}

func TestListingsBigMoveArchivesOldState(t *testing.T) {
	station := &model.Station{ID: 1}
	existing := []model.LiveListing{listing(1, 10000, 2000, t0)}

	// 20% demand move crosses the threshold.
	res := Listings(station, existing, []model.LiveListing{incoming(1, 12000, 2000, t1)}, 10)

	if len(res.Updated) != 1 || len(res.Historic) != 1 {
		t.Fatalf("result = %+v, want update with history", res)
	}

	// The archive holds the PRE-update state.
	h := res.Historic[0]
	if h.DemandPrice != 10000 || h.SupplyPrice != 2000 {
		t.Errorf("historic prices = (%d, %d), want old (10000, 2000)", h.DemandPrice, h.SupplyPrice)
	}
	if !h.Recorded.Equal(t0) {
		t.Errorf("historic Recorded = %v, want old modified %v", h.Recorded, t0)
	}
}

func TestListingsSupplyMoveAlsoArchives(t *testing.T) {
	station := &model.Station{ID: 1}
	existing := []model.LiveListing{listing(1, 10000, 2000, t0)}

	// Demand steady, supply up 50%.
	res := Listings(station, existing, []model.LiveListing{incoming(1, 10000, 3000, t1)}, 10)

	if len(res.Historic) != 1 {
		t.Fatalf("result = %+v, want history from supply move", res)
	}
}

func TestListingsFleetCarrierNeverArchives(t *testing.T) {
	station := &model.Station{ID: 1, Fleet: true}
	existing := []model.LiveListing{listing(1, 10000, 0, t0)}

	res := Listings(station, existing, []model.LiveListing{incoming(1, 20000, 0, t1)}, 10)

	if len(res.Updated) != 1 {
		t.Fatalf("result = %+v, want update", res)
	}
	if len(res.Historic) != 0 {
		t.Error("fleet carrier price moves must not be archived")
	}
}

func TestListingsMixedBatch(t *testing.T) {
	station := &model.Station{ID: 1}
	existing := []model.LiveListing{
		listing(1, 10000, 0, t0), // will be replayed
		listing(2, 500, 400, t0), // will move a little
		listing(3, 100, 90, t0),  // will move a lot
	}
	in := []model.LiveListing{
		incoming(1, 10000, 0, t0),
		incoming(2, 520, 400, t1),
		incoming(3, 300, 90, t1),
		incoming(4, 7000, 0, t1),
	}

	res := Listings(station, existing, in, 10)

	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
	if len(res.New) != 1 || res.New[0].CommodityID != 4 {
		t.Errorf("New = %+v, want commodity 4", res.New)
	}
	if len(res.Updated) != 2 {
		t.Errorf("Updated = %+v, want commodities 2 and 3", res.Updated)
	}
	if len(res.Historic) != 1 || res.Historic[0].CommodityID != 3 {
		t.Errorf("Historic = %+v, want only commodity 3", res.Historic)
	}
	if !res.StationModified.Equal(t1) {
		t.Errorf("StationModified = %v, want %v", res.StationModified, t1)
	}
}

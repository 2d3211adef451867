// Package reconcile merges incoming market snapshots into the known state of
// a station's listings. It is pure bookkeeping: no I/O, so the rules are
// easy to test and the store applies results atomically.
package reconcile

import (
	"time"

	"github.com/svdwoude/edmarket-data/internal/model"
)

// Result is the outcome of reconciling one station snapshot.
type Result struct {
	// New are listings for commodities the station did not carry before.
	New []model.LiveListing

	// Updated are existing listings with fresh prices, carrying their
	// database IDs.
	Updated []model.LiveListing

	// Historic are snapshots of the pre-update state for listings whose
	// price moved enough to be worth archiving.
	Historic []model.HistoricListing

	// Skipped counts listings dropped because the incoming timestamp
	// matched the stored one, making the update a no-op.
	Skipped int

	// StationModified is the newest listing timestamp in the snapshot, the
	// value the station's own Modified marker should advance to.
	StationModified time.Time
}

// Empty reports whether reconciliation produced no work.
func (r Result) Empty() bool {
	return len(r.New) == 0 && len(r.Updated) == 0 && len(r.Historic) == 0
}

// Listings reconciles incoming listings against the station's existing ones.
//
// A matching timestamp means the snapshot was already applied and the
// listing is skipped. Otherwise incoming prices replace the stored ones;
// when either side's price moved by more than deltaPct percent the old
// state is archived first. Fleet carriers reprice constantly at their
// owner's whim, so their history is never archived.
func Listings(station *model.Station, existing, incoming []model.LiveListing, deltaPct float64) Result {
	byCommodity := make(map[int64]model.LiveListing, len(existing))
	for _, l := range existing {
		byCommodity[l.CommodityID] = l
	}

	var res Result
	for _, in := range incoming {
		cur, known := byCommodity[in.CommodityID]
		if !known {
			res.New = append(res.New, in)
			res.advance(in.Modified)
			continue
		}

		if cur.Modified.Equal(in.Modified) {
			res.Skipped++
			continue
		}

		if !station.Fleet {
			demandMoved := model.DifferencePercent(cur.DemandPrice, in.DemandPrice) > deltaPct
			supplyMoved := model.DifferencePercent(cur.SupplyPrice, in.SupplyPrice) > deltaPct
			if demandMoved || supplyMoved {
				res.Historic = append(res.Historic, model.HistoricFromLive(cur))
			}
		}

		in.ID = cur.ID
		res.Updated = append(res.Updated, in)
		res.advance(in.Modified)
	}
	return res
}

func (r *Result) advance(t time.Time) {
	if t.After(r.StationModified) {
		r.StationModified = t
	}
}

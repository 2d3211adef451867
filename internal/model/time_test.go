package model

import (
	"testing"
	"time"
)

func TestParseFeedTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
	}{
		{"rfc3339 zulu", "2024-01-01T12:00:00Z"},
		{"rfc3339 offset", "2024-01-01T12:00:00+00:00"},
		{"fractional seconds", "2024-01-01T12:00:00.123456Z"},
		{"no zone", "2024-01-01T12:00:00"},
		{"space separator", "2024-01-01 12:00:00"},
		{"fractional no zone", "2024-01-01T12:00:00.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFeedTimestamp(tt.in)
			if err != nil {
				t.Fatalf("ParseFeedTimestamp(%q) error = %v", tt.in, err)
			}
			// Fractional-second variants still land on the same second once
			// truncated; compare at second precision.
			if !got.Truncate(time.Second).Equal(want) {
				t.Errorf("ParseFeedTimestamp(%q) = %v, want %v", tt.in, got, want)
			}
			if got.Location() != time.UTC {
				t.Errorf("ParseFeedTimestamp(%q) location = %v, want UTC", tt.in, got.Location())
			}
		})
	}
}

func TestParseFeedTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{"", "garbage", "2024-13-45T99:00:00Z", "12:00:00"} {
		if _, err := ParseFeedTimestamp(in); err == nil {
			t.Errorf("ParseFeedTimestamp(%q) expected error, got nil", in)
		}
	}
}

func TestLiveListingRecentlyModified(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	fresh := LiveListing{Modified: now.Add(-time.Hour)}
	if !fresh.RecentlyModified(window, now) {
		t.Error("listing modified an hour ago should be recent")
	}

	stale := LiveListing{Modified: now.Add(-31 * 24 * time.Hour)}
	if stale.RecentlyModified(window, now) {
		t.Error("listing modified 31 days ago should not be recent")
	}
}

func TestHistoricFromLive(t *testing.T) {
	modified := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	live := LiveListing{
		ID:          7,
		CommodityID: 3,
		StationID:   9,
		DemandPrice: 100,
		DemandUnits: 500,
		SupplyPrice: 90,
		SupplyUnits: 200,
		Modified:    modified,
	}

	h := HistoricFromLive(live)

	if h.CommodityID != 3 || h.StationID != 9 {
		t.Errorf("keys = (%d, %d), want (3, 9)", h.CommodityID, h.StationID)
	}
	if h.DemandPrice != 100 || h.DemandUnits != 500 || h.SupplyPrice != 90 || h.SupplyUnits != 200 {
		t.Errorf("snapshot values differ from live listing: %+v", h)
	}
	if !h.Recorded.Equal(modified) {
		t.Errorf("Recorded = %v, want %v", h.Recorded, modified)
	}
	if h.ID != 0 {
		t.Errorf("ID = %d, want 0 (assigned on insert)", h.ID)
	}
}

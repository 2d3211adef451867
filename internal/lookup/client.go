// Package lookup queries the external galaxy database for station details
// and the commodity alternative-name table. It is the slow path: results
// feed station creation, never the per-message hot path.
package lookup

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/svdwoude/edmarket-data/internal/config"
	"github.com/svdwoude/edmarket-data/internal/model"
)

// StationData is the external view of one station, already mapped to our
// field names.
type StationData struct {
	Name        string
	LsFromStar  int
	PadSize     string
	Market      bool
	BlackMarket bool
	Shipyard    bool
	Outfitting  bool
	Rearm       bool
	Refuel      bool
	Repair      bool
	Planetary   bool
	Fleet       bool
	Odyssey     bool
	Modified    time.Time
}

// Client resolves stations and commodity alternative names from external
// services.
type Client interface {
	// FindStation returns the named station in the named system, or nil
	// when the external database does not know it. A nil result is a miss,
	// not an error.
	FindStation(ctx context.Context, stationName, systemName string) (*StationData, error)

	// AltCommodityNames fetches the alternative commodity name table,
	// mapping feed symbol to canonical display name.
	AltCommodityNames(ctx context.Context) (map[string]string, error)
}

type client struct {
	http        *resty.Client
	altNamesURL string
	apiKey      string
	logger      *slog.Logger
}

// New creates a lookup client from config.
func New(cfg config.LookupConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries)

	return &client{
		http:        http,
		altNamesURL: cfg.AltNamesURL,
		apiKey:      cfg.APIKey,
		logger:      logger,
	}
}

// stationEntry mirrors the external API's station JSON.
type stationEntry struct {
	Name              string   `json:"name"`
	Type              string   `json:"type"`
	DistanceToArrival float64  `json:"distanceToArrival"`
	HaveMarket        bool     `json:"haveMarket"`
	HaveShipyard      bool     `json:"haveShipyard"`
	HaveOutfitting    bool     `json:"haveOutfitting"`
	OtherServices     []string `json:"otherServices"`
	UpdateTime        struct {
		Market      string `json:"market"`
		Information string `json:"information"`
	} `json:"updateTime"`
}

type stationsResponse struct {
	Stations []stationEntry `json:"stations"`
}

func (c *client) FindStation(ctx context.Context, stationName, systemName string) (*StationData, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("systemName", systemName).
		SetQueryParam("apiKey", c.apiKey).
		Get("/api-system-v1/stations")
	if err != nil {
		return nil, fmt.Errorf("query stations for %s: %w", systemName, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("query stations for %s: status %d", systemName, resp.StatusCode())
	}

	var body stationsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode stations for %s: %w", systemName, err)
	}

	for _, entry := range body.Stations {
		if strings.EqualFold(entry.Name, stationName) {
			return c.mapStation(entry)
		}
	}
	return nil, nil
}

func (c *client) mapStation(e stationEntry) (*StationData, error) {
	services := make(map[string]bool, len(e.OtherServices))
	for _, svc := range e.OtherServices {
		services[svc] = true
	}

	modified, err := parseUpdateTime(e.UpdateTime.Market, e.UpdateTime.Information)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", e.Name, err)
	}

	return &StationData{
		Name:        e.Name,
		LsFromStar:  int(e.DistanceToArrival),
		PadSize:     c.classifyPadSize(e.Type),
		Market:      e.HaveMarket,
		BlackMarket: services["Black Market"],
		Shipyard:    e.HaveShipyard,
		Outfitting:  e.HaveOutfitting,
		Rearm:       services["Rearm"],
		Refuel:      services["Refuel"],
		Repair:      services["Repair"],
		Planetary:   e.Type == "Odyssey Settlement" || strings.Contains(e.Type, "Planetary"),
		Fleet:       e.Type == "Fleet Carrier",
		Odyssey:     strings.Contains(e.Type, "Odyssey"),
		Modified:    modified,
	}, nil
}

// classifyPadSize derives the largest landing pad from the station type.
// Unrecognized types default to large.
func (c *client) classifyPadSize(stationType string) string {
	switch {
	case strings.Contains(stationType, "Outpost"):
		return model.PadMedium
	case strings.Contains(stationType, "Settlement"),
		strings.Contains(stationType, "Starport"),
		strings.Contains(stationType, "Port"),
		strings.Contains(stationType, "Observatory"),
		stationType == "Fleet Carrier":
		return model.PadLarge
	default:
		c.logger.Warn("unknown station type, assuming large pad", "type", stationType)
		return model.PadLarge
	}
}

const updateTimeLayout = "2006-01-02 15:04:05"

// parseUpdateTime prefers the market update time and falls back to the
// general information time.
func parseUpdateTime(market, information string) (time.Time, error) {
	s := market
	if s == "" {
		s = information
	}
	if s == "" {
		return time.Time{}, fmt.Errorf("no update time")
	}
	t, err := time.Parse(updateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse update time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func (c *client) AltCommodityNames(ctx context.Context) (map[string]string, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.altNamesURL)
	if err != nil {
		return nil, fmt.Errorf("fetch alt commodity names: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch alt commodity names: status %d", resp.StatusCode())
	}
	return parseAltNamesCSV(strings.NewReader(string(resp.Body())))
}

// parseAltNamesCSV reads the id,symbol,category,name table and maps feed
// symbol to canonical name. Malformed rows are skipped.
func parseAltNamesCSV(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse alt names csv: %w", err)
	}

	names := make(map[string]string)
	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			continue // header or malformed
		}
		symbol, name := row[1], row[3]
		if symbol == "" || name == "" {
			continue
		}
		names[symbol] = name
	}
	return names, nil
}

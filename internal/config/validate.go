package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that the configuration is internally consistent. It is
// expected to run after applyDefaults, so only genuinely bad values and
// required fields without defaults are reported.
func (c *ListenerConfig) Validate() error {
	var errs []string

	if c.Instance.ID == "" {
		errs = append(errs, "instance.id is required")
	}

	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		errs = append(errs, fmt.Sprintf("feed.url must be a ws:// or wss:// URL, got %q", c.Feed.URL))
	}
	if c.Feed.MinBatchTime <= 0 {
		errs = append(errs, "feed.min_batch_time must be positive")
	}
	if c.Feed.MaxBatchTime < c.Feed.MinBatchTime {
		errs = append(errs, "feed.max_batch_time must be >= feed.min_batch_time")
	}
	if c.Feed.ReconnectTimeout <= 0 {
		errs = append(errs, "feed.reconnect_timeout must be positive")
	}
	if c.Feed.BurstLimit < 1 {
		errs = append(errs, "feed.burst_limit must be >= 1")
	}

	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Name == "" {
		errs = append(errs, "database.name is required")
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be in 1-65535, got %d", c.Database.Port))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, "database.min_conns must be <= database.max_conns")
	}

	if c.Lookup.BaseURL == "" {
		errs = append(errs, "lookup.base_url is required")
	}

	if c.Processors.Commodity.MaxBatchSize < 1 {
		errs = append(errs, "processors.commodity.max_batch_size must be >= 1")
	}
	if c.Processors.Journal.MaxBatchSize < 1 {
		errs = append(errs, "processors.journal.max_batch_size must be >= 1")
	}
	if c.Processors.PollInterval <= 0 {
		errs = append(errs, "processors.poll_interval must be positive")
	}

	if c.Retry.Attempts < 1 {
		errs = append(errs, "retry.attempts must be >= 1")
	}
	if c.Retry.Timeout <= 0 {
		errs = append(errs, "retry.timeout must be positive")
	}

	if c.Listings.HistoricDeltaPct < 0 || c.Listings.HistoricDeltaPct > 100 {
		errs = append(errs, fmt.Sprintf("listings.historic_delta_pct must be in 0-100, got %v", c.Listings.HistoricDeltaPct))
	}
	if c.Listings.StalenessWindow <= 0 {
		errs = append(errs, "listings.staleness_window must be positive")
	}
	if c.Listings.DemandUnitsFloor < 0 {
		errs = append(errs, "listings.demand_units_floor must be >= 0")
	}
	if c.Listings.SupplyUnitsFloor < 0 {
		errs = append(errs, "listings.supply_units_floor must be >= 0")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedURL            = "wss://feed.eddn.example.net/relay"
	DefaultMinBatchTime       = 36 * time.Second
	DefaultMaxBatchTime       = 60 * time.Second
	DefaultReconnectTimeout   = 30 * time.Second
	DefaultReconnectDelay     = 10 * time.Second
	DefaultBurstLimit         = 500
	DefaultFeedBufferSize     = 4096
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultLookupURL          = "https://www.edsm.net"
	DefaultAltNamesURL        = "https://raw.githubusercontent.com/EDCD/FDevIDs/master/commodity.csv"
	DefaultLookupTimeout      = 30 * time.Second
	DefaultLookupMaxRetries   = 3
	DefaultCommodityBatchSize = 5
	DefaultJournalBatchSize   = 20
	DefaultBatchTimeout       = 10 * time.Second
	DefaultPollInterval       = 1 * time.Second
	DefaultQueueWarnDepth     = 5
	DefaultRetryAttempts      = 3
	DefaultRetryTimeout       = 30 * time.Second
	DefaultHistoricDeltaPct   = 10.0
	DefaultStalenessWindow    = 30 * 24 * time.Hour
	DefaultDemandUnitsFloor   = 200
	DefaultSupplyUnitsFloor   = 5000
)

func (c *ListenerConfig) applyDefaults() {
	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.MinBatchTime == 0 {
		c.Feed.MinBatchTime = DefaultMinBatchTime
	}
	if c.Feed.MaxBatchTime == 0 {
		c.Feed.MaxBatchTime = DefaultMaxBatchTime
	}
	if c.Feed.ReconnectTimeout == 0 {
		c.Feed.ReconnectTimeout = DefaultReconnectTimeout
	}
	if c.Feed.ReconnectDelay == 0 {
		c.Feed.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Feed.BurstLimit == 0 {
		c.Feed.BurstLimit = DefaultBurstLimit
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Lookup defaults
	if c.Lookup.BaseURL == "" {
		c.Lookup.BaseURL = DefaultLookupURL
	}
	if c.Lookup.AltNamesURL == "" {
		c.Lookup.AltNamesURL = DefaultAltNamesURL
	}
	if c.Lookup.Timeout == 0 {
		c.Lookup.Timeout = DefaultLookupTimeout
	}
	if c.Lookup.MaxRetries == 0 {
		c.Lookup.MaxRetries = DefaultLookupMaxRetries
	}

	// Processor defaults
	if c.Processors.Commodity.MaxBatchSize == 0 {
		c.Processors.Commodity.MaxBatchSize = DefaultCommodityBatchSize
	}
	if c.Processors.Commodity.MaxBatchTimeout == 0 {
		c.Processors.Commodity.MaxBatchTimeout = DefaultBatchTimeout
	}
	if c.Processors.Journal.MaxBatchSize == 0 {
		c.Processors.Journal.MaxBatchSize = DefaultJournalBatchSize
	}
	if c.Processors.Journal.MaxBatchTimeout == 0 {
		c.Processors.Journal.MaxBatchTimeout = DefaultBatchTimeout
	}
	if c.Processors.PollInterval == 0 {
		c.Processors.PollInterval = DefaultPollInterval
	}
	if c.Processors.QueueWarnDepth == 0 {
		c.Processors.QueueWarnDepth = DefaultQueueWarnDepth
	}

	// Retry defaults
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = DefaultRetryAttempts
	}
	if c.Retry.Timeout == 0 {
		c.Retry.Timeout = DefaultRetryTimeout
	}

	// Listings defaults
	if c.Listings.HistoricDeltaPct == 0 {
		c.Listings.HistoricDeltaPct = DefaultHistoricDeltaPct
	}
	if c.Listings.StalenessWindow == 0 {
		c.Listings.StalenessWindow = DefaultStalenessWindow
	}
	if c.Listings.DemandUnitsFloor == 0 {
		c.Listings.DemandUnitsFloor = DefaultDemandUnitsFloor
	}
	if c.Listings.SupplyUnitsFloor == 0 {
		c.Listings.SupplyUnitsFloor = DefaultSupplyUnitsFloor
	}
}

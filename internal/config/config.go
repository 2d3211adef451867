package config

import "time"

// ListenerConfig is the root configuration for a listener instance.
type ListenerConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Feed       FeedConfig       `yaml:"feed"`
	Database   DBConfig         `yaml:"database"`
	Lookup     LookupConfig     `yaml:"lookup"`
	Processors ProcessorsConfig `yaml:"processors"`
	Retry      RetryConfig      `yaml:"retry"`
	Listings   ListingsConfig   `yaml:"listings"`
}

// InstanceConfig identifies this listener.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds the broadcast feed subscription settings.
type FeedConfig struct {
	URL              string        `yaml:"url"`
	MinBatchTime     time.Duration `yaml:"min_batch_time"`
	MaxBatchTime     time.Duration `yaml:"max_batch_time"`
	ReconnectTimeout time.Duration `yaml:"reconnect_timeout"`
	ReconnectDelay   time.Duration `yaml:"reconnect_delay"`
	BurstLimit       int           `yaml:"burst_limit"`
	BufferSize       int           `yaml:"buffer_size"`
}

// DBConfig holds the reference database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LookupConfig holds the external station-lookup collaborator settings.
type LookupConfig struct {
	BaseURL     string        `yaml:"base_url"`
	AltNamesURL string        `yaml:"alt_names_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

// ProcessorConfig holds one schema processor's batching policy.
type ProcessorConfig struct {
	MaxBatchSize    int           `yaml:"max_batch_size"`
	MaxBatchTimeout time.Duration `yaml:"max_batch_timeout"`
}

// ProcessorsConfig holds settings for all schema processors.
type ProcessorsConfig struct {
	Commodity      ProcessorConfig `yaml:"commodity"`
	Journal        ProcessorConfig `yaml:"journal"`
	PollInterval   time.Duration   `yaml:"poll_interval"`
	QueueWarnDepth int             `yaml:"queue_warn_depth"`
}

// RetryConfig holds station-creation retry policy.
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ListingsConfig holds reconciliation and best-price thresholds.
type ListingsConfig struct {
	// HistoricDeltaPct is the percentage price change above which the
	// superseded listing is archived as a historic record.
	HistoricDeltaPct float64 `yaml:"historic_delta_pct"`

	// StalenessWindow bounds how old a listing may be and still count for
	// best-price consideration.
	StalenessWindow time.Duration `yaml:"staleness_window"`

	// DemandUnitsFloor and SupplyUnitsFloor are the minimum quantities a
	// listing needs on the respective side to be best-price eligible.
	DemandUnitsFloor int `yaml:"demand_units_floor"`
	SupplyUnitsFloor int `yaml:"supply_units_floor"`
}

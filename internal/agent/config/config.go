package config

import "time"

// Config holds runtime settings for the field agent.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend REST endpoint.
//   - DatabasePath: path to the local SQLite file.
//   - SyncInterval: how often the background sync run drains the queue.
//   - OnlineCheckInterval: how often the agent probes server reachability.
//   - CacheSweepInterval: how often expired cache rows are removed.
//   - SyncBatchSize: maximum actions pulled per sync run.
//
// Units: intervals are time.Duration values (e.g., 15*time.Second).
type Config struct {
	ServerEndpointAddr  string
	DatabasePath        string
	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration
	CacheSweepInterval  time.Duration
	SyncBatchSize       int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "fieldsync.db"
	c.SyncInterval = 15 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.CacheSweepInterval = 5 * time.Minute
	c.SyncBatchSize = 50
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

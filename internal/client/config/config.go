// Package config handles configuration for the FileDrop CLI,
// including defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the FileDrop CLI.
//
// Fields:
//   - ServerURL: base URL of the FileDrop HTTP endpoint.
//   - OutputDir: directory fetched files are written into.
//   - AuthToken: identity JWT for the owner-scoped commands; empty for the
//     anonymous flow.
type Config struct {
	ServerURL string
	OutputDir string
	AuthToken string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
	c.OutputDir = "."
	c.AuthToken = ""
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

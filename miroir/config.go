package miroir

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config configures the mutation engine.
type Config struct {
	// DataDir holds the clone artifacts (dataDir/clones/<id>/index.html).
	DataDir string `yaml:"data_dir"`

	// DBPath is the clone registry SQLite database.
	DBPath string `yaml:"db_path"`

	// BaseURL is the public origin serving artifacts. A clone's cloneUrl
	// is BaseURL + "/" + artifactRef.
	BaseURL string `yaml:"base_url"`

	// FetchTimeout bounds one upstream document fetch. Default: 30s.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// FetchMaxBytes caps the fetched document size. Default: 10MB.
	FetchMaxBytes int64 `yaml:"fetch_max_bytes"`

	// UserAgent sent on upstream fetches. Defaults to a browser identity.
	UserAgent string `yaml:"user_agent"`

	// URLValidator screens fetch targets before any network I/O.
	// Defaults to the SSRF guard; tests point it at a noop to reach
	// loopback servers.
	URLValidator func(string) error `yaml:"-"`
}

func (c *Config) defaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.DBPath == "" {
		c.DBPath = "db/miroir.db"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8086"
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

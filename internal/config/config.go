package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"schoolcal/internal/consolidate"
	"schoolcal/internal/dedup"
)

// SourcesConfig holds the JSON file of each candidate pool.
type SourcesConfig struct {
	Email    string `yaml:"email"`
	PTA      string `yaml:"pta"`
	District string `yaml:"district"`
	Menu     string `yaml:"menu"`
}

// ConsolidateConfig controls date-range consolidation.
type ConsolidateConfig struct {
	// Triggers are the lower-case words that mark a closure record.
	Triggers []string `yaml:"triggers"`
}

// CalDAVConfig describes the calendar that receives published events.
type CalDAVConfig struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Calendar string `yaml:"calendar"`
}

// Config is the top-level application configuration.
type Config struct {
	Thresholds  dedup.Thresholds  `yaml:"thresholds"`
	Consolidate ConsolidateConfig `yaml:"consolidate"`
	Sources     SourcesConfig     `yaml:"sources"`

	// Output is where the canonical collection is written.
	Output string `yaml:"output"`
	// ICSOutput, if set, also writes the collection as an iCalendar file.
	ICSOutput string `yaml:"ics_output"`

	CalDAV CalDAVConfig `yaml:"caldav"`

	// Schedule is an optional cron expression for periodic runs.
	Schedule string `yaml:"schedule"`
}

// DefaultCalDAVEndpoint is the iCloud CalDAV server.
const DefaultCalDAVEndpoint = "https://caldav.icloud.com/"

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Thresholds:  dedup.DefaultThresholds(),
		Consolidate: ConsolidateConfig{Triggers: append([]string(nil), consolidate.DefaultTriggers...)},
		Sources: SourcesConfig{
			Email:    "data/email_events.json",
			PTA:      "data/pta_events.json",
			District: "data/district_events.json",
			Menu:     "data/menu_events.json",
		},
		Output: "events.json",
		CalDAV: CalDAVConfig{Endpoint: DefaultCalDAVEndpoint},
	}
}

// Normalize fills in missing values so that partially-filled configs still
// behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Thresholds.Dated == 0 {
		c.Thresholds.Dated = def.Thresholds.Dated
	}
	if c.Thresholds.Undated == 0 {
		c.Thresholds.Undated = def.Thresholds.Undated
	}
	if len(c.Consolidate.Triggers) == 0 {
		c.Consolidate.Triggers = def.Consolidate.Triggers
	}
	if c.Sources.Email == "" {
		c.Sources.Email = def.Sources.Email
	}
	if c.Sources.PTA == "" {
		c.Sources.PTA = def.Sources.PTA
	}
	if c.Sources.District == "" {
		c.Sources.District = def.Sources.District
	}
	if c.Sources.Menu == "" {
		c.Sources.Menu = def.Sources.Menu
	}
	if c.Output == "" {
		c.Output = def.Output
	}
	if c.CalDAV.Endpoint == "" {
		c.CalDAV.Endpoint = def.CalDAV.Endpoint
	}
}

// ApplyEnv overrides CalDAV settings from CALDAV_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CALDAV_ENDPOINT"); v != "" {
		c.CalDAV.Endpoint = v
	}
	if v := os.Getenv("CALDAV_USERNAME"); v != "" {
		c.CalDAV.Username = v
	}
	if v := os.Getenv("CALDAV_PASSWORD"); v != "" {
		c.CalDAV.Password = v
	}
	if v := os.Getenv("CALDAV_CALENDAR_NAME"); v != "" {
		c.CalDAV.Calendar = v
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if len(c.Consolidate.Triggers) == 0 {
		return errors.New("consolidate: no trigger words")
	}
	for _, t := range c.Consolidate.Triggers {
		if strings.TrimSpace(t) == "" {
			return errors.New("consolidate: empty trigger word")
		}
	}
	return nil
}

// Load reads the YAML file at path on top of the defaults, so keys the file
// leaves out keep their default values. A missing file or an empty path yields
// the defaults. Environment overrides are applied and the result validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			cfg.Normalize()
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

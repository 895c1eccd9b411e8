package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	DBPath      string
	LogLevel    string
	Scheduler   SchedulerConfig
	Scraper     ScraperConfig
	Notify      NotifyConfig
	QA          QAConfig
	Sources     map[string]*SourceConfig
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ScraperConfig struct {
	DelayMS        int
	MaxPerSource   int
	RequestTimeout time.Duration
}

type NotifyConfig struct {
	LookbackHours int
	Interval      time.Duration
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	FromAddress   string
	SMSGatewayURL string
	SMSToken      string
	SMSFrom       string
	AdminEmail    string
}

type QAConfig struct {
	Interval     time.Duration
	MaxFailures  int
	PauseMinutes int
}

// SourceConfig is the declarative description of one external site:
// candidate index URLs, link-extraction patterns and field selector
// sets, each with ordered backups for the repair controller.
type SourceConfig struct {
	ID           string              `yaml:"id"`
	Name         string              `yaml:"name"`
	PropertyType string              `yaml:"property_type"`
	RateLimitMS  int                 `yaml:"rate_limit_ms"`
	MaxListings  int                 `yaml:"max_listings"`
	IndexURLs    []string            `yaml:"index_urls"`
	LinkPatterns []string            `yaml:"link_patterns"`
	SelectorSets []SelectorSetConfig `yaml:"selector_sets"`
}

// SelectorSetConfig is one named collection of field extraction rules
// (regular expressions applied to a listing page).
type SelectorSetConfig struct {
	Name      string `yaml:"name"`
	Price     string `yaml:"price"`
	Bedrooms  string `yaml:"bedrooms"`
	Bathrooms string `yaml:"bathrooms"`
	Surface   string `yaml:"surface"`
	Address   string `yaml:"address"`
	City      string `yaml:"city"`
	Postal    string `yaml:"postal"`
	Furnished string `yaml:"furnished"`
	Features  string `yaml:"features"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "daemon.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Scraper: ScraperConfig{
			DelayMS:        getEnvInt("SCRAPE_DELAY_MS", 100),
			MaxPerSource:   getEnvInt("SCRAPE_MAX_PER_SOURCE", 15),
			RequestTimeout: getEnvDuration("SCRAPE_REQUEST_TIMEOUT", 15*time.Second),
		},
		Notify: NotifyConfig{
			LookbackHours: getEnvInt("NOTIFY_LOOKBACK_HOURS", 24),
			Interval:      getEnvDuration("NOTIFY_INTERVAL", 10*time.Minute),
			SMTPHost:      os.Getenv("SMTP_HOST"),
			SMTPPort:      getEnvInt("SMTP_PORT", 587),
			SMTPUser:      os.Getenv("SMTP_USER"),
			SMTPPass:      os.Getenv("SMTP_PASS"),
			FromAddress:   getEnv("NOTIFY_FROM", "alerts@househunt-hq.nl"),
			SMSGatewayURL: os.Getenv("SMS_GATEWAY_URL"),
			SMSToken:      os.Getenv("SMS_GATEWAY_TOKEN"),
			SMSFrom:       getEnv("SMS_FROM", "HouseHunt"),
			AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		},
		QA: QAConfig{
			Interval:     getEnvDuration("QA_INTERVAL", 30*time.Minute),
			MaxFailures:  getEnvInt("QA_MAX_FAILURES", 3),
			PauseMinutes: getEnvInt("QA_PAUSE_MINUTES", 60),
		},
		Sources: make(map[string]*SourceConfig),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSourceConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSourceConfigs() error {
	configDir := getEnv("SOURCES_DIR", "config/sources")
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var source SourceConfig
		if err := yaml.Unmarshal(data, &source); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if source.ID == "" {
			return fmt.Errorf("source config %s has no id", entry.Name())
		}
		if source.MaxListings <= 0 {
			source.MaxListings = c.Scraper.MaxPerSource
		}
		if source.RateLimitMS <= 0 {
			source.RateLimitMS = c.Scraper.DelayMS
		}

		c.Sources[source.ID] = &source
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

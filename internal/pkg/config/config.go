package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/Vodeneev/scratchiq/internal/pkg/analytics"
	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/scraper/scrapers"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is set
const DefaultPath = "configs/production.yaml"

type Config struct {
	// Jurisdictions scraped by a full cycle; empty means every registered one
	Jurisdictions []string        `yaml:"jurisdictions"`
	Scraper       ScraperConfig   `yaml:"scraper"`
	Analytics     AnalyticsConfig `yaml:"analytics"`
	Database      DatabaseConfig  `yaml:"database"`
	Redis         RedisConfig     `yaml:"redis"`
	Telegram      TelegramConfig  `yaml:"telegram"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
	Server        ServerConfig    `yaml:"server"`
	Logging       LoggingConfig   `yaml:"logging"`
}

type ScraperConfig struct {
	Headless          *bool         `yaml:"headless"`
	UserAgent         string        `yaml:"user_agent"`
	MaxGamesPerScrape int           `yaml:"max_games_per_scrape"` // 0 = jurisdiction default
	ScrapeDelay       time.Duration `yaml:"scrape_delay"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ListingTimeout    time.Duration `yaml:"listing_timeout"`
	DetailTimeout     time.Duration `yaml:"detail_timeout"`

	// Overrides are keyed by jurisdiction code
	Overrides map[string]JurisdictionConfig `yaml:"overrides"`
}

type JurisdictionConfig struct {
	MaxGames    int           `yaml:"max_games"`
	ScrapeDelay time.Duration `yaml:"scrape_delay"`
}

type AnalyticsConfig struct {
	HotTicketThreshold    float64         `yaml:"hot_ticket_threshold"`
	EstimatedTotalTickets int64           `yaml:"estimated_total_tickets"`
	PriceTierBonus        map[float64]int `yaml:"price_tier_bonus"`
	DefaultPriceBonus     int             `yaml:"default_price_bonus"`
	DeriveTotalFromOdds   *bool           `yaml:"derive_total_from_odds"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr         string `yaml:"addr"` // empty disables the stream sink
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	StreamMaxLen int64  `yaml:"stream_max_len"`
}

type TelegramConfig struct {
	BotToken     string        `yaml:"bot_token"` // empty disables alerts
	ChatID       int64         `yaml:"chat_id"`
	Cooldown     time.Duration `yaml:"cooldown"`
	SendInterval time.Duration `yaml:"send_interval"`
	MaxGames     int           `yaml:"max_games"`
}

type SchedulerConfig struct {
	Enabled      *bool  `yaml:"enabled"`
	Cron         string `yaml:"cron"`
	Timezone     string `yaml:"timezone"`
	RunOnStartup *bool  `yaml:"run_on_startup"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	CycleTimeout      time.Duration `yaml:"cycle_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // optional extra sink
}

// Defaults returns the configuration used for every unset field
func Defaults() Config {
	headless, schedulerEnabled := true, true
	return Config{
		Scraper: ScraperConfig{
			Headless:          &headless,
			ScrapeDelay:       scrapers.DefaultScrapeDelay,
			NavigationTimeout: 30 * time.Second,
			ListingTimeout:    scrapers.DefaultListingTimeout,
			DetailTimeout:     scrapers.DefaultDetailTimeout,
		},
		Analytics: AnalyticsConfig{
			HotTicketThreshold:    analytics.DefaultHotThreshold,
			EstimatedTotalTickets: analytics.DefaultEstimatedTotalTickets,
			PriceTierBonus:        analytics.DefaultPriceTierBonus(),
			DefaultPriceBonus:     analytics.DefaultPriceBonus,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		Redis: RedisConfig{
			StreamMaxLen: 10_000,
		},
		Telegram: TelegramConfig{
			Cooldown:     24 * time.Hour,
			SendInterval: 2 * time.Second,
			MaxGames:     10,
		},
		Scheduler: SchedulerConfig{
			Enabled: &schedulerEnabled,
			Cron:    "0 2 * * *",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configPath, merges <name>.local.<ext> over it when present,
// fills unset fields from Defaults and applies environment overrides.
// A missing configPath is not an error; defaults and environment are used.
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		if err := readFile(configPath, &config); err != nil && !os.IsNotExist(err) {
			return nil, err
		}

		localPath := localVariant(configPath)
		var local Config
		err := readFile(localPath, &local)
		switch {
		case err == nil:
			if err := mergo.Merge(&config, local, mergo.WithOverride, mergo.WithoutDereference); err != nil {
				return nil, fmt.Errorf("failed to merge %s: %w", localPath, err)
			}
			slog.Info("Merged config with local overrides", "local", localPath)
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := mergo.Merge(&config, Defaults(), mergo.WithoutDereference); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func readFile(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func localVariant(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("MAX_GAMES_PER_SCRAPE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_GAMES_PER_SCRAPE %q: %w", v, err)
		}
		c.Scraper.MaxGamesPerScrape = n
	}
	if v := os.Getenv("SCRAPE_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SCRAPE_DELAY_MS %q: %w", v, err)
		}
		c.Scraper.ScrapeDelay = time.Duration(ms) * time.Millisecond
	}
	return nil
}

// Validate rejects values the services cannot run with
func (c *Config) Validate() error {
	if c.Scraper.MaxGamesPerScrape < 0 {
		return fmt.Errorf("scraper.max_games_per_scrape must not be negative")
	}
	if c.Analytics.HotTicketThreshold < 0 {
		return fmt.Errorf("analytics.hot_ticket_threshold must not be negative")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	for _, j := range c.Jurisdictions {
		if _, ok := scrapers.FactoryByName(j); !ok {
			return fmt.Errorf("unknown jurisdiction %q (available: %v)", j, scrapers.AvailableNames())
		}
	}
	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			return fmt.Errorf("invalid scheduler.timezone: %w", err)
		}
	}
	return nil
}

// JurisdictionList returns the configured jurisdictions as codes
func (c *Config) JurisdictionList() []models.Jurisdiction {
	out := make([]models.Jurisdiction, 0, len(c.Jurisdictions))
	for _, j := range c.Jurisdictions {
		out = append(out, models.ParseJurisdiction(j))
	}
	return out
}

// Scoring returns the analytics constants
func (c *Config) Scoring() analytics.Scoring {
	return analytics.Scoring{
		HotThreshold:          c.Analytics.HotTicketThreshold,
		EstimatedTotalTickets: c.Analytics.EstimatedTotalTickets,
		PriceTierBonus:        c.Analytics.PriceTierBonus,
		DefaultPriceBonus:     c.Analytics.DefaultPriceBonus,
		DeriveTotalFromOdds:   isTrue(c.Analytics.DeriveTotalFromOdds),
	}
}

// ScrapeOptions builds the scrape options of one jurisdiction, applying its overrides
func (c *Config) ScrapeOptions(j models.Jurisdiction) scrapers.Options {
	scoring := c.Scoring()
	opts := scrapers.Options{
		MaxGames:          c.Scraper.MaxGamesPerScrape,
		InterRequestDelay: c.Scraper.ScrapeDelay,
		Headless:          c.Scraper.Headless == nil || *c.Scraper.Headless,
		UserAgent:         c.Scraper.UserAgent,
		NavigationTimeout: c.Scraper.NavigationTimeout,
		ListingTimeout:    c.Scraper.ListingTimeout,
		DetailTimeout:     c.Scraper.DetailTimeout,
		Scoring:           &scoring,
	}

	if o, ok := c.Scraper.Overrides[j.String()]; ok {
		if o.MaxGames > 0 {
			opts.MaxGames = o.MaxGames
		}
		if o.ScrapeDelay > 0 {
			opts.InterRequestDelay = o.ScrapeDelay
		}
	}
	return opts
}

// Location returns the scheduler time zone, local time when unset
func (c *Config) Location() *time.Location {
	if c.Scheduler.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SchedulerEnabled reports whether the serve command runs the cron schedule
func (c *Config) SchedulerEnabled() bool {
	return c.Scheduler.Enabled == nil || *c.Scheduler.Enabled
}

// RunOnStartup reports whether serve runs a cycle right after starting
func (c *Config) RunOnStartup() bool {
	return isTrue(c.Scheduler.RunOnStartup)
}

// isTrue reads an optional flag that defaults to false. Flags are pointers so a
// .local file can set them back to false.
func isTrue(b *bool) bool {
	return b != nil && *b
}

package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model. Ranking weights live
// here so operators can tune the feed without a redeploy.
type Config struct {
	Ranking RankingConfig `yaml:"ranking"`
	Feed    FeedConfig    `yaml:"feed"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type RankingConfig struct {
	// Engagement weights applied to log-damped like/comment counts
	LikeWeight    float64 `yaml:"likeWeight"`
	CommentWeight float64 `yaml:"commentWeight"`
	// Exponential decay half-life for vitality, in hours
	HalfLifeHours float64 `yaml:"halfLifeHours"`
	// Freshness: full score under freshnessFullHours, linear to zero at
	// freshnessWindowHours, scaled by freshnessBonus in the final score
	FreshnessFullHours   float64 `yaml:"freshnessFullHours"`
	FreshnessWindowHours float64 `yaml:"freshnessWindowHours"`
	FreshnessBonus       float64 `yaml:"freshnessBonus"`
	// Multiplier for content authored by a connection of the viewer
	ConnectionBoost float64 `yaml:"connectionBoost"`
	// Geo: full score inside geoFullKm, then linear decay to geoMinimum
	GeoFullKm  float64 `yaml:"geoFullKm"`
	GeoMinimum float64 `yaml:"geoMinimum"`
	// Content quality multipliers
	ImageBoost     float64 `yaml:"imageBoost"`
	LinkBoost      float64 `yaml:"linkBoost"`
	LengthBonusMin int     `yaml:"lengthBonusMin"`
	LengthBonus    float64 `yaml:"lengthBonus"`
	FlaggedPenalty float64 `yaml:"flaggedPenalty"`
	// Viewer negative signals: visibility multiplier for muted authors,
	// and the per-report reduction applied to reported content
	MutePenalty      float64 `yaml:"mutePenalty"`
	ReportPenaltyPer float64 `yaml:"reportPenaltyPer"`
	// Social graph interaction lookback, in days
	SignalLookbackDays int `yaml:"signalLookbackDays"`
}

type FeedConfig struct {
	// Cap on candidates fetched per source
	PerSourceLimit int `yaml:"perSourceLimit"`
	PageSize       int `yaml:"pageSize"`
	// Per-fetcher timeout in milliseconds; a slow source contributes nothing
	FetchTimeoutMS int `yaml:"fetchTimeoutMs"`
	// Radius clamp for nearby mode, in km; DefaultRadiusKm is substituted
	// when a nearby request carries no radius
	MinRadiusKm     float64 `yaml:"minRadiusKm"`
	MaxRadiusKm     float64 `yaml:"maxRadiusKm"`
	DefaultRadiusKm float64 `yaml:"defaultRadiusKm"`
	// Diversity passes over the ranked feed: cap on consecutive items from
	// one author (deferred items keep diversityPenalty of their score) and
	// on consecutive items of one content kind
	DiversityMaxConsecutive     int     `yaml:"diversityMaxConsecutive"`
	DiversityPenalty            float64 `yaml:"diversityPenalty"`
	TypeDiversityMaxConsecutive int     `yaml:"typeDiversityMaxConsecutive"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Request rate limit for the feed endpoint
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RedisConfig struct {
	// If empty, the viewer-coordinate cache is disabled and coordinates
	// are read straight from the store.
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLMinutes int    `yaml:"ttlMinutes"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Ranking: RankingConfig{
			LikeWeight:           1.0,
			CommentWeight:        2.0,
			HalfLifeHours:        48,
			FreshnessFullHours:   1,
			FreshnessWindowHours: 24,
			FreshnessBonus:       0.5,
			ConnectionBoost:      1.5,
			GeoFullKm:            10,
			GeoMinimum:           0.1,
			ImageBoost:           1.3,
			LinkBoost:            1.1,
			LengthBonusMin:       50,
			LengthBonus:          1.2,
			FlaggedPenalty:       0.2,
			MutePenalty:          0.1,
			ReportPenaltyPer:     0.15,
			SignalLookbackDays:   90,
		},
		Feed: FeedConfig{
			PerSourceLimit:              15,
			PageSize:                    15,
			FetchTimeoutMS:              2000,
			MinRadiusKm:                 10,
			MaxRadiusKm:                 500,
			DefaultRadiusKm:             500,
			DiversityMaxConsecutive:     2,
			DiversityPenalty:            0.5,
			TypeDiversityMaxConsecutive: 3,
		},
		Storage: StorageConfig{DBPath: "./nexusfeed.db"},
		Server:  ServerConfig{Addr: ":8080", RPS: 20, Burst: 40},
		Redis:   RedisConfig{TTLMinutes: 30},
		Metrics: MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = os.Getenv("NEXUSFEED_DB")
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = os.Getenv("NEXUSFEED_REDIS_ADDR")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

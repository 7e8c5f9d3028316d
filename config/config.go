package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kasuganosora/questengine/game/quest"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Quests   QuestsConfig   `mapstructure:"quests"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
	// AdminKey is compared in constant time; AdminKeyHash (bcrypt) wins when set.
	AdminKey     string   `mapstructure:"admin_key"`
	AdminKeyHash string   `mapstructure:"admin_key_hash"`
	AdminIPs     []string `mapstructure:"admin_ips"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql | postgres
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	PostgresDSN  string        `mapstructure:"postgres_dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_life"`
	// SlowThreshold logs statements slower than this; 0 disables.
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type QuestsConfig struct {
	DailyResetHour     int           `mapstructure:"daily_reset_hour"`
	WeeklyResetDay     string        `mapstructure:"weekly_reset_day"`
	Timezone           string        `mapstructure:"timezone"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	OnlineTickInterval time.Duration `mapstructure:"online_tick_interval"`
	WriteBehind        bool          `mapstructure:"write_behind"`
	FlushInterval      time.Duration `mapstructure:"flush_interval"`
	RewardCacheTTL     time.Duration `mapstructure:"reward_cache_ttl"`
	KeepClaimedOnReset bool          `mapstructure:"keep_claimed_on_reset"`
	Rerolls            RerollConfig  `mapstructure:"rerolls"`
}

// RerollConfig is the per-window quota of each tier; -1 means unlimited.
type RerollConfig struct {
	Base    int `mapstructure:"base"`
	Premium int `mapstructure:"premium"`
	Elite   int `mapstructure:"elite"`
}

func (r RerollConfig) Policy() quest.RerollPolicy {
	return quest.RerollPolicy{Base: r.Base, Premium: r.Premium, Elite: r.Elite}
}

// Location resolves Timezone; empty means UTC.
func (q QuestsConfig) Location() (*time.Location, error) {
	if q.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(q.Timezone)
}

// Cadences builds the reset cadences described by q.
func (q QuestsConfig) Cadences() (quest.Cadences, error) {
	loc, err := q.Location()
	if err != nil {
		return quest.Cadences{}, fmt.Errorf("quests.timezone: %w", err)
	}
	day, err := quest.ParseWeekday(q.WeeklyResetDay)
	if err != nil {
		return quest.Cadences{}, fmt.Errorf("quests.weekly_reset_day: %w", err)
	}
	return quest.NewCadences(q.DailyResetHour, day, loc)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/quests.db")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_life", "1h")
	v.SetDefault("database.slow_threshold", "200ms")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.jwt_ttl", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("quests.daily_reset_hour", 0)
	v.SetDefault("quests.weekly_reset_day", "monday")
	v.SetDefault("quests.timezone", "UTC")
	v.SetDefault("quests.sweep_interval", "1m")
	v.SetDefault("quests.online_tick_interval", "1m")
	v.SetDefault("quests.write_behind", true)
	v.SetDefault("quests.flush_interval", "2s")
	v.SetDefault("quests.reward_cache_ttl", "10m")
	v.SetDefault("quests.keep_claimed_on_reset", false)
	v.SetDefault("quests.rerolls.base", 0)
	v.SetDefault("quests.rerolls.premium", 1)
	v.SetDefault("quests.rerolls.elite", -1)
}

// Load reads the YAML file at path, applies QUESTENGINE_* environment
// overrides and validates the result. An empty path uses defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("QUESTENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	q := c.Quests
	if q.DailyResetHour < 0 || q.DailyResetHour > 23 {
		errs = append(errs, fmt.Errorf("quests.daily_reset_hour must be 0..23, got %d", q.DailyResetHour))
	}
	if _, err := quest.ParseWeekday(q.WeeklyResetDay); err != nil {
		errs = append(errs, fmt.Errorf("quests.weekly_reset_day: %w", err))
	}
	if _, err := q.Location(); err != nil {
		errs = append(errs, fmt.Errorf("quests.timezone: %w", err))
	}
	for name, d := range map[string]time.Duration{
		"quests.sweep_interval":       q.SweepInterval,
		"quests.online_tick_interval": q.OnlineTickInterval,
		"quests.flush_interval":       q.FlushInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	switch c.Database.Mode {
	case "sqlite", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.mode %q is not sqlite, mysql or postgres", c.Database.Mode))
	}
	return errors.Join(errs...)
}

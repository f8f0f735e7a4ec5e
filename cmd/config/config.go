package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"livebets/line_tracker/utils"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	DriverFile  = "file"
	DriverRedis = "redis"

	renderEnv = "RENDER"
)

var (
	once         sync.Once
	cachedConfig AppConfig
)

type AppConfig struct {
	APIConfig     `mapstructure:"b365"`
	StorageConfig `mapstructure:"storage"`
	PollConfig    `mapstructure:"poll"`
	Port          string `mapstructure:"port"`
}

type APIConfig struct {
	Url         string        `mapstructure:"url"`
	OddsUrl     string        `mapstructure:"odds_url"`
	Token       string        `mapstructure:"token"`
	SportID     int           `mapstructure:"sport_id"`
	Proxy       string        `mapstructure:"proxy"`
	Timeout     time.Duration `mapstructure:"timeout"`
	OddsTimeout time.Duration `mapstructure:"odds_timeout"`
}

type StorageConfig struct {
	Driver           string `mapstructure:"driver"`
	Dir              string `mapstructure:"dir"`
	HistoryKey       string `mapstructure:"history_key"`
	OpportunitiesKey string `mapstructure:"opportunities_key"`
	RedisUrl         string `mapstructure:"redis_url"`
	RedisPrefix      string `mapstructure:"redis_prefix"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// ProvideAppConfig reads configs/common.yml and the environment once per
// process.
func ProvideAppConfig() (AppConfig, error) {
	var err error
	once.Do(func() {
		cachedConfig, err = Load("configs")
	})

	return cachedConfig, err
}

// Load builds a fresh config from common.yml in the first path that has
// one, with environment overrides. A missing file is not an error.
func Load(paths ...string) (AppConfig, error) {
	var cfg AppConfig

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, path := range paths {
		v.AddConfigPath(path)
	}
	v.SetConfigName("common")
	v.SetConfigType("yml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, err
		}
	}

	bindEnvs(v, cfg)

	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(utils.DefaultDecodeHooks()...))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return cfg, err
	}

	if cfg.StorageConfig.Dir == "" {
		cfg.StorageConfig.Dir = defaultStorageDir()
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("b365.url", "http://api.b365api.com/v3/events/inplay")
	v.SetDefault("b365.odds_url", "https://api.b365api.com/v2/event/odds")
	v.SetDefault("b365.sport_id", 18)
	v.SetDefault("b365.timeout", 15*time.Second)
	v.SetDefault("b365.odds_timeout", 10*time.Second)
	v.SetDefault("storage.driver", DriverFile)
	v.SetDefault("storage.history_key", "lines_history")
	v.SetDefault("storage.opportunities_key", "opportunities")
	v.SetDefault("storage.redis_prefix", "line_tracker:")
	v.SetDefault("poll.interval", time.Duration(0))
	v.SetDefault("port", "5000")
}

// defaultStorageDir is the temp dir on Render, where the working directory
// is read-only, and the working directory everywhere else.
func defaultStorageDir() string {
	if _, ok := os.LookupEnv(renderEnv); ok {
		return os.TempDir()
	}
	return "."
}

// Environment is "production" on Render and "development" elsewhere.
func Environment() string {
	if _, ok := os.LookupEnv(renderEnv); ok {
		return "production"
	}
	return "development"
}

// Validate reports every configuration issue found. The service runs with
// an invalid config; health checks report it.
func (c AppConfig) Validate() error {
	var issues []error

	if !strings.HasPrefix(c.APIConfig.Url, "http") {
		issues = append(issues, fmt.Errorf("invalid API URL: %q", c.APIConfig.Url))
	}
	if len(c.APIConfig.Token) < 10 {
		issues = append(issues, errors.New("invalid API token: must be at least 10 characters"))
	}

	switch c.StorageConfig.Driver {
	case DriverFile:
		if err := checkWritable(c.StorageConfig.Dir); err != nil {
			issues = append(issues, fmt.Errorf("write permission issue in directory %s: %w", c.StorageConfig.Dir, err))
		}
	case DriverRedis:
		if c.StorageConfig.RedisUrl == "" {
			issues = append(issues, errors.New("storage.redis_url is required for the redis driver"))
		}
	default:
		issues = append(issues, fmt.Errorf("unknown storage driver %q", c.StorageConfig.Driver))
	}

	return errors.Join(issues...)
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, "test_write.txt")
	if err := os.WriteFile(probe, []byte("test"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

func bindEnvs(v *viper.Viper, iface interface{}, parts ...string) {
	ifv := reflect.ValueOf(iface)
	ift := reflect.TypeOf(iface)
	for i := 0; i < ift.NumField(); i++ {
		fv := ifv.Field(i)
		t := ift.Field(i)
		tv, ok := t.Tag.Lookup("mapstructure")
		if !ok {
			continue
		}
		switch fv.Kind() {
		case reflect.Struct:
			bindEnvs(v, fv.Interface(), append(parts, tv)...)
		default:
			v.BindEnv(strings.Join(append(parts, tv), "."))
		}
	}
}

// Package config loads runtime settings from an optional YAML file,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"state-time-service/internal/services"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode                 string        `yaml:"mode" validate:"oneof=fast precise both lazy hybrid"`
	SampleCount          int           `yaml:"sampleCount" validate:"gte=2"`
	SampleStepMeters     float64       `yaml:"sampleStepMeters" validate:"gt=0"`
	DistanceMetric       string        `yaml:"distanceMetric" validate:"oneof=haversine equirectangular"`
	CellResolution       int           `yaml:"cellResolution" validate:"gte=0,lte=15"`
	UnresolvedPolicy     string        `yaml:"unresolvedPolicy" validate:"oneof=exclude bucket"`
	TimeThresholdSeconds float64       `yaml:"timeThresholdSeconds" validate:"gte=0"`
	Workers              int           `yaml:"workers" validate:"gt=0"`
	ShapePrecision       int           `yaml:"shapePrecision" validate:"gte=1,lte=10"`
	RoutesDir            string        `yaml:"routesDir" validate:"required"`
	OutDir               string        `yaml:"outDir" validate:"required"`
	CacheBackend         string        `yaml:"cacheBackend" validate:"oneof=parquet sqlite postgres redis none"`
	CachePath            string        `yaml:"cachePath" validate:"required_if=CacheBackend parquet,required_if=CacheBackend sqlite"`
	DatabaseURL          string        `yaml:"databaseURL" validate:"required_if=CacheBackend postgres"`
	RedisAddr            string        `yaml:"redisAddr" validate:"required_if=CacheBackend redis"`
	NominatimURL         string        `yaml:"nominatimURL" validate:"omitempty,url"`
	ValhallaURL          string        `yaml:"valhallaURL" validate:"omitempty,url"`
	StatesGeoJSON        string        `yaml:"statesGeoJSON"`
	GeocodeRPS           float64       `yaml:"geocodeRPS" validate:"gte=0"`
	GeocodeTimeout       time.Duration `yaml:"geocodeTimeout" validate:"gt=0"`
	NATSURL              string        `yaml:"natsURL"`
	NATSSubject          string        `yaml:"natsSubject" validate:"required_with=NATSURL"`
	Port                 string        `yaml:"port" validate:"required,numeric"`
}

func Defaults() Config {
	return Config{
		Mode:                 string(services.ModeFast),
		SampleCount:          services.DefaultSampleCount,
		SampleStepMeters:     services.DefaultSampleStepMeters,
		DistanceMetric:       "haversine",
		CellResolution:       9,
		UnresolvedPolicy:     string(services.UnresolvedExclude),
		TimeThresholdSeconds: services.DefaultTimeThresholdSeconds,
		Workers:              8,
		ShapePrecision:       services.DefaultShapePrecision,
		RoutesDir:            "data/routes_in",
		OutDir:               "data/outputs",
		CacheBackend:         "parquet",
		CachePath:            "data/cache/cells_r9.parquet",
		NominatimURL:         "http://localhost:8080",
		ValhallaURL:          "http://localhost:8002",
		GeocodeRPS:           20,
		GeocodeTimeout:       5 * time.Second,
		NATSSubject:          "statetime.trips",
		Port:                 "8000",
	}
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load builds the configuration. yamlPath may be empty. A missing .env file
// is not an error.
func Load(yamlPath string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := Defaults()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return Config{}, fmt.Errorf("load config: read %q: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config: parse %q: %w", yamlPath, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	return validator.New().Struct(c)
}

func applyEnv(c *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("MODE", &c.Mode)
	integer("SAMPLE_COUNT", &c.SampleCount)
	float("SAMPLE_STEP_METERS", &c.SampleStepMeters)
	str("DISTANCE_METRIC", &c.DistanceMetric)
	integer("CELL_RES", &c.CellResolution)
	str("UNRESOLVED_POLICY", &c.UnresolvedPolicy)
	float("TIME_THRESHOLD_SECONDS", &c.TimeThresholdSeconds)
	integer("WORKERS", &c.Workers)
	integer("SHAPE_PRECISION", &c.ShapePrecision)
	str("ROUTES_DIR", &c.RoutesDir)
	str("OUT_DIR", &c.OutDir)
	str("CACHE_BACKEND", &c.CacheBackend)
	str("CACHE_PATH", &c.CachePath)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_ADDR", &c.RedisAddr)
	str("NOM_URL", &c.NominatimURL)
	str("VALHALLA_URL", &c.ValhallaURL)
	str("STATES_GEOJSON", &c.StatesGeoJSON)
	float("GEOCODE_RPS", &c.GeocodeRPS)
	duration("GEOCODE_TIMEOUT", &c.GeocodeTimeout)
	str("NATS_URL", &c.NATSURL)
	str("NATS_SUBJECT", &c.NATSSubject)
	str("PORT", &c.Port)

	return errors.Join(errs...)
}

// Modes returns the pipeline modes to run; "both" expands to fast and
// precise, in that order.
func (c Config) Modes() ([]services.Mode, error) {
	if c.Mode == "both" {
		return []services.Mode{services.ModeFast, services.ModePrecise}, nil
	}
	m, err := services.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	return []services.Mode{m}, nil
}

// PipelineOptions maps the configuration onto pipeline options for mode.
func (c Config) PipelineOptions(mode services.Mode) (services.Options, error) {
	policy, err := services.ParseUnresolvedPolicy(c.UnresolvedPolicy)
	if err != nil {
		return services.Options{}, err
	}

	return services.Options{
		Mode:                 mode,
		SampleCount:          c.SampleCount,
		SampleStepMeters:     c.SampleStepMeters,
		DistanceMetric:       c.DistanceMetric,
		CellResolution:       services.CellRes(c.CellResolution),
		UnresolvedPolicy:     policy,
		TimeThresholdSeconds: c.TimeThresholdSeconds,
		ShapePrecision:       c.ShapePrecision,
		Workers:              c.Workers,
	}, nil
}

// ModeOutDir is the output directory for one mode's run.
func (c Config) ModeOutDir(mode services.Mode) string {
	return filepath.Join(c.OutDir, string(mode))
}

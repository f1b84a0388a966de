package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	DraftStoreMemory = "memory"
	DraftStoreRedis  = "redis"
)

type Server struct {
	Host              string        `yaml:"host"`
	Port              string        `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	LivenessEndpoint  string        `yaml:"liveness_endpoint"`
}

type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Booking struct {
	SameDayPoll        time.Duration `yaml:"same_day_poll"`
	CountdownTick      time.Duration `yaml:"countdown_tick"`
	LookaheadDays      int           `yaml:"lookahead_days"`
	LookaheadStride    int           `yaml:"lookahead_stride"`
	LoginPath          string        `yaml:"login_path"`
	BookingPath        string        `yaml:"booking_path"`
	MinGuestNameLength int           `yaml:"min_guest_name_length"`
}

type Drafts struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	API     API     `yaml:"api"`
	Booking Booking `yaml:"booking"`
	Drafts  Drafts  `yaml:"drafts"`
	Log     Log     `yaml:"log"`
}

func Default() *Config {
	return &Config{
		Server: Server{
			Host:              "localhost",
			Port:              "8092",
			ReadHeaderTimeout: 20 * time.Second, //nolint:gomnd
			ShutdownTimeout:   4 * time.Second,  //nolint:gomnd
			LivenessEndpoint:  "/liveness",
		},
		API: API{
			BaseURL: "http://localhost:3000/api",
			Timeout: 10 * time.Second, //nolint:gomnd
		},
		Booking: Booking{
			SameDayPoll:        5 * time.Minute, //nolint:gomnd
			CountdownTick:      time.Minute,
			LookaheadDays:      14, //nolint:gomnd
			LookaheadStride:    2,  //nolint:gomnd
			LoginPath:          "/login",
			BookingPath:        "/booking",
			MinGuestNameLength: 2, //nolint:gomnd
		},
		Drafts: Drafts{
			Backend: DraftStoreMemory,
			TTL:     30 * time.Minute, //nolint:gomnd
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path,
// an optional .env file and finally the process environment.
func Load(path string) (*Config, error) {
	conf := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(raw, conf); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := conf.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	setString("HOMESTAY_HTTP_HOST", &c.Server.Host)
	setString("HOMESTAY_HTTP_PORT", &c.Server.Port)
	setString("HOMESTAY_API_BASE_URL", &c.API.BaseURL)
	setString("HOMESTAY_LOGIN_PATH", &c.Booking.LoginPath)
	setString("HOMESTAY_DRAFT_STORE", &c.Drafts.Backend)
	setString("HOMESTAY_REDIS_ADDR", &c.Drafts.RedisAddr)
	setString("HOMESTAY_REDIS_PASSWORD", &c.Drafts.RedisPassword)
	setString("HOMESTAY_LOG_LEVEL", &c.Log.Level)
	setString("HOMESTAY_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("HOMESTAY_API_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse HOMESTAY_API_TIMEOUT: %w", err)
		}

		c.API.Timeout = d
	}

	if v, ok := lookup("HOMESTAY_REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse HOMESTAY_REDIS_DB: %w", err)
		}

		c.Drafts.RedisDB = db
	}

	return nil
}

func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("api.base_url is empty: %w", ErrInvalidConfig)
	case c.API.Timeout <= 0:
		return fmt.Errorf("api.timeout must be positive: %w", ErrInvalidConfig)
	case c.Booking.SameDayPoll <= 0 || c.Booking.CountdownTick <= 0:
		return fmt.Errorf("booking poll intervals must be positive: %w", ErrInvalidConfig)
	case c.Booking.LookaheadStride <= 0 || c.Booking.LookaheadDays < c.Booking.LookaheadStride:
		return fmt.Errorf("booking look-ahead stride must be in (0, lookahead_days]: %w", ErrInvalidConfig)
	case c.Drafts.Backend != DraftStoreMemory && c.Drafts.Backend != DraftStoreRedis:
		return fmt.Errorf("drafts.backend %q is unknown: %w", c.Drafts.Backend, ErrInvalidConfig)
	case c.Drafts.Backend == DraftStoreRedis && c.Drafts.RedisAddr == "":
		return fmt.Errorf("drafts.redis_addr is required for redis backend: %w", ErrInvalidConfig)
	}

	return nil
}

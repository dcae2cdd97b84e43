package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

type HTTP struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"` // empty or "*" allows any
}

type GRPC struct {
	Addr           string        `yaml:"addr"` // empty disables the gRPC server
	HealthInterval time.Duration `yaml:"healthInterval"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // coderjam
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

type SQLite struct {
	Path string `yaml:"path"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

type Store struct {
	Driver   string   `yaml:"driver"` // postgres|sqlite|redis
	Postgres Postgres `yaml:"postgres"`
	SQLite   SQLite   `yaml:"sqlite"`
	Redis    Redis    `yaml:"redis"`
}

type Session struct {
	GrantTTL       time.Duration `yaml:"grantTTL"`
	PersistTimeout time.Duration `yaml:"persistTimeout"`
	KeyCost        int           `yaml:"keyCost"` // bcrypt cost, 0 for default
}

type WS struct {
	PingEvery         time.Duration `yaml:"pingEvery"`
	MaxMessageBytes   int64         `yaml:"maxMessageBytes"`
	MessagesPerSecond float64       `yaml:"messagesPerSecond"` // 0 disables
	Burst             int           `yaml:"burst"`
	SendQueue         int           `yaml:"sendQueue"`
}

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	GRPC    GRPC    `yaml:"grpc"`
	Logging Logging `yaml:"logging"`
	Store   Store   `yaml:"store"`
	Session Session `yaml:"session"`
	WS      WS      `yaml:"ws"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required")
		}
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			c.Store.SQLite.Path = "./data/coderjam.db"
		}
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of postgres, sqlite, redis", c.Store.Driver)
	}

	if c.Session.GrantTTL < 0 || c.Session.PersistTimeout < 0 {
		return errors.New("session durations must not be negative")
	}
	if c.WS.MessagesPerSecond < 0 {
		return errors.New("ws.messagesPerSecond must not be negative")
	}

	if c.Session.GrantTTL == 0 {
		c.Session.GrantTTL = 24 * time.Hour
	}
	if c.Session.PersistTimeout == 0 {
		c.Session.PersistTimeout = 5 * time.Second
	}
	if c.WS.PingEvery <= 0 {
		c.WS.PingEvery = 15 * time.Second
	}
	if c.WS.MaxMessageBytes <= 0 {
		c.WS.MaxMessageBytes = 1 << 20
	}
	if c.WS.Burst <= 0 {
		c.WS.Burst = 50
	}
	if c.WS.SendQueue <= 0 {
		c.WS.SendQueue = 256
	}
	if c.GRPC.HealthInterval <= 0 {
		c.GRPC.HealthInterval = 10 * time.Second
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "coderjam"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

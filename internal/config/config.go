package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Order    OrderConfig    `yaml:"order"`
	Jobs     JobsConfig     `yaml:"jobs"`
}

type ServerConfig struct {
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"readTimeout"`
	WriteTimeout     time.Duration `yaml:"writeTimeout"`
	IdleTimeout      time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdownTimeout"`
	EventsHeartbeat  time.Duration `yaml:"eventsHeartbeat"`
	EventsBufferSize int           `yaml:"eventsBufferSize"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	// QueryTimeout bounds every store operation, including waiting for a pooled connection.
	QueryTimeout time.Duration `yaml:"queryTimeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type OrderConfig struct {
	DeleteMode        string `yaml:"deleteMode"`
	StrictTransitions bool   `yaml:"strictTransitions"`
}

type JobsConfig struct {
	StatsSchedule string `yaml:"statsSchedule"`
}

type setting struct {
	key string
	env string
	def interface{}
}

var settings = []setting{
	{"server.port", "SERVER_PORT", 8080},
	{"server.readTimeout", "SERVER_READ_TIMEOUT", "10s"},
	{"server.writeTimeout", "SERVER_WRITE_TIMEOUT", "10s"},
	{"server.idleTimeout", "SERVER_IDLE_TIMEOUT", "30s"},
	{"server.shutdownTimeout", "SERVER_SHUTDOWN_TIMEOUT", "10s"},
	{"server.eventsHeartbeat", "SERVER_EVENTS_HEARTBEAT", "15s"},
	{"server.eventsBufferSize", "SERVER_EVENTS_BUFFER_SIZE", 16},
	{"database.host", "DB_HOST", "localhost"},
	{"database.port", "DB_PORT", 3306},
	{"database.user", "DB_USER", "orderboard"},
	{"database.password", "DB_PASSWORD", "secret"},
	{"database.name", "DB_NAME", "orderboard"},
	{"database.maxOpenConns", "DB_MAX_OPEN_CONNS", 25},
	{"database.maxIdleConns", "DB_MAX_IDLE_CONNS", 5},
	{"database.connMaxLifetime", "DB_CONN_MAX_LIFETIME", "5m"},
	{"database.queryTimeout", "DB_QUERY_TIMEOUT", "5s"},
	{"log.level", "LOG_LEVEL", "info"},
	{"order.deleteMode", "ORDER_DELETE_MODE", "soft"},
	{"order.strictTransitions", "ORDER_STRICT_TRANSITIONS", false},
	{"jobs.statsSchedule", "JOBS_STATS_SCHEDULE", "@every 15s"},
}

// Load builds the config from defaults and the environment.
func Load() (*Config, error) {
	return LoadWithFile(nil)
}

// LoadWithFile layers defaults, then the decoded config file, then the
// environment. An environment variable always wins over the file.
func LoadWithFile(file map[string]interface{}) (*Config, error) {
	v := viper.New()

	envNames := make(map[string]string, len(settings))
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", s.env, err)
		}
		envNames[s.key] = s.env
	}

	if file != nil {
		if err := v.MergeConfigMap(file); err != nil {
			return nil, fmt.Errorf("merging config file: %w", err)
		}
	}

	durations := map[string]time.Duration{}
	for _, key := range []string{
		"server.readTimeout",
		"server.writeTimeout",
		"server.idleTimeout",
		"server.shutdownTimeout",
		"server.eventsHeartbeat",
		"database.connMaxLifetime",
		"database.queryTimeout",
	} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("parsing %s (%s): %w", key, envNames[key], err)
		}
		durations[key] = d
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:             v.GetInt("server.port"),
			ReadTimeout:      durations["server.readTimeout"],
			WriteTimeout:     durations["server.writeTimeout"],
			IdleTimeout:      durations["server.idleTimeout"],
			ShutdownTimeout:  durations["server.shutdownTimeout"],
			EventsHeartbeat:  durations["server.eventsHeartbeat"],
			EventsBufferSize: v.GetInt("server.eventsBufferSize"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			MaxOpenConns:    v.GetInt("database.maxOpenConns"),
			MaxIdleConns:    v.GetInt("database.maxIdleConns"),
			ConnMaxLifetime: durations["database.connMaxLifetime"],
			QueryTimeout:    durations["database.queryTimeout"],
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Order: OrderConfig{
			DeleteMode:        v.GetString("order.deleteMode"),
			StrictTransitions: v.GetBool("order.strictTransitions"),
		},
		Jobs: JobsConfig{
			StatsSchedule: v.GetString("jobs.statsSchedule"),
		},
	}

	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Listen string
		Port   int16
	}

	DB struct {
		// Path to the SQLite database file holding the bundled poems.
		Path string
		// Optional path to a poems_bundle.json used to (re)initialize an
		// empty database on startup.
		Bundle string
	}

	Remote Remote
}

type Remote struct {
	// Base URL of the poetry API, e.g. "https://api.example.com".
	BaseURL string `yaml:"baseURL"`

	// Whether remote data should be used at all. This is the user-level
	// switch; the runtime availability flag is kept in the settings table
	// and updated by the health check.
	UseRemote bool `yaml:"useRemote"`

	// Timeout applied to every individual remote call, in seconds.
	TimeoutSeconds int `yaml:"timeoutSeconds"`

	// Upper bound for a whole search operation (remote call plus mapping),
	// in seconds.
	SearchTimeoutSeconds int `yaml:"searchTimeoutSeconds"`

	// The maximum amount of requests per minute that can be made to the
	// remote service.
	Speed int `yaml:"speed"`

	// How often the health check probes the remote service, in seconds.
	HealthIntervalSeconds int `yaml:"healthIntervalSeconds"`

	// Remote page size used by the author listing engine.
	PageSize int `yaml:"pageSize"`
}

func (r Remote) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (r Remote) SearchTimeout() time.Duration {
	return time.Duration(r.SearchTimeoutSeconds) * time.Second
}

func (r Remote) HealthInterval() time.Duration {
	return time.Duration(r.HealthIntervalSeconds) * time.Second
}

func Read() (*Config, error) {

	data, err := os.ReadFile("./config.yml")
	if err != nil {
		return nil, err
	}

	config := &Config{}
	err = yaml.Unmarshal([]byte(data), config)

	if err != nil {
		return nil, err
	}

	config.applyDefaults()

	if config.DB.Path == "" {
		return nil, fmt.Errorf("db.path must be set")
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = "127.0.0.1"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Remote.TimeoutSeconds == 0 {
		c.Remote.TimeoutSeconds = 15
	}
	if c.Remote.SearchTimeoutSeconds == 0 {
		c.Remote.SearchTimeoutSeconds = 60
	}
	if c.Remote.Speed == 0 {
		c.Remote.Speed = 60
	}
	if c.Remote.HealthIntervalSeconds == 0 {
		c.Remote.HealthIntervalSeconds = 60
	}
	if c.Remote.PageSize == 0 {
		c.Remote.PageSize = 20
	}
}

// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/goccy/go-yaml"
)

const configFileName = "config.yaml"

type Config struct {
	Application Application `yaml:"application"`
	Logger      Logger      `yaml:"logger"`

	HTTP HTTPServer `yaml:"http"`

	AWS          AWS          `yaml:"aws"`
	Cognito      Cognito      `yaml:"cognito"`
	SessionStore SessionStore `yaml:"sessionStore"`
	Gateway      Gateway      `yaml:"gateway"`
}

type Application struct {
	Name        string `yaml:"name" default:"cognito-gateway"`
	Environment string `yaml:"environment" default:"development"`
}

type Logger struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

// AWS configures the SDK clients. The defaults target a local moto
// endpoint with the static test credentials moto accepts.
type AWS struct {
	EndpointURL     string    `yaml:"endpointURL" default:"http://moto:5000"`
	Region          string    `yaml:"region" default:"us-east-1"`
	AccessKeyID     SourceRef `yaml:"accessKeyID"`
	SecretAccessKey SourceRef `yaml:"secretAccessKey"`
	UsePathStyle    bool      `yaml:"usePathStyle" default:"true"`
}

type Cognito struct {
	UserPoolID SourceRef `yaml:"userPoolID"`
	ClientID   SourceRef `yaml:"clientID"`
}

type SessionStore struct {
	// Backend selects the session repository: "memory" keeps sessions in
	// process (lost on restart), "valkey" shares them across replicas.
	Backend string `yaml:"backend" default:"memory"`

	TTL             time.Duration `yaml:"ttl" default:"24h"`
	CleanupInterval time.Duration `yaml:"cleanupInterval" default:"10m"`

	ValKey ValKey `yaml:"valkey"`
}

type ValKey struct {
	Host     SourceRef `yaml:"host"`
	User     SourceRef `yaml:"user"`
	Password SourceRef `yaml:"password"`
	Prefix   string    `yaml:"prefix" default:"cognito-gateway"`
}

type Gateway struct {
	SessionCookieTemplate CookieTemplate `yaml:"sessionCookie"`

	// Roles is attached verbatim to X-Auth-Request-Roles for every
	// authenticated principal.
	Roles    string `yaml:"roles" default:"user,admin"`
	LoginURL string `yaml:"loginURL" default:"/oauth2/start"`
}

// LoadConfig reads the first config.yaml found in the given directories,
// applies the struct defaults and resolves nothing else; secret values are
// resolved lazily through their SourceRef. A missing file is not an error:
// the defaults alone describe a working local setup.
func LoadConfig(cfg *Config, dirs ...string) error {
	for _, dir := range dirs {
		path := filepath.Join(os.ExpandEnv(dir), configFileName)

		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}

		break
	}

	if err := defaults.Set(cfg); err != nil {
		return fmt.Errorf("applying config defaults: %w", err)
	}

	return nil
}

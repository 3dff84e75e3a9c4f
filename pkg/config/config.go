package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

const DefaultConfigPath = "config.yaml"

// SchemaSource points at the SDL of one subgraph.
type SchemaSource struct {
	File string `yaml:"file"`
}

type SubgraphConfig struct {
	Name       string       `yaml:"name"`
	RoutingURL string       `yaml:"routing_url"`
	Schema     SchemaSource `yaml:"schema"`
}

type OutputConfig struct {
	SupergraphPath string `yaml:"supergraph_path" envDefault:"supergraph.graphql" env:"SUPERGRAPH_PATH"`
	APISchemaPath  string `yaml:"api_schema_path" envDefault:"api.graphql" env:"API_SCHEMA_PATH"`
	ArtifactPath   string `yaml:"artifact_path" envDefault:"config.json" env:"ARTIFACT_PATH"`
}

type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" envDefault:"false" env:"WATCH_ENABLED"`
	Interval time.Duration `yaml:"interval" envDefault:"1s" env:"WATCH_INTERVAL"`
}

type ListenConfig struct {
	Enabled bool   `yaml:"enabled" envDefault:"false" env:"LISTEN_ENABLED"`
	Addr    string `yaml:"addr" envDefault:"localhost:3002" env:"LISTEN_ADDR"`
}

type Config struct {
	Subgraphs []SubgraphConfig `yaml:"subgraphs"`

	Output OutputConfig `yaml:"output"`
	Watch  WatchConfig  `yaml:"watch,omitempty"`
	Listen ListenConfig `yaml:"listen,omitempty"`

	LogLevel        string `yaml:"log_level" envDefault:"info" env:"LOG_LEVEL"`
	JSONLog         bool   `yaml:"json_log" envDefault:"true" env:"JSON_LOG"`
	DevelopmentMode bool   `yaml:"dev_mode" envDefault:"false" env:"DEV_MODE"`
}

type LoadResult struct {
	Config        Config
	DefaultLoaded bool
}

func LoadConfig(configFilePath string, envOverride string) (*LoadResult, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	if envOverride != "" {
		_ = godotenv.Overload(envOverride)
	}

	cfg := &LoadResult{
		Config:        Config{},
		DefaultLoaded: true,
	}

	// Try to load the environment variables into the config

	err := env.Parse(&cfg.Config)
	if err != nil {
		return nil, err
	}

	// Read the custom config file

	var configFileBytes []byte

	if configFilePath == "" {
		configFilePath = os.Getenv("CONFIG_PATH")
		if configFilePath == "" {
			configFilePath = DefaultConfigPath
		}
	}

	isDefaultConfigPath := configFilePath == DefaultConfigPath
	configFileBytes, err = os.ReadFile(configFilePath)
	if err != nil {
		if isDefaultConfigPath {
			cfg.DefaultLoaded = false
		} else {
			return nil, fmt.Errorf("could not read custom config file %s: %w", configFilePath, err)
		}
	}

	if configFileBytes != nil {
		// Expand environment variables in the config file
		// and unmarshal it into the config struct

		configYamlData := os.ExpandEnv(string(configFileBytes))
		if err := yaml.Unmarshal([]byte(configYamlData), &cfg.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal composition config: %w", err)
		}

		// Validate the config against the JSON schema

		configFileBytes = []byte(configYamlData)

		err = ValidateConfig(configFileBytes, JSONSchema)
		if err != nil {
			return nil, fmt.Errorf("composition config validation error: %w", err)
		}

		// Unmarshal the final config

		if err := yaml.Unmarshal(configFileBytes, &cfg.Config); err != nil {
			return nil, err
		}
	}

	// Post-process the config

	if cfg.Config.DevelopmentMode {
		cfg.Config.JSONLog = false
	}

	return cfg, nil
}

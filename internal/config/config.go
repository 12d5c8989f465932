package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DefaultEnvFile is the dotenv file read at startup when present.
const DefaultEnvFile = ".env.local"

// Config holds all configuration for the catalog assistant.
type Config struct {
	Host       string
	Port       int
	Dev        bool
	Version    string
	Databricks DatabricksConfig
	Tracing    TracingConfig
	Agent      AgentConfig
	Frontend   FrontendConfig
}

type DatabricksConfig struct {
	Host         string
	Token        string
	ClientID     string
	ClientSecret string
}

type TracingConfig struct {
	// ExperimentID may be empty; traces are then not exported to MLflow.
	ExperimentID string
	Autolog      bool
	// ExportToMLflow sends spans to the experiment over OTLP/HTTP.
	ExportToMLflow bool
	// MLflowTracesPath is the OTLP traces route on the workspace host.
	MLflowTracesPath string
	// OTLPEnabled adds a plain OTLP gRPC collector export.
	OTLPEnabled  bool
	OTLPEndpoint string
	ServiceName  string
}

type AgentConfig struct {
	Endpoint      string
	MaxIterations int
	MaxTokens     int
	Temperature   float64
}

type FrontendConfig struct {
	BuildDir     string
	DevServerURL string
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Environment names the deployment mode reported by the health check.
func (c *Config) Environment() string {
	if c.Dev {
		return "development"
	}
	return "production"
}

// Load reads the dotenv file (ENV_FILE, default .env.local) if it exists and
// then resolves configuration from the environment with sensible defaults.
func Load() (*Config, error) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = DefaultEnvFile
	}
	if err := LoadEnvFile(path); err != nil {
		return nil, err
	}
	return FromEnv(), nil
}

// LoadEnvFile copies variables from a dotenv file into the process
// environment. Variables that are already set win. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}

	fv := viper.New()
	fv.SetConfigFile(path)
	fv.SetConfigType("env")
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	loaded := 0
	for _, key := range fv.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, fv.GetString(key)); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
		loaded++
	}
	log.Debug().Str("file", path).Int("vars", loaded).Msg("Loaded env file")
	return nil
}

// FromEnv resolves configuration from environment variables only.
func FromEnv() *Config {
	v := newViper()
	return &Config{
		Host:    v.GetString("uvicorn_host"),
		Port:    v.GetInt("uvicorn_port"),
		Dev:     v.GetBool("is_dev"),
		Version: v.GetString("app_version"),
		Databricks: DatabricksConfig{
			Host:         v.GetString("databricks_host"),
			Token:        v.GetString("databricks_token"),
			ClientID:     v.GetString("databricks_client_id"),
			ClientSecret: v.GetString("databricks_client_secret"),
		},
		Tracing: TracingConfig{
			ExperimentID:     v.GetString("mlflow_experiment_id"),
			Autolog:          v.GetBool("mlflow_autolog"),
			ExportToMLflow:   v.GetBool("mlflow_trace_export"),
			MLflowTracesPath: v.GetString("mlflow_otlp_traces_path"),
			OTLPEnabled:      v.GetBool("otel_enabled"),
			OTLPEndpoint:     v.GetString("otel_exporter_otlp_endpoint"),
			ServiceName:      v.GetString("otel_service_name"),
		},
		Agent: AgentConfig{
			Endpoint:      v.GetString("agent_endpoint"),
			MaxIterations: v.GetInt("agent_max_iterations"),
			MaxTokens:     v.GetInt("agent_max_tokens"),
			Temperature:   v.GetFloat64("agent_temperature"),
		},
		Frontend: FrontendConfig{
			BuildDir:     v.GetString("client_build_dir"),
			DevServerURL: v.GetString("dev_server_url"),
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("uvicorn_host", "0.0.0.0")
	v.SetDefault("uvicorn_port", 8000)
	v.SetDefault("is_dev", false)
	v.SetDefault("app_version", "0.1.0")

	v.SetDefault("mlflow_autolog", true)
	v.SetDefault("mlflow_trace_export", true)
	v.SetDefault("mlflow_otlp_traces_path", "/v1/traces")
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "localhost:4317")
	v.SetDefault("otel_service_name", "catalog-assistant")

	v.SetDefault("agent_endpoint", "databricks-claude-sonnet-4")
	v.SetDefault("agent_max_iterations", 5)
	v.SetDefault("agent_max_tokens", 1000)
	v.SetDefault("agent_temperature", 0.1)

	v.SetDefault("client_build_dir", "client/build")
	v.SetDefault("dev_server_url", "http://localhost:3000")
	return v
}

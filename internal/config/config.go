package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ConfigFileName = ".vpc-visualizer"
	ConfigFileType = "yaml"
	EnvPrefix      = "VPC_VISUALIZER"
)

// Config holds the configuration for vpc-visualizer.
type Config struct {
	AWS      AWSConfig    `mapstructure:"aws"`
	Neo4j    Neo4jConfig  `mapstructure:"neo4j"`
	Server   ServerConfig `mapstructure:"server"`
	Redis    RedisConfig  `mapstructure:"redis"`
	Format   string       `mapstructure:"format" validate:"oneof=json cypher dot"`
	Input    string       `mapstructure:"input"`
	Output   string       `mapstructure:"output"`
	Update   bool         `mapstructure:"update"`
	LogLevel string       `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error fatal"`
}

// AWSConfig selects the region and accounts security groups are fetched from.
type AWSConfig struct {
	Region      string          `mapstructure:"region"`
	SessionName string          `mapstructure:"session_name" validate:"required"`
	Accounts    []AccountConfig `mapstructure:"accounts" validate:"dive"`
}

// AccountConfig describes one account. An account without a role ARN is read
// with the base credentials.
type AccountConfig struct {
	ID         string `mapstructure:"id" validate:"omitempty,numeric,len=12"`
	RoleARN    string `mapstructure:"role_arn" validate:"omitempty,startswith=arn:"`
	ExternalID string `mapstructure:"external_id"`
}

// Neo4jConfig holds the Neo4j connection settings.
type Neo4jConfig struct {
	URI         string `mapstructure:"uri" validate:"required,uri"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DockerImage string `mapstructure:"docker_image"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr     string        `mapstructure:"addr" validate:"required"`
	APIToken string        `mapstructure:"api_token"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// RedisConfig holds the response cache settings. An empty URL disables caching.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			Region:      "",
			SessionName: "vpc-visualizer",
		},
		Neo4j: Neo4jConfig{
			URI:         "bolt://localhost:7687",
			User:        "neo4j",
			Password:    "",
			DockerImage: "neo4j:community",
		},
		Server: ServerConfig{
			Addr:     ":8080",
			CacheTTL: 5 * time.Minute,
		},
		Format:   "json",
		LogLevel: "info",
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType(ConfigFileType)

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("aws.region", defaults.AWS.Region)
	v.SetDefault("aws.session_name", defaults.AWS.SessionName)
	v.SetDefault("neo4j.uri", defaults.Neo4j.URI)
	v.SetDefault("neo4j.user", defaults.Neo4j.User)
	v.SetDefault("neo4j.password", defaults.Neo4j.Password)
	v.SetDefault("neo4j.docker_image", defaults.Neo4j.DockerImage)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.api_token", defaults.Server.APIToken)
	v.SetDefault("server.cache_ttl", defaults.Server.CacheTTL)
	v.SetDefault("redis.url", defaults.Redis.URL)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("input", defaults.Input)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("update", defaults.Update)
	v.SetDefault("log_level", defaults.LogLevel)

	// VPC_VISUALIZER_NEO4J_PASSWORD overrides neo4j.password, and so on.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Load reads the configuration from the .vpc-visualizer.yaml file.
// It searches for the config file in the current directory and $HOME.
// Environment variables override the file.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName(ConfigFileName)
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment apply.
	}

	return unmarshal(v)
}

// LoadFile reads the configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return unmarshal(v)
}

// LoadAndMerge loads configuration from file and merges it with CLI flags.
// Priority: flags > environment > config file > defaults
func LoadAndMerge(cmd *cobra.Command, args []string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	// Override with flags
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}

	if flags.Changed("output") {
		cfg.Output, _ = flags.GetString("output")
	}

	if flags.Changed("update") {
		cfg.Update, _ = flags.GetBool("update")
	}

	if flags.Changed("region") {
		cfg.AWS.Region, _ = flags.GetString("region")
	}

	if flags.Changed("neo4j-uri") {
		cfg.Neo4j.URI, _ = flags.GetString("neo4j-uri")
	}

	if flags.Changed("neo4j-user") {
		cfg.Neo4j.User, _ = flags.GetString("neo4j-user")
	}

	if flags.Changed("neo4j-pass") {
		cfg.Neo4j.Password, _ = flags.GetString("neo4j-pass")
	}

	if flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}

	if flags.Changed("redis-url") {
		cfg.Redis.URL, _ = flags.GetString("redis-url")
	}

	// Handle input file from args or flag
	if len(args) > 0 {
		cfg.Input = args[0]
	} else if flags.Changed("input") {
		cfg.Input, _ = flags.GetString("input")
	}

	return cfg, nil
}

// Save writes the configuration to a .vpc-visualizer.yaml file in the current directory.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = fmt.Sprintf("%s.%s", ConfigFileName, ConfigFileType)
	}

	accounts := make([]map[string]string, 0, len(cfg.AWS.Accounts))
	for _, a := range cfg.AWS.Accounts {
		accounts = append(accounts, map[string]string{
			"id":          a.ID,
			"role_arn":    a.RoleARN,
			"external_id": a.ExternalID,
		})
	}

	v := viper.New()
	v.Set("aws.region", cfg.AWS.Region)
	v.Set("aws.session_name", cfg.AWS.SessionName)
	v.Set("aws.accounts", accounts)
	v.Set("neo4j.uri", cfg.Neo4j.URI)
	v.Set("neo4j.user", cfg.Neo4j.User)
	v.Set("neo4j.password", cfg.Neo4j.Password)
	v.Set("neo4j.docker_image", cfg.Neo4j.DockerImage)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.api_token", cfg.Server.APIToken)
	v.Set("server.cache_ttl", cfg.Server.CacheTTL.String())
	v.Set("redis.url", cfg.Redis.URL)

	// Ensure the directory exists
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Ensure the config file is only readable/writable by the owner (contains secrets)
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set secure permissions on config file: %w", err)
	}

	return nil
}

// Exists checks if a config file exists in the current directory.
func Exists() bool {
	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileType)
	v.AddConfigPath(".")

	err := v.ReadInConfig()
	return err == nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report config keys rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the merged configuration before it is used.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		// Drop the leading "Config." from the namespace.
		_, field, _ := strings.Cut(e.Namespace(), ".")

		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s: field is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: must be one of [%s], got %q", field, e.Param(), e.Value()))
		case "startswith":
			msgs = append(msgs, fmt.Sprintf("%s: must start with %q", field, e.Param()))
		case "len", "numeric":
			msgs = append(msgs, fmt.Sprintf("%s: must be a 12-digit account id", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: validation failed (%s)", field, e.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sensing-garden/backend/internal/storage"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	AWS     AWSConfig     `yaml:"aws"`
	Tables  TablesConfig  `yaml:"tables"`
	Media   MediaConfig   `yaml:"media"`
	Auth    AuthConfig    `yaml:"auth"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// AWSConfig holds credentials and endpoint settings shared by the
// DynamoDB and S3 clients.
type AWSConfig struct {
	Region          string `yaml:"region"`
	Profile         string `yaml:"profile"`
	EndpointURL     string `yaml:"endpoint_url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// GetProfile returns the AWS profile, with environment variable override
func (c AWSConfig) GetProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.Profile
}

// ClientConfig converts the section into the storage layer's client
// settings.
func (c AWSConfig) ClientConfig() storage.AWSConfig {
	return storage.AWSConfig{
		Region:          c.Region,
		Profile:         c.GetProfile(),
		EndpointURL:     c.EndpointURL,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
	}
}

// TablesConfig names the DynamoDB tables. Names derive from the prefix
// unless overridden per table.
type TablesConfig struct {
	Prefix string             `yaml:"prefix"`
	Names  storage.TableNames `yaml:"names"`
}

// Resolve returns the effective table names.
func (c TablesConfig) Resolve() storage.TableNames {
	prefix := c.Prefix
	if prefix == "" {
		prefix = "sensing-garden"
	}
	names := storage.DefaultTableNames(prefix)
	if c.Names.Detections != "" {
		names.Detections = c.Names.Detections
	}
	if c.Names.Classifications != "" {
		names.Classifications = c.Names.Classifications
	}
	if c.Names.Models != "" {
		names.Models = c.Names.Models
	}
	if c.Names.Videos != "" {
		names.Videos = c.Names.Videos
	}
	if c.Names.Environmental != "" {
		names.Environmental = c.Names.Environmental
	}
	if c.Names.Devices != "" {
		names.Devices = c.Names.Devices
	}
	return names
}

// MediaConfig holds S3 bucket settings for images and videos.
type MediaConfig struct {
	ImagesBucket      string `yaml:"images_bucket"`
	VideosBucket      string `yaml:"videos_bucket"`
	PresignTTLSeconds int    `yaml:"presign_ttl_seconds"`
}

// PresignTTL returns the configured presign lifetime as a duration.
func (c MediaConfig) PresignTTL() time.Duration {
	return time.Duration(c.PresignTTLSeconds) * time.Second
}

// AuthConfig holds API key authentication configuration
type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// ExportConfig holds CSV export pagination limits.
type ExportConfig struct {
	PageLimit  int `yaml:"page_limit"`
	MaxPages   int `yaml:"max_pages"`
	QueryLimit int `yaml:"query_limit"`
}

// LoggingConfig holds log level and redaction settings.
type LoggingConfig struct {
	Level             string `yaml:"level"`
	RedactCoordinates *bool  `yaml:"redact_coordinates"`
}

// RedactLocation reports whether coordinates should be masked in logs.
// Defaults to true when unset.
func (c LoggingConfig) RedactLocation() bool {
	if c.RedactCoordinates == nil {
		return true
	}
	return *c.RedactCoordinates
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Media.ImagesBucket == "" {
		cfg.Media.ImagesBucket = "sensing-garden-images"
	}
	if cfg.Media.VideosBucket == "" {
		cfg.Media.VideosBucket = "sensing-garden-videos"
	}
	if cfg.Media.PresignTTLSeconds == 0 {
		cfg.Media.PresignTTLSeconds = 3600
	}
	if cfg.Export.PageLimit == 0 {
		cfg.Export.PageLimit = 5000
	}
	if cfg.Export.MaxPages == 0 {
		cfg.Export.MaxPages = 50
	}
	if cfg.Export.QueryLimit == 0 {
		cfg.Export.QueryLimit = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Default returns the built-in configuration used when no config file is
// present, matching a stock deployment.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env
// vars, so secrets can live in .env locally and in real env vars on ECS.
// A missing config file falls back to defaults rather than failing.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWS.Region = region
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		cfg.AWS.EndpointURL = endpoint
	}
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		cfg.AWS.AccessKeyID = key
	}
	if secret := os.Getenv("AWS_SECRET_ACCESS_KEY"); secret != "" {
		cfg.AWS.SecretAccessKey = secret
	}
	if apiKey := os.Getenv("SENSING_GARDEN_API_KEY"); apiKey != "" {
		cfg.Auth.APIKey = apiKey
	}
	if bucket := os.Getenv("SG_IMAGES_BUCKET"); bucket != "" {
		cfg.Media.ImagesBucket = bucket
	}
	if bucket := os.Getenv("SG_VIDEOS_BUCKET"); bucket != "" {
		cfg.Media.VideosBucket = bucket
	}
	if prefix := os.Getenv("SG_TABLE_PREFIX"); prefix != "" {
		cfg.Tables.Prefix = prefix
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	return cfg, nil
}

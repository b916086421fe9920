package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SettingsBackendPostgres = "postgres"
	SettingsBackendSQLite   = "sqlite"
)

type DBconfig struct {
	URL             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	EnsureSchema    bool
}

type SettingsConfig struct {
	Backend    string // postgres or sqlite
	SQLitePath string
}

type RESTconfig struct {
	Port           string
	AllowedOrigins []string
}

type RabbitMQConfig struct {
	Enabled bool
	URL     string
}

type StdoutLogConfig struct {
	Level string
	JSON  bool
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

type CostFactorsConfig struct {
	ConfigPath string // terra.json
	DataDir    string // base directory of file sources
	CacheSize  int
}

type S3Config struct {
	Enabled   bool
	Region    string
	Bucket    string
	Endpoint  string
	PathStyle bool
}

type HeatmapConfig struct {
	CacheTTL  time.Duration
	CacheSize int
}

// ImpactConfig holds the rates of the simplified variation impact model.
type ImpactConfig struct {
	UnitAreaRate     float64
	RegionImpactRate float64
}

type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// AppConfig holds the whole application configuration.
type AppConfig struct {
	AppName      string
	Database     DBconfig
	Settings     SettingsConfig
	Rest         RESTconfig
	RabbitMQ     RabbitMQConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
	CostFactors  CostFactorsConfig
	S3           S3Config
	Heatmap      HeatmapConfig
	Impact       ImpactConfig
	Metrics      MetricsConfig
}

// LoadConfig reads the configuration from environment variables, loading
// a .env file first when one exists.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: no .env file loaded (path: %v): %v\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "cost-engine-service")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.Database.MaxConns = int32(getEnvAsInt("DATABASE_MAX_CONNS", 10))
	cfg.Database.MaxConnLifetime = getEnvAsDuration("DATABASE_MAX_CONN_LIFETIME", time.Hour)
	cfg.Database.EnsureSchema = getEnvAsBool("DATABASE_ENSURE_SCHEMA", true)

	cfg.Settings.Backend = strings.ToLower(getEnvAsString("SETTINGS_BACKEND", SettingsBackendPostgres))
	switch cfg.Settings.Backend {
	case SettingsBackendPostgres:
	case SettingsBackendSQLite:
		cfg.Settings.SQLitePath = getEnvAsString("SETTINGS_SQLITE_PATH", "data/settings.db")
	default:
		return nil, fmt.Errorf("SETTINGS_BACKEND must be %q or %q, got %q", SettingsBackendPostgres, SettingsBackendSQLite, cfg.Settings.Backend)
	}

	cfg.Rest.Port = getEnvAsString("PORT", "8090")
	cfg.Rest.AllowedOrigins = getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"})

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", false)
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL environment variable is required when RABBITMQ_ENABLED is true")
		}
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")
	cfg.StdoutLogger.JSON = getEnvAsBool("STDOUT_LOG_JSON", false)

	cfg.CostFactors.ConfigPath = getEnvAsString("COST_FACTORS_CONFIG", "config/terra.json")
	cfg.CostFactors.DataDir = getEnvAsString("COST_FACTORS_DATA_DIR", "data")
	cfg.CostFactors.CacheSize = getEnvAsInt("COST_FACTORS_CACHE_SIZE", 32)

	cfg.S3.Enabled = getEnvAsBool("S3_ENABLED", false)
	if cfg.S3.Enabled {
		cfg.S3.Region = getEnvAsString("S3_REGION", "us-east-1")
		cfg.S3.Bucket = os.Getenv("S3_BUCKET")
		cfg.S3.Endpoint = os.Getenv("S3_ENDPOINT")
		cfg.S3.PathStyle = getEnvAsBool("S3_PATH_STYLE", cfg.S3.Endpoint != "")
	}

	cfg.Heatmap.CacheTTL = getEnvAsDuration("HEATMAP_CACHE_TTL", 30*time.Minute)
	cfg.Heatmap.CacheSize = getEnvAsInt("HEATMAP_CACHE_SIZE", 64)

	cfg.Impact.UnitAreaRate = getEnvAsFloat("IMPACT_UNIT_AREA_RATE", 100)
	cfg.Impact.RegionImpactRate = getEnvAsFloat("IMPACT_REGION_RATE", 0.05)

	cfg.Metrics.Enabled = getEnvAsBool("METRICS_ENABLED", true)
	cfg.Metrics.Namespace = getEnvAsString("METRICS_NAMESPACE", "cost_engine")

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	v, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as float: %v. Using default value: %g\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

// getEnvAsDuration accepts Go durations ("30m") or a bare number of minutes.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if minutes, err := strconv.Atoi(valStr); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

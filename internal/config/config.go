package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperrors "user-etl/pkg/errors"
)

// Config holds all configuration for the application
type Config struct {
	DB       DatabaseConfig
	Pipeline PipelineConfig
	Redis    RedisConfig
	App      AppConfig
	Logger   LoggerConfig
}

// DatabaseConfig holds connection parameters for the destination store
type DatabaseConfig struct {
	Host                  string `mapstructure:"POSTGRES_HOST" validate:"required"`
	Port                  int    `mapstructure:"POSTGRES_PORT" validate:"min=1,max=65535"`
	User                  string `mapstructure:"POSTGRES_USER" validate:"required"`
	Password              string `mapstructure:"POSTGRES_PASSWORD"`
	Name                  string `mapstructure:"POSTGRES_DB" validate:"required"`
	SSLMode               string `mapstructure:"POSTGRES_SSLMODE" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	ConnectTimeoutSeconds int    `mapstructure:"POSTGRES_CONNECT_TIMEOUT" validate:"min=0"`
}

// PipelineConfig holds the generate/transform/load parameters
type PipelineConfig struct {
	NumRecords      int    `mapstructure:"PIPELINE_NUM_RECORDS" validate:"min=0"`
	Seed            uint64 `mapstructure:"PIPELINE_SEED"`
	RawFile         string `mapstructure:"PIPELINE_RAW_FILE" validate:"required"`
	TransformedFile string `mapstructure:"PIPELINE_TRANSFORMED_FILE" validate:"required,nefield=RawFile"`
	BatchSize       int    `mapstructure:"PIPELINE_BATCH_SIZE" validate:"min=1"`
}

// RedisConfig holds configuration for the optional run report store
type RedisConfig struct {
	Enabled     bool   `mapstructure:"REDIS_ENABLED"`
	Host        string `mapstructure:"REDIS_HOST" validate:"required_if=Enabled true"`
	Port        string `mapstructure:"REDIS_PORT" validate:"required_if=Enabled true"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB" validate:"min=0"`
	MaxRetries  int    `mapstructure:"REDIS_MAX_RETRIES" validate:"min=0"`
	PoolSize    int    `mapstructure:"REDIS_POOL_SIZE" validate:"min=0"`
	MinIdleConn int    `mapstructure:"REDIS_MIN_IDLE_CONN" validate:"min=0"`
	ReportTTL   int    `mapstructure:"REDIS_REPORT_TTL" validate:"min=0"`    // seconds, 0 keeps forever
	HistorySize int    `mapstructure:"REDIS_HISTORY_SIZE" validate:"min=1"` // runs kept in the history list
}

// AppConfig holds process-level behaviour
type AppConfig struct {
	Environment string `mapstructure:"APP_ENV"`
	StrictExit  bool   `mapstructure:"ETL_STRICT_EXIT"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level            string  `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn warning error dpanic panic fatal silent"`
	Format           string  `mapstructure:"LOG_FORMAT" validate:"oneof=json console"`
	OutputPath       string  `mapstructure:"LOG_OUTPUT_PATH"`
	SlowQuerySeconds float64 `mapstructure:"LOG_SLOW_QUERY_SECONDS" validate:"min=0"`
	EnableSampling   bool    `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName      string  `mapstructure:"SERVICE_NAME"`
	ServiceVersion   string  `mapstructure:"SERVICE_VERSION"`
}

// LoadConfig reads configuration from an optional app.env file in path and
// from environment variables. Environment variables take precedence.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app") // Look for app.env
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if we have env vars
	}

	var config Config

	config.DB.Host = v.GetString("POSTGRES_HOST")
	config.DB.Port = v.GetInt("POSTGRES_PORT")
	config.DB.User = v.GetString("POSTGRES_USER")
	config.DB.Password = v.GetString("POSTGRES_PASSWORD")
	config.DB.Name = v.GetString("POSTGRES_DB")
	config.DB.SSLMode = v.GetString("POSTGRES_SSLMODE")
	config.DB.ConnectTimeoutSeconds = v.GetInt("POSTGRES_CONNECT_TIMEOUT")

	config.Pipeline.NumRecords = v.GetInt("PIPELINE_NUM_RECORDS")
	config.Pipeline.Seed = v.GetUint64("PIPELINE_SEED")
	config.Pipeline.RawFile = v.GetString("PIPELINE_RAW_FILE")
	config.Pipeline.TransformedFile = v.GetString("PIPELINE_TRANSFORMED_FILE")
	config.Pipeline.BatchSize = v.GetInt("PIPELINE_BATCH_SIZE")

	config.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	config.Redis.Host = v.GetString("REDIS_HOST")
	config.Redis.Port = v.GetString("REDIS_PORT")
	config.Redis.Password = v.GetString("REDIS_PASSWORD")
	config.Redis.DB = v.GetInt("REDIS_DB")
	config.Redis.MaxRetries = v.GetInt("REDIS_MAX_RETRIES")
	config.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	config.Redis.MinIdleConn = v.GetInt("REDIS_MIN_IDLE_CONN")
	config.Redis.ReportTTL = v.GetInt("REDIS_REPORT_TTL")
	config.Redis.HistorySize = v.GetInt("REDIS_HISTORY_SIZE")

	config.App.Environment = v.GetString("APP_ENV")
	config.App.StrictExit = v.GetBool("ETL_STRICT_EXIT")

	config.Logger.Level = v.GetString("LOG_LEVEL")
	config.Logger.Format = v.GetString("LOG_FORMAT")
	config.Logger.OutputPath = v.GetString("LOG_OUTPUT_PATH")
	config.Logger.SlowQuerySeconds = v.GetFloat64("LOG_SLOW_QUERY_SECONDS")
	config.Logger.EnableSampling = v.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = v.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = v.GetString("SERVICE_VERSION")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("POSTGRES_HOST", "postgres")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "transformed_data_db")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("POSTGRES_CONNECT_TIMEOUT", 10)

	v.SetDefault("PIPELINE_NUM_RECORDS", 1000)
	v.SetDefault("PIPELINE_SEED", 0)
	v.SetDefault("PIPELINE_RAW_FILE", "fake_data.csv")
	v.SetDefault("PIPELINE_TRANSFORMED_FILE", "transformed_users_data.csv")
	v.SetDefault("PIPELINE_BATCH_SIZE", 500)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 2)
	v.SetDefault("REDIS_MIN_IDLE_CONN", 0)
	v.SetDefault("REDIS_REPORT_TTL", 0)
	v.SetDefault("REDIS_HISTORY_SIZE", 20)

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("ETL_STRICT_EXIT", false)

	// Logger defaults
	env := v.GetString("APP_ENV")
	if env == "production" {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
	} else {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("LOG_FORMAT", "console")
		v.SetDefault("LOG_ENABLE_SAMPLING", false)
	}
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("LOG_SLOW_QUERY_SECONDS", 0.2)
	v.SetDefault("SERVICE_NAME", "user-etl")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
}

// Validate checks every section against its validate tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator.ValidationErrors into a single
// ValidationError naming every offending field.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var messages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required", "required_if":
			messages = append(messages, fmt.Sprintf("%s is required", e.Namespace()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Namespace(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Namespace(), e.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", e.Namespace(), e.Param()))
		case "nefield":
			messages = append(messages, fmt.Sprintf("%s must differ from %s", e.Namespace(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Namespace()))
		}
	}

	return apperrors.NewValidationError("", strings.Join(messages, ", "))
}

// DSN returns the PostgreSQL Data Source Name
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s connect_timeout=%d",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.ConnectTimeoutSeconds)
}

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"code-vault-go/internal/game"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"

	devJWTSecret = "dev-only-secret-change-me"
)

type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Server
	Port            int           `mapstructure:"PORT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// JWT
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTExpiration time.Duration `mapstructure:"JWT_EXPIRATION"`

	// Game
	GameDuration     int           `mapstructure:"GAME_DURATION"`
	SequenceMaxSize  int           `mapstructure:"SEQUENCE_MAX_SIZE"`
	SecretLength     int           `mapstructure:"SECRET_LENGTH"`
	SearchStepDelay  time.Duration `mapstructure:"SEARCH_STEP_DELAY"`
	TickInterval     time.Duration `mapstructure:"TICK_INTERVAL"`
	LowTimeThreshold int           `mapstructure:"LOW_TIME_THRESHOLD"`

	// Session eviction
	SessionIdleTTL       time.Duration `mapstructure:"SESSION_IDLE_TTL"`
	SessionEndedTTL      time.Duration `mapstructure:"SESSION_ENDED_TTL"`
	SessionSweepInterval time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`

	// Outcome log
	OutcomeBackend string `mapstructure:"OUTCOME_BACKEND"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	// AWS
	AWSRegion        string `mapstructure:"AWS_REGION"`
	DynamoDBTable    string `mapstructure:"DYNAMODB_TABLE"`
	DynamoDBEndpoint string `mapstructure:"DYNAMODB_ENDPOINT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables take precedence
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 8080)
	v.SetDefault("SHUTDOWN_TIMEOUT", time.Second*30)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION", time.Hour*24)
	v.SetDefault("GAME_DURATION", game.DefaultDuration)
	v.SetDefault("SEQUENCE_MAX_SIZE", game.DefaultMaxSize)
	v.SetDefault("SECRET_LENGTH", game.DefaultSecretLength)
	v.SetDefault("SEARCH_STEP_DELAY", game.DefaultStepDelay)
	v.SetDefault("TICK_INTERVAL", game.DefaultTickInterval)
	v.SetDefault("LOW_TIME_THRESHOLD", game.DefaultLowTime)
	v.SetDefault("SESSION_IDLE_TTL", game.DefaultIdleTTL)
	v.SetDefault("SESSION_ENDED_TTL", game.DefaultEndedTTL)
	v.SetDefault("SESSION_SWEEP_INTERVAL", game.DefaultSweepInterval)
	v.SetDefault("OUTCOME_BACKEND", BackendMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("DYNAMODB_TABLE", "vault_outcomes")
	v.SetDefault("DYNAMODB_ENDPOINT", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK if we're using env vars
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.JWTSecret == "" && config.IsDevelopment() {
		config.JWTSecret = devJWTSecret
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate reports the first invalid or missing setting.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.GameDuration <= 0 {
		return fmt.Errorf("GAME_DURATION must be positive")
	}
	if c.SequenceMaxSize <= 0 {
		return fmt.Errorf("SEQUENCE_MAX_SIZE must be positive")
	}
	if c.SecretLength <= 0 || c.SecretLength > c.SequenceMaxSize {
		return fmt.Errorf("SECRET_LENGTH must be between 1 and SEQUENCE_MAX_SIZE")
	}
	if c.SearchStepDelay <= 0 || c.TickInterval <= 0 {
		return fmt.Errorf("SEARCH_STEP_DELAY and TICK_INTERVAL must be positive")
	}
	if c.SessionIdleTTL < 0 || c.SessionEndedTTL < 0 || c.SessionSweepInterval < 0 {
		return fmt.Errorf("session eviction durations must not be negative")
	}

	switch c.OutcomeBackend {
	case BackendMemory, BackendDynamoDB:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres outcome backend")
		}
	default:
		return fmt.Errorf("unknown OUTCOME_BACKEND %q", c.OutcomeBackend)
	}
	return nil
}

// GameSettings returns the per-session settings described by the config.
func (c *Config) GameSettings() game.Settings {
	return game.Settings{
		MaxSize:          c.SequenceMaxSize,
		SecretLength:     c.SecretLength,
		Duration:         c.GameDuration,
		TickInterval:     c.TickInterval,
		StepDelay:        c.SearchStepDelay,
		LowTimeThreshold: c.LowTimeThreshold,
	}
}

// ServiceOptions returns the game service options described by the config.
func (c *Config) ServiceOptions() []game.ServiceOption {
	return []game.ServiceOption{
		game.WithEviction(c.SessionIdleTTL, c.SessionEndedTTL, c.SessionSweepInterval),
	}
}

// SlogLevel parses LOG_LEVEL, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	TornAPIKey       string `yaml:"torn_api_key"`
	APIVersion       string `yaml:"api_version"`
	TrackedFactionID int    `yaml:"tracked_faction_id"`

	DiscordToken string `yaml:"discord_token"`
	ChannelID    string `yaml:"channel_id"`

	DataDir    string `yaml:"data_dir"`
	HealthAddr string `yaml:"health_addr"`

	UpdateInterval       time.Duration `yaml:"war_poll_interval"`
	TargetScanInterval   time.Duration `yaml:"target_poll_interval"`
	CleanupInterval      time.Duration `yaml:"cleanup_interval"`
	TargetMessageTTL     time.Duration `yaml:"target_message_ttl"`
	NotifyQuietPeriod    time.Duration `yaml:"notify_quiet_period"`
	AttackDedupeWindow   time.Duration `yaml:"attack_dedupe_window"`
	APIRequestsPerMinute int           `yaml:"api_requests_per_minute"`
	ClaimOverwrite       bool          `yaml:"claim_overwrite"`

	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
	BigQueryProject string `yaml:"bigquery_project"`
	BigQueryDataset string `yaml:"bigquery_dataset"`
	DeployURL       string `yaml:"deploy_url"`
	DeployKeyFile   string `yaml:"deploy_key_file"`
}

// DefaultConfig returns the configuration used before the YAML file and the
// environment are applied
func DefaultConfig() Config {
	return Config{
		APIVersion:           "v2",
		DataDir:              "./data",
		HealthAddr:           ":8080",
		UpdateInterval:       60 * time.Second,
		TargetScanInterval:   30 * time.Second,
		CleanupInterval:      10 * time.Minute,
		TargetMessageTTL:     15 * time.Minute,
		NotifyQuietPeriod:    300 * time.Second,
		APIRequestsPerMinute: 60,
		ClaimOverwrite:       true,
		CredentialsFile:      "credentials.json",
		DeployKeyFile:        "deploy.pem",
	}
}

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	// Configure logging
	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "":
		// Default based on environment
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// LoadConfig loads configuration from the optional CONFIG_FILE and then from
// environment variables, which take precedence. requireDiscord is false for
// run-once mode where no chat session is opened.
func LoadConfig(requireDiscord bool) (*Config, error) {
	config := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadConfigFile(path, &config); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}

	if config.TornAPIKey == "" {
		return nil, fmt.Errorf("TORN_API_KEY environment variable is required")
	}
	if config.TrackedFactionID <= 0 {
		return nil, fmt.Errorf("TRACKED_FACTION_ID environment variable is required")
	}
	if requireDiscord && config.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN environment variable is required")
	}
	if config.APIVersion != "v1" && config.APIVersion != "v2" {
		return nil, fmt.Errorf("API_VERSION must be v1 or v2, got %q", config.APIVersion)
	}
	if config.APIRequestsPerMinute <= 0 {
		return nil, fmt.Errorf("API_REQUESTS_PER_MINUTE must be positive, got %d", config.APIRequestsPerMinute)
	}

	return &config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to unmarshal config file %s: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("Loaded configuration file")
	return nil
}

func applyEnv(config *Config) error {
	setString(&config.TornAPIKey, "TORN_API_KEY")
	setString(&config.APIVersion, "API_VERSION")
	setString(&config.DiscordToken, "DISCORD_TOKEN")
	setString(&config.ChannelID, "CHANNEL_ID")
	setString(&config.DataDir, "DATA_DIR")
	setString(&config.HealthAddr, "HEALTH_ADDR")
	setString(&config.SpreadsheetID, "SPREADSHEET_ID")
	setString(&config.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&config.BigQueryProject, "BIGQUERY_PROJECT")
	setString(&config.BigQueryDataset, "BIGQUERY_DATASET")
	setString(&config.DeployURL, "DEPLOY_URL")
	setString(&config.DeployKeyFile, "DEPLOY_KEY_FILE")

	if v := os.Getenv("TRACKED_FACTION_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TRACKED_FACTION_ID: %w", err)
		}
		config.TrackedFactionID = id
	}

	if v := os.Getenv("API_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid API_REQUESTS_PER_MINUTE: %w", err)
		}
		config.APIRequestsPerMinute = n
	}

	if v := os.Getenv("CLAIM_OVERWRITE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CLAIM_OVERWRITE: %w", err)
		}
		config.ClaimOverwrite = b
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"WAR_POLL_INTERVAL", &config.UpdateInterval},
		{"TARGET_POLL_INTERVAL", &config.TargetScanInterval},
		{"CLEANUP_INTERVAL", &config.CleanupInterval},
		{"TARGET_MESSAGE_TTL", &config.TargetMessageTTL},
		{"NOTIFY_QUIET_PERIOD", &config.NotifyQuietPeriod},
		{"ATTACK_DEDUPE_WINDOW", &config.AttackDedupeWindow},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.target = parsed
	}

	return nil
}

func setString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// GetRequiredEnv gets an environment variable or exits if not found
func GetRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatal().Str("key", key).Msg("Required environment variable not set")
	}
	return value
}

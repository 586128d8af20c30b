package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TORN_API_KEY", "test_api_key")
	t.Setenv("TRACKED_FACTION_ID", "42125")
	t.Setenv("DISCORD_TOKEN", "test_token")
}

func TestLoadConfig(t *testing.T) {
	t.Run("ValidConfiguration", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("CHANNEL_ID", "1360732124033847387")
		t.Setenv("WAR_POLL_INTERVAL", "2m")
		t.Setenv("CLAIM_OVERWRITE", "false")

		config, err := LoadConfig(true)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if config.TornAPIKey != "test_api_key" {
			t.Errorf("Expected TornAPIKey to be 'test_api_key', got '%s'", config.TornAPIKey)
		}
		if config.TrackedFactionID != 42125 {
			t.Errorf("Expected TrackedFactionID 42125, got %d", config.TrackedFactionID)
		}
		if config.ChannelID != "1360732124033847387" {
			t.Errorf("Expected ChannelID to be set, got '%s'", config.ChannelID)
		}
		if config.UpdateInterval != 2*time.Minute {
			t.Errorf("Expected UpdateInterval 2m, got %v", config.UpdateInterval)
		}
		if config.ClaimOverwrite {
			t.Error("Expected ClaimOverwrite to be false")
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		setRequiredEnv(t)

		config, err := LoadConfig(true)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if config.CredentialsFile != "credentials.json" {
			t.Errorf("Expected CredentialsFile to default to 'credentials.json', got '%s'", config.CredentialsFile)
		}
		if config.NotifyQuietPeriod != 300*time.Second {
			t.Errorf("Expected 300s quiet period, got %v", config.NotifyQuietPeriod)
		}
		if config.APIVersion != "v2" {
			t.Errorf("Expected API version v2, got %s", config.APIVersion)
		}
		if !config.ClaimOverwrite {
			t.Error("Expected claim overwrite to default to true")
		}
		if config.AttackDedupeWindow != 0 {
			t.Errorf("Expected dedupe disabled by default, got %v", config.AttackDedupeWindow)
		}
	})

	t.Run("MissingTornAPIKey", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TORN_API_KEY", "")

		_, err := LoadConfig(true)
		if err == nil {
			t.Fatal("Expected error for missing TORN_API_KEY, got nil")
		}
		if !strings.Contains(err.Error(), "TORN_API_KEY") {
			t.Errorf("Expected error message to contain 'TORN_API_KEY', got '%s'", err.Error())
		}
	})

	t.Run("MissingDiscordTokenInRunOnce", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DISCORD_TOKEN", "")

		if _, err := LoadConfig(false); err != nil {
			t.Fatalf("Expected run-once mode to allow missing token, got %v", err)
		}

		_, err := LoadConfig(true)
		if err == nil || !strings.Contains(err.Error(), "DISCORD_TOKEN") {
			t.Errorf("Expected DISCORD_TOKEN error, got %v", err)
		}
	})

	t.Run("InvalidFactionID", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TRACKED_FACTION_ID", "abc")

		if _, err := LoadConfig(true); err == nil {
			t.Fatal("Expected error for non-numeric TRACKED_FACTION_ID")
		}
	})

	t.Run("InvalidAPIVersion", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("API_VERSION", "v3")

		if _, err := LoadConfig(true); err == nil {
			t.Fatal("Expected error for unknown API_VERSION")
		}
	})

	t.Run("ConfigFileOverriddenByEnv", func(t *testing.T) {
		setRequiredEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "channel_id: \"111\"\ndata_dir: /var/lib/bot\napi_version: v1\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("CONFIG_FILE", path)
		t.Setenv("CHANNEL_ID", "222")

		config, err := LoadConfig(true)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if config.DataDir != "/var/lib/bot" {
			t.Errorf("Expected data dir from file, got %s", config.DataDir)
		}
		if config.APIVersion != "v1" {
			t.Errorf("Expected API version from file, got %s", config.APIVersion)
		}
		if config.ChannelID != "222" {
			t.Errorf("Expected env to override file channel, got %s", config.ChannelID)
		}
	})
}

func TestSetupEnvironment(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)

	testCases := []struct {
		name          string
		env           string
		logLevel      string
		expectedLevel zerolog.Level
	}{
		{"ProductionDebug", "production", "debug", zerolog.DebugLevel},
		{"ProductionInfo", "production", "info", zerolog.InfoLevel},
		{"ProductionWarn", "production", "warn", zerolog.WarnLevel},
		{"ProductionWarning", "production", "warning", zerolog.WarnLevel},
		{"ProductionError", "production", "error", zerolog.ErrorLevel},
		{"ProductionDisabled", "production", "disabled", zerolog.Disabled},
		{"ProductionDefault", "production", "", zerolog.WarnLevel},
		{"ProductionUnknown", "production", "unknown", zerolog.InfoLevel},
		{"DevelopmentDebug", "development", "debug", zerolog.DebugLevel},
		{"DevelopmentDefault", "development", "", zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENV", tc.env)
			t.Setenv("LOGLEVEL", tc.logLevel)

			SetupEnvironment()

			if zerolog.GlobalLevel() != tc.expectedLevel {
				t.Errorf("Expected log level %v, got %v", tc.expectedLevel, zerolog.GlobalLevel())
			}
		})
	}
}

func TestGetRequiredEnv(t *testing.T) {
	t.Setenv("TEST_REQUIRED_VAR", "test_value")

	if value := GetRequiredEnv("TEST_REQUIRED_VAR"); value != "test_value" {
		t.Errorf("Expected 'test_value', got '%s'", value)
	}
}

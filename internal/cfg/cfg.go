package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"footypredict/internal/features"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	FeedKey      string
	FeedBaseURL  string
	OddsWsURL    string
	Ping         time.Duration
	RESTTimeout  time.Duration
	DataPath     string
	ModelsDir    string
	ListenPort   int
	MetricsPort  int
	Features     features.Config
	Rounds       int
	LearningRate float64
	HoldoutRatio float64
}

type ConfigFile struct {
	Feed struct {
		Key       string `yaml:"key"`
		BaseURL   string `yaml:"baseURL"`
		OddsWsURL string `yaml:"oddsWsURL"`
	} `yaml:"feed"`

	Features features.Config `yaml:"features"`

	Model struct {
		ModelsDir    string  `yaml:"modelsDir"`
		Rounds       int     `yaml:"rounds"`
		LearningRate float64 `yaml:"learningRate"`
		HoldoutRatio float64 `yaml:"holdoutRatio"`
	} `yaml:"model"`

	System struct {
		DataPath     string `yaml:"dataPath"`
		ListenPort   int    `yaml:"listenPort"`
		MetricsPort  int    `yaml:"metricsPort"`
		PingInterval string `yaml:"pingInterval"`
		RESTTimeout  string `yaml:"restTimeout"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	ping, err := time.ParseDuration(config.System.PingInterval)
	if err != nil {
		ping = 15 * time.Second
	}
	restTimeout, err := time.ParseDuration(config.System.RESTTimeout)
	if err != nil {
		restTimeout = 5 * time.Second
	}

	settings := Settings{
		FeedKey:      getEnvOrDefault("FEED_API_KEY", config.Feed.Key),
		FeedBaseURL:  getEnvOrDefault("FEED_BASE_URL", config.Feed.BaseURL),
		OddsWsURL:    getEnvOrDefault("ODDS_WS_URL", config.Feed.OddsWsURL),
		Ping:         ping,
		RESTTimeout:  restTimeout,
		DataPath:     getEnvOrDefault("DATA_PATH", config.System.DataPath),
		ModelsDir:    getEnvOrDefault("MODELS_DIR", config.Model.ModelsDir),
		ListenPort:   getIntFromEnvOrConfig("LISTEN_PORT", config.System.ListenPort),
		MetricsPort:  getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort),
		Features:     withFeatureDefaults(config.Features),
		Rounds:       getIntFromEnvOrConfig("MODEL_ROUNDS", config.Model.Rounds),
		LearningRate: getFloatFromEnvOrConfig("MODEL_LEARNING_RATE", config.Model.LearningRate),
		HoldoutRatio: getFloatFromEnvOrConfig("MODEL_HOLDOUT_RATIO", config.Model.HoldoutRatio),
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		FeedKey:      os.Getenv("FEED_API_KEY"), // optional for serving-only deployments
		FeedBaseURL:  getEnvOrDefault("FEED_BASE_URL", "https://api.football-data.example"),
		OddsWsURL:    getEnvOrDefault("ODDS_WS_URL", "wss://odds.football-data.example/stream"),
		Ping:         getDurationOrDefault("PING_INTERVAL", 15*time.Second),
		RESTTimeout:  getDurationOrDefault("REST_TIMEOUT", 5*time.Second),
		DataPath:     getEnvOrDefault("DATA_PATH", "data"),
		ModelsDir:    getEnvOrDefault("MODELS_DIR", "models"),
		ListenPort:   getIntOrDefault("LISTEN_PORT", 8090),
		MetricsPort:  getIntOrDefault("METRICS_PORT", 8080),
		Features:     withFeatureDefaults(features.Config{}),
		Rounds:       getIntOrDefault("MODEL_ROUNDS", 100),
		LearningRate: getFloatOrDefault("MODEL_LEARNING_RATE", 0.1),
		HoldoutRatio: getFloatOrDefault("MODEL_HOLDOUT_RATIO", 0.2),
	}
	settings.Features = features.Config{
		FormWindow:  getIntOrDefault("FORM_WINDOW", settings.Features.FormWindow),
		GoalsWindow: getIntOrDefault("GOALS_WINDOW", settings.Features.GoalsWindow),
		H2HWindow:   getIntOrDefault("H2H_WINDOW", settings.Features.H2HWindow),
		MinMatches:  getIntOrDefault("MIN_MATCHES", settings.Features.MinMatches),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func withFeatureDefaults(c features.Config) features.Config {
	def := features.DefaultConfig()
	if c.FormWindow == 0 {
		c.FormWindow = def.FormWindow
	}
	if c.GoalsWindow == 0 {
		c.GoalsWindow = def.GoalsWindow
	}
	if c.H2HWindow == 0 {
		c.H2HWindow = def.H2HWindow
	}
	if c.MinMatches == 0 {
		c.MinMatches = def.MinMatches
	}
	return c
}

func applyDefaults(s *Settings) {
	if s.DataPath == "" {
		s.DataPath = "data"
	}
	if s.ModelsDir == "" {
		s.ModelsDir = "models"
	}
	if s.ListenPort == 0 {
		s.ListenPort = 8090
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 8080
	}
	if s.Rounds == 0 {
		s.Rounds = 100
	}
	if s.LearningRate == 0 {
		s.LearningRate = 0.1
	}
	if s.HoldoutRatio == 0 {
		s.HoldoutRatio = 0.2
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getFloatFromEnvOrConfig(key string, configValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs range validation of configuration values.
func validateSettings(s *Settings) error {
	if s.FeedBaseURL == "" {
		return fmt.Errorf("feed base URL cannot be empty")
	}
	if s.OddsWsURL == "" {
		return fmt.Errorf("odds stream URL cannot be empty")
	}

	if s.Ping < time.Second || s.Ping > 5*time.Minute {
		return fmt.Errorf("ping interval must be between 1s and 5m, got %v", s.Ping)
	}
	if s.RESTTimeout < time.Second || s.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", s.RESTTimeout)
	}

	if s.ListenPort < 1024 || s.ListenPort > 65535 {
		return fmt.Errorf("listen port must be between 1024 and 65535, got %d", s.ListenPort)
	}
	if s.MetricsPort < 1024 || s.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", s.MetricsPort)
	}

	if s.Features.FormWindow <= 0 || s.Features.FormWindow > 100 {
		return fmt.Errorf("form window must be between 1 and 100, got %d", s.Features.FormWindow)
	}
	if s.Features.GoalsWindow <= 0 || s.Features.GoalsWindow > 100 {
		return fmt.Errorf("goals window must be between 1 and 100, got %d", s.Features.GoalsWindow)
	}
	if s.Features.H2HWindow <= 0 || s.Features.H2HWindow > 100 {
		return fmt.Errorf("head-to-head window must be between 1 and 100, got %d", s.Features.H2HWindow)
	}
	if s.Features.MinMatches < 0 || s.Features.MinMatches > 50 {
		return fmt.Errorf("min matches must be between 0 and 50, got %d", s.Features.MinMatches)
	}

	if s.Rounds <= 0 || s.Rounds > 5000 {
		return fmt.Errorf("model rounds must be between 1 and 5000, got %d", s.Rounds)
	}
	if s.LearningRate <= 0 || s.LearningRate > 1 {
		return fmt.Errorf("learning rate must be between 0 and 1, got %f", s.LearningRate)
	}
	if s.HoldoutRatio <= 0 || s.HoldoutRatio >= 1 {
		return fmt.Errorf("holdout ratio must be between 0 and 1 exclusive, got %f", s.HoldoutRatio)
	}

	return nil
}

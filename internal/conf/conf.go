package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// Analysis (classifier) provider configuration
	Analysis ProviderConfig

	// Responder provider configuration
	Responder ProviderConfig

	// History configuration
	History HistoryConfig

	// Persona configuration
	Persona PersonaConfig

	// Gating configuration
	Whitelist              []string
	RandomReplyChance      float64
	RecordEmotionInHistory bool

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	// HTTP admin API port
	APIPort int

	// Debug mode
	Debug bool
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// ProviderConfig contains one OpenAI-compatible provider endpoint
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// HistoryConfig contains history persistence settings
type HistoryConfig struct {
	Path      string
	MaxLength int
}

// PersonaConfig contains persona binding settings
type PersonaConfig struct {
	DBPath string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	homeDir, _ := os.UserHomeDir()

	// History document path
	historyPath := os.Getenv("HISTORY_PATH")
	if historyPath == "" {
		historyPath = filepath.Join(homeDir, ".interest-bridge", "history.json")
	}

	// Per-session retention
	historyMaxLength := 20
	if val := os.Getenv("HISTORY_MAX_LENGTH"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			historyMaxLength = parsed
		}
	}

	// Probability that a positive verdict actually produces a reply
	replyChance := 1.0
	if val := os.Getenv("RANDOM_REPLY_CHANCE"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			replyChance = parsed
		}
	}

	// Allow-listed subject ids (group id or sender id)
	var whitelist []string
	for _, id := range strings.Split(os.Getenv("WHITELIST"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			whitelist = append(whitelist, id)
		}
	}

	personaDBPath := os.Getenv("PERSONA_DB_PATH")
	if personaDBPath == "" {
		personaDBPath = filepath.Join(homeDir, ".interest-bridge", "personas.db")
	}

	apiPort := 9876
	if val := os.Getenv("API_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			apiPort = parsed
		}
	}

	promptsConfig, err := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))
	if err != nil {
		// A broken prompts file falls back to defaults; the bridge still runs
		promptsConfig = DefaultPromptsConfig()
	}

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Analysis: ProviderConfig{
			APIKey:  os.Getenv("ANALYSIS_API_KEY"),
			BaseURL: os.Getenv("ANALYSIS_API_BASE"),
			Model:   os.Getenv("ANALYSIS_MODEL"),
		},
		Responder: ProviderConfig{
			APIKey:  os.Getenv("RESPONDER_API_KEY"),
			BaseURL: os.Getenv("RESPONDER_API_BASE"),
			Model:   os.Getenv("RESPONDER_MODEL"),
		},
		History: HistoryConfig{
			Path:      historyPath,
			MaxLength: historyMaxLength,
		},
		Persona: PersonaConfig{
			DBPath: personaDBPath,
		},
		Whitelist:              whitelist,
		RandomReplyChance:      replyChance,
		RecordEmotionInHistory: os.Getenv("RECORD_EMOTION_IN_HISTORY") == "true",
		Prompts:                promptsConfig,
		APIPort:                apiPort,
		Debug:                  os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

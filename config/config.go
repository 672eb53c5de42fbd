// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"

	"go.mgrd.me/perq/trigger"
)

const (
	appName        = "perq"
	configFileName = "config.json"
)

// Model aliases accepted in OPENAI_STT_MODEL alongside concrete model ids.
const (
	ModelFast         = "fast-transcribe"
	ModelHighAccuracy = "high-accuracy-transcribe"
)

var modelAliases = map[string]string{
	ModelFast:         "gpt-4o-mini-transcribe",
	ModelHighAccuracy: "gpt-4o-transcribe",
}

// Config is the explicit configuration passed to each component at
// construction. JSON keys match the names the tool has always used in
// its environment files.
type Config struct {
	OpenAIAPIKey string `json:"OPENAI_API_KEY"`
	STTModel     string `json:"OPENAI_STT_MODEL"`
	Language     string `json:"TRANSCRIPTION_LANGUAGE"`

	TriggerScreenshot string `json:"TRIGGER_KEY_WITH_SCREENSHOT"`
	TriggerAudioOnly  string `json:"TRIGGER_KEY_AUDIO_ONLY"`

	SampleRate          int `json:"SAMPLE_RATE"`
	Channels            int `json:"CHANNELS"`
	MaxRecordingSeconds int `json:"MAX_RECORDING_DURATION"`

	EnableEmotion   bool    `json:"ENABLE_EMOTION_ANALYSIS"`
	HumeAPIKey      string  `json:"HUME_API_KEY,omitempty"`
	EmotionTopN     int     `json:"EMOTION_TOP_N"`
	EmotionMinScore float64 `json:"EMOTION_MIN_SCORE"`

	EnablePromptCleanup bool    `json:"ENABLE_PROMPT_CLEANUP"`
	GroqAPIKey          string  `json:"GROQ_API_KEY,omitempty"`
	GroqBaseURL         string  `json:"GROQ_BASE_URL"`
	GroqModel           string  `json:"GROQ_CLEANUP_MODEL"`
	GroqTimeoutSeconds  float64 `json:"GROQ_TIMEOUT_S"`

	EnableFormatHint bool   `json:"ENABLE_RESPONSE_FORMAT_HINT"`
	FormatHint       string `json:"RESPONSE_FORMAT_APPEND_TEXT,omitempty"`
	EnableTTS        bool   `json:"ENABLE_TTS_RESPONSE"`

	EnableTones   bool   `json:"ENABLE_TONES"`
	EnableOverlay bool   `json:"ENABLE_REGION_OVERLAY"`
	ChromeDebug   string `json:"CHROME_DEBUG_URL"`
	LogLevel      string `json:"LOG_LEVEL"`

	// Legacy keys (deprecated, kept for migration)
	LegacySTTModel string `json:"STT_MODEL,omitempty"`
	LegacyLanguage string `json:"LANGUAGE,omitempty"`
}

// Load loads configuration from the config file, applying defaults,
// legacy-key migration, environment overrides and validation clamps.
// A missing file yields the default config.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("get config path: %w", err)
		}
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run keeps defaults.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg.migrateLegacyKeys()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists the configuration to the given path (or the default).
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		STTModel:            ModelFast,
		Language:            "en",
		TriggerScreenshot:   "f9",
		TriggerAudioOnly:    "f10",
		SampleRate:          16000,
		Channels:            1,
		MaxRecordingSeconds: 60,
		EmotionTopN:         3,
		EmotionMinScore:     0.2,
		GroqBaseURL:         "https://api.groq.com/openai/v1",
		GroqModel:           "llama3-8b-8192",
		GroqTimeoutSeconds:  2.5,
		EnableTones:         true,
		EnableOverlay:       true,
		ChromeDebug:         "http://127.0.0.1:9222",
		LogLevel:            "info",
	}
}

// migrateLegacyKeys carries values from key names used by early releases.
func (c *Config) migrateLegacyKeys() {
	if c.LegacySTTModel != "" && c.STTModel == "" {
		c.STTModel = c.LegacySTTModel
	}
	if c.LegacyLanguage != "" && c.Language == "" {
		c.Language = c.LegacyLanguage
	}
	c.LegacySTTModel = ""
	c.LegacyLanguage = ""
}

// applyEnv lets environment variables override stored secrets, with the
// PERQ_ prefixed form taking precedence.
func (c *Config) applyEnv() {
	if v := envFirst("PERQ_OPENAI_API_KEY", "OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := envFirst("PERQ_HUME_API_KEY", "HUME_API_KEY"); v != "" {
		c.HumeAPIKey = v
	}
	if v := envFirst("PERQ_GROQ_API_KEY", "GROQ_API_KEY"); v != "" {
		c.GroqAPIKey = v
	}
}

func envFirst(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// Validate normalizes the configuration and reports fatal problems.
// Optional capabilities with unusable settings are switched off with a
// warning instead of failing the load.
func (c *Config) Validate() error {
	def := Default()

	if c.STTModel == "" {
		c.STTModel = def.STTModel
	}
	if resolved, ok := modelAliases[c.STTModel]; ok {
		c.STTModel = resolved
	}

	if c.Language == "" {
		c.Language = def.Language
	}
	tag, err := language.Parse(c.Language)
	if err != nil {
		return fmt.Errorf("invalid TRANSCRIPTION_LANGUAGE %q: %w", c.Language, err)
	}
	base, _ := tag.Base()
	c.Language = base.String()

	if c.TriggerScreenshot == "" {
		c.TriggerScreenshot = def.TriggerScreenshot
	}
	if c.TriggerAudioOnly == "" {
		c.TriggerAudioOnly = def.TriggerAudioOnly
	}
	skey, err := trigger.ParseKey(c.TriggerScreenshot)
	if err != nil {
		return fmt.Errorf("invalid TRIGGER_KEY_WITH_SCREENSHOT: %w", err)
	}
	akey, err := trigger.ParseKey(c.TriggerAudioOnly)
	if err != nil {
		return fmt.Errorf("invalid TRIGGER_KEY_AUDIO_ONLY: %w", err)
	}
	if skey == akey {
		return fmt.Errorf("trigger keys must differ, both are %s", skey)
	}

	switch c.SampleRate {
	case 0:
		c.SampleRate = def.SampleRate
	case 8000, 16000, 22050, 44100, 48000:
	default:
		return fmt.Errorf("unsupported SAMPLE_RATE %d", c.SampleRate)
	}
	if c.Channels == 0 {
		c.Channels = def.Channels
	}
	if c.Channels < 1 || c.Channels > 2 {
		return fmt.Errorf("CHANNELS must be 1 or 2, got %d", c.Channels)
	}

	c.MaxRecordingSeconds = clampInt(c.MaxRecordingSeconds, 5, 600, def.MaxRecordingSeconds)
	c.EmotionTopN = clampInt(c.EmotionTopN, 1, 10, def.EmotionTopN)
	c.EmotionMinScore = clampFloat(c.EmotionMinScore, 0, 1, def.EmotionMinScore)
	c.GroqTimeoutSeconds = clampFloat(c.GroqTimeoutSeconds, 0.5, 30, def.GroqTimeoutSeconds)

	if c.GroqBaseURL == "" {
		c.GroqBaseURL = def.GroqBaseURL
	}
	if c.GroqModel == "" {
		c.GroqModel = def.GroqModel
	}
	if c.ChromeDebug == "" {
		c.ChromeDebug = def.ChromeDebug
	}

	switch c.LogLevel {
	case "":
		c.LogLevel = def.LogLevel
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}

	if c.EnableEmotion && c.HumeAPIKey == "" {
		slog.Warn("emotion analysis enabled without HUME_API_KEY, disabling")
		c.EnableEmotion = false
	}
	if c.EnablePromptCleanup && c.GroqAPIKey == "" {
		slog.Warn("prompt cleanup enabled without GROQ_API_KEY, disabling")
		c.EnablePromptCleanup = false
	}

	return nil
}

// TriggerKeys returns the parsed trigger keys. Validate must have
// succeeded first.
func (c *Config) TriggerKeys() (screenshot, audioOnly trigger.Key) {
	screenshot, _ = trigger.ParseKey(c.TriggerScreenshot)
	audioOnly, _ = trigger.ParseKey(c.TriggerAudioOnly)
	return screenshot, audioOnly
}

// MaxRecording returns the recording cap as a duration.
func (c *Config) MaxRecording() time.Duration {
	return time.Duration(c.MaxRecordingSeconds) * time.Second
}

// GroqTimeout returns the prompt-cleanup timeout as a duration.
func (c *Config) GroqTimeout() time.Duration {
	return time.Duration(c.GroqTimeoutSeconds * float64(time.Second))
}

// SlogLevel maps the configured level to slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func clampInt(v, lo, hi, def int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi, def float64) float64 {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

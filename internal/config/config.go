package config

import (
	"fmt"
	"log"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (TALENTLOOP_API_AUTHTOKEN, etc.), including a local .env file
// 4. Default values - Lowest priority
type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Interview     InterviewConfig     `mapstructure:"interview"`
	Speech        SpeechConfig        `mapstructure:"speech"`
	Handoff       HandoffConfig       `mapstructure:"handoff"`
	SystemCheck   SystemCheckConfig   `mapstructure:"systemCheck"`
	Rehearsal     RehearsalConfig     `mapstructure:"rehearsal"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// APIConfig holds the platform REST API client configuration
type APIConfig struct {
	BaseURL        string               `mapstructure:"baseURL"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	AuthToken      string               `mapstructure:"authToken"`
	UserAgent      string               `mapstructure:"userAgent"`
	Retry          RetryConfig          `mapstructure:"retry"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	RateLimit      ClientRateConfig     `mapstructure:"rateLimit"`
}

// RetryConfig applies to idempotent reads only
type RetryConfig struct {
	MaxRetries int           `mapstructure:"maxRetries"`
	BaseDelay  time.Duration `mapstructure:"baseDelay"`
	MaxDelay   time.Duration `mapstructure:"maxDelay"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ClientRateConfig paces outgoing requests
type ClientRateConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

// InterviewConfig holds the session controller timings
type InterviewConfig struct {
	Duration               time.Duration `mapstructure:"duration"`
	FinalQuestionThreshold time.Duration `mapstructure:"finalQuestionThreshold"`
	WarningThreshold       time.Duration `mapstructure:"warningThreshold"`
	RestartDelay           time.Duration `mapstructure:"restartDelay"`
	MuteWarningDuration    time.Duration `mapstructure:"muteWarningDuration"`
	SpeakFallbackDelay     time.Duration `mapstructure:"speakFallbackDelay"`
	MuteReminderInterval   time.Duration `mapstructure:"muteReminderInterval"` // 0 disables reminders
	Language               string        `mapstructure:"language"`
	PermissionPolicy       string        `mapstructure:"permissionPolicy"` // "continue" or "block"
	EnableVideo            bool          `mapstructure:"enableVideo"`
}

// SpeechConfig selects and tunes the speech implementations
type SpeechConfig struct {
	Recognizer       string   `mapstructure:"recognizer"`  // "console" or "google"
	Synthesizer      string   `mapstructure:"synthesizer"` // "console" or "silent"
	VoicePreferences []string `mapstructure:"voicePreferences"`
	Rate             float64  `mapstructure:"rate"`
	Pitch            float64  `mapstructure:"pitch"`
	Volume           float64  `mapstructure:"volume"`
	WordsPerMinute   int      `mapstructure:"wordsPerMinute"`
	SampleRateHz     int32    `mapstructure:"sampleRateHz"`
	AudioFile        string   `mapstructure:"audioFile"` // raw LINEAR16 source for the google recognizer
}

// HandoffConfig selects where inter-flow data is kept
type HandoffConfig struct {
	Backend   string        `mapstructure:"backend"` // "memory", "file" or "redis"
	FilePath  string        `mapstructure:"filePath"`
	KeyPrefix string        `mapstructure:"keyPrefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the Redis connection for the handoff store
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SystemCheckConfig holds the pre-interview check settings
type SystemCheckConfig struct {
	ProbeURL    string        `mapstructure:"probeURL"`
	Samples     int           `mapstructure:"samples"`
	MinMicLevel float64       `mapstructure:"minMicLevel"`
	MicSamples  int           `mapstructure:"micSamples"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RehearsalConfig holds the local rehearsal server configuration
type RehearsalConfig struct {
	Host           string          `mapstructure:"host"`
	Port           string          `mapstructure:"port"`
	ReadTimeout    time.Duration   `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration   `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration   `mapstructure:"idleTimeout"`
	MaxRequestSize int64           `mapstructure:"maxRequestSize"`
	APIKeys        []string        `mapstructure:"apiKeys"`
	AllowedOrigins []string        `mapstructure:"allowedOrigins"`
	MaxQuestions   int             `mapstructure:"maxQuestions"`
	RateLimit      RateLimitConfig `mapstructure:"rateLimit"`
	AI             AIConfig        `mapstructure:"ai"`
}

// AIConfig holds the interviewer model configuration for the rehearsal server
type AIConfig struct {
	Provider       string               `mapstructure:"provider"` // "gemini" or "scripted"
	Model          string               `mapstructure:"model"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	APIKey         string               `mapstructure:"apiKey"`
	MaxRetries     int                  `mapstructure:"maxRetries"`
	Temperature    float32              `mapstructure:"temperature"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	PromptFiles    PromptFiles          `mapstructure:"promptFiles"`

	// Prompts holds the contents of PromptFiles once loaded
	Prompts LoadedPrompts `mapstructure:"-"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int  `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int  `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	Transport TransportMetricsConfig `mapstructure:"transport"`
	Interview InterviewMetricsConfig `mapstructure:"interview"`
	AI        AIMetricsConfig        `mapstructure:"ai"`
}

// TransportMetricsConfig holds API client metrics configuration
type TransportMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
}

// InterviewMetricsConfig holds session metrics configuration
type InterviewMetricsConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TrackTurns bool `mapstructure:"trackTurns"`
}

// AIMetricsConfig holds rehearsal interviewer metrics configuration
type AIMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// Known option values
var (
	HandoffBackends    = []string{"memory", "file", "redis"}
	RecognizerKinds    = []string{"console", "google"}
	SynthesizerKinds   = []string{"console", "silent"}
	PermissionPolicies = []string{"continue", "block"}
	AIProviders        = []string{"gemini", "scripted"}
)

// LoadConfig loads configuration from a .env file, environment variables and a config file
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded environment overrides from .env")
	}

	v := viper.New()

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("TALENTLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'TALENTLOOP'")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/talentloop/")
	v.AddConfigPath("$HOME/.talentloop")
	v.AddConfigPath(".")
	log.Println("[CONFIG] Configured config file search paths: /etc/talentloop/, $HOME/.talentloop, .")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	config, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return config, nil
}

// Default returns the configuration built from defaults only
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	config, err := unmarshal(v)
	if err != nil {
		// defaults are static; a failure here is a programming error
		panic(err)
	}
	return config
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.applyFallbacks()
	return &config, nil
}

// Validate checks the configuration for values the client cannot run with
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required (set TALENTLOOP_API_BASEURL environment variable)")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API base URL: %s", c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("API timeout must be positive")
	}

	if c.Interview.Duration <= 0 {
		return fmt.Errorf("interview duration must be positive")
	}

	if c.Interview.FinalQuestionThreshold <= 0 {
		return fmt.Errorf("final question threshold must be positive")
	}

	if c.Interview.MuteReminderInterval < 0 {
		return fmt.Errorf("mute reminder interval cannot be negative")
	}

	if !slices.Contains(PermissionPolicies, c.Interview.PermissionPolicy) {
		return fmt.Errorf("invalid permission policy: %s", c.Interview.PermissionPolicy)
	}

	if !slices.Contains(HandoffBackends, c.Handoff.Backend) {
		return fmt.Errorf("invalid handoff backend: %s", c.Handoff.Backend)
	}

	if !slices.Contains(RecognizerKinds, c.Speech.Recognizer) {
		return fmt.Errorf("invalid speech recognizer: %s", c.Speech.Recognizer)
	}

	if !slices.Contains(SynthesizerKinds, c.Speech.Synthesizer) {
		return fmt.Errorf("invalid speech synthesizer: %s", c.Speech.Synthesizer)
	}

	if !slices.Contains(AIProviders, c.Rehearsal.AI.Provider) {
		return fmt.Errorf("invalid rehearsal AI provider: %s", c.Rehearsal.AI.Provider)
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}

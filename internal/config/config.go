// Package config loads service configuration from the environment and the
// client policy registry from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ai-speech-proxy-service/internal/auth"
)

// ServiceConfig holds core service settings.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	MetricsAddr string
}

// WhisperConfig holds local backend settings.
type WhisperConfig struct {
	Host     string
	Model    string
	Language string
	// MetadataLines is the number of leading result lines the local backend
	// prepends before the transcript text.
	MetadataLines int
}

// CloudConfig holds cloud fallback backend settings.
type CloudConfig struct {
	Provider string // openai, google, mock
	APIURL   string
	APIKey   string
}

// HealthConfig holds health monitor settings.
type HealthConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// StorageConfig holds artifact and ledger paths.
type StorageConfig struct {
	RecordingsDir string
	LedgerDir     string
	AuditLog      string
	ClientsFile   string
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicUsage      string
	TopicTranscript string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Configuration is the full service configuration.
type Configuration struct {
	Service        ServiceConfig
	Whisper        WhisperConfig
	Cloud          CloudConfig
	Health         HealthConfig
	Storage        StorageConfig
	Kafka          KafkaConfig
	Observability  ObservabilityConfig
	BackendTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Configuration {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PRINCIPAL", "svc-speech-proxy")
	v.SetDefault("HTTP_PORT", "8100")
	v.SetDefault("METRICS_ADDR", ":9100")

	v.SetDefault("WHISPER_HOST", "http://localhost:7860")
	v.SetDefault("WHISPER_MODEL", "large-v3-turbo")
	v.SetDefault("WHISPER_LANGUAGE", "")
	v.SetDefault("WHISPER_METADATA_LINES", 5)

	v.SetDefault("CLOUD_PROVIDER", "openai")
	v.SetDefault("OPENAI_API_URL", "https://api.openai.com/v1/audio/transcriptions")
	v.SetDefault("OPENAI_API_KEY", "")

	v.SetDefault("HEALTH_INTERVAL", 30*time.Second)
	v.SetDefault("HEALTH_TIMEOUT", 5*time.Second)
	v.SetDefault("BACKEND_TIMEOUT", 120*time.Second)

	v.SetDefault("RECORDINGS_DIR", "recordings")
	v.SetDefault("LEDGER_DIR", "client_logs")
	v.SetDefault("AUDIT_LOG", "error_log.txt")
	v.SetDefault("CLIENTS_FILE", "clients.yaml")

	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", []string{})
	v.SetDefault("KAFKA_TOPIC_USAGE", "speech.proxy.usage")
	v.SetDefault("KAFKA_TOPIC_TRANSCRIPT", "speech.proxy.transcript")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	return &Configuration{
		Service: ServiceConfig{
			Principal:   v.GetString("SERVICE_PRINCIPAL"),
			HTTPPort:    v.GetString("HTTP_PORT"),
			MetricsAddr: v.GetString("METRICS_ADDR"),
		},
		Whisper: WhisperConfig{
			Host:          v.GetString("WHISPER_HOST"),
			Model:         v.GetString("WHISPER_MODEL"),
			Language:      v.GetString("WHISPER_LANGUAGE"),
			MetadataLines: v.GetInt("WHISPER_METADATA_LINES"),
		},
		Cloud: CloudConfig{
			Provider: v.GetString("CLOUD_PROVIDER"),
			APIURL:   v.GetString("OPENAI_API_URL"),
			APIKey:   v.GetString("OPENAI_API_KEY"),
		},
		Health: HealthConfig{
			Interval: v.GetDuration("HEALTH_INTERVAL"),
			Timeout:  v.GetDuration("HEALTH_TIMEOUT"),
		},
		Storage: StorageConfig{
			RecordingsDir: v.GetString("RECORDINGS_DIR"),
			LedgerDir:     v.GetString("LEDGER_DIR"),
			AuditLog:      v.GetString("AUDIT_LOG"),
			ClientsFile:   v.GetString("CLIENTS_FILE"),
		},
		Kafka: KafkaConfig{
			Enabled:         v.GetBool("KAFKA_ENABLED"),
			Brokers:         v.GetStringSlice("KAFKA_BROKERS"),
			TopicUsage:      v.GetString("KAFKA_TOPIC_USAGE"),
			TopicTranscript: v.GetString("KAFKA_TOPIC_TRANSCRIPT"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  v.GetString("LOG_LEVEL"),
			LogFormat: v.GetString("LOG_FORMAT"),
		},
		BackendTimeout: v.GetDuration("BACKEND_TIMEOUT"),
	}
}

// clientsFile is the YAML shape of the client policy registry.
type clientsFile struct {
	Clients []auth.ClientPolicy `yaml:"clients"`
}

// LoadClients parses the client policy registry from a YAML file.
func LoadClients(path string) ([]auth.ClientPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clients file: %w", err)
	}

	var cf clientsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse clients file: %w", err)
	}

	for i, c := range cf.Clients {
		if c.ClientID == "" {
			return nil, fmt.Errorf("clients[%d]: missing client_id", i)
		}
		if c.APIKey == "" {
			return nil, fmt.Errorf("client %q: missing api_key", c.ClientID)
		}
	}
	return cf.Clients, nil
}

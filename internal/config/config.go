// internal/config/config.go

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Feed backends
const (
	FeedPostgres  = "postgres"
	FeedFirestore = "firestore"
)

// Config holds all application configuration
type Config struct {
	Environment string
	LogLevel    slog.Level
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Feed        FeedConfig
	Firestore   FirestoreConfig
	Geo         GeoConfig
	Geocoder    GeocoderConfig
	Classifier  ClassifierConfig
	Drafting    DraftingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
	MaxUploadBytes  int64
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// DSN returns the Postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	SubjectPrefix  string
	FeedBuffer     int
}

// FeedConfig selects where the live store gets its changes from
type FeedConfig struct {
	Backend        string
	ResyncSchedule string
	ResyncTimeout  time.Duration
	RetryWait      time.Duration
}

// FirestoreConfig holds Firestore configuration
type FirestoreConfig struct {
	ProjectID         string
	CredentialsFile   string
	CredentialsBase64 string
	Collection        string
}

// GeoConfig holds hot zone and proximity configuration
type GeoConfig struct {
	ClusterRadiusMeters float64
	HighDensityWeight   float64
	PriorityWeighted    bool
	NearbyRadiusKm      float64
	MaxNearbyRadiusKm   float64
}

// GeocoderConfig holds reverse geocoding configuration
type GeocoderConfig struct {
	MapsAPIKey string
	Timeout    time.Duration
}

// ClassifierConfig holds image classification configuration
type ClassifierConfig struct {
	URL           string
	Timeout       time.Duration
	MinConfidence float64
}

// DraftingConfig holds complaint letter drafting configuration
type DraftingConfig struct {
	OpenAIKey     string
	OpenAIBaseURL string
	Model         string
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnvAsLogLevel("LOG_LEVEL", slog.LevelInfo),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 2*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
			MaxUploadBytes:  int64(getEnvAsInt("SERVER_MAX_UPLOAD_BYTES", 10<<20)),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "naagrik"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			SubjectPrefix:  getEnv("NATS_SUBJECT_PREFIX", "complaints"),
			FeedBuffer:     getEnvAsInt("NATS_FEED_BUFFER", 4096),
		},
		Feed: FeedConfig{
			Backend:        strings.ToLower(getEnv("FEED_BACKEND", FeedPostgres)),
			ResyncSchedule: getEnv("FEED_RESYNC_SCHEDULE", "@every 5m"),
			ResyncTimeout:  getEnvAsDuration("FEED_RESYNC_TIMEOUT", 30*time.Second),
			RetryWait:      getEnvAsDuration("FEED_RETRY_WAIT", 5*time.Second),
		},
		Firestore: FirestoreConfig{
			ProjectID:         getEnv("FIRESTORE_PROJECT_ID", ""),
			CredentialsFile:   getEnv("FIRESTORE_CREDENTIALS_FILE", ""),
			CredentialsBase64: getEnv("FIREBASE_CREDENTIALS", ""),
			Collection:        getEnv("FIRESTORE_COLLECTION", "complaints"),
		},
		Geo: GeoConfig{
			ClusterRadiusMeters: getEnvAsFloat("GEO_CLUSTER_RADIUS_METERS", 100),
			HighDensityWeight:   getEnvAsFloat("GEO_HIGH_DENSITY_WEIGHT", 4),
			PriorityWeighted:    getEnvAsBool("GEO_PRIORITY_WEIGHTED", false),
			NearbyRadiusKm:      getEnvAsFloat("GEO_NEARBY_RADIUS_KM", 5),
			MaxNearbyRadiusKm:   getEnvAsFloat("GEO_MAX_NEARBY_RADIUS_KM", 50),
		},
		Geocoder: GeocoderConfig{
			MapsAPIKey: getEnv("MAPS_CREDENTIALS", ""),
			Timeout:    getEnvAsDuration("GEOCODER_TIMEOUT", 3*time.Second),
		},
		Classifier: ClassifierConfig{
			URL:           getEnv("CLASSIFIER_URL", ""),
			Timeout:       getEnvAsDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
			MinConfidence: getEnvAsFloat("CLASSIFIER_MIN_CONFIDENCE", 0.5),
		},
		Drafting: DraftingConfig{
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:         getEnv("DRAFTING_MODEL", "gpt-4o-mini"),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	switch config.Feed.Backend {
	case FeedPostgres:
	case FeedFirestore:
		if config.Firestore.ProjectID == "" && config.Firestore.CredentialsFile == "" && config.Firestore.CredentialsBase64 == "" {
			return fmt.Errorf("firestore feed requires a project id or credentials")
		}
	default:
		return fmt.Errorf("unknown feed backend %q", config.Feed.Backend)
	}

	if config.Feed.ResyncSchedule == "" {
		return fmt.Errorf("resync schedule must be set")
	}

	if config.Geo.ClusterRadiusMeters <= 0 {
		return fmt.Errorf("cluster radius must be positive")
	}

	if config.Geo.NearbyRadiusKm <= 0 || config.Geo.NearbyRadiusKm > config.Geo.MaxNearbyRadiusKm {
		return fmt.Errorf("nearby radius must be within (0, %g] km", config.Geo.MaxNearbyRadiusKm)
	}

	if config.Classifier.MinConfidence < 0 || config.Classifier.MinConfidence > 1 {
		return fmt.Errorf("classifier min confidence must be between 0 and 1")
	}

	if config.Environment != "development" && len(config.Server.CorsOrigins) == 1 && config.Server.CorsOrigins[0] == "*" {
		return fmt.Errorf("cors origins must be set in non-development environments")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func getEnvAsLogLevel(key string, defaultValue slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv(key, ""))); err == nil {
		return level
	}
	return defaultValue
}

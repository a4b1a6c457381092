package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageCSV      = "csv"
	StoragePostgres = "postgres"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Storage
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"csv"`
	DataDir        string `envconfig:"DATA_DIR" default:"./data"`
	ArchiveDir     string `envconfig:"ARCHIVE_DIR" default:"./data/student_database"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`

	// Face model
	FaceProvider           string        `envconfig:"FACE_PROVIDER" default:"deepface"`
	DeepFaceURL            string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel          string        `envconfig:"DEEPFACE_MODEL" default:"Facenet512"`
	DeepFaceDetector       string        `envconfig:"DEEPFACE_DETECTOR" default:"opencv"`
	FaceDetector           string        `envconfig:"FACE_DETECTOR" default:"none"`
	AWSRegion              string        `envconfig:"AWS_REGION" default:"us-east-1"`
	DetectionMinConfidence float64       `envconfig:"DETECTION_MIN_CONFIDENCE" default:"0"`
	ExtractionTimeout      time.Duration `envconfig:"EXTRACTION_TIMEOUT" default:"30s"`

	// Recognition
	MatchThreshold  float64       `envconfig:"MATCH_THRESHOLD" default:"0.6"`
	MaxEnrollImages int           `envconfig:"MAX_ENROLL_IMAGES" default:"10"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	// Notifications
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects inconsistent combinations envconfig cannot express.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageCSV:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_BACKEND %q (supported: %s, %s)", c.StorageBackend, StorageCSV, StoragePostgres)
	}

	if c.MatchThreshold <= 0 || c.MatchThreshold > 2 {
		return fmt.Errorf("config: MATCH_THRESHOLD must be in (0, 2], got %v", c.MatchThreshold)
	}
	if c.DetectionMinConfidence < 0 || c.DetectionMinConfidence > 1 {
		return fmt.Errorf("config: DETECTION_MIN_CONFIDENCE must be in [0, 1], got %v", c.DetectionMinConfidence)
	}
	if c.MaxEnrollImages < 1 {
		return fmt.Errorf("config: MAX_ENROLL_IMAGES must be positive, got %d", c.MaxEnrollImages)
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		return errors.New("config: WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName names the XDG data directory.
	AppName = "osteo-care"

	// DefaultConfigFile is looked up in the working directory when no
	// explicit path is given.
	DefaultConfigFile = "osteo.yaml"

	DefaultPort = "5000"

	DefaultMaxUploadBytes = 10 << 20

	// DefaultSessionTTL keeps questionnaire results around for a week.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// ErrConfigNotFound is returned when an explicitly named config file is missing.
var ErrConfigNotFound = errors.New("configuration file not found")

// Model locates one classifier.
type Model struct {
	Path         string `yaml:"path"`
	MetadataPath string `yaml:"metadata_path"`
	ArtifactID   string `yaml:"artifact_id"`
	ArtifactURL  string `yaml:"artifact_url"`
}

// Config is the full process configuration shared by both front-ends.
type Config struct {
	Port     string `yaml:"port"`
	DataDir  string `yaml:"data_dir"`
	ModelDir string `yaml:"model_dir"`

	ImageModel         Model `yaml:"image_model"`
	QuestionnaireModel Model `yaml:"questionnaire_model"`

	// OnnxRuntimeLib is the path to the onnxruntime shared library; empty
	// uses the platform default search.
	OnnxRuntimeLib string `yaml:"onnxruntime_lib"`

	UploadDir              string        `yaml:"upload_dir"`
	MaxUploadBytes         int64         `yaml:"max_upload_bytes"`
	MaxConcurrentInference int64         `yaml:"max_concurrent_inference"`
	SessionTTL             time.Duration `yaml:"session_ttl"`
	CORSOrigin             string        `yaml:"cors_origin"`

	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool `yaml:"secure_cookies"`

	// DatabaseURL selects PostgreSQL for the credential store. Empty means
	// SQLite under DataDir.
	DatabaseURL string `yaml:"database_url"`

	TelegramToken string `yaml:"telegram_token"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	dataDir := filepath.Join(xdg.DataHome, AppName)
	return &Config{
		Port:           DefaultPort,
		DataDir:        dataDir,
		MaxUploadBytes: DefaultMaxUploadBytes,
		SessionTTL:     DefaultSessionTTL,
		CORSOrigin:     "*",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load builds a Config. path names a YAML file; when empty, DefaultConfigFile
// in the working directory is used if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, explicit := path, path != ""
	if !explicit {
		file = DefaultConfigFile
	}
	if err := cfg.loadFile(file); err != nil {
		if !errors.Is(err, ErrConfigNotFound) || explicit {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.fillPaths()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int64) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("PORT", &c.Port)
	str("DATA_DIR", &c.DataDir)
	str("MODEL_DIR", &c.ModelDir)
	str("ONNXRUNTIME_LIB", &c.OnnxRuntimeLib)
	str("UPLOAD_DIR", &c.UploadDir)
	str("CORS_ORIGIN", &c.CORSOrigin)
	str("DATABASE_URL", &c.DatabaseURL)
	str("TELEGRAM_TOKEN", &c.TelegramToken)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	for prefix, m := range map[string]*Model{
		"IMAGE_MODEL":         &c.ImageModel,
		"QUESTIONNAIRE_MODEL": &c.QuestionnaireModel,
	} {
		str(prefix+"_PATH", &m.Path)
		str(prefix+"_METADATA", &m.MetadataPath)
		str(prefix+"_ARTIFACT_ID", &m.ArtifactID)
		str(prefix+"_ARTIFACT_URL", &m.ArtifactURL)
	}

	if err := integer("MAX_UPLOAD_BYTES", &c.MaxUploadBytes); err != nil {
		return err
	}
	if err := integer("MAX_CONCURRENT_INFERENCE", &c.MaxConcurrentInference); err != nil {
		return err
	}
	if v := strings.TrimSpace(getenv("SECURE_COOKIES")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SECURE_COOKIES: %w", err)
		}
		c.SecureCookies = b
	}
	if v := strings.TrimSpace(getenv("SESSION_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}
	return nil
}

// fillPaths derives unset directories and model paths from DataDir.
func (c *Config) fillPaths() {
	if c.ModelDir == "" {
		c.ModelDir = filepath.Join(c.DataDir, "models")
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.DataDir, "uploads")
	}
	if c.ImageModel.Path == "" {
		c.ImageModel.Path = filepath.Join(c.ModelDir, "kl_grade.onnx")
	}
	if c.ImageModel.MetadataPath == "" {
		c.ImageModel.MetadataPath = filepath.Join(c.ModelDir, "kl_grade.json")
	}
	if c.QuestionnaireModel.Path == "" {
		c.QuestionnaireModel.Path = filepath.Join(c.ModelDir, "questionnaire.onnx")
	}
	if c.QuestionnaireModel.MetadataPath == "" {
		c.QuestionnaireModel.MetadataPath = filepath.Join(c.ModelDir, "questionnaire.json")
	}
}

// Validate checks the settings every front-end relies on.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return ErrInvalidPort
	}
	if c.ImageModel.Path == "" || c.QuestionnaireModel.Path == "" {
		return ErrNoModelPath
	}
	if c.MaxUploadBytes <= 0 {
		return ErrInvalidUploadLimit
	}
	if c.MaxConcurrentInference < 0 {
		return ErrInvalidConcurrency
	}
	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}
	return nil
}

// ValidateDashboard additionally requires the Telegram token.
func (c *Config) ValidateDashboard() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TelegramToken == "" {
		return ErrNoTelegramToken
	}
	return nil
}

// SQLiteDir is where the SQLite credential database lives when DatabaseURL
// is empty.
func (c *Config) SQLiteDir() string { return c.DataDir }

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Inference  InferenceConfig
	Database   DatabaseConfig
	MariaDB    MariaDBConfig
	Attendance AttendanceConfig
	Web        WebConfig
}

type InferenceConfig struct {
	Backend     string        `yaml:"backend"`         // http, cascade or dlib
	URL         string        `yaml:"url"`             // inference server base URL (defaults to http://localhost:8000)
	TimeoutSecs int           `yaml:"timeout_seconds"` // per-request timeout for the HTTP backend
	CascadePath string        `yaml:"-"`               // Haar cascade XML for the cascade backend
	ModelDir    string        `yaml:"-"`               // dlib model directory for the dlib backend
	Timeout     time.Duration `yaml:"-"`
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// MariaDBConfig configures the optional secondary attendance store.
type MariaDBConfig struct {
	DSN string // e.g. classroll:classroll@tcp(mariadb:3306)/classroll
}

// AttendanceConfig holds the tunables of the scan and vote pipeline.
// Passes and PresenceThreshold are a coupled pair, see Validate.
type AttendanceConfig struct {
	Passes            int           `yaml:"passes"`
	PresenceThreshold int           `yaml:"presence_threshold"`
	SplitJitter       int           `yaml:"split_jitter"`
	FaceSize          int           `yaml:"face_size"`
	ScanTimeoutSecs   int           `yaml:"scan_timeout_seconds"`
	ScanConcurrency   int           `yaml:"scan_concurrency"`
	Classifier        string        `yaml:"classifier"`
	CacheTTLMinutes   int           `yaml:"cache_ttl_minutes"`
	ScanTimeout       time.Duration `yaml:"-"`
	CacheTTL          time.Duration `yaml:"-"`
}

type WebConfig struct {
	Host           string
	Port           int
	SessionSecret  string
	AllowedOrigins []string
}

type fileDefaults struct {
	Attendance AttendanceConfig `yaml:"attendance"`
	Inference  InferenceConfig  `yaml:"inference"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envInt0 is envInt but also accepts zero, which the presence threshold needs.
func envInt0(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Load() *Config {
	var defaults fileDefaults
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	a := defaults.Attendance
	inf := defaults.Inference

	cfg := &Config{
		Inference: InferenceConfig{
			Backend:     envString("INFERENCE_BACKEND", inf.Backend),
			URL:         envString("INFERENCE_URL", inf.URL),
			TimeoutSecs: envInt("INFERENCE_TIMEOUT_SECONDS", inf.TimeoutSecs),
			CascadePath: os.Getenv("INFERENCE_CASCADE_PATH"),
			ModelDir:    os.Getenv("INFERENCE_MODEL_DIR"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("ATTENDANCE_MARIADB_DSN"),
		},
		Attendance: AttendanceConfig{
			Passes:            envInt("ATTENDANCE_PASSES", a.Passes),
			PresenceThreshold: envInt0("ATTENDANCE_PRESENCE_THRESHOLD", a.PresenceThreshold),
			SplitJitter:       envInt0("ATTENDANCE_SPLIT_JITTER", a.SplitJitter),
			FaceSize:          envInt("ATTENDANCE_FACE_SIZE", a.FaceSize),
			ScanTimeoutSecs:   envInt("ATTENDANCE_SCAN_TIMEOUT_SECONDS", a.ScanTimeoutSecs),
			ScanConcurrency:   envInt("ATTENDANCE_SCAN_CONCURRENCY", a.ScanConcurrency),
			Classifier:        envString("ATTENDANCE_CLASSIFIER", a.Classifier),
			CacheTTLMinutes:   envInt("ATTENDANCE_CACHE_TTL_MINUTES", a.CacheTTLMinutes),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8085),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: splitList(os.Getenv("WEB_ALLOWED_ORIGINS")),
		},
	}
	cfg.Inference.Timeout = time.Duration(cfg.Inference.TimeoutSecs) * time.Second
	cfg.Attendance.ScanTimeout = time.Duration(cfg.Attendance.ScanTimeoutSecs) * time.Second
	cfg.Attendance.CacheTTL = time.Duration(cfg.Attendance.CacheTTLMinutes) * time.Minute
	return cfg
}

// Validate checks that the attendance tunables describe a usable vote.
// The threshold must be reachable, otherwise nobody could ever be marked present.
func (c *Config) Validate() error {
	a := c.Attendance
	if a.Passes < 1 {
		return errors.New("attendance passes must be at least 1")
	}
	if a.PresenceThreshold >= a.Passes {
		return fmt.Errorf("presence threshold %d must be lower than passes %d", a.PresenceThreshold, a.Passes)
	}
	if a.FaceSize < 1 {
		return errors.New("face size must be positive")
	}
	switch a.Classifier {
	case "svm", "knn":
	default:
		return fmt.Errorf("unknown classifier %q (want svm or knn)", a.Classifier)
	}
	switch c.Inference.Backend {
	case "http", "cascade", "dlib":
	default:
		return fmt.Errorf("unknown inference backend %q", c.Inference.Backend)
	}
	return nil
}

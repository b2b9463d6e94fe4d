package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Server captures the agent configuration. YAML tags describe the optional
// config file; every field can be overridden from the environment.
type Server struct {
	Addr        string `yaml:"addr"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	DataDir     string `yaml:"data_dir"`

	// KeystorePassphrase is env-only so it never lands in a checked-in file.
	KeystorePassphrase string `yaml:"-"`

	Directory  Directory  `yaml:"directory"`
	Reputation Reputation `yaml:"reputation"`
	Heuristic  Heuristic  `yaml:"heuristic"`

	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

// Directory points at the trusted public-key directory. An empty URL
// selects the local dev stub.
type Directory struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Reputation struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"-"`
	Timeout        time.Duration `yaml:"timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestsPerMin int           `yaml:"requests_per_minute"`
}

type Heuristic struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"-"`
	Timeout time.Duration `yaml:"timeout"`
}

// IsDev reports whether dev-only conveniences (local directory stub,
// default passphrase) are allowed.
func (s Server) IsDev() bool {
	return s.Environment == EnvDev
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Server {
	return Server{
		Addr:        ":8080",
		Environment: EnvDev,
		LogLevel:    "info",
		DataDir:     ".seqrpay",
		Directory: Directory{
			Timeout: 5 * time.Second,
		},
		Reputation: Reputation{
			BaseURL:        "https://www.virustotal.com/api/v3",
			Timeout:        30 * time.Second,
			PollInterval:   2 * time.Second,
			RequestsPerMin: 4,
		},
		Heuristic: Heuristic{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-1.5-flash",
			Timeout: 20 * time.Second,
		},
		EvaluationTimeout: 45 * time.Second,
	}
}

// FromEnv builds a Server config from defaults and environment variables so main stays lean.
func FromEnv() Server {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

// Load reads the optional YAML file named by SEQRPAY_CONFIG, then applies
// environment overrides and validates the result.
func Load() (Server, error) {
	cfg := Defaults()
	if path := os.Getenv("SEQRPAY_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Server{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Server) error {
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations that would be unsafe outside dev.
func (s Server) Validate() error {
	if s.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if s.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	if !s.IsDev() {
		if s.KeystorePassphrase == "" {
			return fmt.Errorf("SEQRPAY_KEYSTORE_PASSPHRASE is required in %s", s.Environment)
		}
		if s.Directory.URL == "" {
			return fmt.Errorf("SEQRPAY_DIRECTORY_URL is required in %s", s.Environment)
		}
	}
	if s.Reputation.RequestsPerMin <= 0 {
		return fmt.Errorf("reputation requests_per_minute must be positive")
	}
	return nil
}

func applyEnv(cfg *Server) {
	setString(&cfg.Addr, "SEQRPAY_ADDR")
	setString(&cfg.Environment, "SEQRPAY_ENV")
	setString(&cfg.LogLevel, "SEQRPAY_LOG_LEVEL")
	setString(&cfg.DataDir, "SEQRPAY_DATA_DIR")
	setString(&cfg.KeystorePassphrase, "SEQRPAY_KEYSTORE_PASSPHRASE")
	setString(&cfg.Directory.URL, "SEQRPAY_DIRECTORY_URL")
	setDuration(&cfg.Directory.Timeout, "SEQRPAY_DIRECTORY_TIMEOUT")
	setString(&cfg.Reputation.BaseURL, "SEQRPAY_REPUTATION_BASE_URL")
	setString(&cfg.Reputation.APIKey, "SEQRPAY_REPUTATION_API_KEY")
	setDuration(&cfg.Reputation.Timeout, "SEQRPAY_REPUTATION_TIMEOUT")
	setDuration(&cfg.Reputation.PollInterval, "SEQRPAY_REPUTATION_POLL_INTERVAL")
	setInt(&cfg.Reputation.RequestsPerMin, "SEQRPAY_REPUTATION_RPM")
	setString(&cfg.Heuristic.BaseURL, "SEQRPAY_HEURISTIC_BASE_URL")
	setString(&cfg.Heuristic.Model, "SEQRPAY_HEURISTIC_MODEL")
	setString(&cfg.Heuristic.APIKey, "SEQRPAY_HEURISTIC_API_KEY")
	setDuration(&cfg.Heuristic.Timeout, "SEQRPAY_HEURISTIC_TIMEOUT")
	setDuration(&cfg.EvaluationTimeout, "SEQRPAY_EVALUATION_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Unparseable values are ignored and the previous value is kept.
func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"dqa/internal/assessment"
)

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Server captures HTTP server level configuration.
type Server struct {
	Addr      string `env:"DQA_ADDR" envDefault:":5000"`
	SecretKey string `env:"SECRET_KEY" envDefault:"dev-secret-key-change-in-production"`
}

// Search configures the Solr activity core.
type Search struct {
	URL                string        `env:"SOLR_URL" envDefault:"http://localhost:8983/solr/activity"`
	Timeout            time.Duration `env:"SOLR_TIMEOUT" envDefault:"10s"`
	Rows               int           `env:"SOLR_ROWS" envDefault:"999999"`
	ClosedWithinMonths int           `env:"CLOSED_WITHIN_MONTHS" envDefault:"18"`
}

// RedisConfig configures the result cache. An empty URL disables caching.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	TTL          time.Duration `env:"CACHE_TTL" envDefault:"24h"`
}

// Rules holds the thresholds fed into every assessment.
type Rules struct {
	BusinessCaseMonths     int     `env:"BUSINESS_CASE_EXEMPTION_MONTHS" envDefault:"3"`
	LogicalFrameworkMonths int     `env:"LOGICAL_FRAMEWORK_EXEMPTION_MONTHS" envDefault:"3"`
	AnnualReviewMonths     int     `env:"ANNUAL_REVIEW_EXEMPTION_MONTHS" envDefault:"19"`
	SectorTolerance        float64 `env:"SECTOR_TOLERANCE" envDefault:"0.02"`
	LocationTolerance      float64 `env:"LOCATION_TOLERANCE" envDefault:"0.02"`
	FinancialYearStart     int     `env:"FINANCIAL_YEAR_START_MONTH" envDefault:"4"`
	EvaluationWorkers      int     `env:"EVALUATION_WORKERS" envDefault:"0"`
}

// Logging selects the level and the optional rotating log file.
type Logging struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	File  string `env:"LOG_FILE" envDefault:"logs/dqa.log"`
}

// Settings is the complete process configuration.
type Settings struct {
	Server  Server
	Search  Search
	Redis   RedisConfig
	Rules   Rules
	Logging Logging
	DataDir string `env:"DATA_DIR" envDefault:"data"`
}

// LoadEnv loads the env files that exist and returns how many were read.
func LoadEnv(files []string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads env files then parses and validates Settings.
func Load(files ...string) (Settings, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	if _, err := LoadEnv(files); err != nil {
		return Settings{}, fmt.Errorf("load env files: %w", err)
	}
	return FromEnv()
}

// FromEnv parses Settings from the current environment without reading files.
func FromEnv() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse environment: %w", err)
	}
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings the service cannot run with.
func (s Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Server.SecretKey) == "" {
		errs = append(errs, errors.New("SECRET_KEY must not be empty"))
	}
	if s.Rules.FinancialYearStart < 1 || s.Rules.FinancialYearStart > 12 {
		errs = append(errs, fmt.Errorf("FINANCIAL_YEAR_START_MONTH must be 1-12, got %d", s.Rules.FinancialYearStart))
	}
	if s.Rules.SectorTolerance < 0 || s.Rules.LocationTolerance < 0 {
		errs = append(errs, errors.New("tolerances must not be negative"))
	}
	if s.Rules.BusinessCaseMonths <= 0 || s.Rules.LogicalFrameworkMonths <= 0 || s.Rules.AnnualReviewMonths <= 0 {
		errs = append(errs, errors.New("document exemption windows must be positive"))
	}
	if s.Rules.EvaluationWorkers < 0 {
		errs = append(errs, fmt.Errorf("EVALUATION_WORKERS must not be negative, got %d", s.Rules.EvaluationWorkers))
	}
	switch s.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL=%q (expected debug|info|warn|error)", s.Logging.Level))
	}
	return errors.Join(errs...)
}

// FinancialYear returns the financial year containing now.
func (s Settings) FinancialYear(now time.Time) assessment.FinancialYear {
	return assessment.NewFinancialYear(now, time.Month(s.Rules.FinancialYearStart))
}

// RuleConfig builds the rule configuration for one run evaluated at now.
func (s Settings) RuleConfig(now time.Time) assessment.Config {
	cfg := assessment.DefaultConfig(now)
	cfg.SectorTolerance = s.Rules.SectorTolerance
	cfg.LocationTolerance = s.Rules.LocationTolerance
	cfg.BusinessCaseMonths = s.Rules.BusinessCaseMonths
	cfg.LogicalFrameworkMonths = s.Rules.LogicalFrameworkMonths
	cfg.AnnualReviewMonths = s.Rules.AnnualReviewMonths
	return cfg
}

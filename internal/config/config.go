package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Load when no config file exists
var ErrNotFound = errors.New("config file not found in current directory or home directory")

// Solver algorithm names
const (
	AlgorithmILP    = "ilp"
	AlgorithmFlow   = "flow"
	AlgorithmHybrid = "hybrid"
)

// Integer-program backend names
const (
	BackendBranchAndBound = "bb"
	BackendHiGHS          = "highs"
)

// PreferenceConfig holds the preference cost parameters
type PreferenceConfig struct {
	AllowUnranked bool `yaml:"allow_unranked"`
	Tier2Cost     int  `yaml:"tier2_cost" validate:"gte=0"`
	Tier3Cost     int  `yaml:"tier3_cost" validate:"gte=0"`
	UnrankedCost  int  `yaml:"unranked_cost" validate:"gte=0"`
	Top2Bias      bool `yaml:"top2_bias"`
}

// CapacityConfig holds the capacity constraint parameters
type CapacityConfig struct {
	EnableTopicOverflow bool   `yaml:"enable_topic_overflow"`
	EnableCoachOverflow bool   `yaml:"enable_coach_overflow"`
	DeptMinMode         string `yaml:"dept_min_mode" validate:"oneof=soft hard"`
	PDeptShortfall      int    `yaml:"p_dept_shortfall" validate:"gt=0"`
	PTopic              int    `yaml:"p_topic" validate:"gt=0"`
	PCoach              int    `yaml:"p_coach" validate:"gt=0"`
}

// SolverConfig holds the solver execution parameters
type SolverConfig struct {
	Algorithm         string   `yaml:"algorithm" validate:"oneof=ilp flow hybrid"`
	Backend           string   `yaml:"backend" validate:"oneof=bb highs"`
	TimeLimitSec      *int     `yaml:"time_limit_sec,omitempty" validate:"omitempty,gt=0"`
	RandomSeed        *int64   `yaml:"random_seed,omitempty"`
	EpsilonSuboptimal *float64 `yaml:"epsilon_suboptimal,omitempty" validate:"omitempty,gte=0,lt=1"`
}

// Config represents the full allocator configuration
type Config struct {
	Preference PreferenceConfig `yaml:"preference"`
	Capacity   CapacityConfig   `yaml:"capacity"`
	Solver     SolverConfig     `yaml:"solver"`
	// DatabaseURL enables the Postgres run store when set
	DatabaseURL string `yaml:"database_url,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the standard configuration
func Default() *Config {
	return &Config{
		Preference: PreferenceConfig{
			AllowUnranked: true,
			Tier2Cost:     1,
			Tier3Cost:     5,
			UnrankedCost:  200,
			Top2Bias:      true,
		},
		Capacity: CapacityConfig{
			EnableTopicOverflow: true,
			EnableCoachOverflow: true,
			DeptMinMode:         "soft",
			PDeptShortfall:      1000,
			PTopic:              800,
			PCoach:              600,
		},
		Solver: SolverConfig{
			Algorithm: AlgorithmILP,
			Backend:   BackendBranchAndBound,
		},
	}
}

// Load loads the configuration from allocator.yaml, looking in the
// current directory first, then in the user's home directory. Missing
// keys keep their defaults.
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal over the defaults so absent keys keep their values.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration. Invalid configuration fails
// here, before any solve attempt.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Save writes the configuration to the given path as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// findConfigFile searches for allocator.yaml in current directory and home directory
func findConfigFile() (string, error) {
	configFileName := "allocator.yaml"

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", ErrNotFound
}

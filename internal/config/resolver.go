// Package config resolves mull settings from, in increasing precedence,
// built-in defaults, the YAML config file, MULL_* environment variables, and
// CLI flags. Every resolved value remembers where it came from so `mull
// config` can show the effective configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is a setting plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// Float parses the value as a float, falling back when unset or malformed.
func (r ResolvedValue) Float(fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
	if err != nil {
		return fallback
	}
	return v
}

// Int parses the value as an int, falling back when unset or malformed.
func (r ResolvedValue) Int(fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.Value))
	if err != nil {
		return fallback
	}
	return v
}

// ResolveOptions carries the CLI-level overrides into resolution.
type ResolveOptions struct {
	ConfigPath        string
	CLIDBPath         string
	CLILexiconPath    string
	CLIPruneThreshold string
}

// ResolvedConfig is the effective configuration with per-value provenance.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath      ResolvedValue `json:"db_path"`
	LexiconPath ResolvedValue `json:"lexicon_path"`

	PruneThreshold      ResolvedValue `json:"prune_threshold"`
	SimilarityThreshold ResolvedValue `json:"similarity_threshold"`
	TimeWindowDays      ResolvedValue `json:"time_window_days"`
}

type fileConfig struct {
	DBPath      string `yaml:"db_path"`
	LexiconPath string `yaml:"lexicon_path"`
	Analysis    struct {
		PruneThreshold      string `yaml:"prune_threshold"`
		SimilarityThreshold string `yaml:"similarity_threshold"`
		TimeWindowDays      string `yaml:"time_window_days"`
	} `yaml:"analysis"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mull", "config.yaml")
}

// ResolveConfig layers defaults, the config file, environment variables, and
// CLI flags, in that order.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	applyDefault(&out.DBPath, "~/.mull/mull.db")
	applyDefault(&out.PruneThreshold, "0.6")
	applyDefault(&out.SimilarityThreshold, "0.7")
	applyDefault(&out.TimeWindowDays, "7")

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.LexiconPath, cfg.LexiconPath, SourceConfig, path)
		apply(&out.PruneThreshold, cfg.Analysis.PruneThreshold, SourceConfig, path)
		apply(&out.SimilarityThreshold, cfg.Analysis.SimilarityThreshold, SourceConfig, path)
		apply(&out.TimeWindowDays, cfg.Analysis.TimeWindowDays, SourceConfig, path)
	}

	applyEnv(&out.DBPath, "MULL_DB")
	applyEnv(&out.DBPath, "MULL_DB_PATH")
	applyEnv(&out.LexiconPath, "MULL_LEXICON")
	applyEnv(&out.PruneThreshold, "MULL_PRUNE_THRESHOLD")
	applyEnv(&out.SimilarityThreshold, "MULL_SIMILARITY_THRESHOLD")
	applyEnv(&out.TimeWindowDays, "MULL_TIME_WINDOW_DAYS")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.LexiconPath, opts.CLILexiconPath, SourceCLI, "--lexicon")
	apply(&out.PruneThreshold, opts.CLIPruneThreshold, SourceCLI, "--threshold")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}
	if out.LexiconPath.Value != "" {
		out.LexiconPath.Value = expandUserPath(out.LexiconPath.Value)
	}

	return out, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyDefault(dst *ResolvedValue, value string) {
	*dst = ResolvedValue{Value: value, Source: SourceDefault, From: "built-in default"}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

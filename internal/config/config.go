// Package config loads the dailyreport YAML configuration and applies the
// environment overrides. Every component receives the values it needs from
// the resulting *Config instead of reading process state on its own.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Load.
//
// #nosec G101 -- these are names of environment variables, not credentials.
const (
	EnvSearchPath       = "GIT_REPO_SEARCH_PATH"
	EnvDeepSeekAPIKey   = "DEEPSEEK_API_KEY"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvVertexAPIKey     = "VERTEX_AI_API_KEY"
	EnvCredentialsFile  = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvGitHubToken      = "GITHUB_TOKEN"
	EnvWorkflowUsername = "DAILYREPORT_WORKFLOW_USERNAME"
	EnvWorkflowPassword = "DAILYREPORT_WORKFLOW_PASSWORD"
)

// DateToken is replaced by the report day (YYYYMMDD) in file name formats.
const DateToken = "{date}"

// Text generation providers.
const (
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
)

// Config is the full configuration surface of a dailyreport run.
type Config struct {
	SearchPaths       []string `yaml:"search_paths"`
	OutputDir         string   `yaml:"output_dir"`
	ReportFileFormat  string   `yaml:"report_file_format"`
	SummaryFileFormat string   `yaml:"summary_file_format"`
	ExcludeDirs       []string `yaml:"exclude_dirs"`
	// Author overrides identity resolution when set.
	Author string `yaml:"author"`

	Git             GitConfig      `yaml:"git"`
	TextGeneration  TextGenConfig  `yaml:"text_generation"`
	SummaryTemplate TemplateConfig `yaml:"summary_template"`
	GitHub          GitHubConfig   `yaml:"github"`
	Workflow        WorkflowConfig `yaml:"workflow"`
	Logging         LoggingConfig  `yaml:"logging"`
	Metrics         MetricsConfig  `yaml:"metrics"`

	// searchOverride is set from GIT_REPO_SEARCH_PATH and wins over SearchPaths.
	searchOverride string
}

// GitConfig controls invocations of the git binary.
type GitConfig struct {
	Binary          string        `yaml:"binary"`
	LogTimeout      time.Duration `yaml:"log_timeout"`
	IdentityTimeout time.Duration `yaml:"identity_timeout"`
}

// TextGenConfig selects and configures the text-generation backend.
type TextGenConfig struct {
	Provider        string        `yaml:"provider"`
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	CredentialsFile string        `yaml:"credentials_file"`
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	// Style holds free-form modifiers appended to every system instruction.
	Style []string `yaml:"style"`
}

// TemplateConfig describes the three-field summary template.
type TemplateConfig struct {
	MorningLabel   string  `yaml:"morning_label"`
	AfternoonLabel string  `yaml:"afternoon_label"`
	LearningLabel  string  `yaml:"learning_label"`
	Placeholder    string  `yaml:"placeholder"`
	LearningRatio  float64 `yaml:"learning_ratio"`
}

// GitHubConfig enables pull request and issue enrichment.
type GitHubConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	// BaseURL targets a GitHub Enterprise server; empty means github.com.
	BaseURL string `yaml:"base_url"`
}

// WorkflowConfig drives the optional browser submission.
type WorkflowConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Headless bool   `yaml:"headless"`

	StepWait       time.Duration `yaml:"step_wait"`
	VisibleTimeout time.Duration `yaml:"visible_timeout"`
	ManualWait     time.Duration `yaml:"manual_wait"`

	Selectors WorkflowSelectors `yaml:"selectors"`
	Fields    WorkflowFields    `yaml:"fields"`
}

// WorkflowSelectors lists candidate locators per UI element, tried in order.
type WorkflowSelectors struct {
	Username      []string `yaml:"username"`
	Password      []string `yaml:"password"`
	LoginButton   []string `yaml:"login_button"`
	Menu          []string `yaml:"menu"`
	MenuText      string   `yaml:"menu_text"`
	ReportEntry   []string `yaml:"report_entry"`
	ReportURLPart string   `yaml:"report_url_part"`
	LogTab        []string `yaml:"log_tab"`
	Publish       []string `yaml:"publish"`
	SuccessText   []string `yaml:"success_text"`
}

// WorkflowFields names the form textareas receiving the summary sections.
type WorkflowFields struct {
	Morning   string `yaml:"morning"`
	Afternoon string `yaml:"afternoon"`
	Learning  string `yaml:"learning"`
	// Filler is written into every other visible textarea of the form.
	Filler string `yaml:"filler"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus textfile output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// DefaultPath returns ~/.config/dailyreport/config.yaml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "dailyreport", "config.yaml")
}

// Load reads the YAML file at configPath on top of Default(), applies the
// environment overrides and validates the result. An empty configPath skips
// the file and yields defaults plus environment.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		cleanedPath := filepath.Clean(expandHome(configPath))
		// #nosec G304 -- the path comes from the operator via flag.
		data, err := os.ReadFile(cleanedPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file not found at path: %s", cleanedPath)
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", cleanedPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML from %s: %w", cleanedPath, err)
		}
	}

	cfg.applyEnv()
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvSearchPath); ok && strings.TrimSpace(v) != "" {
		c.searchOverride = strings.TrimSpace(v)
	}

	switch c.TextGeneration.Provider {
	case ProviderGemini:
		if c.TextGeneration.CredentialsFile == "" {
			c.TextGeneration.CredentialsFile = os.Getenv(EnvCredentialsFile)
		}
		if c.TextGeneration.APIKey == "" {
			c.TextGeneration.APIKey = firstNonEmpty(os.Getenv(EnvGeminiAPIKey), os.Getenv(EnvVertexAPIKey))
		}
	default:
		if c.TextGeneration.APIKey == "" {
			c.TextGeneration.APIKey = os.Getenv(EnvDeepSeekAPIKey)
		}
	}

	if c.GitHub.Token == "" {
		c.GitHub.Token = os.Getenv(EnvGitHubToken)
	}
	if c.Workflow.Username == "" {
		c.Workflow.Username = os.Getenv(EnvWorkflowUsername)
	}
	if c.Workflow.Password == "" {
		c.Workflow.Password = os.Getenv(EnvWorkflowPassword)
	}
}

func (c *Config) resolvePaths() {
	for i, p := range c.SearchPaths {
		c.SearchPaths[i] = expandHome(p)
	}
	c.searchOverride = expandHome(c.searchOverride)
	c.OutputDir = expandHome(c.OutputDir)
	c.Metrics.Textfile = expandHome(c.Metrics.Textfile)
	c.TextGeneration.CredentialsFile = expandHome(c.TextGeneration.CredentialsFile)
}

// Validate checks the values every run depends on.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty in config")
	}
	if c.ReportFileFormat == "" || c.SummaryFileFormat == "" {
		return fmt.Errorf("report_file_format and summary_file_format cannot be empty in config")
	}
	if c.ReportFileFormat == c.SummaryFileFormat {
		return fmt.Errorf("report_file_format and summary_file_format must differ")
	}
	if c.Git.LogTimeout <= 0 || c.Git.IdentityTimeout <= 0 {
		return fmt.Errorf("git.log_timeout and git.identity_timeout must be positive")
	}

	switch c.TextGeneration.Provider {
	case ProviderDeepSeek, ProviderOpenAI:
		if c.TextGeneration.BaseURL == "" {
			return fmt.Errorf("text_generation.base_url cannot be empty for provider %q", c.TextGeneration.Provider)
		}
	case ProviderGemini:
	default:
		return fmt.Errorf("text_generation.provider %q is not supported", c.TextGeneration.Provider)
	}
	if c.TextGeneration.Model == "" {
		return fmt.Errorf("text_generation.model cannot be empty in config")
	}
	if c.TextGeneration.MaxTokens <= 0 {
		return fmt.Errorf("text_generation.max_tokens must be positive in config")
	}

	t := c.SummaryTemplate
	if t.MorningLabel == "" || t.AfternoonLabel == "" || t.LearningLabel == "" {
		return fmt.Errorf("summary_template labels cannot be empty")
	}
	if t.LearningRatio < 0 || t.LearningRatio > 1 {
		return fmt.Errorf("summary_template.learning_ratio must be between 0 and 1")
	}

	if c.Workflow.Enabled && c.Workflow.URL == "" {
		return fmt.Errorf("workflow.url cannot be empty when workflow is enabled")
	}
	return nil
}

// SearchRoots returns the roots the locator should walk. GIT_REPO_SEARCH_PATH
// restricts the search to exactly that path. Otherwise configured paths that
// exist are used, falling back to the home directory.
func (c *Config) SearchRoots() []string {
	if c.searchOverride != "" {
		return []string{absPath(c.searchOverride)}
	}

	var roots []string
	for _, p := range c.SearchPaths {
		abs := absPath(p)
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			roots = append(roots, abs)
		}
	}
	if len(roots) == 0 {
		homeDir, _ := os.UserHomeDir()
		roots = append(roots, absPath(homeDir))
	}
	return roots
}

// ReportPath returns the report file path for day.
func (c *Config) ReportPath(day time.Time) string {
	return filepath.Join(c.OutputDir, FormatFileName(c.ReportFileFormat, day))
}

// SummaryPath returns the summary file path for day.
func (c *Config) SummaryPath(day time.Time) string {
	return filepath.Join(c.OutputDir, FormatFileName(c.SummaryFileFormat, day))
}

// FormatFileName substitutes DateToken with day formatted as YYYYMMDD.
func FormatFileName(format string, day time.Time) string {
	return strings.ReplaceAll(format, DateToken, day.Format("20060102"))
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(homeDir, p[1:])
	}
	return p
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

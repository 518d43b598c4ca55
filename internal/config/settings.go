package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/joho/godotenv"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/util"
)

const envPrefix = "DEP_RESOLVER_"

// Settings holds all resolver configuration
type Settings struct {
	// Output settings
	OutputFile   string // Empty = stdout
	OutputFormat string // "json" or "yaml"
	PrettyPrint  bool
	Aggregate    bool

	// Scan behavior
	ExcludePatterns    []string
	EnabledEcosystems  []string
	DisabledEcosystems []string
	EcosystemPatterns  map[string][]string
	CaseSensitive      bool
	RespectGitignore   bool
	IgnoreSourceFiles  bool
	Workers            int // 0 = number of CPUs
	Verbose            bool

	// Build tools
	RunTools            bool
	ToolTimeout         time.Duration
	GradleConfiguration string
	MavenCommand        string
	GradleCommand       string
	GoCommand           string
	PythonCommand       string
	SbtCommand          string
	BundleCommand       string
	DotnetCommand       string
	TempDir             string // Empty = system temp folder

	MetricsFile string

	// Logging
	LogLevel  slog.Level
	LogFormat string // "text" or "json"
	LogFile   string // Optional: write logs to file instead of stderr
}

// DefaultSettings returns default configuration
func DefaultSettings() *Settings {
	tools := resolver.DefaultOptions()
	return &Settings{
		OutputFile:          "",
		OutputFormat:        "json",
		PrettyPrint:         true,
		ExcludePatterns:     []string{},
		EcosystemPatterns:   map[string][]string{},
		RunTools:            tools.RunTools,
		ToolTimeout:         10 * time.Minute,
		GradleConfiguration: tools.GradleConfiguration,
		MavenCommand:        tools.MavenCommand,
		GradleCommand:       tools.GradleCommand,
		GoCommand:           tools.GoCommand,
		PythonCommand:       tools.PythonCommand,
		SbtCommand:          tools.SbtCommand,
		BundleCommand:       tools.BundleCommand,
		DotnetCommand:       tools.DotnetCommand,
		LogLevel:            slog.LevelError, // only errors by default
		LogFormat:           "text",
	}
}

// LoadSettings creates settings from defaults, a .env file in the working
// directory (if any) and DEP_RESOLVER_* environment variables
func LoadSettings() *Settings {
	// Variables already set in the environment win over .env
	_ = godotenv.Load()
	return settingsFromEnv()
}

func settingsFromEnv() *Settings {
	settings := DefaultSettings()

	if outputFile := getenv("OUTPUT"); outputFile != "" {
		settings.OutputFile = outputFile
	}
	if format := getenv("FORMAT"); format != "" {
		settings.OutputFormat = strings.ToLower(format)
	}
	if pretty := getenv("PRETTY"); pretty != "" {
		settings.PrettyPrint = strings.ToLower(pretty) == "true"
	}
	if aggregate := getenv("AGGREGATE"); aggregate != "" {
		settings.Aggregate = strings.ToLower(aggregate) == "true"
	}

	if excludes := getenv("EXCLUDE"); excludes != "" {
		settings.ExcludePatterns = splitList(excludes)
	}
	if enabled := getenv("ECOSYSTEMS"); enabled != "" {
		settings.EnabledEcosystems = splitList(enabled)
	}
	if disabled := getenv("DISABLE_ECOSYSTEMS"); disabled != "" {
		settings.DisabledEcosystems = splitList(disabled)
	}

	envBool("CASE_SENSITIVE", &settings.CaseSensitive)
	envBool("RESPECT_GITIGNORE", &settings.RespectGitignore)
	envBool("IGNORE_SOURCE_FILES", &settings.IgnoreSourceFiles)
	envBool("VERBOSE", &settings.Verbose)
	envBool("RUN_TOOLS", &settings.RunTools)

	if workers := getenv("WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n >= 0 {
			settings.Workers = n
		}
	}
	if timeout := getenv("TOOL_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			settings.ToolTimeout = d
		}
	}

	envString("GRADLE_CONFIGURATION", &settings.GradleConfiguration)
	envString("MAVEN", &settings.MavenCommand)
	envString("GRADLE", &settings.GradleCommand)
	envString("GO", &settings.GoCommand)
	envString("PYTHON", &settings.PythonCommand)
	envString("SBT", &settings.SbtCommand)
	envString("BUNDLE", &settings.BundleCommand)
	envString("DOTNET", &settings.DotnetCommand)
	envString("TEMP_DIR", &settings.TempDir)
	envString("METRICS_FILE", &settings.MetricsFile)

	// Logging settings
	if logLevel := getenv("LOG_LEVEL"); logLevel != "" {
		if level, err := parseLogLevel(logLevel); err == nil {
			settings.LogLevel = level
		}
	}
	envString("LOG_FORMAT", &settings.LogFormat)
	envString("LOG_FILE", &settings.LogFile)

	return settings
}

func getenv(name string) string {
	return os.Getenv(envPrefix + name)
}

func envString(name string, target *string) {
	if v := getenv(name); v != "" {
		*target = v
	}
}

func envBool(name string, target *bool) {
	if v := getenv(name); v != "" {
		*target = strings.ToLower(v) == "true"
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// SetLogLevel parses and applies a log level name
func (s *Settings) SetLogLevel(level string) error {
	parsed, err := parseLogLevel(level)
	if err != nil {
		return err
	}
	s.LogLevel = parsed
	return nil
}

// ConfigureLogger sets up the logger based on settings
func (s *Settings) ConfigureLogger() *slog.Logger {
	var handler slog.Handler

	var output io.Writer = os.Stderr
	if s.LogFile != "" {
		file, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			// Fallback to stderr if file can't be opened
			fmt.Fprintf(os.Stderr, "Warning: Cannot open log file %s: %v\n", s.LogFile, err)
		} else {
			output = file
		}
	}

	opts := &slog.HandlerOptions{
		Level: s.LogLevel,
	}

	if s.LogFormat == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

// ResolverOptions returns the options handed to every resolver
func (s *Settings) ResolverOptions() resolver.Options {
	return resolver.Options{
		RunTools:            s.RunTools,
		GradleConfiguration: s.GradleConfiguration,
		MavenCommand:        s.MavenCommand,
		GradleCommand:       s.GradleCommand,
		GoCommand:           s.GoCommand,
		PythonCommand:       s.PythonCommand,
		SbtCommand:          s.SbtCommand,
		BundleCommand:       s.BundleCommand,
		DotnetCommand:       s.DotnetCommand,
	}
}

// Validate checks settings that cannot be fixed up silently
func (s *Settings) Validate() error {
	format, err := util.ParseFormat(s.OutputFormat, util.DocumentFormats)
	if err != nil {
		return fmt.Errorf("unsupported output format: %w", err)
	}
	s.OutputFormat = string(format)
	if s.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", s.Workers)
	}
	if s.ToolTimeout < 0 {
		return fmt.Errorf("tool timeout must not be negative: %s", s.ToolTimeout)
	}
	if s.LogFormat != "text" && s.LogFormat != "json" {
		return fmt.Errorf("unsupported log format %q (use text or json)", s.LogFormat)
	}
	return nil
}

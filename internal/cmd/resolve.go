package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/petrarca/dependency-resolver/internal/aggregator"
	"github.com/petrarca/dependency-resolver/internal/catalog"
	"github.com/petrarca/dependency-resolver/internal/config"
	"github.com/petrarca/dependency-resolver/internal/dispatch"
	"github.com/petrarca/dependency-resolver/internal/execx"
	"github.com/petrarca/dependency-resolver/internal/git"
	"github.com/petrarca/dependency-resolver/internal/hashing"
	"github.com/petrarca/dependency-resolver/internal/metadata"
	"github.com/petrarca/dependency-resolver/internal/progress"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// hashCacheSize bounds the number of artifact digests kept per scan
const hashCacheSize = 4096

var (
	settings   *config.Settings
	configFile string
	gitURL     string
	gitRef     string
	noSummary  bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [paths...]",
	Short: "Resolve the dependencies of every project below the given paths",
	Long: `Resolve discovers manifests and lock files of all enabled ecosystems below
the given folders (default: the current folder), groups them into project
roots and resolves each root's dependency forest.

Examples:
  dep-resolver resolve
  dep-resolver resolve ./services ./libs -o deps.json
  dep-resolver resolve --ecosystems maven,gradle --format yaml
  dep-resolver resolve --exclude "**/testdata/**" --tools=false
  dep-resolver resolve --git-url https://github.com/org/repo --git-ref v1.2.0
  dep-resolver resolve --config scan.yml --aggregate`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	// Initialize settings with defaults, .env and environment variables
	settings = config.LoadSettings()

	flags := resolveCmd.Flags()
	flags.StringVarP(&settings.OutputFile, "output", "o", settings.OutputFile, "Output file path (default: stdout)")
	flags.StringVarP(&settings.OutputFormat, "format", "f", settings.OutputFormat, "Output format: json or yaml")
	flags.BoolVar(&settings.PrettyPrint, "pretty", settings.PrettyPrint, "Pretty print JSON output")
	flags.BoolVar(&settings.Aggregate, "aggregate", settings.Aggregate, "Write unique coordinates per ecosystem instead of full forests")
	flags.BoolVarP(&settings.Verbose, "verbose", "v", settings.Verbose, "Show progress on stderr")
	flags.BoolVar(&noSummary, "no-summary", false, "Do not print the summary table")

	// Exclude patterns - support multiple flags or comma-separated values
	flags.StringSliceVar(&settings.ExcludePatterns, "exclude", settings.ExcludePatterns, "Patterns to exclude (glob, can be specified multiple times)")
	flags.StringSliceVar(&settings.EnabledEcosystems, "ecosystems", settings.EnabledEcosystems, "Only run these ecosystems (comma-separated ids)")
	flags.StringSliceVar(&settings.DisabledEcosystems, "disable", settings.DisabledEcosystems, "Do not run these ecosystems (comma-separated ids)")
	flags.BoolVar(&settings.CaseSensitive, "case-sensitive", settings.CaseSensitive, "Match manifest patterns case-sensitively")
	flags.BoolVar(&settings.RespectGitignore, "respect-gitignore", settings.RespectGitignore, "Skip files ignored by .gitignore")
	flags.BoolVar(&settings.IgnoreSourceFiles, "ignore-source-files", settings.IgnoreSourceFiles, "Also emit exclude patterns for the source files of resolved projects")
	flags.IntVarP(&settings.Workers, "workers", "w", settings.Workers, "Number of projects resolved in parallel (default: number of CPUs)")

	// Build tools
	flags.BoolVar(&settings.RunTools, "tools", settings.RunTools, "Run build tools (use --tools=false to read lock files only)")
	flags.DurationVar(&settings.ToolTimeout, "tool-timeout", settings.ToolTimeout, "Timeout for a single build tool invocation")
	flags.StringVar(&settings.GradleConfiguration, "gradle-configuration", settings.GradleConfiguration, "Gradle configuration to resolve")
	flags.StringVar(&settings.MavenCommand, "maven", settings.MavenCommand, "Maven executable")
	flags.StringVar(&settings.GradleCommand, "gradle", settings.GradleCommand, "Gradle executable")
	flags.StringVar(&settings.GoCommand, "go", settings.GoCommand, "Go executable")
	flags.StringVar(&settings.PythonCommand, "python", settings.PythonCommand, "Python executable")
	flags.StringVar(&settings.SbtCommand, "sbt", settings.SbtCommand, "sbt executable")
	flags.StringVar(&settings.BundleCommand, "bundle", settings.BundleCommand, "Bundler executable")
	flags.StringVar(&settings.DotnetCommand, "dotnet", settings.DotnetCommand, "dotnet executable")
	flags.StringVar(&settings.TempDir, "temp-dir", settings.TempDir, "Folder for temporary files (default: system temp)")

	flags.StringVar(&settings.MetricsFile, "metrics-file", settings.MetricsFile, "Write Prometheus metrics to this file")
	flags.StringVarP(&configFile, "config", "c", "", "Scan configuration file (YAML/JSON) or inline JSON")
	flags.StringVar(&gitURL, "git-url", "", "Clone this repository and resolve it")
	flags.StringVar(&gitRef, "git-ref", "", "Branch, tag or commit to check out with --git-url")

	// Logging flags - use defaults from environment variables
	flags.String("log-level", settings.LogLevel.String(), "Log level: debug, info, warn, error")
	flags.StringVar(&settings.LogFormat, "log-format", settings.LogFormat, "Log format: text or json")
	flags.StringVar(&settings.LogFile, "log-file", settings.LogFile, "Log file path (default: stderr)")
}

// configureLogging sets up logging based on command flags
func configureLogging(cmd *cobra.Command) (*slog.Logger, error) {
	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		if err := settings.SetLogLevel(level); err != nil {
			return nil, err
		}
	}
	logger := settings.ConfigureLogger()
	slog.SetDefault(logger)
	return logger, nil
}

// resolveScanPaths returns absolute, existing folders for the given paths
func resolveScanPaths(paths []string) ([]string, error) {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		path, err := filepath.Abs(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", p, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("path does not exist: %s", path)
		}
		if !info.IsDir() {
			// A single manifest scans its folder
			path = filepath.Dir(path)
		}
		abs = append(abs, path)
	}
	return abs, nil
}

// loadProjectConfigs merges the .dep-resolver.yml of every scan root into the settings
// and returns the combined exclude patterns
func loadProjectConfigs(scanConfig *config.ScanConfigFile, paths []string, logger *slog.Logger) ([]string, error) {
	excludes := settings.ExcludePatterns
	for _, path := range paths {
		projectConfig, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		merged := scanConfig.GetMergedConfig(projectConfig)
		merged.ApplyTo(settings)
		excludes = merged.MergeExcludes(excludes)
		logger.Debug("Loaded project configuration", "path", path, "excludes", len(merged.Exclude))
	}
	return excludes, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	start := time.Now()
	logger, err := configureLogging(cmd)
	if err != nil {
		return err
	}

	scanConfig, err := config.LoadScanConfig(configFile)
	if err != nil {
		return err
	}
	scanConfig.MergeWithSettings(settings)
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := args
	if len(paths) == 0 {
		paths = scanConfig.GetScanPaths()
	}
	if gitURL != "" {
		cloned, cleanup, err := cloneRepository(ctx, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		paths = []string{cloned}
	}

	scanPaths, err := resolveScanPaths(paths)
	if err != nil {
		return err
	}
	excludes, err := loadProjectConfigs(scanConfig, scanPaths, logger)
	if err != nil {
		return err
	}

	ecosystems, err := selectEcosystems()
	if err != nil {
		return err
	}

	hasher, err := hashing.NewFileHasher(hashCacheSize)
	if err != nil {
		return err
	}
	var metrics *dispatch.Metrics
	if settings.MetricsFile != "" {
		metrics = dispatch.NewMetrics()
	}
	prog := progress.New(settings.Verbose, progress.NewSimpleHandler(os.Stderr))

	logger.Debug("Starting resolution",
		"paths", scanPaths,
		"excludes", excludes,
		"ecosystems", len(ecosystems),
		"workers", settings.Workers,
		"run_tools", settings.RunTools)

	d := dispatch.New(dispatch.Options{
		Ecosystems:        ecosystems,
		CaseSensitive:     settings.CaseSensitive,
		RespectGitignore:  settings.RespectGitignore,
		IgnoreSourceFiles: settings.IgnoreSourceFiles,
		Workers:           settings.Workers,
		TempDir:           settings.TempDir,
		Resolver:          settings.ResolverOptions(),
		Exec:              execx.NewCommandExecutor(settings.ToolTimeout, logger),
		Hasher:            hasher,
		Metrics:           metrics,
		Progress:          prog,
		Logger:            logger,
	})

	results, err := d.Resolve(ctx, scanPaths, excludes)
	if err != nil {
		return fmt.Errorf("resolution aborted: %w", err)
	}

	meta := metadata.NewScanMetadata(scanPaths)
	meta.SourceID = git.SourceID(scanPaths)
	meta.Excludes = excludes
	meta.SetResultCounts(results)
	meta.SetGit(scanPaths)
	meta.SetDuration(time.Since(start))

	if err := writeResults(meta, results, prog); err != nil {
		return err
	}

	if metrics != nil {
		if err := metrics.WriteFile(settings.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		logger.Debug("Metrics written", "file", settings.MetricsFile)
	}

	if !noSummary && isTerminal(os.Stderr) {
		printSummary(os.Stderr, results)
	}
	return nil
}

// selectEcosystems applies the enabled/disabled/pattern settings to the catalog
func selectEcosystems() ([]catalog.Ecosystem, error) {
	all, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	return catalog.Select(all, catalog.Selection{
		Enabled:  settings.EnabledEcosystems,
		Disabled: settings.DisabledEcosystems,
		Patterns: settings.EcosystemPatterns,
	})
}

// cloneRepository checks out --git-url into a temporary folder
func cloneRepository(ctx context.Context, logger *slog.Logger) (string, func(), error) {
	dir, err := os.MkdirTemp(settings.TempDir, "dep-resolver-clone-")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create clone directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("Failed to remove clone directory", "dir", dir, "error", err)
		}
	}

	if err := git.Clone(ctx, git.CloneOptions{URL: gitURL, Ref: gitRef, Dest: dir, Logger: logger}); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return dir, cleanup, nil
}

// Document is the full output of the resolve command
type Document struct {
	Metadata *metadata.ScanMetadata    `json:"metadata" yaml:"metadata"`
	Results  []*types.ResolutionResult `json:"results" yaml:"results"`
}

// writeResults renders the results (or their aggregate) and writes them out
func writeResults(meta *metadata.ScanMetadata, results []*types.ResolutionResult, prog *progress.Progress) error {
	var doc interface{} = &Document{Metadata: meta, Results: results}
	if settings.Aggregate {
		doc = aggregator.NewAggregator(true).Aggregate(meta, results)
	}

	data, err := marshal(doc, settings.OutputFormat, settings.PrettyPrint)
	if err != nil {
		return err
	}

	target := settings.OutputFile
	if target != "" && target != "-" {
		prog.FileWriting(target)
		defer prog.FileWritten(target)
	}
	return writeOutput(data, target)
}

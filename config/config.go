package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

const (
	DefaultMboxPath = "Skyscanner.mbox/mbox"
	DefaultCSVPath  = "prices.csv"
	DefaultPlotPath = "flight_prices_plot.png"
)

// Config captures all options of a tracker run.
type Config struct {
	MboxPath      string
	CSVPath       string
	PlotPath      string
	ShowPlot      bool
	MetricsFile   string
	LogLevel      string
	LogDir        string
	Progress      bool
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

// fileConfig is the shape of the optional --config YAML file.
type fileConfig struct {
	Mbox          string   `yaml:"mbox"`
	CSV           string   `yaml:"csv"`
	Plot          string   `yaml:"plot"`
	Show          *bool    `yaml:"show"`
	MetricsFile   string   `yaml:"metrics_file"`
	LogLevel      string   `yaml:"log_level"`
	LogDir        string   `yaml:"log_dir"`
	Progress      *bool    `yaml:"progress"`
	IncludeHeader []string `yaml:"include_header"`
	IncludeBody   []string `yaml:"include_body"`
	ExcludeHeader []string `yaml:"exclude_header"`
	ExcludeBody   []string `yaml:"exclude_body"`
}

// RegisterFlags attaches all CLI flags to the provided command. None are
// required: a bare invocation uses the default paths.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("config", "", "Optional YAML file supplying defaults for unset flags")
	flags.String("mbox", DefaultMboxPath, "Path to the mbox file holding the price alerts")
	flags.String("csv", DefaultCSVPath, "Path of the CSV file to write")
	flags.String("plot", DefaultPlotPath, "Path of the PNG chart to write")
	flags.Bool("show", true, "Open the chart after saving it")
	flags.String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Also write logs to a timestamped file in this directory")
	flags.Bool("progress", false, "Show a progress bar while reading the mbox")
	AddFilterFlags(flags)
	return nil
}

// AddFilterFlags registers the include/exclude regex flags shared by the root
// and scan commands.
func AddFilterFlags(flags *pflag.FlagSet) {
	flags.StringArray("include-header", nil, "Regex allow-list applied to message headers (mutually exclusive with exclude flags)")
	flags.StringArray("include-body", nil, "Regex allow-list applied to message bodies (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-header", nil, "Regex block-list applied to message headers (mutually exclusive with include flags)")
	flags.StringArray("exclude-body", nil, "Regex block-list applied to message bodies (mutually exclusive with include flags)")
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	var (
		cfg Config
		err error
	)
	if cfg.MboxPath, err = flags.GetString("mbox"); err != nil {
		return Config{}, err
	}
	if cfg.CSVPath, err = flags.GetString("csv"); err != nil {
		return Config{}, err
	}
	if cfg.PlotPath, err = flags.GetString("plot"); err != nil {
		return Config{}, err
	}
	if cfg.ShowPlot, err = flags.GetBool("show"); err != nil {
		return Config{}, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = flags.GetString("log-level"); err != nil {
		return Config{}, err
	}
	if cfg.LogDir, err = flags.GetString("log-dir"); err != nil {
		return Config{}, err
	}
	if cfg.Progress, err = flags.GetBool("progress"); err != nil {
		return Config{}, err
	}
	if err := loadFilters(flags, &cfg); err != nil {
		return Config{}, err
	}

	configPath, err := flags.GetString("config")
	if err != nil {
		return Config{}, err
	}
	if configPath != "" {
		fc, err := readFile(configPath)
		if err != nil {
			return Config{}, err
		}
		fc.apply(flags, &cfg)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	cfg.MboxPath = cleanPath(cfg.MboxPath)
	cfg.CSVPath = cleanPath(cfg.CSVPath)
	cfg.PlotPath = cleanPath(cfg.PlotPath)
	cfg.MetricsFile = cleanPath(cfg.MetricsFile)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFilters(flags *pflag.FlagSet, cfg *Config) error {
	var err error
	if cfg.IncludeHeader, err = flags.GetStringArray("include-header"); err != nil {
		return err
	}
	if cfg.IncludeBody, err = flags.GetStringArray("include-body"); err != nil {
		return err
	}
	if cfg.ExcludeHeader, err = flags.GetStringArray("exclude-header"); err != nil {
		return err
	}
	if cfg.ExcludeBody, err = flags.GetStringArray("exclude-body"); err != nil {
		return err
	}
	return nil
}

// LoadFilters reads only the filter flags, for commands that register them
// through AddFilterFlags.
func LoadFilters(cmd *cobra.Command) (Config, error) {
	var cfg Config
	if err := loadFilters(cmd.Flags(), &cfg); err != nil {
		return Config{}, err
	}
	if err := validateFilters(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// apply copies file values into cfg for every flag the user did not set.
func (fc fileConfig) apply(flags *pflag.FlagSet, cfg *Config) {
	setString := func(name, value string, dst *string) {
		if value != "" && !flags.Changed(name) {
			*dst = value
		}
	}
	setBool := func(name string, value *bool, dst *bool) {
		if value != nil && !flags.Changed(name) {
			*dst = *value
		}
	}
	setList := func(name string, value []string, dst *[]string) {
		if len(value) > 0 && !flags.Changed(name) {
			*dst = value
		}
	}

	setString("mbox", fc.Mbox, &cfg.MboxPath)
	setString("csv", fc.CSV, &cfg.CSVPath)
	setString("plot", fc.Plot, &cfg.PlotPath)
	setBool("show", fc.Show, &cfg.ShowPlot)
	setString("metrics-file", fc.MetricsFile, &cfg.MetricsFile)
	setString("log-level", fc.LogLevel, &cfg.LogLevel)
	setString("log-dir", fc.LogDir, &cfg.LogDir)
	setBool("progress", fc.Progress, &cfg.Progress)
	setList("include-header", fc.IncludeHeader, &cfg.IncludeHeader)
	setList("include-body", fc.IncludeBody, &cfg.IncludeBody)
	setList("exclude-header", fc.ExcludeHeader, &cfg.ExcludeHeader)
	setList("exclude-body", fc.ExcludeBody, &cfg.ExcludeBody)
}

func validateConfig(cfg Config) error {
	if cfg.MboxPath == "" {
		return fmt.Errorf("--mbox must not be empty")
	}
	if cfg.CSVPath == "" {
		return fmt.Errorf("--csv must not be empty")
	}
	if cfg.PlotPath == "" {
		return fmt.Errorf("--plot must not be empty")
	}
	if err := validateFilters(cfg); err != nil {
		return err
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

func validateFilters(cfg Config) error {
	includeActive := len(cfg.IncludeHeader) > 0 || len(cfg.IncludeBody) > 0
	excludeActive := len(cfg.ExcludeHeader) > 0 || len(cfg.ExcludeBody) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}
	return nil
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

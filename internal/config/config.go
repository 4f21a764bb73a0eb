package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ModeStdio  = "stdio"
	ModeServer = "server"

	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024
	DefaultMinWidth    = 20.0
	DefaultMinHeight   = 8.0
	DefaultOutputName  = "filled"

	DefaultDirPerm = 0o750

	EnvPrefix = "PDF_PLACEHOLDER"
)

// ErrVersionRequested is returned by Load when --version was passed
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the placeholder server
type Config struct {
	Mode string
	Host string
	Port int

	// DocumentDirectory is the sandbox documents are opened from and
	// OutputDirectory the one filled documents are exported to
	DocumentDirectory string
	OutputDirectory   string

	// FontPath and FontURL select the embedded font; the bundled Go
	// Regular face is used when both are empty
	FontPath string
	FontURL  string

	MinRegionWidth  float64
	MinRegionHeight float64

	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio,
		Host:              DefaultHost,
		Port:              DefaultPort,
		DocumentDirectory: currentDir,
		MinRegionWidth:    DefaultMinWidth,
		MinRegionHeight:   DefaultMinHeight,
		Version:           "1.0.0",
		ServerName:        "pdf-placeholder",
		LogLevel:          DefaultLogLevel,
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// LoadFromFlags reads the process arguments and environment
func LoadFromFlags() (*Config, error) {
	return Load(os.Args[1:], os.Stderr)
}

// Load parses args into a configuration. Environment variables prefixed
// with PDF_PLACEHOLDER_ apply when a flag is not given. Usage text is
// written to usage on parse errors.
func Load(args []string, usage io.Writer) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := newFlagSet(cfg, usage)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if version, _ := flags.GetBool("version"); version {
		return nil, ErrVersionRequested
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.DocumentDirectory = v.GetString("dir")
	cfg.OutputDirectory = v.GetString("outdir")
	cfg.LogLevel = strings.ToLower(v.GetString("loglevel"))
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
	cfg.FontPath = v.GetString("font")
	cfg.FontURL = v.GetString("fonturl")
	cfg.MinRegionWidth = v.GetFloat64("minwidth")
	cfg.MinRegionHeight = v.GetFloat64("minheight")

	if cfg.DocumentDirectory != "" {
		if abs, err := filepath.Abs(cfg.DocumentDirectory); err == nil {
			cfg.DocumentDirectory = abs
		}
	}
	if cfg.OutputDirectory == "" && cfg.DocumentDirectory != "" {
		cfg.OutputDirectory = filepath.Join(cfg.DocumentDirectory, DefaultOutputName)
	}
	if cfg.OutputDirectory != "" {
		if abs, err := filepath.Abs(cfg.OutputDirectory); err == nil {
			cfg.OutputDirectory = abs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newFlagSet(cfg *Config, usage io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("pdf-placeholder", pflag.ContinueOnError)
	flags.SetOutput(usage)

	flags.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	flags.String("host", cfg.Host, "Server host address (server mode only)")
	flags.Int("port", cfg.Port, "Server port (server mode only)")
	flags.String("dir", cfg.DocumentDirectory, "Directory documents are opened from")
	flags.String("outdir", "", "Directory filled documents are written to (default <dir>/filled)")
	flags.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	flags.String("font", "", "TrueType font file to embed")
	flags.String("fonturl", "", "URL of a TrueType font to fetch once and embed")
	flags.Float64("minwidth", cfg.MinRegionWidth, "Minimum region width in document units")
	flags.Float64("minheight", cfg.MinRegionHeight, "Minimum region height in document units")
	flags.BoolP("version", "v", false, "Print version information and exit")

	flags.Usage = func() {
		fmt.Fprintf(usage, "Usage of pdf-placeholder:\n")
		fmt.Fprintf(usage, "\nPDF Placeholder - an MCP server that fills numbered placeholders in PDF documents\n\n")
		fmt.Fprintf(usage, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(usage, "\nEnvironment Variables:\n")
		for _, name := range []string{"mode", "host", "port", "dir", "outdir", "loglevel", "maxfilesize", "font", "fonturl", "minwidth", "minheight"} {
			fmt.Fprintf(usage, "  %s_%s\n", EnvPrefix, strings.ToUpper(name))
		}
	}
	return flags
}

// Validate checks the configuration and creates missing directories
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}
	if c.DocumentDirectory == "" {
		return errors.New("document directory cannot be empty")
	}
	if err := ensureDir(c.DocumentDirectory); err != nil {
		return err
	}
	if c.OutputDirectory != "" {
		if err := ensureDir(c.OutputDirectory); err != nil {
			return err
		}
	}
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.MinRegionWidth <= 0 || c.MinRegionHeight <= 0 {
		return errors.New("minimum region width and height must be positive")
	}
	if c.FontPath != "" && c.FontURL != "" {
		return errors.New("only one of font and fonturl may be set")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}
	return nil
}

// Level returns the logrus level for LogLevel
func (c *Config) Level() (logrus.Level, error) {
	switch c.LogLevel {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, DocumentDirectory: %s, OutputDirectory: %s, LogLevel: %s, MaxFileSize: %d, MinRegion: %gx%g}",
		c.Mode, c.Host, c.Port, c.DocumentDirectory, c.OutputDirectory, c.LogLevel, c.MaxFileSize, c.MinRegionWidth, c.MinRegionHeight)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/pdf-placeholder/internal/config"
	"github.com/a3tai/pdf-placeholder/internal/export"
	"github.com/a3tai/pdf-placeholder/internal/fontkit"
	"github.com/a3tai/pdf-placeholder/internal/mcp"
	"github.com/a3tai/pdf-placeholder/internal/mutator"
	"github.com/a3tai/pdf-placeholder/internal/placeholder"
	"github.com/a3tai/pdf-placeholder/internal/session"
)

var (
	version   = "dev"     // set by build flags
	buildTime = "unknown" // set by build flags
	gitCommit = "unknown" // set by build flags
)

// newLogger configures logging for the server mode. In stdio mode stdout
// carries the protocol, so logs go to stderr and only when debugging.
func newLogger(cfg *config.Config, stderr io.Writer) *logrus.Logger {
	log := logrus.New()
	level, err := cfg.Level()
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(stderr)

	if cfg.IsStdioMode() {
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
		return log
	}
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

// newServer wires the font cache, mutator, sessions and exporter into an
// MCP server
func newServer(cfg *config.Config, log *logrus.Logger) (*mcp.Server, error) {
	fonts := fontkit.NewHolder(fontkit.NewLoader(cfg.FontPath, cfg.FontURL))
	mut := mutator.New(fonts, mutator.WithLogger(log))

	sessions, err := session.NewManager(cfg.DocumentDirectory, mut,
		session.WithMaxFileSize(cfg.MaxFileSize),
		session.WithThresholds(placeholder.Thresholds{
			MinWidth:  cfg.MinRegionWidth,
			MinHeight: cfg.MinRegionHeight,
		}),
		session.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := export.NewExporter(cfg.OutputDirectory, export.WithLogger(log))
	if err != nil {
		return nil, err
	}

	return mcp.NewServer(cfg, sessions, exporter, mcp.WithLogger(log), mcp.WithFontHolder(fonts))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, stderr)
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(stdout)
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 2
	}
	if version != "dev" {
		cfg.Version = version
	}

	log := newLogger(cfg, stderr)
	log.WithField("config", cfg.String()).Debug("Starting")

	server, err := newServer(cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create MCP server: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := server.Run(ctx); err != nil {
		log.WithError(err).Error("Server stopped with error")
		return 1
	}
	log.Info("Server stopped")
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "PDF Placeholder\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}

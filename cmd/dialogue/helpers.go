package main

import (
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/dialogue/pkg/registry"
	"github.com/germanamz/dialogue/pkg/warnings"
	"github.com/joho/godotenv"
)

var (
	nameStyle       = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	deprecatedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
)

type commonOptions struct {
	configPath string
	envFile    string
	verbose    bool
}

func registerCommonFlags(fs *flag.FlagSet) *commonOptions {
	o := &commonOptions{}
	fs.StringVar(&o.configPath, "config", "config.yml", "path to the policy configuration file")
	fs.StringVar(&o.envFile, "env", ".env", "path to .env file (ignored if missing)")
	fs.BoolVar(&o.verbose, "verbose", false, "log debug output")

	return o
}

// env is what every command runs against.
type env struct {
	configPath string
	out        io.Writer
	log        *slog.Logger
	emitter    *warnings.Emitter
	registry   *registry.Registry
}

func newEnv(o *commonOptions, out, errOut io.Writer) *env {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	return &env{
		configPath: o.configPath,
		out:        out,
		log:        log,
		emitter:    warnings.NewEmitter(warnings.WithLogger(log)),
		registry:   registry.Default(),
	}
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

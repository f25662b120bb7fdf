package app

import (
	"io"
	"os"

	"github.com/Eyevinn/video-timestamps/internal"
	"github.com/Eyevinn/video-timestamps/internal/config"
	"github.com/Eyevinn/video-timestamps/internal/logger"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// CommonFlags are the flags shared by the command line tools. Set flags
// override the configuration file and the environment.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file", EnvVars: []string{"VIDEOTS_CONFIG"}},
		&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: "backend: auto, mp4, mpegts or ffprobe"},
		&cli.StringFlag{Name: "ffprobe", Usage: "path to a custom ffprobe binary"},
		&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "number of files processed in parallel"},
		&cli.DurationFlag{Name: "timeout", Usage: "time limit per file, 0 for none"},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format: json or yaml"},
		&cli.BoolFlag{Name: "indent", Usage: "indent JSON output (default on for terminals)"},
		&cli.BoolFlag{Name: "progress", Usage: "show a progress bar on stderr"},
		&cli.StringFlag{Name: "log-level", Usage: "log level: trace, debug, info, warn or error"},
	}
}

// Env holds what a command needs after flag parsing.
type Env struct {
	Config  *config.Config
	Log     *logrus.Logger
	Printer *internal.Printer
	Runner  *Runner
}

// Setup loads the configuration, applies the set flags and builds the
// logger, printer and runner.
func Setup(c *cli.Context) (*Env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, err
	}

	w := c.App.Writer
	p := &internal.Printer{W: w, Format: cfg.Output.Format, Indent: outputIndent(cfg.Output, isTerminal(w))}

	opts := Options{Backend: cfg.Backend, Workers: cfg.Workers, Timeout: cfg.Timeout}
	if c.Bool("progress") {
		opts.Progress = c.App.ErrWriter
	}
	r := NewRunner(opts, NewBackendFactory(cfg, log), log)

	return &Env{Config: cfg, Log: log, Printer: p, Runner: r}, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("ffprobe") {
		cfg.FFprobePath = c.String("ffprobe")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.IsSet("indent") {
		indent := c.Bool("indent")
		cfg.Output.Indent = &indent
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
}

// outputIndent indents JSON for terminals unless indent was set explicitly.
func outputIndent(o config.OutputConfig, terminal bool) bool {
	if o.Indent != nil {
		return *o.Indent
	}
	return terminal
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

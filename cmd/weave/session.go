package main

import (
	"errors"
	"flag"

	"go.uber.org/zap"

	"github.com/dshills/weave/internal/config"
	"github.com/dshills/weave/internal/logging"
	"github.com/dshills/weave/internal/multibuffer"
	"github.com/dshills/weave/internal/registry"
	"github.com/dshills/weave/internal/textdiff"
)

// commonFlags are shared by every subcommand. Empty values mean "not
// given", so the configuration file stays authoritative unless a flag
// overrides it.
type commonFlags struct {
	configPath string
	logLevel   string
	logFile    string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&cf.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&cf.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&cf.logFile, "log-file", "", "Log destination file (default stderr)")
	return cf
}

func loadConfig(cf *commonFlags) (config.Config, error) {
	path := cf.configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if cf.logLevel != "" {
		cfg.Log.Level = cf.logLevel
	}
	if cf.logFile != "" {
		cfg.Log.File = cf.logFile
	}
	return cfg, nil
}

// session bundles the registry and view every command works against.
type session struct {
	cfg      config.Config
	log      *zap.Logger
	closeLog func()
	reg      *registry.Registry
	view     *multibuffer.MultiBuffer
}

func newSession(cfg config.Config) (*session, error) {
	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	reg := registry.New(
		registry.WithLogger(log),
		registry.WithHistoryLimit(cfg.Engine.HistoryLimit),
	)
	view := multibuffer.New(reg,
		multibuffer.WithLogger(log),
		multibuffer.WithDiffSyncLimit(cfg.Engine.DiffSyncLines),
		multibuffer.WithDiffOptions(textdiff.Options{
			IgnoreWhitespace: cfg.Engine.DiffIgnoreWhitespace,
			MaxLines:         cfg.Engine.DiffMaxLines,
		}),
	)

	return &session{
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		reg:      reg,
		view:     view,
	}, nil
}

func (s *session) close() {
	s.view.Close()
	s.closeLog()
}

// parseArgs runs fs over args and reports how the command should exit
// when parsing stops it: 0 for -h, 2 for a bad flag, -1 to continue.
func parseArgs(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	return -1
}

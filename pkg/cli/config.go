package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/aiassist/pkg/adapter"
	"github.com/m-mizutani/aiassist/pkg/repository"
	"github.com/m-mizutani/aiassist/pkg/usecase/assistant"
	"github.com/m-mizutani/aiassist/pkg/usecase/history"
	"github.com/m-mizutani/aiassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const appName = "aiassist"

// config holds configuration values
type config struct {
	// Logging
	logLevel   string
	logFile    string
	configFile string

	// API
	baseURL string
	timeout time.Duration

	// Storage
	storage    string
	storageDir string
	session    string
	sessionTTL time.Duration

	logCloser io.Closer
}

// fileConfig is the optional YAML config file. Flags and environment
// variables take precedence over it.
type fileConfig struct {
	BaseURL    string `yaml:"base_url"`
	Timeout    string `yaml:"timeout"`
	Storage    string `yaml:"storage"`
	StorageDir string `yaml:"storage_dir"`
	Session    string `yaml:"session"`
	SessionTTL string `yaml:"session_ttl"`
	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("AIASSIST_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "Write logs to this file instead of stderr",
			Sources:     cli.EnvVars("AIASSIST_LOG_FILE"),
			Destination: &cfg.logFile,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file",
			Sources:     cli.EnvVars("AIASSIST_CONFIG"),
			Destination: &cfg.configFile,
		},
	}
}

// apiFlags returns flags for the assistant backend with destination config
func apiFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "base-url",
			Aliases:     []string{"u"},
			Usage:       "Base URL of the AI assistant API",
			Value:       adapter.DefaultBaseURL,
			Sources:     cli.EnvVars("AIASSIST_BASE_URL"),
			Destination: &cfg.baseURL,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Timeout of one API request",
			Value:       adapter.DefaultTimeout,
			Sources:     cli.EnvVars("AIASSIST_TIMEOUT"),
			Destination: &cfg.timeout,
		},
	}
}

// storageFlags returns flags for session history storage with destination config
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage",
			Usage:       "Session storage backend (file, sqlite, memory)",
			Value:       string(repository.BackendFile),
			Sources:     cli.EnvVars("AIASSIST_STORAGE"),
			Destination: &cfg.storage,
		},
		&cli.StringFlag{
			Name:        "storage-dir",
			Usage:       "Directory for session storage",
			Value:       defaultStorageDir(),
			Sources:     cli.EnvVars("AIASSIST_STORAGE_DIR"),
			Destination: &cfg.storageDir,
		},
		&cli.StringFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Session ID; history is kept per session",
			Value:       defaultSessionID(),
			Sources:     cli.EnvVars("AIASSIST_SESSION"),
			Destination: &cfg.session,
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Remove sessions idle for longer than this at startup (0 keeps them)",
			Value:       defaultSessionTTL,
			Sources:     cli.EnvVars("AIASSIST_SESSION_TTL"),
			Destination: &cfg.sessionTTL,
		},
	}
}

func allFlags(cfg *config) []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, globalFlags(cfg)...)
	flags = append(flags, apiFlags(cfg)...)
	flags = append(flags, storageFlags(cfg)...)
	return flags
}

func defaultStorageDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return "." + appName
}

func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.yaml")
}

// loadFile fills values that were not set by flag or environment from the
// YAML config file. A missing default file is not an error.
func (cfg *config) loadFile(c *cli.Command) error {
	path := cfg.configFile
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile()
		if path == "" {
			return nil
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}

	setString := func(name string, dst *string, v string) {
		if v != "" && !c.IsSet(name) {
			*dst = v
		}
	}
	setString("base-url", &cfg.baseURL, fc.BaseURL)
	setString("storage", &cfg.storage, fc.Storage)
	setString("storage-dir", &cfg.storageDir, fc.StorageDir)
	setString("session", &cfg.session, fc.Session)
	setString("log-level", &cfg.logLevel, fc.LogLevel)
	setString("log-file", &cfg.logFile, fc.LogFile)

	if fc.Timeout != "" && !c.IsSet("timeout") {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return goerr.Wrap(err, "invalid timeout in config file", goerr.V("timeout", fc.Timeout))
		}
		cfg.timeout = d
	}
	if fc.SessionTTL != "" && !c.IsSet("session-ttl") {
		d, err := time.ParseDuration(fc.SessionTTL)
		if err != nil {
			return goerr.Wrap(err, "invalid session_ttl in config file", goerr.V("session_ttl", fc.SessionTTL))
		}
		cfg.sessionTTL = d
	}
	return nil
}

// setup loads the config file and attaches a logger to ctx. Logs go to
// --log-file if given, otherwise to fallback. A nil fallback drops logs.
func (cfg *config) setup(ctx context.Context, c *cli.Command, fallback io.Writer) (context.Context, error) {
	if err := cfg.loadFile(c); err != nil {
		return ctx, err
	}
	if _, err := logging.ParseLevel(cfg.logLevel); err != nil {
		return ctx, err
	}

	var logger *slog.Logger
	switch {
	case cfg.logFile != "":
		f, err := os.OpenFile(cfg.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return ctx, goerr.Wrap(err, "failed to open log file", goerr.V("path", cfg.logFile))
		}
		cfg.logCloser = f
		logger = logging.New(cfg.logLevel, f)
	case fallback == nil:
		logger = logging.Discard()
	default:
		logger = logging.New(cfg.logLevel, fallback)
	}

	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

func (cfg *config) close() {
	if cfg.logCloser != nil {
		cfg.logCloser.Close()
	}
}

// newAssistant creates the backend API client
func (cfg *config) newAssistant() (*adapter.AssistantClient, error) {
	if cfg.baseURL == "" {
		return nil, goerr.New("base-url is required")
	}
	if cfg.timeout <= 0 {
		return nil, goerr.New("timeout must be positive", goerr.V("timeout", cfg.timeout))
	}

	client, err := adapter.NewAssistant(cfg.baseURL,
		adapter.WithTimeout(cfg.timeout),
		adapter.WithUserAgent(appName),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create assistant client")
	}
	return client, nil
}

// newStorage removes expired sessions and opens the session storage backend
func (cfg *config) newStorage(ctx context.Context) (repository.SessionStorage, error) {
	cfg.pruneSessions(ctx)

	storage, err := repository.New(repository.Backend(cfg.storage), cfg.storageDir, cfg.session)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open session storage",
			goerr.V("backend", cfg.storage),
			goerr.V("dir", cfg.storageDir),
		)
	}
	return storage, nil
}

// newApp wires client, storage and history into an App. The returned
// function closes the storage.
func (cfg *config) newApp(ctx context.Context) (*assistant.App, func(), error) {
	client, err := cfg.newAssistant()
	if err != nil {
		return nil, nil, err
	}

	storage, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	app, err := assistant.New(assistant.NewInput{
		Client: client,
		Store:  history.Open(ctx, storage),
	})
	if err != nil {
		storage.Close()
		return nil, nil, goerr.Wrap(err, "failed to create assistant")
	}

	cleanup := func() {
		if err := storage.Close(); err != nil {
			logging.From(ctx).Warn("failed to close session storage", "error", err)
		}
	}
	return app, cleanup, nil
}

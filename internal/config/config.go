package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr = ":8080"
	defaultDBPath     = "podfree.db"
	defaultFFmpeg     = "ffmpeg"
	defaultFFprobe    = "ffprobe"
	defaultPython     = "python3"

	envConfig      = "PODFREE_CONFIG"
	envListenAddr  = "PODFREE_LISTEN_ADDR"
	envDBPath      = "PODFREE_DB_PATH"
	envLogLevel    = "PODFREE_LOG_LEVEL"
	envWorkspace   = "PODFREE_WORKSPACE"
	envScriptsDir  = "PODFREE_SCRIPTS_DIR"
	envFFmpeg      = "PODFREE_FFMPEG"
	envFFprobe     = "PODFREE_FFPROBE"
	envPython      = "PODFREE_PYTHON"
	envCORSOrigins = "PODFREE_CORS_ORIGINS"
)

// Config holds application configuration.
type Config struct {
	ListenAddr  string
	DBPath      string
	LogLevel    slog.Level
	Workspace   string
	ScriptsDir  string
	FFmpeg      string
	FFprobe     string
	Python      string
	CORSOrigins []string
}

// fileConfig is the YAML layout of the optional configuration file.
type fileConfig struct {
	Server struct {
		ListenAddr  string   `yaml:"listen_addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Storage struct {
		Database string `yaml:"database"`
	} `yaml:"storage"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Workspace struct {
		Root       string `yaml:"root"`
		ScriptsDir string `yaml:"scripts_dir"`
	} `yaml:"workspace"`
	Tools struct {
		FFmpeg  string `yaml:"ffmpeg"`
		FFprobe string `yaml:"ffprobe"`
		Python  string `yaml:"python"`
	} `yaml:"tools"`
}

// Load builds the configuration from defaults, then the YAML file at path
// (or PODFREE_CONFIG when path is empty), then PODFREE_* environment
// variables.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddr:  defaultListenAddr,
		DBPath:      defaultDBPath,
		LogLevel:    slog.LevelInfo,
		FFmpeg:      defaultFFmpeg,
		FFprobe:     defaultFFprobe,
		Python:      defaultPython,
		CORSOrigins: []string{"*"},
	}

	if path == "" {
		path = os.Getenv(envConfig)
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set(&c.ListenAddr, fc.Server.ListenAddr)
	set(&c.DBPath, fc.Storage.Database)
	set(&c.Workspace, fc.Workspace.Root)
	set(&c.ScriptsDir, fc.Workspace.ScriptsDir)
	set(&c.FFmpeg, fc.Tools.FFmpeg)
	set(&c.FFprobe, fc.Tools.FFprobe)
	set(&c.Python, fc.Tools.Python)
	if fc.Log.Level != "" {
		c.LogLevel = parseLogLevel(fc.Log.Level)
	}
	if len(fc.Server.CORSOrigins) > 0 {
		c.CORSOrigins = fc.Server.CORSOrigins
	}
	return nil
}

func (c *Config) applyEnv() {
	set(&c.ListenAddr, os.Getenv(envListenAddr))
	set(&c.DBPath, os.Getenv(envDBPath))
	set(&c.Workspace, os.Getenv(envWorkspace))
	set(&c.ScriptsDir, os.Getenv(envScriptsDir))
	set(&c.FFmpeg, os.Getenv(envFFmpeg))
	set(&c.FFprobe, os.Getenv(envFFprobe))
	set(&c.Python, os.Getenv(envPython))
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envCORSOrigins); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			c.CORSOrigins = origins
		}
	}
}

func set(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured logger writing to w at the configured level.
// Output is JSON unless w is an interactive terminal.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if isTerminal(w) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

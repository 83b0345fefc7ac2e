package logging

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"path/filepath"
	"strings"

	"media-webhooks-api/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const syslogTag = "media-webhooks"

// Setup initializes the global logger based on configuration
func Setup(cfg config.Config) error {
	level, err := ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	writer, err := NewWriter(cfg)
	if err != nil {
		return err
	}

	log.Logger = zerolog.New(writer).With().
		Timestamp().
		Str("service", syslogTag).
		Caller().
		Logger()

	log.Info().
		Str("level", cfg.Logging.Level).
		Str("format", cfg.Logging.Format).
		Str("output", cfg.Logging.Output).
		Msg("Logger initialized")

	return nil
}

// NewWriter builds the sink selected by cfg.Logging.Output.
func NewWriter(cfg config.Config) (io.Writer, error) {
	switch strings.ToLower(cfg.Logging.Output) {
	case "stdout", "":
		return setupConsoleWriter(cfg), nil
	case "file":
		w, err := setupFileWriter(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to setup file writer: %w", err)
		}
		return w, nil
	case "syslog":
		w, err := setupSyslogWriter(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to setup syslog writer: %w", err)
		}
		return w, nil
	case "multi":
		w, err := setupMultiWriter(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to setup multi writer: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("invalid log output %q", cfg.Logging.Output)
	}
}

func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	case "panic":
		return zerolog.PanicLevel, nil
	case "disabled":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown level: %s", level)
	}
}

func setupConsoleWriter(cfg config.Config) io.Writer {
	if strings.ToLower(cfg.Logging.Format) == "console" {
		return zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}
	return os.Stdout
}

func setupFileWriter(cfg config.Config) (io.Writer, error) {
	logDir := filepath.Dir(cfg.Logging.FilePath)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		LocalTime:  true,
	}, nil
}

func setupSyslogWriter(cfg config.Config) (io.Writer, error) {
	var (
		writer *syslog.Writer
		err    error
	)
	if cfg.Logging.SyslogAddr == "" {
		writer, err = syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, syslogTag)
	} else {
		network := cfg.Logging.SyslogNet
		if network == "" {
			network = "udp"
		}
		writer, err = syslog.Dial(network, cfg.Logging.SyslogAddr, syslog.LOG_INFO|syslog.LOG_DAEMON, syslogTag)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to syslog: %w", err)
	}
	return writer, nil
}

func setupMultiWriter(cfg config.Config) (io.Writer, error) {
	writers := []io.Writer{setupConsoleWriter(cfg)}

	if cfg.Logging.FilePath != "" {
		fileWriter, err := setupFileWriter(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to setup file writer: %w", err)
		}
		writers = append(writers, fileWriter)
	}

	// Syslog is best effort in multi mode.
	if cfg.Logging.SyslogAddr != "" {
		syslogWriter, err := setupSyslogWriter(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to setup syslog writer: %v\n", err)
		} else {
			writers = append(writers, syslogWriter)
		}
	}

	return zerolog.MultiLevelWriter(writers...), nil
}

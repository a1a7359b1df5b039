// Package logging builds the zap logger used for pipeline narration.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Options controls logger construction.
type Options struct {
	Verbose bool
	Format  Format
	// OutputPaths defaults to stderr so stdout stays free for command output.
	OutputPaths []string
	// Writer, when set, receives log entries instead of OutputPaths.
	Writer io.Writer
	// RunID tags every entry. Empty means a fresh id.
	RunID string
}

// ParseFormat validates a --log-format value.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatConsole, "":
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid log format %q (expected console|json)", raw)
	}
}

// New builds a logger tagged with a fresh run id.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.Sampling = nil
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	switch opts.Format {
	case FormatJSON:
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		cfg.Encoding = string(FormatConsole)
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	var logger *zap.Logger
	if opts.Writer != nil {
		enc := zapcore.NewJSONEncoder(cfg.EncoderConfig)
		if cfg.Encoding == string(FormatConsole) {
			enc = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
		}
		logger = zap.New(zapcore.NewCore(enc, zapcore.AddSync(opts.Writer), cfg.Level))
	} else {
		cfg.OutputPaths = []string{"stderr"}
		if len(opts.OutputPaths) > 0 {
			cfg.OutputPaths = opts.OutputPaths
		}
		cfg.ErrorOutputPaths = []string{"stderr"}

		var err error
		logger, err = cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	runID := opts.RunID
	if runID == "" {
		runID = NewRunID()
	}
	return logger.With(zap.String("run_id", runID)), nil
}

// NewRunID returns an operational identifier for one pipeline invocation.
func NewRunID() string {
	return uuid.NewString()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

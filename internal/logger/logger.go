package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry written by the API process
const ServiceName = "pipedrill"

// Options configures the process logger
type Options struct {
	Env     string
	Level   string
	Service string
}

// New creates a new structured logger writing to stdout
func New(opts Options) (*zap.Logger, error) {
	return build(opts, zapcore.Lock(os.Stdout))
}

func build(opts Options, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	production := opts.Env == "production"

	level := zapcore.DebugLevel
	if production {
		level = zapcore.InfoLevel
	}
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var encoder zapcore.Encoder
	if production {
		// Structured JSON for log shippers
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.MessageKey = "message"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	logger := zap.New(
		zapcore.NewCore(encoder, sink, level),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	)

	if opts.Service != "" {
		logger = logger.With(zap.String("service", opts.Service))
	}
	return logger, nil
}

// NewWithDefaults creates a logger from SERVER_ENV and LOG_LEVEL
func NewWithDefaults() *zap.Logger {
	env := os.Getenv("SERVER_ENV")
	if env == "" {
		env = "development"
	}

	logger, err := New(Options{Env: env, Level: os.Getenv("LOG_LEVEL"), Service: ServiceName})
	if err != nil {
		// Fallback to basic logger
		logger, _ = zap.NewProduction()
	}

	return logger
}

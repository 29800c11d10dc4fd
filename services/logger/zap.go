package logsvc

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Mohammed01doitesky/bed/core"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

// NewZap builds the local logger. An empty conf gets production defaults at info level.
func NewZap(conf core.LogConfig, name string) (*zap.SugaredLogger, error) {
	var zconf zap.Config
	if strings.ToLower(conf.Format) == "console" {
		zconf = zap.NewDevelopmentConfig()
		zconf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zconf = zap.NewProductionConfig()
		zconf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := ParseLevel(conf.Level)
	if err != nil {
		return nil, err
	}
	zconf.Level = zap.NewAtomicLevelAt(level)
	zconf.OutputPaths = []string{"stdout"}
	zconf.ErrorOutputPaths = []string{"stderr"}

	zl, err := zconf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return zl.Named(name).Sugar(), nil
}

func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, errors.Wrap(ErrInvalidLogLevel, level)
	}
}

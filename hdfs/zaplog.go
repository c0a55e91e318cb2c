package hdfs

import (
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogRotation sizes the lumberjack file behind a logger. Zero fields take
// the defaults below.
type LogRotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const (
	defaultLogMaxSizeMB  = 1
	defaultLogMaxBackups = 5
	defaultLogMaxAgeDays = 30
)

// InitLogger builds the sugared logger used by the binaries. An empty path
// logs to stderr, otherwise to a file rotated with the default sizes.
func InitLogger(path string) *zap.SugaredLogger {
	return newLogger(path, LogRotation{})
}

func newLogger(path string, rot LogRotation) *zap.SugaredLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if path != "" {
		sink = zapcore.AddSync(rotatingFile(path, rot))
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), sink, zapcore.DebugLevel)
	return zap.New(core, zap.AddCaller()).Sugar()
}

func rotatingFile(path string, rot LogRotation) *lumberjack.Logger {
	if rot.MaxSizeMB == 0 {
		rot.MaxSizeMB = defaultLogMaxSizeMB
	}
	if rot.MaxBackups == 0 {
		rot.MaxBackups = defaultLogMaxBackups
	}
	if rot.MaxAgeDays == 0 {
		rot.MaxAgeDays = defaultLogMaxAgeDays
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
	}
}

func nopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

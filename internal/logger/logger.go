package logger

import (
	"os"

	"github.com/op/go-logging"
)

var log *logging.Logger

func init() {
	InitLogger(logging.INFO)
}

// InitLogger (re)configures the process-wide logger. Called once from main
// after flags are parsed; the init default keeps tests quiet but functional.
func InitLogger(level logging.Level) {
	newLogger := logging.MustGetLogger("txt2sub")

	backend := logging.NewLogBackend(os.Stderr, "", 0)
	format := logging.MustStringFormatter(`%{time:2006/01/02 15:04:05} %{level} - %{message}`)
	backendFormatter := logging.NewBackendFormatter(backend, format)
	leveled := logging.AddModuleLevel(backendFormatter)
	leveled.SetLevel(level, "txt2sub")
	newLogger.SetBackend(leveled)

	log = newLogger
}

func Debug(args ...any) {
	log.Debug(args...)
}

func Debugf(format string, args ...any) {
	log.Debugf(format, args...)
}

func Info(args ...any) {
	log.Info(args...)
}

func Infof(format string, args ...any) {
	log.Infof(format, args...)
}

func Warning(args ...any) {
	log.Warning(args...)
}

func Warningf(format string, args ...any) {
	log.Warningf(format, args...)
}

func Error(args ...any) {
	log.Error(args...)
}

func Errorf(format string, args ...any) {
	log.Errorf(format, args...)
}

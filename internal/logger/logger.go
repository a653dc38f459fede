package logger

import (
	"io"
	"os"

	"merchant-dashboard/internal/config"

	"github.com/sirupsen/logrus"
)

// Logger оборачивает logrus.Logger для единообразного логирования
type Logger struct {
	*logrus.Logger
}

// New создает новый логгер согласно конфигурации
func New(cfg *config.LoggerConfig) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	log.SetOutput(resolveOutput(cfg.File))

	return &Logger{Logger: log}
}

// resolveOutput открывает файл для логов или возвращает stdout
func resolveOutput(file string) io.Writer {
	if file == "" {
		return os.Stdout
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stdout
	}
	return f
}

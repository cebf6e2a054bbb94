package logging

import (
	"os"

	"github.com/sirupsen/logrus"

	"card-trader/config"
)

// Setup builds the process logger and installs it as the logrus default so
// package-level logrus calls share the same formatter and level.
func Setup(cfg config.Log) *logrus.Logger {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	var formatter logrus.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyLevel: "loglevel",
		},
	}
	if cfg.Format == "text" {
		formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(formatter)
	logger.SetLevel(level)

	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(formatter)
	logrus.SetLevel(level)

	return logger
}

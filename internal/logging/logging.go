package logging

import (
    "os"
    "strings"

    "github.com/sirupsen/logrus"
)

// Fields aliases logrus fields for callers.
type Fields = logrus.Fields

// New creates a JSON logger tagged with the service name.
func New(service, level string) *logrus.Logger {
    logger := logrus.New()
    logger.SetOutput(os.Stdout)
    logger.SetFormatter(&logrus.JSONFormatter{})
    logger.SetLevel(parseLevel(level))
    logger.AddHook(&serviceHook{service: service})
    return logger
}

func parseLevel(level string) logrus.Level {
    parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
    if err != nil {
        return logrus.InfoLevel
    }
    return parsed
}

type serviceHook struct {
    service string
}

func (h *serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *serviceHook) Fire(entry *logrus.Entry) error {
    if _, ok := entry.Data["service"]; !ok {
        entry.Data["service"] = h.service
    }
    return nil
}

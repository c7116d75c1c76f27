package logger

import (
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry so call sites can chain WithField without
// touching the base logger setup.
type Logger struct {
	*logrus.Entry
}

// New builds a logger from LOG_LEVEL / ENVIRONMENT. Local gets a readable
// console format, anything else emits JSON lines.
func New() *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)

	switch os.Getenv("ENVIRONMENT") {
	case "", "local", "development":
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		base.SetLevel(lvl)
	} else {
		base.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Entry: logrus.NewEntry(base)}
}

// WithComponent tags every line from a pipeline component.
func (l *Logger) WithComponent(name string) *logrus.Entry {
	return l.WithField("component", name)
}

// WithRequest attaches request metadata, minting a request id when the
// client did not send one.
func (l *Logger) WithRequest(r *http.Request) *logrus.Entry {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.New().String()
	}
	return l.WithFields(logrus.Fields{
		"req_id": reqID,
		"method": r.Method,
		"path":   r.URL.Path,
	})
}

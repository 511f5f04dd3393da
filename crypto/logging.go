package crypto

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LoggerHelper tags log entries from this package with the calling function.
type LoggerHelper struct {
	function string
	fields   logrus.Fields
}

// NewLogger creates a logger helper for function.
func NewLogger(function string) *LoggerHelper {
	return &LoggerHelper{
		function: function,
		fields: logrus.Fields{
			"function": function,
			"package":  "crypto",
		},
	}
}

// WithField adds a custom field to the logger
func (l *LoggerHelper) WithField(key string, value interface{}) *LoggerHelper {
	l.fields[key] = value
	return l
}

// WithFields adds multiple custom fields to the logger
func (l *LoggerHelper) WithFields(fields logrus.Fields) *LoggerHelper {
	for k, v := range fields {
		l.fields[k] = v
	}
	return l
}

// WithError records err together with the operation that produced it.
func (l *LoggerHelper) WithError(err error, operation string) *LoggerHelper {
	l.fields["error"] = err.Error()
	l.fields["operation"] = operation
	return l
}

// Debug logs a debug message
func (l *LoggerHelper) Debug(message string) {
	logrus.WithFields(l.fields).Debug(message)
}

// Warn logs a warning message
func (l *LoggerHelper) Warn(message string) {
	logrus.WithFields(l.fields).Warn(message)
}

// SecureFieldHash returns a short hex preview and the size of data, for
// logging buffers such as ciphertext or a MIC.
func SecureFieldHash(data []byte, name string) logrus.Fields {
	preview := "nil"
	if len(data) > 0 {
		n := 8
		if len(data) < n {
			n = len(data)
		}
		preview = fmt.Sprintf("%x", data[:n])
		if len(data) > n {
			preview += "..."
		}
	}
	return logrus.Fields{
		name + "_preview": preview,
		name + "_size":    len(data),
	}
}

package rendition

import (
	"fmt"

	"github.com/ghetzel/go-stockutil/log"
)

// Logger is the host logging facade used by the Registry and Dispatcher.
type Logger interface {
	Log(level log.Level, args ...interface{})
}

type LoggerFunc func(level log.Level, args ...interface{})

func (self LoggerFunc) Log(level log.Level, args ...interface{}) {
	self(level, args...)
}

// The default Logger writes through go-stockutil/log.
var DefaultLogger Logger = LoggerFunc(log.Log)

func logf(logger Logger, level log.Level, format string, args ...interface{}) {
	if logger == nil {
		logger = DefaultLogger
	}

	logger.Log(level, fmt.Sprintf(format, args...))
}

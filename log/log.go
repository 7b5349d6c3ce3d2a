package log

// Logger is the logging interface used across the module.
// The cmd layer provides a file-backed implementation; library code
// that is not handed a logger falls back to Nop.
type Logger interface {
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	Info(args ...interface{})
	Debug(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

// Nop discards all log output.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}
func (nopLogger) Info(args ...interface{})                  {}
func (nopLogger) Debug(args ...interface{})                 {}
func (nopLogger) Warn(args ...interface{})                  {}
func (nopLogger) Error(args ...interface{})                 {}

// OrNop returns logger if non-nil, Nop otherwise.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop
	}
	return logger
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xhd2015/dlv-autobreak/log"
)

type logger struct {
	writer io.Writer
}

var _ log.Logger = &logger{}

// newFileLogger opens an append-only log file, defaulting to
// ~/.dlv-autobreak/dlv-autobreak.log. Logs go to the file rather than the
// console so the session output stays a single confirmation line.
func newFileLogger(path string) (log.Logger, func(), error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir := filepath.Join(homeDir, ".dlv-autobreak")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		path = filepath.Join(configDir, "dlv-autobreak.log")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &logger{writer: file}, func() { file.Close() }, nil
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.writeLog("INFO", fmt.Sprintf(format, args...))
}

func (l *logger) Debugf(format string, args ...interface{}) {
	l.writeLog("DEBUG", fmt.Sprintf(format, args...))
}

func (l *logger) Warnf(format string, args ...interface{}) {
	l.writeLog("WARN", fmt.Sprintf(format, args...))
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.writeLog("ERROR", fmt.Sprintf(format, args...))
}

func (l *logger) Info(args ...interface{}) {
	l.writeLog("INFO", fmt.Sprint(args...))
}

func (l *logger) Debug(args ...interface{}) {
	l.writeLog("DEBUG", fmt.Sprint(args...))
}

func (l *logger) Warn(args ...interface{}) {
	l.writeLog("WARN", fmt.Sprint(args...))
}

func (l *logger) Error(args ...interface{}) {
	l.writeLog("ERROR", fmt.Sprint(args...))
}

func (l *logger) writeLog(level string, msg string) {
	time := time.Now().Format("2006-01-02 15:04:05")
	l.writer.Write([]byte(time))
	l.writer.Write([]byte(" "))
	l.writer.Write([]byte(level))
	l.writer.Write([]byte(" "))
	l.writer.Write([]byte(msg))
	l.writer.Write([]byte("\n"))
}

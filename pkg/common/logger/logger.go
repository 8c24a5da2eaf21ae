// Package logger is a thin leveled wrapper around the standard logger.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[Level]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

var (
	std          = log.New(os.Stdout, "", log.LstdFlags)
	currentLevel = InfoLevel
)

// Initialize sets the global level from a string such as "debug" or "warn".
// Unknown values fall back to info.
func Initialize(level string) {
	switch strings.ToLower(level) {
	case "debug":
		currentLevel = DebugLevel
		std.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	case "warn", "warning":
		currentLevel = WarnLevel
	case "error":
		currentLevel = ErrorLevel
	default:
		currentLevel = InfoLevel
	}
}

func output(level Level, format string, v ...interface{}) {
	if level < currentLevel {
		return
	}
	std.SetPrefix(fmt.Sprintf("[%s] ", levelNames[level]))
	_ = std.Output(3, fmt.Sprintf(format, v...))
}

func Debug(format string, v ...interface{}) { output(DebugLevel, format, v...) }
func Info(format string, v ...interface{})  { output(InfoLevel, format, v...) }
func Warn(format string, v ...interface{})  { output(WarnLevel, format, v...) }
func Error(format string, v ...interface{}) { output(ErrorLevel, format, v...) }

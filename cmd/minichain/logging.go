package main

import (
	"errors"
	"io"
	"log/slog"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (e *LogLevel) String() string {
	if e == nil {
		return ""
	}
	return string(*e)
}

func (e *LogLevel) Set(v string) error {
	for _, level := range []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		if v == string(level) {
			*e = level
			return nil
		}
	}
	return errors.New(`must be one of "debug", "info", "warn", or "error"`)
}

func (e *LogLevel) Type() string {
	return "log-level"
}

func (e *LogLevel) SlogLevel() slog.Level {
	switch *e {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelError:
		return slog.LevelError
	}
	return slog.LevelWarn
}

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

func (f *LogFormat) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

func (f *LogFormat) Set(v string) error {
	switch LogFormat(v) {
	case LogFormatText, LogFormatJSON:
		*f = LogFormat(v)
		return nil
	}
	return errors.New(`must be "text" or "json"`)
}

func (f *LogFormat) Type() string {
	return "log-format"
}

func newLogHandler(w io.Writer, options *globalOptions) slog.Handler {
	handlerOptions := &slog.HandlerOptions{Level: options.LogLevel.SlogLevel()}
	if options.LogFormat == LogFormatJSON {
		return slog.NewJSONHandler(w, handlerOptions)
	}
	return slog.NewTextHandler(w, handlerOptions)
}

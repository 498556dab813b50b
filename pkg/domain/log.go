package domain

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LogLevel is the severity of a session log line. Levels are totally ordered.
type LogLevel int

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

var levelNames = [...]string{"Trace", "Debug", "Information", "Warning", "Error", "Critical"}

func (l LogLevel) String() string {
	if l < LevelTrace || l > LevelCritical {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLogLevel accepts level names case-insensitively, including the short
// forms "info" and "warn".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info", "information":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "critical", "fatal":
		return LevelCritical, nil
	}
	return 0, fmt.Errorf("%w: log level %q", ErrInvalidArgument, s)
}

// Slog maps the level onto log/slog. Trace sits below slog.LevelDebug and
// Critical above slog.LevelError.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LevelTrace:
		return slog.LevelDebug - 4
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

func (l LogLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *LogLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("%w: log level %s", ErrInvalidArgument, b)
		}
		*l = LogLevel(n)
		return nil
	}
	parsed, err := ParseLogLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// LogLine is one entry of a session log.
type LogLine struct {
	SessionID string    `json:"session_id"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Time      time.Time `json:"time"`
}

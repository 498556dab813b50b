package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/recalc/pkg/domain"
)

// sessionLogger accumulates the session log in memory. Lines below the
// threshold are dropped when they arrive.
type sessionLogger struct {
	env       *Env
	sessionID string
	threshold domain.LogLevel
	lines     []domain.LogLine
	mirror    *slog.Logger
	now       func() time.Time
}

func newSessionLogger(env *Env) *sessionLogger {
	return &sessionLogger{
		env:       env,
		threshold: domain.LevelInfo,
		mirror:    env.logger(),
		now:       time.Now,
	}
}

func (l *sessionLogger) Receive(ctx context.Context, msg any) (any, error) {
	switch m := msg.(type) {
	case startLogger:
		l.sessionID = m.SessionID
		l.threshold = m.Level
		l.mirror = l.env.logger().With("session_id", m.SessionID)
		return nil, nil
	case appendLog:
		if m.Level < l.threshold {
			return nil, nil
		}
		l.lines = append(l.lines, domain.LogLine{
			SessionID: l.sessionID,
			Level:     m.Level,
			Message:   m.Message,
			Time:      l.now().UTC(),
		})
		l.mirror.Log(ctx, m.Level.Slog(), m.Message)
		return nil, nil
	case getLogs:
		return append([]domain.LogLine(nil), l.lines...), nil
	case stopMsg:
		return nil, nil
	}
	return nil, unhandled("session logger", msg)
}

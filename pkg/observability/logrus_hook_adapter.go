package observability

import (
	"time"

	"github.com/facebookincubator/go-belt/pkg/field"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	logger "github.com/facebookincubator/go-belt/tool/logger/types"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

// LogrusHookFlushTimeout limits how long Flush waits for a logrus hook.
var LogrusHookFlushTimeout = 5 * time.Second

// LogrusHook forwards go-belt log entries to a logrus hook.
type LogrusHook struct {
	Locker       deadlock.Mutex
	LogrusLogger *logrus.Logger
	Hook         logrus.Hook
}

var _ logger.Hook = (*LogrusHook)(nil)

func NewLogrusHook(
	l *logrus.Logger,
	h logrus.Hook,
) *LogrusHook {
	return &LogrusHook{
		LogrusLogger: l,
		Hook:         h,
	}
}

func (h *LogrusHook) ProcessLogEntry(entry *logger.Entry) bool {
	fields := logrus.Fields{}
	if entry.Fields != nil {
		entry.Fields.ForEachField(func(f *field.Field) bool {
			fields[f.Key] = f.Value
			return true
		})
	}
	level := xlogrus.LevelToLogrus(entry.Level)
	if !h.fires(level) {
		return true
	}

	h.Locker.Lock()
	defer h.Locker.Unlock()
	if err := h.Hook.Fire(&logrus.Entry{
		Logger:  h.LogrusLogger,
		Data:    fields,
		Time:    entry.Timestamp,
		Level:   level,
		Caller:  entry.Caller.Frame(),
		Message: entry.Message,
	}); err != nil {
		logrus.StandardLogger().Errorf("unable to forward a log entry: %v", err)
	}
	return true
}

func (h *LogrusHook) fires(level logrus.Level) bool {
	for _, l := range h.Hook.Levels() {
		if l == level {
			return true
		}
	}
	return false
}

func (h *LogrusHook) Flush() {
	switch flusher := h.Hook.(type) {
	case interface{ Flush() }:
		flusher.Flush()
	case interface{ Flush() error }:
		_ = flusher.Flush()
	case interface{ Flush(time.Duration) }:
		flusher.Flush(LogrusHookFlushTimeout)
	case interface{ Flush(time.Duration) error }:
		_ = flusher.Flush(LogrusHookFlushTimeout)
	}
}

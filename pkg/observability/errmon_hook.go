package observability

import (
	"fmt"

	xruntime "github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	errmontypes "github.com/facebookincubator/go-belt/tool/experimental/errmon/types"
	loggertypes "github.com/facebookincubator/go-belt/tool/logger/types"
)

// ErrorMonitorHook reports log entries of level Warning and more severe to
// an error monitor (e.g. Sentry).
type ErrorMonitorHook struct {
	ErrorMonitor errmon.ErrorMonitor
	MinLevel     loggertypes.Level
}

var _ loggertypes.Hook = (*ErrorMonitorHook)(nil)

func NewErrorMonitorHook(errorMonitor errmon.ErrorMonitor) *ErrorMonitorHook {
	return &ErrorMonitorHook{
		ErrorMonitor: errorMonitor,
		MinLevel:     loggertypes.LevelWarning,
	}
}

func (h *ErrorMonitorHook) ProcessLogEntry(entry *loggertypes.Entry) bool {
	if entry.Level > h.MinLevel {
		return true
	}
	h.ErrorMonitor.Emitter().Emit(&errmontypes.Event{
		Entry: *entry,
		Exception: errmontypes.Exception{
			IsPanic:    entry.Level <= loggertypes.LevelPanic,
			Error:      fmt.Errorf("[%s] %s", entry.Level, entry.Message),
			StackTrace: xruntime.CallerStackTrace(nil),
		},
	})
	return true
}

func (h *ErrorMonitorHook) Flush() {}

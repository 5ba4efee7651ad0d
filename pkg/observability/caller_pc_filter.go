package observability

import (
	"runtime"
	"strings"
)

// CallerPCFilter hides locking and dispatching helpers from the "caller"
// field of log entries.
func CallerPCFilter(
	originalPCFilter func(uintptr) bool,
) func(uintptr) bool {
	return func(pc uintptr) bool {
		if !originalPCFilter(pc) {
			return false
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			return true
		}
		funcName := fn.Name()
		switch {
		case strings.Contains(funcName, "xaionaro-go/xsync"):
			return false
		case strings.Contains(funcName, "pkg/observability"):
			return false
		case strings.Contains(funcName, "player/dispatcher"):
			return false
		}
		return true
	}
}

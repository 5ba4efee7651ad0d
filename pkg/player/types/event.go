package types

import (
	"fmt"
	"time"
)

// EventKind is a raw notification kind raised by an engine.
type EventKind int

const (
	EventKindUndefined EventKind = iota
	EventKindMediaChanged
	EventKindNothingSpecial
	EventKindOpening
	EventKindBuffering
	EventKindPlaying
	EventKindPaused
	EventKindStopped
	EventKindForward
	EventKindBackward
	EventKindEndReached
	EventKindEncounteredError
	EventKindTimeChanged
	EventKindPositionChanged
	EventKindSeekableChanged
	EventKindPausableChanged
	EventKindTitleChanged
	EventKindSnapshotTaken
	EventKindLengthChanged
	EventKindVideoSizeChanged
	endOfEventKind
)

func (k EventKind) String() string {
	switch k {
	case EventKindUndefined:
		return "undefined"
	case EventKindMediaChanged:
		return "media_changed"
	case EventKindNothingSpecial:
		return "nothing_special"
	case EventKindOpening:
		return "opening"
	case EventKindBuffering:
		return "buffering"
	case EventKindPlaying:
		return "playing"
	case EventKindPaused:
		return "paused"
	case EventKindStopped:
		return "stopped"
	case EventKindForward:
		return "forward"
	case EventKindBackward:
		return "backward"
	case EventKindEndReached:
		return "end_reached"
	case EventKindEncounteredError:
		return "encountered_error"
	case EventKindTimeChanged:
		return "time_changed"
	case EventKindPositionChanged:
		return "position_changed"
	case EventKindSeekableChanged:
		return "seekable_changed"
	case EventKindPausableChanged:
		return "pausable_changed"
	case EventKindTitleChanged:
		return "title_changed"
	case EventKindSnapshotTaken:
		return "snapshot_taken"
	case EventKindLengthChanged:
		return "length_changed"
	case EventKindVideoSizeChanged:
		return "video_size_changed"
	default:
		return fmt.Sprintf("unknown_event_kind_%d", int(k))
	}
}

// SubscribedEventKinds returns the fixed set of event kinds a player
// subscribes to on its engine.
func SubscribedEventKinds() []EventKind {
	result := make([]EventKind, 0, int(endOfEventKind)-1)
	for k := EventKindUndefined + 1; k < endOfEventKind; k++ {
		result = append(result, k)
	}
	return result
}

// Event is a raw engine notification. Only the payload field matching
// Kind is meaningful.
type Event struct {
	Kind EventKind

	// Cache is the cache-fill percentage of a buffering event, [0, 100].
	Cache float64

	Time     time.Duration
	Length   time.Duration
	Position float64
	Seekable bool
	Pausable bool
	Title    int

	Width  int
	Height int
}

// EventCallback is invoked by an engine from its own threads.
type EventCallback func(Event)

package mpv

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dexterlb/mpvipc"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

var observedProperties = map[int]string{
	1: "time-pos",
	2: "duration",
	3: "seekable",
	4: "pause",
	5: "cache-buffering-state",
	6: "paused-for-cache",
	7: "video-params",
	8: "percent-pos",
	9: "media-title",
}

func (p *MPV) listen(ctx context.Context, events <-chan *mpvipc.Event) {
	logger.Debugf(ctx, "listen")
	defer logger.Debugf(ctx, "/listen")
	for ev := range events {
		if ev == nil {
			continue
		}
		for _, out := range translateEvent(ctx, ev) {
			p.subscribers.Emit(out)
		}
	}
}

func propertyName(ev *mpvipc.Event) string {
	for id, name := range observedProperties {
		if fmt.Sprint(ev.ID) == strconv.Itoa(id) {
			return name
		}
	}
	return ""
}

// translateEvent converts an mpv event into engine events.
func translateEvent(ctx context.Context, ev *mpvipc.Event) []types.Event {
	switch ev.Name {
	case "start-file":
		return []types.Event{
			{Kind: types.EventKindMediaChanged},
			{Kind: types.EventKindOpening},
		}
	case "file-loaded":
		return []types.Event{{Kind: types.EventKindBuffering, Cache: 0}}
	case "end-file":
		switch ev.Reason {
		case "eof":
			return []types.Event{{Kind: types.EventKindEndReached}}
		case "error":
			return []types.Event{{Kind: types.EventKindEncounteredError}}
		default:
			return []types.Event{{Kind: types.EventKindStopped}}
		}
	case "idle":
		return []types.Event{{Kind: types.EventKindNothingSpecial}}
	case "seek":
		return []types.Event{{Kind: types.EventKindForward}}
	case "property-change":
		return translatePropertyChange(ctx, propertyName(ev), ev.Data)
	default:
		logger.Tracef(ctx, "ignoring mpv event '%s'", ev.Name)
		return nil
	}
}

func translatePropertyChange(ctx context.Context, name string, data any) []types.Event {
	if data == nil {
		return nil
	}
	switch name {
	case "time-pos":
		if v, ok := toFloat64(data); ok {
			return []types.Event{{Kind: types.EventKindTimeChanged, Time: secondsToDuration(v)}}
		}
	case "duration":
		if v, ok := toFloat64(data); ok {
			return []types.Event{{Kind: types.EventKindLengthChanged, Length: secondsToDuration(v)}}
		}
	case "seekable":
		if v, ok := data.(bool); ok {
			return []types.Event{{Kind: types.EventKindSeekableChanged, Seekable: v}}
		}
	case "pause":
		if v, ok := data.(bool); ok {
			if v {
				return []types.Event{{Kind: types.EventKindPaused}}
			}
			return []types.Event{{Kind: types.EventKindPlaying}}
		}
	case "cache-buffering-state":
		if v, ok := toFloat64(data); ok {
			return []types.Event{{Kind: types.EventKindBuffering, Cache: v}}
		}
	case "paused-for-cache":
		if v, ok := data.(bool); ok && v {
			return []types.Event{{Kind: types.EventKindBuffering, Cache: 0}}
		}
	case "video-params":
		params, ok := data.(map[string]any)
		if !ok {
			break
		}
		w, okW := toFloat64(params["w"])
		h, okH := toFloat64(params["h"])
		if okW && okH {
			return []types.Event{{Kind: types.EventKindVideoSizeChanged, Width: int(w), Height: int(h)}}
		}
	case "percent-pos":
		if v, ok := toFloat64(data); ok {
			return []types.Event{{Kind: types.EventKindPositionChanged, Position: v / 100}}
		}
	case "media-title":
		return []types.Event{{Kind: types.EventKindTitleChanged}}
	}
	logger.Tracef(ctx, "ignoring a change of property '%s' to %#+v", name, data)
	return nil
}

func toFloat64(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func secondsToDuration(ts float64) time.Duration {
	return time.Duration(ts * float64(time.Second))
}

// adjustProperty converts an engine-native adjustment value into the
// corresponding mpv property, which is in range [-100, 100] with 0 neutral.
func adjustProperty(adjust types.Adjust, value float64) (string, int, bool) {
	clamp := func(v float64) int {
		return int(math.Round(math.Max(-100, math.Min(100, v))))
	}
	switch adjust {
	case types.AdjustBrightness:
		return "brightness", clamp((value - 1) * 100), true
	case types.AdjustContrast:
		return "contrast", clamp((value - 1) * 100), true
	case types.AdjustSaturation:
		return "saturation", clamp((value - 1) * 100), true
	case types.AdjustHue:
		deg := math.Mod(value, 360)
		if deg > 180 {
			deg -= 360
		}
		return "hue", clamp(deg / 180 * 100), true
	default:
		return "", 0, false
	}
}

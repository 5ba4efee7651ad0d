package dummy

import (
	"context"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/playercore/pkg/clock"
	"github.com/xaionaro-go/playercore/pkg/observability"
	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

const timeChangedInterval = 250 * time.Millisecond

func (e *Engine) startSimulation(ctx context.Context) {
	e.stopSimulation()

	ctx, cancel := context.WithCancel(ctx)
	e.locker.Do(ctx, func() {
		e.stopSimulate = cancel
	})

	frameDuration := time.Duration(float64(time.Second) / e.frameRate)
	ticker := clock.FromCtx(ctx).Ticker(frameDuration)
	observability.Go(ctx, func(ctx context.Context) {
		defer ticker.Stop()
		logger.Debugf(ctx, "simulation started")
		defer logger.Debugf(ctx, "simulation ended")

		var sinceTimeChanged time.Duration
		var frameIdx int
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			step := e.advance(ctx, frameDuration)
			if step.ended {
				e.Emit(types.Event{Kind: types.EventKindEndReached})
				return
			}
			if step.paused {
				continue
			}

			frameIdx++
			e.RenderFrame(ctx, func(buf []byte, width, height, pitch int) {
				fillTestPattern(buf, width, height, pitch, frameIdx)
			})

			sinceTimeChanged += frameDuration
			if sinceTimeChanged >= timeChangedInterval {
				sinceTimeChanged = 0
				e.Emit(types.Event{Kind: types.EventKindTimeChanged, Time: step.position})
			}
		}
	})
}

type simulationStep struct {
	position time.Duration
	ended    bool
	paused   bool
}

func (e *Engine) advance(ctx context.Context, d time.Duration) simulationStep {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &e.locker, func() simulationStep {
		if !e.playing || e.paused {
			return simulationStep{position: e.position, paused: true}
		}
		e.position += d
		if e.length > 0 && e.position >= e.length {
			e.position = e.length
			e.playing = false
			return simulationStep{position: e.position, ended: true}
		}
		return simulationStep{position: e.position}
	})
}

func (e *Engine) stopSimulation() {
	e.locker.Do(context.Background(), func() {
		if e.stopSimulate != nil {
			e.stopSimulate()
			e.stopSimulate = nil
		}
	})
}

// fillTestPattern draws moving vertical bars in BGRX.
func fillTestPattern(buf []byte, width, height, pitch, frameIdx int) {
	for y := 0; y < height; y++ {
		row := buf[y*pitch : y*pitch+width*types.BytesPerPixel]
		for x := 0; x < width; x++ {
			v := byte((x + frameIdx*4) * 255 / width)
			px := row[x*types.BytesPerPixel : (x+1)*types.BytesPerPixel]
			px[0] = v
			px[1] = byte(y * 255 / height)
			px[2] = 255 - v
			px[3] = 0xff
		}
	}
}

package player

import (
	"context"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/playercore/pkg/player/eventtranslator"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

// listener receives the translated engine events on the control loop.
type listener struct {
	*MediaPlayer
}

var _ eventtranslator.Listener = listener{}

func (p listener) OnStateChanged(ctx context.Context, state types.State) {
	logger.Debugf(ctx, "state: %s -> %s", p.state, state)
	p.state = state
	switch state {
	case types.StateStopped, types.StateEnded:
		p.adjustments.Reset()
	}
	publish(ctx, p.MediaPlayer, StateChanged{State: state})
}

func (p listener) OnTimeChanged(ctx context.Context, t time.Duration) {
	p.coalescer.ForwardTick(ctx, func(ctx context.Context) {
		publish(ctx, p.MediaPlayer, TimeChanged{Time: t})
	})
}

func (p listener) OnLengthChanged(ctx context.Context, length time.Duration) {
	p.length = length
	publish(ctx, p.MediaPlayer, LengthChanged{Length: length})
}

func (p listener) OnSeekableChanged(ctx context.Context, seekable bool) {
	publish(ctx, p.MediaPlayer, SeekableChanged{Seekable: seekable})
}

func (p listener) OnVideoSizeChanged(ctx context.Context, width, height int) {
	if err := p.pipeline.SetVideoSize(ctx, width, height); err != nil {
		logger.Errorf(ctx, "unable to reconfigure the frame pipeline to %dx%d: %v", width, height, err)
	}
	if p.handle.HasVideoOutput(ctx) {
		if err := p.adjustments.ApplyPending(ctx, p.handle); err != nil {
			logger.Warnf(ctx, "unable to apply the pending adjustments: %v", err)
		}
	}
	publish(ctx, p.MediaPlayer, VideoSizeChanged{Width: width, Height: height})
}

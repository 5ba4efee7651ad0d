// Package subscription keeps the event subscribers of an engine backend.
package subscription

import (
	"context"
	"sort"

	"github.com/xaionaro-go/playercore/pkg/player/types"
	"github.com/xaionaro-go/xsync"
)

type subscriber struct {
	kinds    map[types.EventKind]struct{}
	callback types.EventCallback
}

type Set struct {
	locker      xsync.Mutex
	subscribers map[uint64]subscriber
	nextID      uint64
}

func (s *Set) Subscribe(
	kinds []types.EventKind,
	callback types.EventCallback,
) context.CancelFunc {
	ctx := xsync.WithNoLogging(context.Background(), true)
	id := xsync.DoR1(ctx, &s.locker, func() uint64 {
		if s.subscribers == nil {
			s.subscribers = map[uint64]subscriber{}
		}
		sub := subscriber{
			kinds:    make(map[types.EventKind]struct{}, len(kinds)),
			callback: callback,
		}
		for _, kind := range kinds {
			sub.kinds[kind] = struct{}{}
		}
		s.nextID++
		s.subscribers[s.nextID] = sub
		return s.nextID
	})
	return func() {
		s.locker.Do(ctx, func() {
			delete(s.subscribers, id)
		})
	}
}

// Emit calls the callbacks subscribed to ev.Kind, in subscription order,
// from the calling goroutine.
func (s *Set) Emit(ev types.Event) {
	ctx := xsync.WithNoLogging(context.Background(), true)
	callbacks := xsync.DoR1(ctx, &s.locker, func() []types.EventCallback {
		ids := make([]uint64, 0, len(s.subscribers))
		for id, sub := range s.subscribers {
			if _, ok := sub.kinds[ev.Kind]; ok {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		callbacks := make([]types.EventCallback, 0, len(ids))
		for _, id := range ids {
			callbacks = append(callbacks, s.subscribers[id].callback)
		}
		return callbacks
	})
	for _, callback := range callbacks {
		callback(ev)
	}
}

func (s *Set) Len() int {
	return xsync.DoR1(xsync.WithNoLogging(context.Background(), true), &s.locker, func() int {
		return len(s.subscribers)
	})
}

func (s *Set) Clear() {
	s.locker.Do(xsync.WithNoLogging(context.Background(), true), func() {
		s.subscribers = nil
	})
}

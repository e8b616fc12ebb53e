package world

import (
	"context"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingIntents []IntentEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []LeaveRequest

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case req := <-w.leave:
			pendingLeaves = append(pendingLeaves, req)
		case env := <-w.inbox:
			pendingIntents = append(pendingIntents, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingIntents)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingIntents = pendingIntents[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// sendLatest delivers b or, if the channel is full, drops one queued
// message to make room. State frames supersede each other so losing an old
// one is fine.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

// trySend is for frames that must not displace others (chunks, notices).
// A client too slow to drain its queue loses them.
func trySend(ch chan []byte, b []byte) {
	select {
	case ch <- b:
	default:
	}
}

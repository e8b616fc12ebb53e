package world

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"
)

// step runs one simulation tick. Membership changes and intents apply
// first, then the fixed system order; every system iterates state in
// sorted id order so two runs from the same state are identical.
func (w *World) step(joins []JoinRequest, leaves []LeaveRequest, intents []IntentEnvelope) {
	start := time.Now()
	// Ticks start at 1 so a zero lastXTick always reads as "never".
	nowTick := w.tick.Add(1)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[world] tick %d panic: %v", nowTick, r)
		}
	}()

	for _, req := range leaves {
		w.handleLeave(req)
	}
	for _, req := range joins {
		w.handleJoin(req, nowTick)
	}
	for _, env := range intents {
		w.handleIntent(env, nowTick)
	}

	w.systemMovement(nowTick)
	w.systemActions(nowTick)
	w.systemMonsters(nowTick)
	w.systemProjectiles(nowTick)
	w.systemResources(nowTick)
	w.systemApprovals(nowTick)
	w.systemEviction(nowTick)
	w.systemVisibility(nowTick)
	w.systemPersistence(nowTick)

	if w.tickLogger != nil {
		entry := TickLogEntry{Tick: nowTick, Intents: len(intents), Players: len(w.players)}
		for _, req := range joins {
			entry.Joins = append(entry.Joins, req.PlayerID)
		}
		for _, req := range leaves {
			entry.Leaves = append(entry.Leaves, req.PlayerID)
		}
		_ = w.tickLogger.WriteTick(entry)
	}

	w.stats.Store(&Metrics{
		Tick:         nowTick,
		Players:      len(w.players),
		Clients:      len(w.clients),
		Monsters:     len(w.monsters),
		LoadedChunks: w.chunks.Loaded(),
		Approvals:    len(w.approvals),
		StepMS:       float64(time.Since(start).Microseconds()) / 1000.0,
	})
}

// systemPersistence dispatches dirty state to the write-behind saver.
// Player snapshots are interval-gated and digest-deduplicated so idle
// players cost nothing.
func (w *World) systemPersistence(nowTick uint64) {
	if w.saver == nil {
		return
	}
	saveEvery := w.msToTicks(w.tun.SaveIntervalMs)
	for _, id := range sortedKeysOf(w.players) {
		p := w.players[id]
		if nowTick < p.lastSaveTick+saveEvery {
			continue
		}
		p.lastSaveTick = nowTick
		snap := w.snapshotPlayer(p)
		digest := snapshotDigest(snap)
		if digest == p.saveDigest {
			continue
		}
		p.saveDigest = digest
		w.saver.SavePlayer(snap)
	}
	if w.communitiesDirty {
		w.communitiesDirty = false
		w.saver.SaveCommunities(w.snapshotCommunities())
	}
	if w.structuresDirty {
		w.structuresDirty = false
		w.saver.SaveStructures(w.snapshotStructures())
	}
}

func snapshotDigest(snap PlayerSnapshot) string {
	buf, err := json.Marshal(snap)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

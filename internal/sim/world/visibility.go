package world

import (
	"encoding/json"
	"sort"

	"wildmere.gg/internal/protocol"
)

// systemVisibility builds one STATE frame per connected client: full
// observations for everything inside the interest radius plus removal ids
// for entities that left it since the last frame. Frames ride the
// drop-oldest channel so a slow client only ever loses stale snapshots.
func (w *World) systemVisibility(nowTick uint64) {
	playerBuckets := map[ChunkKey][]string{}
	for id, p := range w.players {
		k := w.chunks.KeyFor(tileOf(p.Pos).X, tileOf(p.Pos).Y)
		playerBuckets[k] = append(playerBuckets[k], id)
	}
	monsterBuckets := map[ChunkKey][]string{}
	for id, m := range w.monsters {
		k := w.chunks.KeyFor(tileOf(m.Pos).X, tileOf(m.Pos).Y)
		monsterBuckets[k] = append(monsterBuckets[k], id)
	}
	projBuckets := map[ChunkKey][]string{}
	for id, pr := range w.projectiles {
		k := w.chunks.KeyFor(tileOf(pr.Pos).X, tileOf(pr.Pos).Y)
		projBuckets[k] = append(projBuckets[k], id)
	}

	r := w.tun.VisibilityRadiusChunks
	for _, id := range sortedKeysOf(w.clients) {
		cl := w.clients[id]
		p := w.players[id]
		if p == nil {
			continue
		}
		center := w.chunks.KeyFor(tileOf(p.Pos).X, tileOf(p.Pos).Y)

		msg := protocol.StateMsg{
			Type:        protocol.TypeState,
			Tick:        nowTick,
			AckSeq:      p.Input.Seq,
			Players:     []protocol.PlayerObs{},
			Monsters:    []protocol.MonsterObs{},
			Projectiles: []protocol.ProjectileObs{},
		}

		visPlayers := map[string]struct{}{id: {}}
		visMonsters := map[string]struct{}{}
		visProj := map[string]struct{}{}
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				k := ChunkKey{CX: center.CX + dx, CY: center.CY + dy}
				for _, pid := range playerBuckets[k] {
					visPlayers[pid] = struct{}{}
				}
				for _, mid := range monsterBuckets[k] {
					visMonsters[mid] = struct{}{}
				}
				for _, jid := range projBuckets[k] {
					visProj[jid] = struct{}{}
				}
			}
		}

		for _, pid := range sortedKeysOf(visPlayers) {
			op := w.players[pid]
			msg.Players = append(msg.Players, protocol.PlayerObs{
				ID:        op.ID,
				Name:      op.Name,
				X:         op.Pos.X,
				Y:         op.Pos.Y,
				FacingX:   op.Facing.X,
				FacingY:   op.Facing.Y,
				HP:        op.HP,
				Community: op.Community,
				Typing:    op.typingUntil > nowTick,
			})
		}
		for _, mid := range sortedKeysOf(visMonsters) {
			m := w.monsters[mid]
			msg.Monsters = append(msg.Monsters, protocol.MonsterObs{
				ID: m.ID, Species: m.Species, X: m.Pos.X, Y: m.Pos.Y, HP: m.HP,
			})
		}
		for _, jid := range sortedKeysOf(visProj) {
			pr := w.projectiles[jid]
			msg.Projectiles = append(msg.Projectiles, protocol.ProjectileObs{
				ID: pr.ID, X: pr.Pos.X, Y: pr.Pos.Y,
			})
		}

		msg.RemovedPlayers = departed(cl.seenPlayers, visPlayers)
		msg.RemovedMonsters = departed(cl.seenMonsters, visMonsters)
		msg.RemovedProjectiles = departed(cl.seenProjectiles, visProj)
		cl.seenPlayers = visPlayers
		cl.seenMonsters = visMonsters
		cl.seenProjectiles = visProj

		buf, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(cl.Out, buf)
	}
}

// departed lists ids that were in the previous visible set but not the
// current one. Only previously-announced entities ever get a removal.
func departed(prev, cur map[string]struct{}) []string {
	var gone []string
	for id := range prev {
		if _, ok := cur[id]; !ok {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	return gone
}

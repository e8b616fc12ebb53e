package world

// systemResources ages every node in live chunks: respawn timers for
// depleted nodes, growth timers for under-sized ones.
func (w *World) systemResources(nowTick uint64) {
	w.chunks.Range(func(_ ChunkKey, c *Chunk) bool {
		for _, tl := range sortedTiles(c.Resources) {
			node := c.Resources[tl]
			if node.RespawnAt != 0 && nowTick >= node.RespawnAt {
				if w.structAt[node.Tile] != nil {
					// A structure took the tile. The node is not lost:
					// its timer re-defers until the tile is free again.
					def := w.cats.Resources.Defs[node.Species]
					node.RespawnAt = nowTick + w.msToTicks(def.RespawnMs)
					continue
				}
				def := w.cats.Resources.Defs[node.Species]
				node.RespawnAt = 0
				node.HP = def.HP
				node.Size = 1
				if def.MaxSize > 1 && def.GrowthMs > 0 {
					node.NextGrowth = nowTick + w.msToTicks(def.GrowthMs)
				}
				w.broadcastResource("spawned", node)
				continue
			}

			if node.RespawnAt == 0 && node.NextGrowth != 0 && nowTick >= node.NextGrowth {
				def := w.cats.Resources.Defs[node.Species]
				if node.Size < def.MaxSize {
					node.Size++
				}
				if node.Size < def.MaxSize {
					node.NextGrowth = nowTick + w.msToTicks(def.GrowthMs)
				} else {
					node.NextGrowth = 0
				}
				w.broadcastResource("spawned", node)
			}
		}
		return true
	})
}

// evictionSweepEvery is in ticks; eviction does not need per-tick
// precision.
const evictionSweepEvery = 10

// systemEviction drops chunks that no connected player has needed for the
// TTL. Resources and the spawn flag go with the chunk; monsters and
// projectiles inside it are removed outright.
func (w *World) systemEviction(nowTick uint64) {
	if nowTick%evictionSweepEvery != 0 {
		return
	}

	keep := w.tun.KeepRadiusChunks
	ttl := w.msToTicks(w.tun.ChunkEvictTTLMs)

	playerChunks := make([]ChunkKey, 0, len(w.players))
	for _, p := range w.players {
		t := tileOf(p.Pos)
		playerChunks = append(playerChunks, w.chunks.KeyFor(t.X, t.Y))
	}

	var evict []ChunkKey
	w.chunks.Range(func(key ChunkKey, c *Chunk) bool {
		for _, pk := range playerChunks {
			if chebyshevChunks(pk, key) <= keep {
				c.lastNeeded = nowTick
				return true
			}
		}
		if nowTick >= c.lastNeeded+ttl {
			evict = append(evict, key)
		}
		return true
	})

	for _, key := range evict {
		w.chunks.Evict(key)
		for _, id := range sortedKeysOf(w.monsters) {
			m := w.monsters[id]
			t := tileOf(m.Pos)
			if w.chunks.KeyFor(t.X, t.Y) == key {
				delete(w.monsters, id)
			}
		}
		for _, id := range sortedKeysOf(w.projectiles) {
			j := w.projectiles[id]
			t := tileOf(j.Pos)
			if w.chunks.KeyFor(t.X, t.Y) == key {
				delete(w.projectiles, id)
			}
		}
	}
}

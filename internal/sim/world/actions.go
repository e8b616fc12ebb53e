package world

import (
	"wildmere.gg/internal/protocol"
)

// systemActions interprets every player's buffered action flags, in a fixed
// order per player: gather, attack, interact, death-check. Movement already
// ran this tick.
func (w *World) systemActions(nowTick uint64) {
	for _, id := range sortedKeysOf(w.players) {
		p := w.players[id]
		if p.Input.Gather {
			w.actGather(p, nowTick)
		}
		if p.Input.Attack {
			w.actAttack(p, nowTick)
		}
		if p.Input.Interact {
			w.actInteract(p, nowTick)
		}
		w.deathCheck(p, nowTick)
	}
}

// bestToolPower returns the strongest matching tool the player holds.
func (w *World) bestToolPower(p *Player, toolKind string) int {
	best := 0
	for item, n := range p.Inventory {
		if n <= 0 {
			continue
		}
		def, ok := w.cats.Items.Defs[item]
		if !ok || def.Kind != "tool" || def.ToolKind != toolKind {
			continue
		}
		if def.Power > best {
			best = def.Power
		}
	}
	return best
}

func (w *World) bestMeleeDamage(p *Player) int {
	best := 0
	for item, n := range p.Inventory {
		if n <= 0 {
			continue
		}
		def, ok := w.cats.Items.Defs[item]
		if !ok || def.Kind != "weapon" || def.Ranged {
			continue
		}
		if def.Damage > best {
			best = def.Damage
		}
	}
	return best
}

func (w *World) bestRangedWeapon(p *Player) (damage int, ammo string) {
	for _, item := range sortedKeysOf(p.Inventory) {
		if p.Inventory[item] <= 0 {
			continue
		}
		def, ok := w.cats.Items.Defs[item]
		if !ok || def.Kind != "weapon" || !def.Ranged {
			continue
		}
		if def.Damage > damage {
			damage = def.Damage
			ammo = def.Ammo
			if ammo == "" {
				ammo = "arrow"
			}
		}
	}
	return damage, ammo
}

func (w *World) actGather(p *Player, nowTick uint64) {
	cd := w.msToTicks(w.tun.GatherCooldownMs)
	if p.lastGatherTick != 0 && nowTick < p.lastGatherTick+cd {
		return
	}

	node := w.nearestResource(p.Pos, w.tun.GatherRange)
	if node == nil {
		return
	}
	def := w.cats.Resources.Defs[node.Species]

	power := w.bestToolPower(p, def.Tool)
	if power <= 0 {
		w.notify(p.ID, "notice.no_tool", def.Tool)
		return
	}
	// Multi-stage nodes resist in proportion to their remaining size.
	if def.MaxSize > 1 && node.Size > 1 {
		power -= node.Size - 1
		if power < 1 {
			power = 1
		}
	}
	p.lastGatherTick = nowTick

	node.HP -= power
	if node.HP > 0 {
		w.broadcastResource("hit", node)
		return
	}
	node.HP = 0

	for _, d := range def.Drops {
		p.Inventory[d.Item] += d.Count * node.Size
	}
	w.sendInventory(p)

	node.RespawnAt = nowTick + w.msToTicks(def.RespawnMs)
	w.broadcastResource("removed", node)
	w.audit(nowTick, p.ID, "GATHER_DEPLETE", protocol.Event{"species": node.Species, "x": node.Tile.X, "y": node.Tile.Y})
}

func (w *World) actAttack(p *Player, nowTick uint64) {
	cd := w.msToTicks(w.tun.AttackCooldownMs)
	if p.lastAttackTick != 0 && nowTick < p.lastAttackTick+cd {
		return
	}

	melee := w.bestMeleeDamage(p)
	if melee > 0 {
		if m := w.nearestMonster(p.Pos, w.tun.MeleeRange); m != nil {
			p.lastAttackTick = nowTick
			w.damageMonster(m, melee, p.ID, nowTick)
			return
		}
	}

	damage, ammo := w.bestRangedWeapon(p)
	if damage <= 0 {
		return
	}
	if p.Inventory[ammo] <= 0 {
		w.notify(p.ID, "notice.out_of_ammo")
		return
	}
	p.lastAttackTick = nowTick
	p.Inventory[ammo]--
	if p.Inventory[ammo] <= 0 {
		delete(p.Inventory, ammo)
	}
	w.spawnProjectile(p, damage, nowTick)
}

// actInteract picks exactly one target per tick, in priority order: NPC,
// then community storage, then the join protocol for foreign claimed land.
func (w *World) actInteract(p *Player, nowTick uint64) {
	cd := w.msToTicks(w.tun.InteractCooldownMs)
	if p.lastInteractTick != 0 && nowTick < p.lastInteractTick+cd {
		return
	}

	if npc := w.nearestNPC(p.Pos, w.tun.InteractRange); npc != nil {
		p.lastInteractTick = nowTick
		w.interactNPC(p, npc, nowTick)
		return
	}

	if sto := w.nearestStorage(p.Pos, w.tun.InteractRange); sto != nil {
		p.lastInteractTick = nowTick
		if !w.isMember(p.ID, sto.Community) {
			w.notify(p.ID, "notice.not_member")
			return
		}
		w.sendTo(p.ID, protocol.StorageMsg{
			Type:      protocol.TypeStorage,
			StorageID: sto.ID,
			Items:     stacksOf(sto.Items),
		})
		return
	}

	if c := w.communityAt(tileOf(p.Pos)); c != nil && c.ID != p.Community {
		p.lastInteractTick = nowTick
		w.proposeJoin(p, c, nowTick)
	}
}

func (w *World) deathCheck(p *Player, nowTick uint64) {
	if p.HP > 0 {
		return
	}
	p.HP = w.tun.MaxHP
	p.Pos = w.safeSpawn()
	w.notify(p.ID, "notice.respawn")
	w.audit(nowTick, p.ID, "DEATH", nil)
}

// nearestResource scans the chunks overlapping the search radius for the
// closest live node. Chunks are materialized lazily on the way.
func (w *World) nearestResource(pos Vec2, radius float64) *ResourceNode {
	var best *ResourceNode
	bestD := radius
	w.forChunksAround(pos, radius, func(c *Chunk) {
		for _, node := range c.Resources {
			if node.RespawnAt != 0 {
				continue
			}
			center := Vec2{X: float64(node.Tile.X) + 0.5, Y: float64(node.Tile.Y) + 0.5}
			if d := dist(pos, center); d <= bestD {
				if best == nil || d < bestD || lessTile(node.Tile, best.Tile) {
					best = node
					bestD = d
				}
			}
		}
	})
	return best
}

func lessTile(a, b Tile) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// forChunksAround materializes and visits every chunk whose tiles may fall
// within radius of pos.
func (w *World) forChunksAround(pos Vec2, radius float64, f func(c *Chunk)) {
	nowTick := w.tick.Load()
	minT := Tile{X: floorInt(pos.X - radius), Y: floorInt(pos.Y - radius)}
	maxT := Tile{X: floorInt(pos.X + radius), Y: floorInt(pos.Y + radius)}
	lo := w.chunks.KeyFor(minT.X, minT.Y)
	hi := w.chunks.KeyFor(maxT.X, maxT.Y)
	for cy := lo.CY; cy <= hi.CY; cy++ {
		for cx := lo.CX; cx <= hi.CX; cx++ {
			c := w.materializeChunk(ChunkKey{CX: cx, CY: cy}, nowTick)
			f(c)
		}
	}
}

func (w *World) nearestMonster(pos Vec2, radius float64) *Monster {
	var best *Monster
	bestD := radius
	for _, id := range sortedKeysOf(w.monsters) {
		m := w.monsters[id]
		if d := dist(pos, m.Pos); d <= bestD {
			best = m
			bestD = d
		}
	}
	return best
}

func (w *World) nearestStorage(pos Vec2, radius float64) *Storage {
	for _, id := range sortedKeysOf(w.structures) {
		st := w.structures[id]
		if st.Storage == "" {
			continue
		}
		for _, t := range st.Tiles {
			center := Vec2{X: float64(t.X) + 0.5, Y: float64(t.Y) + 0.5}
			if dist(pos, center) <= radius+0.5 {
				return w.storages[st.Storage]
			}
		}
	}
	return nil
}

func (w *World) broadcastResource(state string, node *ResourceNode) {
	msg := protocol.ResourceMsg{
		Type:  protocol.TypeResource,
		State: state,
		Resource: protocol.ResourceObs{
			X:       node.Tile.X,
			Y:       node.Tile.Y,
			Species: node.Species,
			HP:      node.HP,
			Size:    node.Size,
		},
	}
	nodeKey := w.chunks.KeyFor(node.Tile.X, node.Tile.Y)
	for id, p := range w.players {
		if w.clients[id] == nil {
			continue
		}
		pt := tileOf(p.Pos)
		if chebyshevChunks(w.chunks.KeyFor(pt.X, pt.Y), nodeKey) <= w.tun.VisibilityRadiusChunks {
			w.sendTo(id, msg)
		}
	}
}

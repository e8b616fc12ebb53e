package world

import (
	"fmt"
	"math"

	"wildmere.gg/internal/protocol"
)

// Monster target ids are weak references: the player may have left, so
// they are re-resolved through the aggregate every tick and dropped
// silently when dangling.
type Monster struct {
	ID      string
	Species string
	Pos     Vec2
	HP      int

	TargetID       string
	WanderDir      Vec2
	NextWanderTick uint64
	lastAttackTick uint64

	Home ChunkKey
}

// materializeChunk is the world-side wrapper around chunk generation: it
// supplies the structure/landmark block predicate and rolls the chunk's
// initial monsters exactly once per live period.
func (w *World) materializeChunk(key ChunkKey, nowTick uint64) *Chunk {
	c, isNew := w.chunks.GetOrGen(key, nowTick,
		func(t Tile) bool { return w.structAt[t] != nil || w.npcAt(t) },
		func(species string) uint64 {
			def := w.cats.Resources.Defs[species]
			return w.msToTicks(def.GrowthMs)
		})
	if isNew && !c.Spawned {
		c.Spawned = true
		for _, spawn := range w.chunks.monsterRoll(key) {
			if !w.canWalk("", spawn.Pos) {
				continue
			}
			def := w.cats.Monsters.Defs[spawn.Species]
			id := fmt.Sprintf("M%06d", w.nextMonsterNum.Add(1))
			w.monsters[id] = &Monster{
				ID:      id,
				Species: spawn.Species,
				Pos:     spawn.Pos,
				HP:      def.HP,
				Home:    key,
			}
		}
	}
	return c
}

// systemMonsters: aggro within range, pursue the nearest player, attack
// when close and off cooldown, otherwise wander.
func (w *World) systemMonsters(nowTick uint64) {
	dt := 1.0 / float64(w.tun.TickRateHz)
	attackCd := w.msToTicks(w.tun.MonsterAttackCdMs)
	wanderTicks := w.msToTicks(w.tun.MonsterWanderMs)

	for _, id := range sortedKeysOf(w.monsters) {
		m := w.monsters[id]
		def := w.cats.Monsters.Defs[m.Species]

		target := w.players[m.TargetID]
		if target == nil || dist(m.Pos, target.Pos) > w.tun.MonsterAggroRange {
			m.TargetID = ""
			target = nil
			// Acquire the nearest player inside aggro range.
			bestD := w.tun.MonsterAggroRange
			for _, pid := range sortedKeysOf(w.players) {
				p := w.players[pid]
				if d := dist(m.Pos, p.Pos); d <= bestD {
					target = p
					bestD = d
				}
			}
			if target != nil {
				m.TargetID = target.ID
			}
		}

		if target != nil {
			d := dist(m.Pos, target.Pos)
			if d <= w.tun.MonsterAttackRange {
				if m.lastAttackTick == 0 || nowTick >= m.lastAttackTick+attackCd {
					m.lastAttackTick = nowTick
					target.HP -= def.Damage
					if target.HP < 0 {
						target.HP = 0
					}
				}
				continue
			}
			dir := normalize(Vec2{X: target.Pos.X - m.Pos.X, Y: target.Pos.Y - m.Pos.Y})
			m.Pos = w.moveEntity("", m.Pos, dir, def.Speed, dt)
			continue
		}

		// Wander: deterministically re-roll a direction on a timer.
		if nowTick >= m.NextWanderTick {
			m.NextWanderTick = nowTick + wanderTicks
			h := hash2(uint64(w.cfg.Seed)^hashStr(m.ID), nowTick, 0)
			angle := float64(h%6283) / 1000.0
			m.WanderDir = Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
		}
		if m.WanderDir != (Vec2{}) {
			m.Pos = w.moveEntity("", m.Pos, m.WanderDir, def.Speed*w.tun.MonsterWanderSpeedK, dt)
		}
	}
}

// damageMonster applies a hit and handles death: drops go to the killer
// when one is still around.
func (w *World) damageMonster(m *Monster, damage int, killerID string, nowTick uint64) {
	m.HP -= damage
	if m.HP > 0 {
		return
	}
	delete(w.monsters, m.ID)

	def := w.cats.Monsters.Defs[m.Species]
	if def.Drop != nil {
		if killer := w.players[killerID]; killer != nil && dist(killer.Pos, m.Pos) <= w.tun.KillAwardRange {
			killer.Inventory[def.Drop.Item] += def.Drop.Count
			w.sendInventory(killer)
		}
	}
	w.audit(nowTick, killerID, "MONSTER_KILLED", protocol.Event{"monster": m.ID, "species": m.Species})
}

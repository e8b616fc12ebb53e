package world

import "fmt"

type Projectile struct {
	ID     string
	Pos    Vec2
	Vel    Vec2
	Damage int
	Owner  string
	Expire uint64
}

func (w *World) spawnProjectile(p *Player, damage int, nowTick uint64) {
	dir := normalize(p.Facing)
	if dir == (Vec2{}) {
		dir = Vec2{X: 0, Y: 1}
	}
	id := fmt.Sprintf("J%06d", w.nextProjectileNum.Add(1))
	w.projectiles[id] = &Projectile{
		ID: id,
		Pos: Vec2{
			X: p.Pos.X + dir.X*w.tun.ProjectileOffset,
			Y: p.Pos.Y + dir.Y*w.tun.ProjectileOffset,
		},
		Vel:    Vec2{X: dir.X * w.tun.ProjectileSpeed, Y: dir.Y * w.tun.ProjectileSpeed},
		Damage: damage,
		Owner:  p.ID,
		Expire: nowTick + w.msToTicks(w.tun.ProjectileTTLMs),
	}
}

// systemProjectiles advances every projectile and resolves first-hit.
// Water does not stop arrows; impassable structures do.
func (w *World) systemProjectiles(nowTick uint64) {
	dt := 1.0 / float64(w.tun.TickRateHz)
	for _, id := range sortedKeysOf(w.projectiles) {
		j := w.projectiles[id]
		if nowTick >= j.Expire {
			delete(w.projectiles, id)
			continue
		}
		j.Pos.X += j.Vel.X * dt
		j.Pos.Y += j.Vel.Y * dt

		if st := w.structAt[tileOf(j.Pos)]; st != nil && st.Kind.spec().Impassable {
			delete(w.projectiles, id)
			continue
		}

		var hit *Monster
		bestD := w.tun.ProjectileHitRange
		for _, mid := range sortedKeysOf(w.monsters) {
			m := w.monsters[mid]
			if d := dist(j.Pos, m.Pos); d <= bestD {
				hit = m
				bestD = d
			}
		}
		if hit != nil {
			delete(w.projectiles, id)
			w.damageMonster(hit, j.Damage, j.Owner, nowTick)
		}
	}
}

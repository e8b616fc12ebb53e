package world

import "testing"

func TestMonsterIgnoresDistantPlayers(t *testing.T) {
	w := newTestWorld(t, 71)
	corner := findOpenArea(t, w, 4)
	p, _ := joinTestPlayer(t, w, "P1", "Ada")
	clearAround(w, p.Pos, 4)
	home := centerOf(Tile{X: corner.X + 1, Y: corner.Y + 1})
	p.Pos = Vec2{X: home.X + w.tun.MonsterAggroRange + 3, Y: home.Y}

	w.monsters["M1"] = &Monster{ID: "M1", Species: "slime", HP: 6, Pos: home}
	w.systemMonsters(10)

	if w.monsters["M1"].TargetID != "" {
		t.Fatalf("monster aggroed beyond range")
	}
}

func TestMonsterPursuesInsideAggroRange(t *testing.T) {
	w := newTestWorld(t, 73)
	corner := findOpenArea(t, w, 8)
	p, _ := joinTestPlayer(t, w, "P1", "Ada")
	clearAround(w, p.Pos, 4)
	home := centerOf(Tile{X: corner.X + 1, Y: corner.Y + 4})
	p.Pos = Vec2{X: home.X + 3, Y: home.Y}

	m := &Monster{ID: "M1", Species: "slime", HP: 6, Pos: home}
	w.monsters["M1"] = m
	before := dist(m.Pos, p.Pos)
	w.systemMonsters(10)

	if m.TargetID != p.ID {
		t.Fatalf("monster did not acquire the player")
	}
	if after := dist(m.Pos, p.Pos); after >= before {
		t.Fatalf("monster did not close distance: %f -> %f", before, after)
	}
}

func TestMonsterAttackHonorsCooldown(t *testing.T) {
	w := newTestWorld(t, 75)
	corner := findOpenArea(t, w, 4)
	p, _ := joinTestPlayer(t, w, "P1", "Ada")
	clearAround(w, p.Pos, 4)
	p.Pos = centerOf(Tile{X: corner.X + 1, Y: corner.Y + 1})

	m := &Monster{ID: "M1", Species: "slime", HP: 6, Pos: Vec2{X: p.Pos.X + 0.3, Y: p.Pos.Y}}
	w.monsters["M1"] = m

	w.systemMonsters(10)
	if p.HP != w.tun.MaxHP-1 {
		t.Fatalf("hp after first bite = %d, want %d", p.HP, w.tun.MaxHP-1)
	}
	// Within cooldown: no second bite.
	w.systemMonsters(11)
	if p.HP != w.tun.MaxHP-1 {
		t.Fatalf("bite landed inside cooldown")
	}
	w.systemMonsters(10 + w.msToTicks(w.tun.MonsterAttackCdMs))
	if p.HP != w.tun.MaxHP-2 {
		t.Fatalf("hp after cooldown = %d, want %d", p.HP, w.tun.MaxHP-2)
	}
}

func TestMonsterCannotEnterClaimedLand(t *testing.T) {
	w := newTestWorld(t, 77)
	corner := findOpenArea(t, w, 6)
	p, _ := joinTestPlayer(t, w, "P1", "Ada")
	clearAround(w, p.Pos, 4)

	mid := Tile{X: corner.X + 3, Y: corner.Y + 3}
	w.communities["C000001"] = &Community{
		ID: "C000001", Name: "Elm", Members: map[string]bool{p.ID: true},
		Areas: []ClaimArea{{CX: mid.X, CY: mid.Y, R: 1}},
	}
	p.Community = "C000001"
	p.Pos = centerOf(mid)

	// Monster just outside the claim, player well inside aggro range.
	m := &Monster{ID: "M1", Species: "wolf", HP: 10, Pos: centerOf(Tile{X: mid.X - 3, Y: mid.Y})}
	w.monsters["M1"] = m

	for tick := uint64(10); tick < 60; tick++ {
		w.systemMonsters(tick)
		if c := w.communityAt(tileOf(m.Pos)); c != nil {
			t.Fatalf("monster crossed into claimed land at %v", m.Pos)
		}
	}
}

func TestProjectileHitsNearestMonster(t *testing.T) {
	w := newTestWorld(t, 79)
	corner := findOpenArea(t, w, 6)
	p, _ := joinTestPlayer(t, w, "P1", "Ada")
	clearAround(w, p.Pos, 4)
	p.Pos = centerOf(Tile{X: corner.X + 1, Y: corner.Y + 3})
	p.Facing = Vec2{X: 1, Y: 0}
	delete(p.Inventory, "rusty_sword")
	p.Inventory["hunting_bow"] = 1
	p.Inventory["arrow"] = 1

	m := &Monster{ID: "M1", Species: "slime", HP: 3, Pos: Vec2{X: p.Pos.X + 3, Y: p.Pos.Y}}
	w.monsters["M1"] = m

	w.spawnProjectile(p, 3, 10)
	for tick := uint64(11); tick < 30 && len(w.projectiles) > 0; tick++ {
		w.systemProjectiles(tick)
	}

	if w.monsters["M1"] != nil {
		t.Fatalf("projectile missed a monster dead ahead")
	}
}

func TestProjectileExpires(t *testing.T) {
	w := newTestWorld(t, 81)
	corner := findOpenArea(t, w, 4)
	p, _ := joinTestPlayer(t, w, "P1", "Ada")
	clearAround(w, p.Pos, 4)
	p.Pos = centerOf(Tile{X: corner.X + 1, Y: corner.Y + 1})
	p.Facing = Vec2{X: 0, Y: -1}

	w.spawnProjectile(p, 1, 10)
	ttl := w.msToTicks(w.tun.ProjectileTTLMs)
	w.systemProjectiles(10 + ttl)

	if len(w.projectiles) != 0 {
		t.Fatalf("projectile outlived its ttl")
	}
}

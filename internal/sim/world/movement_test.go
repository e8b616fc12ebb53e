package world

import (
	"math"
	"testing"
)

func TestCanWalkBlocksWallsAndWater(t *testing.T) {
	w := newTestWorld(t, 21)
	corner := findOpenArea(t, w, 3)

	wallTile := Tile{X: corner.X + 1, Y: corner.Y + 1}
	st := &Structure{GroupID: "S900001", Kind: KindWall, Owner: "P1", Tiles: []Tile{wallTile}}
	w.structures[st.GroupID] = st
	w.structAt[wallTile] = st

	if w.canWalk("", centerOf(wallTile)) {
		t.Fatalf("wall tile should not be walkable")
	}
	if !w.canWalk("", centerOf(corner)) {
		t.Fatalf("open land should be walkable")
	}

	water := findWaterTile(t, w)
	if w.canWalk("", centerOf(water)) {
		t.Fatalf("water tile %v should not be walkable", water)
	}
}

func TestGateAdmitsMembersOnly(t *testing.T) {
	w := newTestWorld(t, 21)
	corner := findOpenArea(t, w, 2)
	gateTile := Tile{X: corner.X, Y: corner.Y}
	st := &Structure{GroupID: "S900002", Kind: KindGate, Owner: "C000001", Tiles: []Tile{gateTile}}
	w.structures[st.GroupID] = st
	w.structAt[gateTile] = st

	if w.canWalk("", centerOf(gateTile)) {
		t.Fatalf("gate should block the unaffiliated")
	}
	if w.canWalk("C000009", centerOf(gateTile)) {
		t.Fatalf("gate should block other communities")
	}
	if !w.canWalk("C000001", centerOf(gateTile)) {
		t.Fatalf("gate should admit its own community")
	}
}

func TestClaimedLandAdmitsMembersOnly(t *testing.T) {
	w := newTestWorld(t, 23)
	corner := findOpenArea(t, w, 5)
	mid := Tile{X: corner.X + 2, Y: corner.Y + 2}
	w.communities["C000001"] = &Community{
		ID: "C000001", Name: "Elm", Members: map[string]bool{"P1": true},
		Areas: []ClaimArea{{CX: mid.X, CY: mid.Y, R: 1}},
	}

	if w.canWalk("", centerOf(mid)) {
		t.Fatalf("claimed land should block the unaffiliated")
	}
	if !w.canWalk("C000001", centerOf(mid)) {
		t.Fatalf("claimed land should admit members")
	}
}

func TestMovementSlidesAlongBlockedAxis(t *testing.T) {
	w := newTestWorld(t, 25)
	corner := findOpenArea(t, w, 5)
	p, _ := joinTestPlayer(t, w, "P1", "Ada")
	start := centerOf(Tile{X: corner.X + 1, Y: corner.Y + 2})
	p.Pos = start

	// Wall due east of the player.
	wallTile := Tile{X: corner.X + 2, Y: corner.Y + 2}
	st := &Structure{GroupID: "S900003", Kind: KindWall, Owner: "PX", Tiles: []Tile{wallTile}}
	w.structures[st.GroupID] = st
	w.structAt[wallTile] = st

	p.Input = InputState{Seq: 1, Dir: Vec2{X: 1, Y: 0}}
	stepN(w, 5)
	if tileOf(p.Pos) == wallTile {
		t.Fatalf("player walked into a wall at %v", p.Pos)
	}
	if p.Pos.X >= float64(wallTile.X) {
		t.Fatalf("player crossed the wall boundary: %v", p.Pos)
	}

	// Diagonal input slides along the free axis.
	p.Pos = start
	p.Input = InputState{Seq: 2, Dir: Vec2{X: 1, Y: 1}}
	w.step(nil, nil, nil)
	if p.Pos.Y <= start.Y && w.canWalk("", Vec2{X: start.X, Y: start.Y + 0.4}) {
		t.Fatalf("diagonal input did not slide south: %v", p.Pos)
	}
}

func TestMovementRespectsSpeedLimit(t *testing.T) {
	w := newTestWorld(t, 27)
	p, _ := joinTestPlayer(t, w, "P1", "Ada")
	start := p.Pos
	p.Input = InputState{Seq: 1, Dir: Vec2{X: 3, Y: 0}} // over-unit, server clamps via normalize
	w.step(nil, nil, nil)
	maxStep := w.tun.PlayerSpeed/float64(w.tun.TickRateHz) + 1e-9
	if d := math.Hypot(p.Pos.X-start.X, p.Pos.Y-start.Y); d > maxStep {
		t.Fatalf("moved %f in one tick, max %f", d, maxStep)
	}
}

func findWaterTile(t *testing.T, w *World) Tile {
	t.Helper()
	for r := 0; r < 600; r++ {
		for _, tl := range []Tile{{X: r, Y: 0}, {X: -r, Y: 0}, {X: 0, Y: r}, {X: 0, Y: -r}, {X: r, Y: r}, {X: -r, Y: -r}} {
			if w.chunks.TileKind(tl.X, tl.Y) == TileWater {
				return tl
			}
		}
	}
	t.Fatalf("no water tile found near origin")
	return Tile{}
}

func TestMoveDirBlendsTowardPrediction(t *testing.T) {
	desired := Vec2{X: 1, Y: 0}
	pos := Vec2{X: 10, Y: 10}

	if d := moveDir(desired, pos, nil); d != normalize(desired) {
		t.Fatalf("no prediction should pass the desired direction through, got %v", d)
	}

	// Agreeing prediction changes nothing.
	same := pos
	if d := moveDir(desired, pos, &same); d != normalize(desired) {
		t.Fatalf("zero disagreement should pass through, got %v", d)
	}

	// A prediction slightly off to one side bends the direction toward it,
	// still unit length.
	pred := Vec2{X: pos.X + 0.3, Y: pos.Y + 0.4}
	d := moveDir(desired, pos, &pred)
	if d.Y <= 0 {
		t.Fatalf("blend should pull toward the prediction, got %v", d)
	}
	if l := math.Hypot(d.X, d.Y); math.Abs(l-1) > 1e-9 {
		t.Fatalf("blended direction length = %f, want 1", l)
	}

	// A wildly wrong prediction is ignored, not snapped to.
	far := Vec2{X: pos.X + 50, Y: pos.Y + 50}
	if d := moveDir(desired, pos, &far); d != normalize(desired) {
		t.Fatalf("out-of-range prediction should be ignored, got %v", d)
	}
}
